package ais

import "math"

// Event is a decoded AIS position or static-data report. Numeric fields
// hold NaN when the transmitter reported them as not available, and text
// fields are empty when absent.
type Event struct {
	Type         int
	MMSI         uint32
	RadioChannel string

	Lat              float64
	Lon              float64
	SpeedOverGround  float64
	CourseOverGround float64
	Heading          float64

	NavStatus    float64
	TypeAndCargo float64
	Callsign     string
	Name         string
	Draught      float64
	Length       float64
	Width        float64
	Destination  string
}

func newEvent(msgType int, mmsi uint32) Event {
	nan := math.NaN()
	return Event{
		Type:             msgType,
		MMSI:             mmsi,
		Lat:              nan,
		Lon:              nan,
		SpeedOverGround:  nan,
		CourseOverGround: nan,
		Heading:          nan,
		NavStatus:        nan,
		TypeAndCargo:     nan,
		Draught:          nan,
		Length:           nan,
		Width:            nan,
	}
}

// HasPosition reports whether the event carries a usable lat/lon pair.
func (e Event) HasPosition() bool {
	return !math.IsNaN(e.Lat) && !math.IsNaN(e.Lon)
}
