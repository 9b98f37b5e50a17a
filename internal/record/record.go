package record

import (
	"math"
	"time"

	"aisreporter/internal/ais"
	"aisreporter/internal/constants"
)

// Record is one entry of a jsonais message list. Absent fields are omitted
// from the JSON; present zero values are kept.
type Record struct {
	MsgType     int      `json:"msgtype"`
	MMSI        uint32   `json:"mmsi"`
	RxTime      string   `json:"rxtime"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
	Speed       *float64 `json:"speed,omitempty"`
	Course      *float64 `json:"course,omitempty"`
	Heading     *float64 `json:"heading,omitempty"`
	Status      *float64 `json:"status,omitempty"`
	ShipType    *float64 `json:"shiptype,omitempty"`
	Callsign    string   `json:"callsign,omitempty"`
	Name        string   `json:"name,omitempty"`
	Draught     *float64 `json:"draught,omitempty"`
	Length      *float64 `json:"length,omitempty"`
	Width       *float64 `json:"width,omitempty"`
	Destination string   `json:"destination,omitempty"`
}

// FormatTimestamp renders t in UTC as YYYYMMDDHHMMSS.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(constants.TimestampLayout)
}

// Normalize converts a decoded event into a sparse Record stamped with now.
func Normalize(ev ais.Event, now time.Time) Record {
	return Record{
		MsgType:     ev.Type,
		MMSI:        ev.MMSI,
		RxTime:      FormatTimestamp(now),
		Lat:         finite(ev.Lat),
		Lon:         finite(ev.Lon),
		Speed:       finite(ev.SpeedOverGround),
		Course:      finite(ev.CourseOverGround),
		Heading:     finite(ev.Heading),
		Status:      finite(ev.NavStatus),
		ShipType:    finite(ev.TypeAndCargo),
		Callsign:    ev.Callsign,
		Name:        ev.Name,
		Draught:     finite(ev.Draught),
		Length:      finite(ev.Length),
		Width:       finite(ev.Width),
		Destination: ev.Destination,
	}
}

// Fields flattens the record into the map form used by filter expressions.
// Absent fields are left out.
func (r Record) Fields() map[string]interface{} {
	m := map[string]interface{}{
		"msgtype": int64(r.MsgType),
		"mmsi":    int64(r.MMSI),
		"rxtime":  r.RxTime,
	}
	for key, v := range map[string]*float64{
		"lat":      r.Lat,
		"lon":      r.Lon,
		"speed":    r.Speed,
		"course":   r.Course,
		"heading":  r.Heading,
		"status":   r.Status,
		"shiptype": r.ShipType,
		"draught":  r.Draught,
		"length":   r.Length,
		"width":    r.Width,
	} {
		if v != nil {
			m[key] = *v
		}
	}
	for key, v := range map[string]string{
		"callsign":    r.Callsign,
		"name":        r.Name,
		"destination": r.Destination,
	} {
		if v != "" {
			m[key] = v
		}
	}
	return m
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
