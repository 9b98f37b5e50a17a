package ais

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	goais "github.com/BertoldVdb/go-ais"
	"github.com/BertoldVdb/go-ais/aisnmea"
	nmea "github.com/adrianmo/go-nmea"
)

var (
	ErrNotAIS             = errors.New("not an AIS VDM/VDO sentence")
	ErrUnsupportedMessage = errors.New("unsupported AIS message type")
	ErrInvalidPayload     = errors.New("AIS payload could not be decoded")
)

const (
	speedNotAvailable = 102.3
	lonNotAvailable   = 180
	latNotAvailable   = 90
)

// Decoder turns raw VDM/VDO sentences into Events. Multi-sentence messages
// are buffered by the NMEA codec until every fragment arrived; stale
// fragments expire after a bounded number of further sentences. It is safe
// for concurrent use; handlers run on the caller's goroutine after internal
// state is released.
type Decoder struct {
	mu       sync.Mutex
	handlers []func(Event)
	codec    *aisnmea.NMEACodec
}

func NewDecoder() *Decoder {
	c := goais.CodecNew(false, false)
	c.DropSpace = true
	return &Decoder{
		codec: aisnmea.NMEACodecNew(c),
	}
}

// OnEvent registers a handler for every decoded event.
func (d *Decoder) OnEvent(fn func(Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, fn)
}

// Write feeds one raw sentence into the decoder. A nil error with no event
// emitted means the sentence was a non-final fragment.
func (d *Decoder) Write(line string) error {
	s, err := nmea.Parse(line)
	if err != nil {
		return fmt.Errorf("parse sentence: %w", err)
	}
	vdm, ok := s.(nmea.VDMVDO)
	if !ok {
		return ErrNotAIS
	}

	d.mu.Lock()
	assembled, err := d.codec.ParseVDMVDO(&vdm)
	handlers := make([]func(Event), len(d.handlers))
	copy(handlers, d.handlers)
	d.mu.Unlock()

	if err != nil {
		return fmt.Errorf("assemble sentence: %w", err)
	}
	if assembled == nil {
		return nil
	}
	if assembled.Packet == nil {
		return fmt.Errorf("%w: %d bits", ErrInvalidPayload, len(assembled.Payload))
	}

	ev, err := toEvent(assembled.Packet)
	if err != nil {
		return err
	}
	ev.RadioChannel = radioChannel(vdm.Channel, assembled.Channel)

	for _, h := range handlers {
		h(ev)
	}
	return nil
}

// Pending returns the number of buffered fragments of incomplete messages.
func (d *Decoder) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.codec.BufferedMessages()
}

// radioChannel prefers the channel letter of the sentence; continuation
// sentences may leave it empty, in which case the codec's 1/2 is mapped back.
func radioChannel(sentence string, codec byte) string {
	if sentence != "" {
		return sentence
	}
	if codec == 2 {
		return "B"
	}
	return "A"
}

func toEvent(p goais.Packet) (Event, error) {
	h := p.GetHeader()
	ev := newEvent(int(h.MessageID), h.UserID)

	switch m := p.(type) {
	case goais.PositionReport:
		ev.NavStatus = float64(m.NavigationalStatus)
		ev.SpeedOverGround = speed(float64(m.Sog))
		ev.Lon, ev.Lat = position(float64(m.Longitude), float64(m.Latitude))
		ev.CourseOverGround = course(float64(m.Cog))
		ev.Heading = heading(m.TrueHeading)
	case goais.BaseStationReport:
		ev.Lon, ev.Lat = position(float64(m.Longitude), float64(m.Latitude))
	case goais.ShipStaticData:
		ev.Callsign = text(m.CallSign)
		ev.Name = text(m.Name)
		ev.TypeAndCargo = nonZero(uint64(m.Type))
		ev.Length, ev.Width = dimensions(m.Dimension)
		if m.MaximumStaticDraught > 0 {
			ev.Draught = float64(m.MaximumStaticDraught)
		}
		ev.Destination = text(m.Destination)
	case goais.StandardClassBPositionReport:
		ev.SpeedOverGround = speed(float64(m.Sog))
		ev.Lon, ev.Lat = position(float64(m.Longitude), float64(m.Latitude))
		ev.CourseOverGround = course(float64(m.Cog))
		ev.Heading = heading(m.TrueHeading)
	case goais.ExtendedClassBPositionReport:
		ev.SpeedOverGround = speed(float64(m.Sog))
		ev.Lon, ev.Lat = position(float64(m.Longitude), float64(m.Latitude))
		ev.CourseOverGround = course(float64(m.Cog))
		ev.Heading = heading(m.TrueHeading)
		ev.Name = text(m.Name)
		ev.TypeAndCargo = nonZero(uint64(m.Type))
		ev.Length, ev.Width = dimensions(m.Dimension)
	case goais.AidsToNavigationReport:
		ev.Name = text(m.Name + m.NameExtension)
		ev.Lon, ev.Lat = position(float64(m.Longitude), float64(m.Latitude))
		ev.Length, ev.Width = dimensions(m.Dimension)
	case goais.StaticDataReport:
		switch {
		case m.ReportA.Valid:
			ev.Name = text(m.ReportA.Name)
		case m.ReportB.Valid:
			ev.TypeAndCargo = nonZero(uint64(m.ReportB.ShipType))
			ev.Callsign = text(m.ReportB.CallSign)
			ev.Length, ev.Width = dimensions(m.ReportB.Dimension)
		default:
			return Event{}, fmt.Errorf("%w: type 24 without part A or B", ErrInvalidPayload)
		}
	case goais.LongRangeAisBroadcastMessage:
		ev.NavStatus = float64(m.NavigationalStatus)
		ev.Lon, ev.Lat = position(float64(m.Longitude), float64(m.Latitude))
		if m.Sog != 63 {
			ev.SpeedOverGround = float64(m.Sog)
		}
		if m.Cog < 360 {
			ev.CourseOverGround = float64(m.Cog)
		}
	default:
		return Event{}, fmt.Errorf("%w: %d", ErrUnsupportedMessage, h.MessageID)
	}

	return ev, nil
}

// position drops the 181/91 "not available" markers and anything else out
// of range.
func position(lon, lat float64) (float64, float64) {
	if math.Abs(lon) > lonNotAvailable || math.Abs(lat) > latNotAvailable {
		return math.NaN(), math.NaN()
	}
	return lon, lat
}

func speed(knots float64) float64 {
	if knots >= speedNotAvailable {
		return math.NaN()
	}
	return knots
}

func course(deg float64) float64 {
	if deg >= 360 {
		return math.NaN()
	}
	return deg
}

func heading(raw uint16) float64 {
	if raw >= 360 {
		return math.NaN()
	}
	return float64(raw)
}

func nonZero(raw uint64) float64 {
	if raw == 0 {
		return math.NaN()
	}
	return float64(raw)
}

// dimensions sums to-bow/stern and to-port/starboard.
func dimensions(d goais.FieldDimension) (float64, float64) {
	length := uint64(d.A) + uint64(d.B)
	width := uint64(d.C) + uint64(d.D)
	return nonZero(length), nonZero(width)
}

// text cuts at the first '@' pad left inside the field and trims blanks.
func text(s string) string {
	if i := strings.IndexByte(s, '@'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
