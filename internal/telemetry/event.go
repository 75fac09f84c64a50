package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/denwilliams/go-ambient-match/internal/color"
)

type Kind string

const (
	KindLux      Kind = "lux"
	KindColor    Kind = "color"
	KindActuator Kind = "led"
)

// Event is a structured telemetry record. Sinks decide how to encode it.
type Event interface {
	Kind() Kind
}

type LuxEvent struct {
	Lux       float64 `json:"lux"`
	Timestamp int64   `json:"ts"`
}

func (LuxEvent) Kind() Kind { return KindLux }

type ColorEvent struct {
	RGB         [3]uint8          `json:"rgb"`
	HSV         color.HSV         `json:"hsv"`
	Frequencies color.Frequencies `json:"freq"`
	Label       color.Label       `json:"color"`
	Timestamp   int64             `json:"ts"`
}

func (ColorEvent) Kind() Kind { return KindColor }

type ActuatorEvent struct {
	RGB       [3]uint8 `json:"led_rgb"`
	Timestamp int64    `json:"ts"`
}

func (ActuatorEvent) Kind() Kind { return KindActuator }

func NewLuxEvent(lux float64, at time.Time) LuxEvent {
	return LuxEvent{Lux: lux, Timestamp: at.UnixMilli()}
}

func NewColorEvent(r Reading, at time.Time) ColorEvent {
	return ColorEvent{
		RGB:         r.Mapped.Array(),
		HSV:         r.HSV,
		Frequencies: r.Frequencies,
		Label:       r.Label,
		Timestamp:   at.UnixMilli(),
	}
}

func NewActuatorEvent(c color.RGB, at time.Time) ActuatorEvent {
	return ActuatorEvent{RGB: c.Array(), Timestamp: at.UnixMilli()}
}

// Sink receives telemetry events. Delivery guarantees are up to the sink.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

// MultiSink publishes to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Publish(ctx context.Context, ev Event) error {
	var errs error
	for _, s := range m {
		if err := s.Publish(ctx, ev); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

// Discard drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Publish(context.Context, Event) error { return nil }

// Decode parses a published payload back into its event type.
func Decode(kind Kind, data []byte) (Event, error) {
	var (
		ev  Event
		err error
	)
	switch kind {
	case KindLux:
		var e LuxEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case KindColor:
		var e ColorEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case KindActuator:
		var e ActuatorEvent
		err = json.Unmarshal(data, &e)
		ev = e
	default:
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s event: %w", kind, err)
	}
	return ev, nil
}

// Time returns the event timestamp, or zero when the payload carried none.
func Time(ev Event) time.Time {
	var ms int64
	switch e := ev.(type) {
	case LuxEvent:
		ms = e.Timestamp
	case ColorEvent:
		ms = e.Timestamp
	case ActuatorEvent:
		ms = e.Timestamp
	}
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
