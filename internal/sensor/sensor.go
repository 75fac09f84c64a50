// Package sensor samples the TCS3200-style color sensor and the ambient light
// meter. Both sit behind small interfaces so the sampling logic does not
// depend on a particular GPIO stack.
package sensor

import (
	"context"
	"errors"
	"math"
	"time"
)

var ErrPulseTimeout = errors.New("sensor: pulse timeout")

// Sensor is the hardware surface of a photodiode color sensor.
type Sensor interface {
	// SelectFilter drives the two filter select lines.
	SelectFilter(s2, s3 bool) error
	// MeasurePulse times one phase of the output signal at the given level.
	// It returns ErrPulseTimeout when no complete phase is seen in time.
	MeasurePulse(ctx context.Context, high bool, timeout time.Duration) (time.Duration, error)
}

// LightMeter reads ambient light in lux.
type LightMeter interface {
	Lux(ctx context.Context) (float64, error)
}

var errNoLightMeter = errors.New("sensor: no light meter")

// NoLight stands in when no light meter is attached. Every reading is unknown.
var NoLight LightMeter = noLight{}

type noLight struct{}

func (noLight) Lux(context.Context) (float64, error) { return 0, errNoLightMeter }

// KnownLux filters a light meter result. Errors, NaN and non-positive values
// are reported as unknown.
func KnownLux(lux float64, err error) (float64, bool) {
	if err != nil || math.IsNaN(lux) || math.IsInf(lux, 0) || lux <= 0 {
		return 0, false
	}
	return lux, true
}

type Filter int

const (
	FilterRed Filter = iota
	FilterBlue
	FilterGreen
	FilterClear
)

// Lines returns the S2/S3 levels that select the filter.
func (f Filter) Lines() (s2, s3 bool) {
	switch f {
	case FilterRed:
		return false, false
	case FilterBlue:
		return false, true
	case FilterGreen:
		return true, true
	default:
		return true, false
	}
}

func (f Filter) String() string {
	switch f {
	case FilterRed:
		return "red"
	case FilterBlue:
		return "blue"
	case FilterGreen:
		return "green"
	case FilterClear:
		return "clear"
	}
	return "unknown"
}
