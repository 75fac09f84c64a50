package hardware

import (
	"context"
	"fmt"
	"time"

	"gobot.io/x/gobot/drivers/gpio"

	"github.com/denwilliams/go-ambient-match/internal/sensor"
)

// TCS3200Pins are raspi header pin names.
type TCS3200Pins struct {
	S0, S1, S2, S3 string
	Out            string
	LED            string
}

type digitalOutput interface {
	DigitalWrite(level byte) error
}

type digitalInput interface {
	DigitalRead() (int, error)
}

// TCS3200 implements sensor.Sensor. Pulses are timed by polling the output
// pin, so readings are only as precise as the GPIO read latency.
type TCS3200 struct {
	s2, s3 digitalOutput
	out    digitalInput
	poll   time.Duration
}

// NewTCS3200 sets output frequency scaling to 20% and switches the
// illumination LED on.
func NewTCS3200(b *Board, pins TCS3200Pins) (*TCS3200, error) {
	s0 := gpio.NewDirectPinDriver(b.adaptor, pins.S0)
	s1 := gpio.NewDirectPinDriver(b.adaptor, pins.S1)
	s2 := gpio.NewDirectPinDriver(b.adaptor, pins.S2)
	s3 := gpio.NewDirectPinDriver(b.adaptor, pins.S3)
	out := gpio.NewDirectPinDriver(b.adaptor, pins.Out)

	drivers := []*gpio.DirectPinDriver{s0, s1, s2, s3, out}
	var led *gpio.DirectPinDriver
	if pins.LED != "" {
		led = gpio.NewDirectPinDriver(b.adaptor, pins.LED)
		drivers = append(drivers, led)
	}
	for _, d := range drivers {
		if err := d.Start(); err != nil {
			return nil, fmt.Errorf("tcs3200 pin %s: %w", d.Pin(), err)
		}
	}

	if err := s0.DigitalWrite(1); err != nil {
		return nil, err
	}
	if err := s1.DigitalWrite(0); err != nil {
		return nil, err
	}
	if led != nil {
		if err := led.DigitalWrite(1); err != nil {
			return nil, err
		}
	}

	return &TCS3200{s2: s2, s3: s3, out: out}, nil
}

func (t *TCS3200) SelectFilter(s2, s3 bool) error {
	if err := t.s2.DigitalWrite(level(s2)); err != nil {
		return err
	}
	return t.s3.DigitalWrite(level(s3))
}

// MeasurePulse waits for the current phase at the wanted level to end, then
// times the next full phase at that level.
func (t *TCS3200) MeasurePulse(ctx context.Context, high bool, timeout time.Duration) (time.Duration, error) {
	want := int(level(high))
	deadline := time.Now().Add(timeout)

	if err := t.waitFor(ctx, want, false, deadline); err != nil {
		return 0, err
	}
	if err := t.waitFor(ctx, want, true, deadline); err != nil {
		return 0, err
	}
	start := time.Now()
	if err := t.waitFor(ctx, want, false, deadline); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// waitFor polls until the output is at lvl (match) or away from it (!match).
func (t *TCS3200) waitFor(ctx context.Context, lvl int, match bool, deadline time.Time) error {
	for {
		v, err := t.out.DigitalRead()
		if err != nil {
			return err
		}
		if (v == lvl) == match {
			return nil
		}
		if time.Now().After(deadline) {
			return sensor.ErrPulseTimeout
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if t.poll > 0 {
			time.Sleep(t.poll)
		}
	}
}

func level(b bool) byte {
	if b {
		return 1
	}
	return 0
}
