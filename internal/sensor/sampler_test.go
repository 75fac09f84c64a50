package sensor

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

type pulse struct {
	d   time.Duration
	err error
}

// fakeSensor replays scripted pulse timings per filter.
type fakeSensor struct {
	pulses   map[Filter][]pulse
	selected Filter
	selects  []Filter
	selErr   error
}

func (f *fakeSensor) SelectFilter(s2, s3 bool) error {
	if f.selErr != nil {
		return f.selErr
	}
	for _, c := range []Filter{FilterRed, FilterBlue, FilterGreen, FilterClear} {
		if a, b := c.Lines(); a == s2 && b == s3 {
			f.selected = c
		}
	}
	f.selects = append(f.selects, f.selected)
	return nil
}

func (f *fakeSensor) MeasurePulse(ctx context.Context, high bool, timeout time.Duration) (time.Duration, error) {
	q := f.pulses[f.selected]
	if len(q) == 0 {
		return 0, ErrPulseTimeout
	}
	p := q[0]
	f.pulses[f.selected] = q[1:]
	return p.d, p.err
}

func newTestSampler(s Sensor) *Sampler {
	sm := NewSampler(s, DefaultSamplerConfig)
	sm.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return sm
}

func us(n int) pulse {
	return pulse{d: time.Duration(n) * time.Microsecond}
}

func TestSamplerFrequency(t *testing.T) {
	timeout := pulse{err: ErrPulseTimeout}

	tests := []struct {
		name   string
		pulses []pulse
		want   float64
	}{
		{
			name:   "all_samples_ok",
			pulses: []pulse{us(250), us(250), us(250), us(250), us(250), us(250)},
			want:   2000,
		},
		{
			name:   "failed_samples_are_not_averaged",
			pulses: []pulse{us(250), us(250), timeout, us(500), us(500)},
			want:   1500,
		},
		{
			name:   "high_phase_timeout_discards_sample",
			pulses: []pulse{us(100), timeout, us(400), us(600), us(400), us(600)},
			want:   1000,
		},
		{
			name:   "no_pulses_is_zero",
			pulses: nil,
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := &fakeSensor{pulses: map[Filter][]pulse{FilterGreen: tt.pulses}}
			got, err := newTestSampler(fs).Frequency(context.Background(), FilterGreen)
			if err != nil {
				t.Fatalf("Frequency() error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Frequency() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSamplerReadOrder(t *testing.T) {
	fs := &fakeSensor{pulses: map[Filter][]pulse{
		FilterRed:   {us(500), us(500), us(500), us(500), us(500), us(500)},
		FilterBlue:  {us(2500), us(2500), us(2500), us(2500), us(2500), us(2500)},
		FilterGreen: {us(250), us(250), us(250), us(250), us(250), us(250)},
	}}

	f, err := newTestSampler(fs).Read(context.Background())
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if f.R != 1000 || f.G != 2000 || f.B != 200 {
		t.Errorf("Read() = %+v", f)
	}

	want := []Filter{FilterRed, FilterBlue, FilterGreen}
	if len(fs.selects) != len(want) {
		t.Fatalf("selects = %v, want %v", fs.selects, want)
	}
	for i := range want {
		if fs.selects[i] != want[i] {
			t.Errorf("select %d = %s, want %s", i, fs.selects[i], want[i])
		}
	}
}

func TestSamplerSelectFailureDegrades(t *testing.T) {
	fs := &fakeSensor{selErr: errors.New("gpio busy")}
	f, err := newTestSampler(fs).Read(context.Background())
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if f.R != 0 || f.G != 0 || f.B != 0 {
		t.Errorf("Read() = %+v, want zeros", f)
	}
}

func TestSamplerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fs := &fakeSensor{pulses: map[Filter][]pulse{}}
	if _, err := newTestSampler(fs).Read(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Read() error = %v, want context.Canceled", err)
	}
}

func TestKnownLux(t *testing.T) {
	tests := []struct {
		name  string
		lux   float64
		err   error
		known bool
	}{
		{name: "reading", lux: 120.5, known: true},
		{name: "dark_room_zero", lux: 0},
		{name: "negative", lux: -2},
		{name: "nan", lux: math.NaN()},
		{name: "error", lux: 50, err: errors.New("i2c")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := KnownLux(tt.lux, tt.err)
			if ok != tt.known {
				t.Errorf("KnownLux() known = %v, want %v", ok, tt.known)
			}
			if ok && v != tt.lux {
				t.Errorf("KnownLux() = %v, want %v", v, tt.lux)
			}
		})
	}
}

func TestNoLight(t *testing.T) {
	if _, ok := KnownLux(NoLight.Lux(context.Background())); ok {
		t.Error("NoLight reported a known reading")
	}
}
