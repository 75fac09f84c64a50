package sensor

import (
	"context"
	"errors"
	"time"

	"github.com/denwilliams/go-ambient-match/internal/color"
	"github.com/denwilliams/go-ambient-match/internal/logging"
)

type SamplerConfig struct {
	Samples      int
	PulseTimeout time.Duration
	SettleDelay  time.Duration
	SampleGap    time.Duration
}

var DefaultSamplerConfig = SamplerConfig{
	Samples:      3,
	PulseTimeout: 50 * time.Millisecond,
	SettleDelay:  20 * time.Millisecond,
	SampleGap:    5 * time.Millisecond,
}

// Sampler turns raw pulse timings into averaged filter frequencies.
type Sampler struct {
	sensor Sensor
	cfg    SamplerConfig
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewSampler(s Sensor, cfg SamplerConfig) *Sampler {
	if cfg.Samples <= 0 {
		cfg.Samples = DefaultSamplerConfig.Samples
	}
	if cfg.PulseTimeout <= 0 {
		cfg.PulseTimeout = DefaultSamplerConfig.PulseTimeout
	}
	return &Sampler{sensor: s, cfg: cfg, sleep: sleepContext}
}

// Read samples the red, blue and green filters, in that order. Sensor
// failures show up as zero frequencies; only cancellation returns an error.
func (s *Sampler) Read(ctx context.Context) (color.Frequencies, error) {
	var f color.Frequencies
	var err error

	if f.R, err = s.Frequency(ctx, FilterRed); err != nil {
		return f, err
	}
	if f.B, err = s.Frequency(ctx, FilterBlue); err != nil {
		return f, err
	}
	if f.G, err = s.Frequency(ctx, FilterGreen); err != nil {
		return f, err
	}
	return f, nil
}

// Frequency returns the mean frequency in Hz over the successful samples of
// one filter, or 0 if none succeeded.
func (s *Sampler) Frequency(ctx context.Context, filter Filter) (float64, error) {
	s2, s3 := filter.Lines()
	if err := s.sensor.SelectFilter(s2, s3); err != nil {
		logging.Warn("Failed to select %s filter: %s", filter, err)
		samplesTotal.WithLabelValues(filter.String(), "error").Add(float64(s.cfg.Samples))
		return 0, nil
	}
	if err := s.sleep(ctx, s.cfg.SettleDelay); err != nil {
		return 0, err
	}

	var acc float64
	ok := 0
	for i := 0; i < s.cfg.Samples; i++ {
		hz, err := s.measure(ctx)
		switch {
		case err == nil:
			acc += hz
			ok++
			samplesTotal.WithLabelValues(filter.String(), "ok").Inc()
		case ctx.Err() != nil:
			return 0, ctx.Err()
		case errors.Is(err, ErrPulseTimeout):
			samplesTotal.WithLabelValues(filter.String(), "timeout").Inc()
		default:
			logging.Debug("Pulse read failed on %s filter: %s", filter, err)
			samplesTotal.WithLabelValues(filter.String(), "error").Inc()
		}
		if err := s.sleep(ctx, s.cfg.SampleGap); err != nil {
			return 0, err
		}
	}

	if ok == 0 {
		return 0, nil
	}
	return acc / float64(ok), nil
}

// measure times one low and one high phase and returns 1/period in Hz.
func (s *Sampler) measure(ctx context.Context) (float64, error) {
	low, err := s.sensor.MeasurePulse(ctx, false, s.cfg.PulseTimeout)
	if err != nil {
		return 0, err
	}
	high, err := s.sensor.MeasurePulse(ctx, true, s.cfg.PulseTimeout)
	if err != nil {
		return 0, err
	}
	if low <= 0 || high <= 0 {
		return 0, ErrPulseTimeout
	}

	periodUs := float64(low.Microseconds() + high.Microseconds())
	if periodUs <= 0 {
		return 0, ErrPulseTimeout
	}
	return 1_000_000 / periodUs, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
