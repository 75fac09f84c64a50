// Package control runs the sensing-to-actuation loop: sample the color
// sensor, classify, scale by ambient light, let the hold controller decide on
// the actuator and let the telemetry gate decide on publishing.
package control

import (
	"context"
	"sync"
	"time"

	"github.com/denwilliams/go-ambient-match/internal/actuator"
	"github.com/denwilliams/go-ambient-match/internal/color"
	"github.com/denwilliams/go-ambient-match/internal/logging"
	"github.com/denwilliams/go-ambient-match/internal/sensor"
	"github.com/denwilliams/go-ambient-match/internal/telemetry"
)

// FrequencySource returns one averaged frequency per color filter.
type FrequencySource interface {
	Read(ctx context.Context) (color.Frequencies, error)
}

type Config struct {
	// Interval is the pause after each cycle.
	Interval    time.Duration
	Calibration color.Calibration
	Scaler      color.Scaler
	Gate        telemetry.GateConfig
}

// CycleResult is what a single cycle observed and decided.
type CycleResult struct {
	At        time.Time
	Reading   telemetry.Reading
	Target    color.RGB
	Applied   color.RGB
	Actuator  actuator.Decision
	Telemetry telemetry.Decision
}

type Loop struct {
	colors   FrequencySource
	light    sensor.LightMeter
	ctrl     *actuator.Controller
	sink     telemetry.Sink
	cfg      Config
	now      func() time.Time
	gate     *telemetry.Gate
	lastMu   sync.RWMutex
	last     CycleResult
	haveLast bool
}

func New(colors FrequencySource, light sensor.LightMeter, ctrl *actuator.Controller, sink telemetry.Sink, cfg Config, start time.Time) *Loop {
	if sink == nil {
		sink = telemetry.Discard
	}
	return &Loop{
		colors: colors,
		light:  light,
		ctrl:   ctrl,
		sink:   sink,
		cfg:    cfg,
		now:    time.Now,
		gate:   telemetry.NewGate(cfg.Gate, start),
	}
}

// Run cycles until ctx is cancelled, pausing Interval after every cycle.
func (l *Loop) Run(ctx context.Context) error {
	logging.Info("Control loop started, interval %s", l.cfg.Interval)
	for {
		if _, err := l.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				logging.Info("Control loop interrupted, exiting")
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			logging.Info("Control loop interrupted, exiting")
			return nil
		case <-time.After(l.cfg.Interval):
		}
	}
}

// Cycle runs one full pass. It only fails when ctx is cancelled.
func (l *Loop) Cycle(ctx context.Context) (CycleResult, error) {
	started := time.Now()

	freq, err := l.colors.Read(ctx)
	if err != nil {
		return CycleResult{}, err
	}

	r := telemetry.Reading{Frequencies: freq}
	r.Mapped = l.cfg.Calibration.Map(freq)
	r.HSV = color.ToHSV(r.Mapped)
	r.Label = color.Classify(r.HSV)
	r.Lux, r.LuxKnown = sensor.KnownLux(l.light.Lux(ctx))

	now := l.now()
	res := CycleResult{At: now, Reading: r}

	// Unknown lux scales with the floor brightness.
	res.Target = l.cfg.Scaler.Scale(r.Mapped, r.Lux)
	res.Actuator = l.ctrl.Update(ctx, res.Target, now)
	res.Applied, _ = l.ctrl.Applied()

	res.Telemetry = l.gate.Evaluate(r, now)
	if res.Telemetry.Fired() {
		l.publish(ctx, res)
		l.gate.Commit(res.Telemetry, r, now)
	}

	logging.Debug("LUX: %.1f | RGB%v->TARGET%v | LED%v | COLOR: %s",
		r.Lux, r.Mapped, res.Target, res.Applied, r.Label)

	l.record(res, time.Since(started))
	return res, nil
}

func (l *Loop) publish(ctx context.Context, res CycleResult) {
	d, r := res.Telemetry, res.Reading

	if d.EmitLux(r) {
		l.emit(ctx, telemetry.NewLuxEvent(r.Lux, res.At))
	}
	if d.EmitColor() {
		l.emit(ctx, telemetry.NewColorEvent(r, res.At))
	}
	if d.Heartbeat {
		l.emit(ctx, telemetry.NewActuatorEvent(res.Applied, res.At))
	}
}

func (l *Loop) emit(ctx context.Context, ev telemetry.Event) {
	if err := l.sink.Publish(ctx, ev); err != nil {
		logging.Warn("Failed to publish %s event: %s", ev.Kind(), err)
		return
	}
	eventsTotal.WithLabelValues(string(ev.Kind())).Inc()
}

func (l *Loop) record(res CycleResult, took time.Duration) {
	cyclesTotal.Inc()
	cycleDuration.Observe(took.Seconds())
	if res.Reading.LuxKnown {
		luxGauge.Set(res.Reading.Lux)
	}
	channelGauge.WithLabelValues("red").Set(float64(res.Reading.Mapped.R))
	channelGauge.WithLabelValues("green").Set(float64(res.Reading.Mapped.G))
	channelGauge.WithLabelValues("blue").Set(float64(res.Reading.Mapped.B))

	l.lastMu.Lock()
	l.last = res
	l.haveLast = true
	l.lastMu.Unlock()
}

// Last returns the most recent cycle, if any has completed.
func (l *Loop) Last() (CycleResult, bool) {
	l.lastMu.RLock()
	defer l.lastMu.RUnlock()
	return l.last, l.haveLast
}

// Applied returns the color the actuator currently shows.
func (l *Loop) Applied() (color.RGB, time.Time) {
	return l.ctrl.Applied()
}

// SetColor routes an inbound color command through the controller's apply path.
func (l *Loop) SetColor(ctx context.Context, c color.RGB) error {
	l.ctrl.Command(ctx, c, l.now())
	return nil
}
