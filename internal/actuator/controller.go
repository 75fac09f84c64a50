package actuator

import (
	"context"
	"sync"
	"time"

	"github.com/denwilliams/go-ambient-match/internal/color"
	"github.com/denwilliams/go-ambient-match/internal/logging"
	"github.com/denwilliams/go-ambient-match/internal/telemetry"
)

// Actuator shows a color. Apply is fire and forget.
type Actuator interface {
	Apply(c color.RGB) error
}

type Config struct {
	// Delta is the smallest per-channel change worth applying.
	Delta int
	// Hold is the minimum time between two applied changes.
	Hold time.Duration
}

var DefaultConfig = Config{Delta: 10, Hold: time.Second}

type Decision int

const (
	Hold Decision = iota
	Apply
)

func (d Decision) String() string {
	if d == Apply {
		return "apply"
	}
	return "hold"
}

// Decide returns Apply when target differs enough from applied and the hold
// time since lastApply has passed.
func Decide(target, applied color.RGB, lastApply, now time.Time, cfg Config) Decision {
	if !target.Differs(applied, cfg.Delta) {
		return Hold
	}
	if now.Sub(lastApply) < cfg.Hold {
		return Hold
	}
	return Apply
}

// Controller owns the color currently shown by the actuator. Loop updates
// and inbound commands share one lock so the applied color and its
// timestamp always change together. emitMu is taken before mu is released so
// actuator events leave in the order the colors were applied.
type Controller struct {
	mu        sync.Mutex
	emitMu    sync.Mutex
	out       Actuator
	sink      telemetry.Sink
	cfg       Config
	applied   color.RGB
	lastApply time.Time
}

// NewController switches the actuator off and starts the hold window at start.
func NewController(out Actuator, sink telemetry.Sink, cfg Config, start time.Time) *Controller {
	if sink == nil {
		sink = telemetry.Discard
	}
	c := &Controller{out: out, sink: sink, cfg: cfg, lastApply: start}
	if err := out.Apply(color.RGB{}); err != nil {
		logging.Warn("Failed to reset actuator: %s", err)
	}
	return c
}

// Applied returns the color currently shown and when it was applied.
func (c *Controller) Applied() (color.RGB, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applied, c.lastApply
}

// Update applies target if Decide allows it.
func (c *Controller) Update(ctx context.Context, target color.RGB, now time.Time) Decision {
	c.mu.Lock()
	d := Decide(target, c.applied, c.lastApply, now, c.cfg)
	if d == Hold {
		c.mu.Unlock()
		return Hold
	}
	c.apply(target, now, "loop")
	c.emitMu.Lock()
	c.mu.Unlock()

	c.emit(ctx, target, now)
	return Apply
}

// Command applies target unconditionally, bypassing the delta and hold checks.
func (c *Controller) Command(ctx context.Context, target color.RGB, now time.Time) {
	c.mu.Lock()
	c.apply(target, now, "command")
	c.emitMu.Lock()
	c.mu.Unlock()

	logging.Info("Actuator set by command to %v", target)
	c.emit(ctx, target, now)
}

// apply must be called with mu held. Write errors are logged and the state
// still advances.
func (c *Controller) apply(target color.RGB, now time.Time, source string) {
	if err := c.out.Apply(target); err != nil {
		logging.Warn("Actuator write %v failed: %s", target, err)
		applyErrors.Inc()
	}
	c.applied = target
	c.lastApply = now
	appliesTotal.WithLabelValues(source).Inc()
}

// emit must be called with emitMu held and releases it.
func (c *Controller) emit(ctx context.Context, applied color.RGB, now time.Time) {
	defer c.emitMu.Unlock()
	if err := c.sink.Publish(ctx, telemetry.NewActuatorEvent(applied, now)); err != nil {
		logging.Warn("Failed to publish actuator state: %s", err)
	}
}
