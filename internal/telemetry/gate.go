package telemetry

import (
	"math"
	"time"

	"github.com/denwilliams/go-ambient-match/internal/color"
)

type GateConfig struct {
	Heartbeat   time.Duration
	RGBDelta    int
	LuxDeltaAbs float64
	LuxDeltaRel float64
}

var DefaultGateConfig = GateConfig{
	Heartbeat:   10 * time.Second,
	RGBDelta:    10,
	LuxDeltaAbs: 10,
	LuxDeltaRel: 0.10,
}

// Reading is everything one cycle observed.
type Reading struct {
	Frequencies color.Frequencies
	Mapped      color.RGB
	HSV         color.HSV
	Label       color.Label
	Lux         float64
	LuxKnown    bool
}

// Baseline is the last published state. It is separate from the actuator's
// applied color and only changes on Commit.
type Baseline struct {
	Color       color.RGB
	Lux         float64
	HasLux      bool
	LastPublish time.Time
}

type Decision struct {
	Lux       bool
	Color     bool
	Heartbeat bool
}

// Fired reports whether anything is due this cycle.
func (d Decision) Fired() bool {
	return d.Lux || d.Color || d.Heartbeat
}

// EmitLux reports whether a lux event is sent. Unknown readings are never sent.
func (d Decision) EmitLux(r Reading) bool {
	return r.LuxKnown && (d.Lux || d.Heartbeat)
}

func (d Decision) EmitColor() bool {
	return d.Color || d.Heartbeat
}

// Gate decides when readings are worth publishing. It is not safe for
// concurrent use; the control loop owns it.
type Gate struct {
	cfg  GateConfig
	base Baseline
}

// NewGate starts with a black color baseline, no lux and the heartbeat
// window measured from start.
func NewGate(cfg GateConfig, start time.Time) *Gate {
	return &Gate{cfg: cfg, base: Baseline{LastPublish: start}}
}

func (g *Gate) Baseline() Baseline {
	return g.base
}

func (g *Gate) Evaluate(r Reading, now time.Time) Decision {
	return Decision{
		Lux:       g.luxChanged(r),
		Color:     r.Mapped.Differs(g.base.Color, g.cfg.RGBDelta),
		Heartbeat: now.Sub(g.base.LastPublish) >= g.cfg.Heartbeat,
	}
}

func (g *Gate) luxChanged(r Reading) bool {
	if !r.LuxKnown {
		return false
	}
	if !g.base.HasLux {
		return true
	}
	d := math.Abs(r.Lux - g.base.Lux)
	return d >= g.cfg.LuxDeltaAbs ||
		d >= math.Max(g.cfg.LuxDeltaAbs, g.base.Lux*g.cfg.LuxDeltaRel)
}

// Commit records r as published. Color, lux and the publish time move
// together, and only when d fired. An unknown lux keeps the previous value.
func (g *Gate) Commit(d Decision, r Reading, now time.Time) {
	if !d.Fired() {
		return
	}
	g.base.Color = r.Mapped
	if r.LuxKnown {
		g.base.Lux = r.Lux
		g.base.HasLux = true
	}
	g.base.LastPublish = now
}
