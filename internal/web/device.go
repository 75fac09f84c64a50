package web

import (
	"context"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/denwilliams/go-ambient-match/internal/actuator"
	"github.com/denwilliams/go-ambient-match/internal/color"
	"github.com/denwilliams/go-ambient-match/internal/control"
	"github.com/denwilliams/go-ambient-match/internal/logging"
	"github.com/denwilliams/go-ambient-match/internal/mqtt"
)

// maxCommandBody bounds command payloads; a valid command is a few dozen bytes.
const maxCommandBody = 4 << 10

// Device is the running control loop as seen by the API.
type Device interface {
	Last() (control.CycleResult, bool)
	Applied() (color.RGB, time.Time)
	SetColor(ctx context.Context, c color.RGB) error
}

type appliedState struct {
	RGB [3]uint8 `json:"rgb"`
	At  int64    `json:"ts"`
}

type cycleState struct {
	At        int64             `json:"ts"`
	RGB       [3]uint8          `json:"rgb"`
	HSV       color.HSV         `json:"hsv"`
	Freq      color.Frequencies `json:"freq"`
	Color     color.Label       `json:"color"`
	Lux       *float64          `json:"lux"`
	Target    [3]uint8          `json:"target"`
	Actuator  string            `json:"actuator"`
	Published []string          `json:"published"`
}

type stateBody struct {
	Applied appliedState `json:"applied"`
	Last    *cycleState  `json:"last"`
}

// NewDeviceHandler serves the device API next to the control loop.
func NewDeviceHandler(dev Device, limiter *rate.Limiter) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /health", instrument("health", health))
	mux.Handle("GET /api/state", instrument("state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deviceState(dev))
	}))
	mux.Handle("POST /api/cmd", instrument("cmd", limited(limiter, func(w http.ResponseWriter, r *http.Request) {
		cmd, ok := readCommand(w, r)
		if !ok {
			return
		}
		if err := dev.SetColor(r.Context(), cmd.RGB); err != nil {
			logging.Error("Command %s failed: %s", cmd, err)
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
			return
		}
		logging.Info("Applied HTTP command %s", cmd)
		writeJSON(w, http.StatusOK, okBody{OK: true})
	})))
	mux.Handle("GET /metrics", metricsHandler())
	return mux
}

func deviceState(dev Device) stateBody {
	applied, at := dev.Applied()
	body := stateBody{Applied: appliedState{RGB: applied.Array(), At: at.UnixMilli()}}

	res, ok := dev.Last()
	if !ok {
		return body
	}
	last := &cycleState{
		At:       res.At.UnixMilli(),
		RGB:      res.Reading.Mapped.Array(),
		HSV:      res.Reading.HSV,
		Freq:     res.Reading.Frequencies,
		Color:    res.Reading.Label,
		Target:   res.Target.Array(),
		Actuator: res.Actuator.String(),
	}
	if res.Reading.LuxKnown {
		lux := res.Reading.Lux
		last.Lux = &lux
	}
	last.Published = published(res)
	body.Last = last
	return body
}

func published(res control.CycleResult) []string {
	out := []string{}
	d := res.Telemetry
	if d.EmitLux(res.Reading) {
		out = append(out, "lux")
	}
	if d.EmitColor() {
		out = append(out, "color")
	}
	if res.Actuator == actuator.Apply || d.Heartbeat {
		out = append(out, "led")
	}
	return out
}

func readCommand(w http.ResponseWriter, r *http.Request) (*mqtt.Command, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "failed to read request body"})
		return nil, false
	}
	cmd, err := mqtt.ParseCommand(body)
	if err != nil {
		logging.Warn("Rejected HTTP command: %s", err)
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return nil, false
	}
	return cmd, true
}
