package web

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/denwilliams/go-ambient-match/internal/color"
	"github.com/denwilliams/go-ambient-match/internal/logging"
	"github.com/denwilliams/go-ambient-match/internal/store"
)

// History is the stored telemetry the collector serves.
type History interface {
	ListLux(r store.Range) ([]store.LuxRecord, error)
	ListColor(r store.Range) ([]store.ColorRecord, error)
	ListLED(r store.Range) ([]store.LEDRecord, error)
	Latest() (*store.Latest, error)
}

// CommandPublisher forwards a color command to the device.
type CommandPublisher interface {
	PublishCommand(ctx context.Context, c color.RGB) error
}

type listBody[T any] struct {
	Count int `json:"count"`
	Items []T `json:"items"`
}

// NewCollectorHandler serves the stored history and forwards commands.
func NewCollectorHandler(h History, pub CommandPublisher, limiter *rate.Limiter) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /{$}", instrument("root", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, okBody{OK: true, Msg: "ambient-match collector"})
	}))
	mux.Handle("GET /health", instrument("health", health))
	mux.Handle("GET /api/lux", instrument("lux", listHandler(h.ListLux)))
	mux.Handle("GET /api/color", instrument("color", listHandler(h.ListColor)))
	mux.Handle("GET /api/led", instrument("led", listHandler(h.ListLED)))
	mux.Handle("GET /api/latest", instrument("latest", func(w http.ResponseWriter, r *http.Request) {
		latest, err := h.Latest()
		if err != nil {
			logging.Error("Failed to read latest records: %s", err)
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "storage error"})
			return
		}
		writeJSON(w, http.StatusOK, latest)
	}))
	mux.Handle("POST /api/cmd", instrument("cmd", limited(limiter, func(w http.ResponseWriter, r *http.Request) {
		cmd, ok := readCommand(w, r)
		if !ok {
			return
		}
		if err := pub.PublishCommand(r.Context(), cmd.RGB); err != nil {
			logging.Error("Failed to forward command %s: %s", cmd, err)
			writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
			return
		}
		logging.Info("Forwarded command %s", cmd)
		writeJSON(w, http.StatusAccepted, okBody{OK: true})
	})))
	mux.Handle("GET /metrics", metricsHandler())
	return mux
}

func listHandler[T any](list func(store.Range) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rng, err := ParseRange(r.URL.Query(), time.Now())
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		items, err := list(rng)
		if err != nil {
			logging.Error("Failed to list records for %s: %s", r.URL.Path, err)
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "storage error"})
			return
		}
		writeJSON(w, http.StatusOK, listBody[T]{Count: len(items), Items: items})
	}
}
