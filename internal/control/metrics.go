package control

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ambient_control_cycles_total",
		Help: "The total number of completed control cycles",
	})

	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ambient_control_cycle_seconds",
		Help:    "Time spent sampling and deciding per cycle",
		Buckets: []float64{.05, .1, .2, .3, .5, 1},
	})

	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ambient_telemetry_events_total",
		Help: "The total number of telemetry events published by kind",
	}, []string{"kind"})

	luxGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ambient_light_lux",
		Help: "The last known ambient light reading",
	})

	channelGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ambient_color_channel",
		Help: "The last mapped color channel intensity",
	}, []string{"channel"})
)
