package actuator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	appliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ambient_actuator_applies_total",
		Help: "The total number of colors applied to the actuator",
	}, []string{"source"})

	applyErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ambient_actuator_write_errors_total",
		Help: "The total number of failed actuator writes",
	})
)
