package sensor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	samplesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ambient_sensor_samples_total",
		Help: "The total number of color sensor pulse samples by filter and result",
	}, []string{"filter", "result"})
)
