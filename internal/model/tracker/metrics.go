package tracker

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var histogramMutationTime = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "expensesync",
		Subsystem: "tracker",
		Name:      "histogram_mutation_time_seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
	},
	[]string{"op", "failed"},
)

func observeMutation(op string, elapsed time.Duration, failed bool) {
	histogramMutationTime.
		WithLabelValues(op, strconv.FormatBool(failed)).
		Observe(elapsed.Seconds())
}
