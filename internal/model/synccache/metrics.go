package synccache

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var histogramRefreshTime = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "expensesync",
		Subsystem: "cache",
		Name:      "histogram_refresh_time_seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	},
	[]string{"failed"},
)

func observeRefresh(elapsed time.Duration, failed bool) {
	histogramRefreshTime.
		WithLabelValues(strconv.FormatBool(failed)).
		Observe(elapsed.Seconds())
}
