// Package metrics holds the Prometheus collectors of the facility service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	syncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "facility_sync_runs_total",
		Help: "Full hierarchy synchronization runs by result.",
	}, []string{"result"})

	syncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "facility_sync_duration_seconds",
		Help:    "Duration of full hierarchy synchronization runs.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	rekeys = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "facility_rekeys_total",
		Help: "Mirror rows moved to a new key because the source reused their key for another name.",
	}, []string{"level"})

	deleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "facility_deleted_total",
		Help: "Deleted hierarchy rows by level and reason (requested, descendant, cascade).",
	}, []string{"level", "reason"})

	deleteRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "facility_delete_rejected_total",
		Help: "Delete requests rejected because protected records were involved.",
	}, []string{"level"})

	gatewayStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "facility_edge_gateway_up",
		Help: "1 when the edge gateway answered the last probe.",
	}, []string{"gateway"})
)

// ObserveSync records a finished synchronization run.
func ObserveSync(err error, d time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	syncRuns.WithLabelValues(result).Inc()
	syncDuration.Observe(d.Seconds())
}

func Rekeyed(level string) {
	rekeys.WithLabelValues(level).Inc()
}

func Deleted(level, reason string, n int) {
	if n > 0 {
		deleted.WithLabelValues(level, reason).Add(float64(n))
	}
}

func DeleteRejected(level string) {
	deleteRejected.WithLabelValues(level).Inc()
}

// GatewayProbed records the result of a connectivity probe.
func GatewayProbed(gateway string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	gatewayStatus.WithLabelValues(gateway).Set(v)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
