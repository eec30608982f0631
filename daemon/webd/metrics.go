package webd

import (
	"net/http"

	"github.com/olahol/melody"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// daemonMetrics live on a per-daemon registry, served at /metrics.
type daemonMetrics struct {
	registry   *prometheus.Registry
	samples    *prometheus.CounterVec
	rejected   *prometheus.CounterVec
	broadcasts prometheus.Counter
}

func newDaemonMetrics(m *melody.Melody) *daemonMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	dm := &daemonMetrics{
		registry: reg,
		samples: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tripd",
			Name:      "samples_total",
			Help:      "Samples accepted over HTTP, by kind.",
		}, []string{"kind"}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tripd",
			Name:      "samples_rejected_total",
			Help:      "Request bodies that did not decode, by route.",
		}, []string{"route"}),
		broadcasts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tripd",
			Name:      "snapshot_broadcasts_total",
			Help:      "Snapshots broadcast to websocket clients.",
		}),
	}
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "tripd",
		Name:      "websocket_sessions",
		Help:      "Connected websocket clients.",
	}, func() float64 {
		return float64(m.Len())
	})
	return dm
}

func (dm *daemonMetrics) handler() http.Handler {
	return promhttp.HandlerFor(dm.registry, promhttp.HandlerOpts{})
}
