package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// Recorder implementa ports.Metrics con Prometheus sobre un registry propio.
type Recorder struct {
	registry *prometheus.Registry

	cycles     *prometheus.CounterVec
	candidates prometheus.Gauge
	intents    prometheus.Gauge
	orders     *prometheus.CounterVec
	skips      *prometheus.CounterVec
	openSet    prometheus.Gauge
	balance    prometheus.Gauge
	duration   prometheus.Histogram
}

// New crea un Recorder con sus métricas registradas.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		cycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kalshibot_cycles_total",
				Help: "Completed cycles by session type",
			},
			[]string{"session"},
		),
		candidates: f.NewGauge(prometheus.GaugeOpts{
			Name: "kalshibot_candidates",
			Help: "Tradeable incentive candidates in the last cycle",
		}),
		intents: f.NewGauge(prometheus.GaugeOpts{
			Name: "kalshibot_trade_intents",
			Help: "Trade intents selected in the last cycle",
		}),
		orders: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kalshibot_orders_total",
				Help: "Orders by outcome (built, submitted, failed, cancelled, closed)",
			},
			[]string{"outcome"},
		),
		skips: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kalshibot_skips_total",
				Help: "Records discarded by pipeline stage and reason",
			},
			[]string{"stage", "reason"},
		),
		openSet: f.NewGauge(prometheus.GaugeOpts{
			Name: "kalshibot_open_set_size",
			Help: "Tickers currently quoted",
		}),
		balance: f.NewGauge(prometheus.GaugeOpts{
			Name: "kalshibot_balance_dollars",
			Help: "Available balance seen by the last cycle that built orders",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "kalshibot_cycle_duration_seconds",
			Help:    "Duration of a full cycle in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// RecordCycle registra los contadores de un ciclo terminado.
func (r *Recorder) RecordCycle(s domain.CycleSummary) {
	r.cycles.WithLabelValues(s.Session).Inc()
	r.candidates.Set(float64(s.Candidates))
	r.intents.Set(float64(len(s.Intents)))
	r.orders.WithLabelValues("built").Add(float64(s.OrdersBuilt))
	r.orders.WithLabelValues("submitted").Add(float64(s.OrdersSubmitted))
	r.orders.WithLabelValues("failed").Add(float64(s.OrdersFailed))
	r.orders.WithLabelValues("cancelled").Add(float64(s.Cancelled))
	r.orders.WithLabelValues("closed").Add(float64(s.Closed))
	if s.Balance > 0 {
		r.balance.Set(s.Balance)
	}
	r.duration.Observe(s.Duration.Seconds())
}

// RecordSkip registra un descarte.
func (r *Recorder) RecordSkip(stage, reason string) {
	r.skips.WithLabelValues(stage, reason).Inc()
}

// RecordOpenSet registra el tamaño del conjunto cotizado.
func (r *Recorder) RecordOpenSet(size int) {
	r.openSet.Set(float64(size))
}

// Registry expone el registry para tests y para servirlo.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler devuelve el handler HTTP de /metrics.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
