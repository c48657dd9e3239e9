package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "srs", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "srs", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	AdminRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "srs", Name: "admin_client_requests_total", Help: "Outbound admin API requests."},
		[]string{"endpoint", "status"},
	)
	AdminLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "srs", Name: "admin_client_request_duration_seconds",
			Help:    "Outbound admin API request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
	ReviewEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "srs", Name: "review_events_total", Help: "Review lifecycle events."},
		[]string{"event"}, // submitted|approved|rejected|imported|cleared|invalid
	)
	StoreErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "srs", Name: "store_errors_total", Help: "Failed review store reads/writes."},
		[]string{"collection", "op"},
	)
	KVOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "srs", Name: "kv_ops_total", Help: "Key-value backend operations."},
		[]string{"backend", "op"}, // op: hit|miss|set|del
	)
	Collections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "srs", Name: "reviews", Help: "Reviews per collection after the last mutation."},
		[]string{"collection"},
	)
)

// Serve exposes reg on its own listener in the background. Empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
	return srv
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, AdminRequests, AdminLatency, ReviewEvents, StoreErrors, KVOps, Collections)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveAdmin(endpoint string, status int, dur time.Duration) {
	AdminRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	AdminLatency.WithLabelValues(endpoint).Observe(dur.Seconds())
}

func ObserveReview(event string) { ReviewEvents.WithLabelValues(event).Inc() }

func ObserveStoreError(collection, op string) { StoreErrors.WithLabelValues(collection, op).Inc() }

func ObserveKV(backend, op string) { // op: hit|miss|set|del
	KVOps.WithLabelValues(backend, op).Inc()
}

func SetCollectionSize(collection string, n int) {
	Collections.WithLabelValues(collection).Set(float64(n))
}
