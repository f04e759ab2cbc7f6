package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ChatDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mx32_chat_duration_seconds",
			Help:    "Chat request processing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"intent"},
	)

	ChatTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mx32_chat_total",
			Help: "Total number of chat requests processed",
		},
		[]string{"intent", "status"},
	)

	ScopeRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mx32_chat_scope_rejections_total",
			Help: "Total messages refused by the geographic scope guard",
		},
	)

	AggregationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mx32_chat_aggregation_duration_seconds",
			Help:    "State data aggregation duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"state"},
	)

	ProviderErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mx32_chat_provider_errors_total",
			Help: "Total chat-completion provider failures",
		},
	)

	MetricSourceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mx32_chat_metric_source_failures_total",
			Help: "Total external metric source fetch failures",
		},
		[]string{"source"},
	)

	ConfidenceScore = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mx32_chat_confidence_score",
			Help:    "Response confidence scores",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
		[]string{},
	)

	RAGRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mx32_chat_rag_requests_total",
			Help: "Chat requests split by whether aggregated state data was used",
		},
		[]string{"rag_enabled"},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mx32_chat_active_sessions",
			Help: "Number of conversation sessions currently retained",
		},
	)
)

func Init() {
	prometheus.MustRegister(ChatDuration)
	prometheus.MustRegister(ChatTotal)
	prometheus.MustRegister(ScopeRejections)
	prometheus.MustRegister(AggregationDuration)
	prometheus.MustRegister(ProviderErrors)
	prometheus.MustRegister(MetricSourceFailures)
	prometheus.MustRegister(ConfidenceScore)
	prometheus.MustRegister(RAGRequests)
	prometheus.MustRegister(ActiveSessions)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
