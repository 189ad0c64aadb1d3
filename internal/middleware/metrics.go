package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	messagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "groupmind_messages_received_total",
		Help: "Total number of group messages accepted by the pipeline",
	}, []string{"chat_type"})

	messagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "groupmind_messages_processed_total",
		Help: "Total number of messages processed end to end",
	}, []string{"status"})

	responsesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "groupmind_responses_sent_total",
		Help: "Total number of replies the bot actually sent",
	})

	aiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "groupmind_ai_request_duration_seconds",
		Help:    "Duration of completion backend requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"model", "status"})

	aiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "groupmind_ai_requests_total",
		Help: "Total number of completion backend requests",
	}, []string{"model", "status"})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "groupmind_completion_cache_hits_total",
		Help: "Total number of completion cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "groupmind_completion_cache_misses_total",
		Help: "Total number of completion cache misses",
	})

	moderationChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "groupmind_moderation_checks_total",
		Help: "Total number of moderation checks by outcome",
	}, []string{"result"})

	jobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "groupmind_background_jobs_total",
		Help: "Total number of background jobs by outcome",
	}, []string{"status"})

	interactionsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "groupmind_interactions_written_total",
		Help: "Total number of interaction rows appended to the log store",
	})

	activeChats = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "groupmind_active_chats",
		Help: "Number of chats with a live context",
	})
)

// Metrics provides methods to record metrics.
type Metrics struct{}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RecordMessageReceived(chatType string) {
	messagesReceived.WithLabelValues(chatType).Inc()
}

func (m *Metrics) RecordMessageProcessed(status string) {
	messagesProcessed.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordResponseSent() {
	responsesSent.Inc()
}

func (m *Metrics) RecordAIRequest(model, status string, duration time.Duration) {
	aiRequestDuration.WithLabelValues(model, status).Observe(duration.Seconds())
	aiRequestsTotal.WithLabelValues(model, status).Inc()
}

func (m *Metrics) RecordCacheHit() {
	cacheHits.Inc()
}

func (m *Metrics) RecordCacheMiss() {
	cacheMisses.Inc()
}

func (m *Metrics) RecordModerationCheck(result string) {
	moderationChecks.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordJobProcessed(status string) {
	jobsProcessed.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordInteractionWritten() {
	interactionsWritten.Inc()
}

func (m *Metrics) SetActiveChats(count float64) {
	activeChats.Set(count)
}

// StartMetricsServer starts the metrics HTTP server.
func StartMetricsServer(port int, path string) error {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler())

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
