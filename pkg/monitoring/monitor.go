package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 题目分配
	QuestionsServed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_questions_served_total",
			Help: "Questions handed out by the allocator",
		},
		[]string{"topic"},
	)

	PoolResets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_question_pool_resets_total",
			Help: "Times a user's usage history for a topic was cleared",
		},
		[]string{"topic"},
	)

	// 模型调用
	AIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_ai_requests_total",
			Help: "Generative model calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	AIRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_ai_retries_total",
			Help: "Retries issued against the generative model",
		},
		[]string{"operation"},
	)

	AnalysisFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "interview_analysis_fallbacks_total",
			Help: "Answers scored by the local heuristic",
		},
	)

	// 监考
	ProctorSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "interview_proctor_sessions",
			Help: "Open proctoring websocket sessions",
		},
	)

	ProctorTerminations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "interview_proctor_terminations_total",
			Help: "Proctored sessions terminated for face absence",
		},
	)

	SpeechTranscriptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_speech_transcriptions_total",
			Help: "Speech transcription requests by outcome",
		},
		[]string{"outcome"},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			QuestionsServed,
			PoolResets,
			AIRequests,
			AIRetries,
			AnalysisFallbacks,
			ProctorSessions,
			ProctorTerminations,
			SpeechTranscriptions,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
