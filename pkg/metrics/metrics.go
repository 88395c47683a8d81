package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Campaign metrics
	CampaignsCreated   prometheus.Counter
	CampaignsCompleted *prometheus.CounterVec
	RecipientsSeeded   prometheus.Counter
	MessagesSent       *prometheus.CounterVec
	MessagesFailed     *prometheus.CounterVec
	SchedulerTicks     prometheus.Counter
	BatchDuration      *prometheus.HistogramVec
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),

		CampaignsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "campaigns_created_total",
			Help: "Total number of campaigns created",
		}),
		CampaignsCompleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaigns_completed_total",
				Help: "Total number of campaigns reaching a terminal status",
			},
			[]string{"status"}, // sent, failed, cancelled
		),
		RecipientsSeeded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "campaign_recipients_seeded_total",
			Help: "Total number of recipients seeded across all campaigns",
		}),
		MessagesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaign_messages_sent_total",
				Help: "Total number of messages delivered to the provider",
			},
			[]string{"channel"}, // email, sms
		),
		MessagesFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaign_messages_failed_total",
				Help: "Total number of per-recipient delivery failures",
			},
			[]string{"channel"},
		),
		SchedulerTicks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "campaign_scheduler_ticks_total",
			Help: "Total number of scheduler ticks executed",
		}),
		BatchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "campaign_batch_duration_seconds",
				Help:    "Time spent processing one campaign batch",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"channel"},
		),
	}

	return m
}

// Middleware creates an Echo middleware for Prometheus metrics
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			path := c.Path() // Use route pattern, not actual path (e.g., /api/v1/campaigns/:id)

			err := next(c)

			status := c.Response().Status
			duration := time.Since(start).Seconds()

			m.HTTPRequestsTotal.WithLabelValues(req.Method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(req.Method, path, strconv.Itoa(status)).Observe(duration)

			return err
		}
	}
}

// RecordCampaignCreated increments the created-campaigns counter
func (m *Metrics) RecordCampaignCreated() {
	m.CampaignsCreated.Inc()
}

// RecordCampaignCompleted increments the terminal-status counter
func (m *Metrics) RecordCampaignCompleted(status string) {
	m.CampaignsCompleted.WithLabelValues(status).Inc()
}

// RecordRecipientsSeeded adds to the seeded-recipients counter
func (m *Metrics) RecordRecipientsSeeded(count int) {
	m.RecipientsSeeded.Add(float64(count))
}

// RecordMessageSent increments the per-channel sent counter
func (m *Metrics) RecordMessageSent(channel string) {
	m.MessagesSent.WithLabelValues(channel).Inc()
}

// RecordMessageFailed increments the per-channel failure counter
func (m *Metrics) RecordMessageFailed(channel string) {
	m.MessagesFailed.WithLabelValues(channel).Inc()
}

// RecordSchedulerTick increments the scheduler tick counter
func (m *Metrics) RecordSchedulerTick() {
	m.SchedulerTicks.Inc()
}

// RecordBatchDuration records time spent on one campaign batch
func (m *Metrics) RecordBatchDuration(channel string, duration time.Duration) {
	m.BatchDuration.WithLabelValues(channel).Observe(duration.Seconds())
}
