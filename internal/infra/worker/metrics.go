package worker

import (
	"time"

	"crypto-report/internal/pkg/config"
	"crypto-report/internal/usecase/report"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upstream request results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// WorkerMetrics provides Prometheus metrics for the reporter.
// It embeds the standard ConfigMetrics for configuration monitoring and adds
// run, fetch and scheduler metrics.
//
// Embedded metrics (from ConfigMetrics):
//   - reporter_config_load_timestamp: Unix timestamp of last configuration load
//   - reporter_config_validation_errors_total: Total validation errors by field
//   - reporter_config_fallbacks_total: Total fallback operations by field
//   - reporter_config_fallback_active: 1 if any fallback active, 0 otherwise
//
// Reporter metrics:
//   - reporter_runs_total: Report runs by status (success/degraded/failure)
//   - reporter_run_duration_seconds: Duration histogram of report runs
//   - reporter_last_success_timestamp: Unix timestamp of last delivered report
//   - reporter_articles_fetched_total: Articles fetched by section
//   - reporter_news_fetch_errors_total: Failed news fetches by section
//   - reporter_market_degraded_total: Degraded market summaries by reason
//   - reporter_upstream_requests_total: Upstream requests by upstream and result
//   - reporter_upstream_attempts: Attempts per upstream request
//   - reporter_scheduler_panics_total: Recovered panics in scheduled runs
//   - reporter_next_run_timestamp: Unix timestamp of the next scheduled run
//
// WorkerMetrics implements the observer interfaces of the report pipeline,
// the news and market services and the HTTP client.
type WorkerMetrics struct {
	*config.ConfigMetrics

	RunsTotal            *prometheus.CounterVec
	RunDurationSeconds   prometheus.Histogram
	LastSuccessTimestamp prometheus.Gauge
	ArticlesFetchedTotal *prometheus.CounterVec
	NewsFetchErrorsTotal *prometheus.CounterVec
	MarketDegradedTotal  *prometheus.CounterVec
	UpstreamRequests     *prometheus.CounterVec
	UpstreamAttempts     *prometheus.HistogramVec
	PanicsTotal          prometheus.Counter
	NextRunTimestamp     prometheus.Gauge
}

// NewWorkerMetrics creates metrics registered on reg. A nil reg means the
// Prometheus default registerer. Tests should pass prometheus.NewRegistry().
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics(reg, "reporter"),

		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reporter_runs_total",
			Help: "Total number of report runs by status",
		}, []string{"status"}),

		// Buckets: 1s, 5s, 15s, 30s, 1m, 2m, 5m (a run with every retry exhausted sits near a minute)
		RunDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "reporter_run_duration_seconds",
			Help:    "Duration of report runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		}),

		LastSuccessTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "reporter_last_success_timestamp",
			Help: "Unix timestamp of the last run that delivered a report",
		}),

		ArticlesFetchedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reporter_articles_fetched_total",
			Help: "Total number of news articles fetched by section",
		}, []string{"section"}),

		NewsFetchErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reporter_news_fetch_errors_total",
			Help: "Total number of failed news fetches by section",
		}, []string{"section"}),

		MarketDegradedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reporter_market_degraded_total",
			Help: "Total number of degraded market summaries by reason",
		}, []string{"reason"}),

		UpstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reporter_upstream_requests_total",
			Help: "Total number of upstream requests by upstream and result",
		}, []string{"upstream", "result"}),

		UpstreamAttempts: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reporter_upstream_attempts",
			Help:    "Number of attempts per upstream request",
			Buckets: []float64{1, 2, 3, 5, 10},
		}, []string{"upstream"}),

		PanicsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "reporter_scheduler_panics_total",
			Help: "Total number of recovered panics in scheduled runs",
		}),

		NextRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "reporter_next_run_timestamp",
			Help: "Unix timestamp of the next scheduled run",
		}),
	}
}

// ObserveRun records one pipeline run.
func (m *WorkerMetrics) ObserveRun(status string, duration time.Duration) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDurationSeconds.Observe(duration.Seconds())
	if status != report.StatusFailure {
		m.LastSuccessTimestamp.SetToCurrentTime()
	}
}

// ObserveArticles records one news fetch.
func (m *WorkerMetrics) ObserveArticles(section string, count int, err error) {
	if err != nil {
		m.NewsFetchErrorsTotal.WithLabelValues(section).Inc()
		return
	}
	m.ArticlesFetchedTotal.WithLabelValues(section).Add(float64(count))
}

// ObserveMarketDegraded records a sentinel market summary.
func (m *WorkerMetrics) ObserveMarketDegraded(reason string) {
	m.MarketDegradedTotal.WithLabelValues(reason).Inc()
}

// ObserveFetch records one upstream request and its attempts.
func (m *WorkerMetrics) ObserveFetch(upstream string, attempts int, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	m.UpstreamRequests.WithLabelValues(upstream, result).Inc()
	if attempts > 0 {
		m.UpstreamAttempts.WithLabelValues(upstream).Observe(float64(attempts))
	}
}
