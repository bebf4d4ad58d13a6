package report

import (
	"context"
	"log/slog"
	"time"

	"crypto-report/internal/observability/logging"
	"crypto-report/internal/observability/tracing"
	"crypto-report/internal/usecase/market"
	"crypto-report/internal/usecase/news"
	"crypto-report/internal/usecase/notify"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"k8s.io/utils/clock"
)

// Run statuses reported to RunObserver.
const (
	StatusSuccess  = "success"
	StatusDegraded = "degraded"
	StatusFailure  = "failure"
)

// RunObserver is notified once per pipeline run.
type RunObserver interface {
	ObserveRun(status string, duration time.Duration)
}

// Result summarizes one pipeline run.
type Result struct {
	RunID         string
	Date          time.Time
	CryptoCount   int
	PolicyCount   int
	MarketOutcome market.Outcome
	Delivery      notify.Delivery
	Duration      time.Duration
}

// Status classifies the run for metrics. Degraded data with a sent mail is
// still a delivered report.
func (r Result) Status() string {
	switch {
	case !r.Delivery.Sent:
		return StatusFailure
	case r.MarketOutcome == market.OutcomeDegraded:
		return StatusDegraded
	default:
		return StatusSuccess
	}
}

// PipelineConfig holds the per-deployment inputs of a run.
type PipelineConfig struct {
	Assets []string
}

// Pipeline fetches news and market data, renders the report and mails it.
type Pipeline struct {
	news      news.Service
	market    market.Service
	formatter *Formatter
	notifier  notify.Service
	cfg       PipelineConfig
	clock     clock.PassiveClock
	logger    *slog.Logger
	observers []RunObserver
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithClock sets the clock used for the report date and run duration.
func WithClock(c clock.PassiveClock) PipelineOption {
	return func(p *Pipeline) { p.clock = c }
}

// WithLogger sets the base logger. Each run derives a logger tagged with its run id.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = logger }
}

// WithRunObserver registers an observer for run outcomes.
func WithRunObserver(o RunObserver) PipelineOption {
	return func(p *Pipeline) { p.observers = append(p.observers, o) }
}

// NewPipeline creates a Pipeline.
func NewPipeline(newsSvc news.Service, marketSvc market.Service, formatter *Formatter, notifier notify.Service, cfg PipelineConfig, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		news:      newsSvc,
		market:    marketSvc,
		formatter: formatter,
		notifier:  notifier,
		cfg:       cfg,
		clock:     clock.RealClock{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one report run. Fetch and delivery failures are absorbed
// into the Result; only a rendering failure is returned as an error.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	start := p.clock.Now()
	res := Result{
		RunID: uuid.NewString(),
		Date:  start,
	}

	logger := logging.WithRunID(p.logger, res.RunID)
	ctx = logging.WithLogger(ctx, logger)

	ctx, span := tracing.StartSpan(ctx, "report.run",
		attribute.String("run_id", res.RunID),
		attribute.Int("assets", len(p.cfg.Assets)))

	logger.Info("report run started", slog.Int("assets", len(p.cfg.Assets)))

	err := p.run(ctx, &res)

	res.Duration = p.clock.Since(start)
	status := res.Status()
	if err != nil {
		status = StatusFailure
	}
	for _, o := range p.observers {
		o.ObserveRun(status, res.Duration)
	}

	span.SetAttributes(attribute.String("status", status))
	tracing.EndSpan(span, err)

	if err != nil {
		logger.Error("report run failed",
			slog.Duration("duration", res.Duration),
			slog.String("error", err.Error()))
		return res, err
	}

	logger.Info("report run finished",
		slog.String("status", status),
		slog.Int("crypto_articles", res.CryptoCount),
		slog.Int("policy_articles", res.PolicyCount),
		slog.String("market", res.MarketOutcome.String()),
		slog.Bool("sent", res.Delivery.Sent),
		slog.Duration("duration", res.Duration))
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, res *Result) error {
	crypto := p.news.FetchCryptoNews(ctx)
	policy := p.news.FetchPolicyNews(ctx)
	res.CryptoCount = len(crypto)
	res.PolicyCount = len(policy)

	summary := p.market.FetchMarketSummary(ctx, p.cfg.Assets)
	res.MarketOutcome = summary.Outcome

	_, span := tracing.StartSpan(ctx, "report.format")
	body, err := p.formatter.Format(Input{
		CryptoNews: crypto,
		PolicyNews: policy,
		Rows:       summary.Rows,
		Date:       res.Date,
	})
	tracing.EndSpan(span, err)
	if err != nil {
		return err
	}

	res.Delivery = p.notifier.Send(ctx, res.Date, body)
	return nil
}
