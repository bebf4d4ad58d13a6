// Package market builds the market summary table rows.
package market

import (
	"context"
	"log/slog"
	"runtime/debug"

	"crypto-report/internal/domain/entity"
	"crypto-report/internal/infra/coingecko"
	"crypto-report/internal/observability/logging"
	"crypto-report/internal/observability/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// Outcome tells whether the summary carries real quotes.
type Outcome int

const (
	// OutcomeOK means at least one quote row was produced.
	OutcomeOK Outcome = iota
	// OutcomeDegraded means the rows hold a single sentinel.
	OutcomeDegraded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Degradation reasons reported to observers.
const (
	ReasonNoData = "no_data"
	ReasonError  = "error"
)

// Summary is the market section of a report. Rows is never empty.
type Summary struct {
	Rows    []entity.MarketRow
	Outcome Outcome
}

// QuoteSource returns quotes keyed by asset id.
type QuoteSource interface {
	FetchQuotes(ctx context.Context, ids []string) (map[string]coingecko.Quote, error)
}

// Observer is notified when a summary is degraded.
type Observer interface {
	ObserveMarketDegraded(reason string)
}

// Service fetches market summaries.
type Service interface {
	// FetchMarketSummary never fails: upstream errors become a sentinel row.
	FetchMarketSummary(ctx context.Context, assetIDs []string) Summary
}

type service struct {
	quotes   QuoteSource
	observer Observer
}

// NewService creates a Service. observer may be nil.
func NewService(quotes QuoteSource, observer Observer) Service {
	return &service{quotes: quotes, observer: observer}
}

func (s *service) FetchMarketSummary(ctx context.Context, assetIDs []string) (summary Summary) {
	ctx, span := tracing.StartSpan(ctx, "market.fetch", attribute.Int("market.assets", len(assetIDs)))
	logger := logging.FromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "panic while building market summary",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			summary = s.degraded(ReasonError, entity.MessageMarketError)
		}
		span.SetAttributes(attribute.String("market.outcome", summary.Outcome.String()))
		span.End()
	}()

	quotes, err := s.quotes.FetchQuotes(ctx, assetIDs)
	if err != nil {
		logger.ErrorContext(ctx, "market summary error",
			slog.String("error", logging.SanitizeError(err)))
		span.RecordError(err)
		return s.degraded(ReasonError, entity.MessageMarketError)
	}

	rows := make([]entity.MarketRow, 0, len(assetIDs))
	for _, id := range assetIDs {
		q, ok := quotes[id]
		if !ok {
			logger.WarnContext(ctx, "no market data for asset", slog.String("asset", id))
			continue
		}
		rows = append(rows, entity.NewMarketRow(id, q.Price, q.Change24h))
	}

	if len(rows) == 0 {
		return s.degraded(ReasonNoData, entity.MessageDataUnavailable)
	}

	return Summary{Rows: rows, Outcome: OutcomeOK}
}

func (s *service) degraded(reason, message string) Summary {
	if s.observer != nil {
		s.observer.ObserveMarketDegraded(reason)
	}
	return Summary{
		Rows:    []entity.MarketRow{entity.NewSentinelRow(message)},
		Outcome: OutcomeDegraded,
	}
}
