package news

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"crypto-report/internal/domain/entity"
	"crypto-report/internal/observability/logging"
	"crypto-report/internal/observability/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// Source searches a news provider.
type Source interface {
	// Name identifies the provider in logs.
	Name() string

	// Search returns at most q.PageSize articles, newest first.
	Search(ctx context.Context, q Query) ([]entity.Article, error)
}

// Observer is notified of each fetch outcome.
type Observer interface {
	ObserveArticles(section string, count int, err error)
}

// Service fetches the report's news sections.
//
// Both methods absorb every failure: the error is logged and an empty list
// is returned, so a broken provider never stops a report.
type Service interface {
	FetchCryptoNews(ctx context.Context) []entity.Article
	FetchPolicyNews(ctx context.Context) []entity.Article
}

type service struct {
	source   Source
	observer Observer
}

// NewService creates a Service over source. observer may be nil.
func NewService(source Source, observer Observer) Service {
	return &service{source: source, observer: observer}
}

func (s *service) FetchCryptoNews(ctx context.Context) []entity.Article {
	return s.fetch(ctx, CryptoQuery())
}

func (s *service) FetchPolicyNews(ctx context.Context) []entity.Article {
	return s.fetch(ctx, PolicyQuery())
}

func (s *service) fetch(ctx context.Context, q Query) []entity.Article {
	ctx, span := tracing.StartSpan(ctx, "news.fetch",
		attribute.String("news.section", q.Name),
		attribute.String("news.source", s.source.Name()))

	logger := logging.FromContext(ctx).With(
		slog.String("section", q.Name),
		slog.String("source", s.source.Name()))

	articles, err := s.search(ctx, logger, q)
	tracing.EndSpan(span, err)

	if s.observer != nil {
		s.observer.ObserveArticles(q.Name, len(articles), err)
	}

	if err != nil {
		logger.ErrorContext(ctx, "failed to fetch news",
			slog.String("query", q.String()),
			slog.String("error", logging.SanitizeError(err)))
		return []entity.Article{}
	}

	if q.PageSize > 0 && len(articles) > q.PageSize {
		articles = articles[:q.PageSize]
	}

	logger.DebugContext(ctx, "news fetched", slog.Int("articles", len(articles)))
	if articles == nil {
		return []entity.Article{}
	}
	return articles
}

// search converts a panicking source into an error so fetch keeps its
// empty-list contract.
func (s *service) search(ctx context.Context, logger *slog.Logger, q Query) (articles []entity.Article, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "panic while fetching news",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			articles, err = nil, fmt.Errorf("news source %s panicked: %v", s.source.Name(), r)
		}
	}()
	return s.source.Search(ctx, q)
}
