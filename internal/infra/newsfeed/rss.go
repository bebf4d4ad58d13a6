// Package newsfeed implements news.Source over a set of RSS/Atom feeds.
// It uses the gofeed library to parse feed content with reliability patterns.
package newsfeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"crypto-report/internal/domain/entity"
	"crypto-report/internal/observability/logging"
	"crypto-report/internal/resilience/circuitbreaker"
	"crypto-report/internal/resilience/retry"
	"crypto-report/internal/usecase/news"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// ErrNoFeeds is returned by NewSource without feed URLs.
var ErrNoFeeds = errors.New("newsfeed: at least one feed url is required")

// ErrAllFeedsFailed is returned when no configured feed could be read.
var ErrAllFeedsFailed = errors.New("newsfeed: all feeds failed")

// Config holds the feed source settings.
type Config struct {
	FeedURLs []string
	Timeout  time.Duration
	Retry    retry.Policy
}

// Source searches the items of its feeds.
type Source struct {
	client         *http.Client
	feedURLs       []string
	timeout        time.Duration
	retryPolicy    retry.Policy
	sleep          retry.SleepFunc
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewSource creates a Source. A nil client means a default http.Client.
func NewSource(cfg Config, client *http.Client) (*Source, error) {
	if len(cfg.FeedURLs) == 0 {
		return nil, ErrNoFeeds
	}
	for _, u := range cfg.FeedURLs {
		if err := entity.ValidateLink(u); err != nil {
			return nil, fmt.Errorf("newsfeed: feed %q: %w", u, err)
		}
	}
	if client == nil {
		client = &http.Client{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Source{
		client:         client,
		feedURLs:       cfg.FeedURLs,
		timeout:        cfg.Timeout,
		retryPolicy:    cfg.Retry,
		sleep:          retry.Sleep,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
	}, nil
}

// Name implements news.Source.
func (s *Source) Name() string { return "rss" }

type datedArticle struct {
	article   entity.Article
	published time.Time
}

// Search implements news.Source. Items from every feed are matched against
// the query's title and description, deduplicated by link and sorted newest
// first. A failing feed is skipped unless every feed fails.
func (s *Source) Search(ctx context.Context, q news.Query) ([]entity.Article, error) {
	logger := logging.FromContext(ctx)

	var (
		matched []datedArticle
		failed  int
		lastErr error
		seen    = make(map[string]bool)
	)

	for _, feedURL := range s.feedURLs {
		feed, err := s.fetch(ctx, feedURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failed++
			lastErr = err
			logger.WarnContext(ctx, "feed fetch failed",
				slog.String("url", logging.RedactURL(feedURL)),
				slog.String("error", logging.SanitizeError(err)))
			continue
		}

		for _, item := range feed.Items {
			article := toArticle(feed, item)
			if !q.Matches(article.Title + " " + article.Description) {
				continue
			}
			key := article.URL
			if key == "" {
				key = article.Title
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			matched = append(matched, datedArticle{article: article, published: publishedTime(item)})
		}
	}

	if failed == len(s.feedURLs) {
		return nil, fmt.Errorf("%w: %w", ErrAllFeedsFailed, lastErr)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].published.After(matched[j].published)
	})

	if q.PageSize > 0 && len(matched) > q.PageSize {
		matched = matched[:q.PageSize]
	}

	articles := make([]entity.Article, 0, len(matched))
	for _, m := range matched {
		articles = append(articles, m.article)
	}
	return articles, nil
}

// fetch retrieves one feed through the circuit breaker and retry policy.
func (s *Source) fetch(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	var feed *gofeed.Feed

	_, err := retry.Do(ctx, s.retryPolicy, s.sleep, func(ctx context.Context, _ int) error {
		result, err := circuitbreaker.Call(s.circuitBreaker, func() (*gofeed.Feed, error) {
			return s.doFetch(ctx, feedURL)
		})
		if err != nil {
			if errors.Is(err, circuitbreaker.ErrOpen) {
				slog.Warn("feed fetch circuit breaker open, request rejected",
					slog.String("service", s.circuitBreaker.Name()),
					slog.String("url", logging.RedactURL(feedURL)))
				return retry.Permanent(err)
			}
			return err
		}
		feed = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return feed, nil
}

// doFetch performs the actual feed fetch without retry or circuit breaker.
func (s *Source) doFetch(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	fp := gofeed.NewParser()
	fp.UserAgent = "CryptoReportBot"
	fp.Client = s.client

	return fp.ParseURLWithContext(feedURL, ctx)
}

func toArticle(feed *gofeed.Feed, item *gofeed.Item) entity.Article {
	return entity.Article{
		Title:       strings.TrimSpace(item.Title),
		URL:         item.Link,
		Description: plainText(item.Description),
		PublishedAt: item.Published,
		SourceName:  feed.Title,
	}
}

func publishedTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Time{}
}

// plainText strips markup that feeds commonly embed in descriptions.
func plainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
