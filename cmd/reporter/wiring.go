package main

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"crypto-report/internal/config"
	"crypto-report/internal/infra/coingecko"
	"crypto-report/internal/infra/httpclient"
	"crypto-report/internal/infra/mailer"
	"crypto-report/internal/infra/newsapi"
	"crypto-report/internal/infra/newsfeed"
	"crypto-report/internal/infra/worker"
	"crypto-report/internal/resilience/circuitbreaker"
	"crypto-report/internal/usecase/market"
	"crypto-report/internal/usecase/news"
	"crypto-report/internal/usecase/notify"
	"crypto-report/internal/usecase/report"

	"golang.org/x/time/rate"
)

const (
	userAgent = "crypto-report/1.0"

	// coinGeckoHeader carries the optional demo API key.
	coinGeckoHeader = "x-cg-demo-api-key"
)

// coinGeckoRate stays under the public tier's ~30 calls per minute.
var coinGeckoRate = rate.Every(2 * time.Second)

// buildPipeline assembles the report pipeline from cfg.
func buildPipeline(cfg *config.ReportConfig, logger *slog.Logger, metrics *worker.WorkerMetrics) (*report.Pipeline, error) {
	transport := createHTTPTransport()

	source, err := createNewsSource(cfg, transport, metrics)
	if err != nil {
		return nil, fmt.Errorf("news source: %w", err)
	}
	logger.Info("news source initialized", slog.String("source", source.Name()))

	quotes := coingecko.NewClient(cfg.Market.APIURL, createCoinGeckoFetcher(cfg, transport, metrics))

	formatter, err := report.NewFormatter()
	if err != nil {
		return nil, err
	}

	smtp, err := mailer.NewSMTPTransport(cfg.SMTP)
	if err != nil {
		return nil, fmt.Errorf("mail transport: %w", err)
	}
	notifier, err := notify.NewService(smtp, notify.Config{
		Sender:        cfg.Sender,
		Recipients:    cfg.Recipients,
		SubjectPrefix: cfg.SubjectPrefix,
		Secrets:       cfg.Secrets(),
	})
	if err != nil {
		return nil, fmt.Errorf("notify service: %w", err)
	}

	return report.NewPipeline(
		news.NewService(source, metrics),
		market.NewService(quotes, metrics),
		formatter,
		notifier,
		report.PipelineConfig{Assets: cfg.Market.Assets},
		report.WithLogger(logger),
		report.WithRunObserver(metrics),
	), nil
}

func createNewsSource(cfg *config.ReportConfig, transport *http.Transport, metrics *worker.WorkerMetrics) (news.Source, error) {
	hc := &http.Client{Transport: transport}

	if cfg.News.Provider == config.ProviderRSS {
		source, err := newsfeed.NewSource(newsfeed.Config{
			FeedURLs: cfg.News.RSSFeeds,
			Timeout:  cfg.HTTP.Timeout,
			Retry:    cfg.HTTP.Retry,
		}, hc)
		if err != nil {
			return nil, err
		}
		return source, nil
	}

	fetcher := httpclient.New(httpclient.Config{
		Timeout:   cfg.HTTP.Timeout,
		Retry:     cfg.HTTP.Retry,
		UserAgent: userAgent,
	},
		httpclient.WithHTTPClient(hc),
		httpclient.WithCircuitBreaker(circuitbreaker.New(circuitbreaker.NewsAPIConfig())),
		httpclient.WithHeader(newsapi.APIKeyHeader, cfg.News.APIKey),
		httpclient.WithObserver(metrics),
	)
	client, err := newsapi.NewClient(cfg.News.APIURL, cfg.News.APIKey, fetcher)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func createCoinGeckoFetcher(cfg *config.ReportConfig, transport *http.Transport, metrics *worker.WorkerMetrics) *httpclient.Client {
	opts := []httpclient.Option{
		httpclient.WithHTTPClient(&http.Client{Transport: transport}),
		httpclient.WithCircuitBreaker(circuitbreaker.New(circuitbreaker.CoinGeckoConfig())),
		httpclient.WithRateLimit(coinGeckoRate, 1),
		httpclient.WithObserver(metrics),
	}
	if cfg.Market.APIKey != "" {
		opts = append(opts, httpclient.WithHeader(coinGeckoHeader, cfg.Market.APIKey))
	}
	return httpclient.New(httpclient.Config{
		Timeout:   cfg.HTTP.Timeout,
		Retry:     cfg.HTTP.Retry,
		UserAgent: userAgent,
	}, opts...)
}

// createHTTPTransport returns a pooled transport. TLS 1.2+ is enforced.
// Timeouts are applied per attempt by the callers.
func createHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
}
