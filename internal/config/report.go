// Package config loads the immutable ReportConfig used to wire the
// reporter. Secrets come only from the environment (optionally seeded from
// a .env file); non-secret settings may also come from a YAML overlay.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"crypto-report/internal/infra/mailer"
	pkgconfig "crypto-report/internal/pkg/config"
	"crypto-report/internal/resilience/retry"
	"crypto-report/internal/usecase/notify"

	"github.com/joho/godotenv"
)

// Environment keys.
const (
	KeyNewsAPIKey      = "NEWS_API_KEY"
	KeyEmailSender     = "EMAIL_SENDER"
	KeyEmailPassword   = "EMAIL_PASSWORD"
	KeyRecipients      = "EMAIL_RECIPIENTS"
	KeyRecipient       = "EMAIL_RECIPIENT"
	KeyRecipient2      = "EMAIL_RECIPIENT2"
	KeyAssets          = "CRYPTO_ASSETS"
	KeyHTTPMaxRetries  = "HTTP_MAX_RETRIES"
	KeyHTTPRetryDelay  = "HTTP_RETRY_DELAY"
	KeyHTTPTimeout     = "HTTP_TIMEOUT"
	KeyReportInterval  = "REPORT_INTERVAL"
	KeyReportDailyAt   = "REPORT_DAILY_AT"
	KeyReportTimezone  = "REPORT_TIMEZONE"
	KeySMTPHost        = "SMTP_HOST"
	KeySMTPPort        = "SMTP_PORT"
	KeySubjectPrefix   = "EMAIL_SUBJECT_PREFIX"
	KeyNewsAPIURL      = "NEWS_API_URL"
	KeyNewsProvider    = "NEWS_PROVIDER"
	KeyNewsRSSFeeds    = "NEWS_RSS_FEEDS"
	KeyCoinGeckoAPIURL = "COINGECKO_API_URL"
	KeyCoinGeckoAPIKey = "COINGECKO_API_KEY"
	KeyLogLevel        = "LOG_LEVEL"
	KeyLogFile         = "LOG_FILE"
	KeyLogFormat       = "LOG_FORMAT"
	KeyHealthPort      = "HEALTH_PORT"
	KeyHealthEnabled   = "HEALTH_ENABLED"
	KeyRailwayEnv      = "RAILWAY_ENV"
	KeyConfigFile      = "REPORT_CONFIG_FILE"
)

// News providers.
const (
	ProviderNewsAPI = "newsapi"
	ProviderRSS     = "rss"
)

// Defaults.
const (
	DefaultNewsAPIURL   = "https://newsapi.org/v2"
	DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"
	DefaultLogFile      = "crypto_report.log"
	DefaultLogLevel     = "debug"
	DefaultLogFormat    = "json"
)

// DefaultAssets are the CoinGecko ids reported when CRYPTO_ASSETS is unset.
var DefaultAssets = []string{"bitcoin", "ethereum", "celestia", "solana"}

// MissingKeysError lists every required key that was absent.
type MissingKeysError struct {
	Keys []string
}

func (e *MissingKeysError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Keys, ", "))
}

// ErrInvalidRecipient is returned when a recipient address does not parse.
var ErrInvalidRecipient = errors.New("invalid recipient address")

// HTTPConfig holds the shared upstream request settings.
type HTTPConfig struct {
	Retry   retry.Policy
	Timeout time.Duration
}

// NewsConfig selects and configures the news source.
type NewsConfig struct {
	Provider string
	APIURL   string
	APIKey   string
	RSSFeeds []string
}

// MarketConfig configures the CoinGecko source.
type MarketConfig struct {
	APIURL string
	// APIKey is optional; when set it is sent as the demo API key header.
	APIKey string
	Assets []string
}

// LogConfig configures the slog output.
type LogConfig struct {
	Level  string
	File   string
	Format string
}

// ReportConfig is built once at startup and never mutated afterwards.
type ReportConfig struct {
	News          NewsConfig
	Market        MarketConfig
	HTTP          HTTPConfig
	SMTP          mailer.SMTPConfig
	Sender        string
	Recipients    []string
	SubjectPrefix string
	Log           LogConfig
}

// Secrets returns the values that must never reach a log line.
func (c *ReportConfig) Secrets() []string {
	secrets := []string{c.News.APIKey, c.SMTP.Password, c.Market.APIKey}
	result := secrets[:0]
	for _, s := range secrets {
		if s != "" {
			result = append(result, s)
		}
	}
	return result
}

// LoadDotEnv loads .env files into the environment unless RAILWAY_ENV is set.
// A missing file is not an error. Existing variables are never overridden.
func LoadDotEnv(files ...string) error {
	if os.Getenv(KeyRailwayEnv) != "" {
		return nil
	}
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ConfigFilePath returns flagValue, or REPORT_CONFIG_FILE when the flag is empty.
func ConfigFilePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return strings.TrimSpace(os.Getenv(KeyConfigFile))
}

// ApplyFileOverlay loads the YAML file at path, if any, and exports its
// values for keys the environment does not already set. It returns the
// applied keys so the caller can log them once a logger exists.
func ApplyFileOverlay(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	fc, err := LoadFileConfig(path)
	if err != nil {
		return nil, err
	}
	return fc.Apply()
}

// Load builds a ReportConfig from the environment.
//
// Required secrets are strict: every missing key is collected into a single
// MissingKeysError. Optional settings fail open to their defaults with a
// logged warning and a fallback metric.
func Load(logger *slog.Logger, metrics *pkgconfig.ConfigMetrics) (*ReportConfig, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := &ReportConfig{
		News:   NewsConfig{APIKey: strings.TrimSpace(os.Getenv(KeyNewsAPIKey))},
		Sender: strings.TrimSpace(os.Getenv(KeyEmailSender)),
		SMTP: mailer.SMTPConfig{
			Password: os.Getenv(KeyEmailPassword),
		},
	}

	var missing []string
	if cfg.News.APIKey == "" {
		missing = append(missing, KeyNewsAPIKey)
	}
	if cfg.Sender == "" {
		missing = append(missing, KeyEmailSender)
	}
	if cfg.SMTP.Password == "" {
		missing = append(missing, KeyEmailPassword)
	}

	recipients, err := loadRecipients()
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		missing = append(missing, KeyRecipients)
	}
	if len(missing) > 0 {
		return nil, &MissingKeysError{Keys: missing}
	}
	if err := pkgconfig.ValidateEmail(cfg.Sender); err != nil {
		return nil, fmt.Errorf("%s: %w", KeyEmailSender, err)
	}
	cfg.Recipients = recipients
	cfg.SMTP.Username = cfg.Sender

	tracker := pkgconfig.NewTracker(logger, metrics)
	defer tracker.Finish()

	defaultPolicy := retry.DefaultPolicy()
	cfg.HTTP.Retry.MaxAttempts = pkgconfig.Track(tracker, "http_max_retries",
		pkgconfig.LoadEnvInt(KeyHTTPMaxRetries, defaultPolicy.MaxAttempts, func(v int) error {
			return pkgconfig.ValidateIntRange(v, 1, 10)
		}))
	cfg.HTTP.Retry.Delay = pkgconfig.Track(tracker, "http_retry_delay",
		pkgconfig.LoadEnvDuration(KeyHTTPRetryDelay, defaultPolicy.Delay, func(d time.Duration) error {
			return pkgconfig.ValidateDuration(d, 0, time.Minute)
		}))
	cfg.HTTP.Timeout = pkgconfig.Track(tracker, "http_timeout",
		pkgconfig.LoadEnvDuration(KeyHTTPTimeout, 10*time.Second, func(d time.Duration) error {
			return pkgconfig.ValidateDuration(d, time.Second, 2*time.Minute)
		}))

	cfg.Market.Assets = pkgconfig.Track(tracker, "crypto_assets",
		pkgconfig.LoadEnvStringList(KeyAssets, DefaultAssets, validateAssetID))
	cfg.Market.APIURL = pkgconfig.Track(tracker, "coingecko_api_url",
		pkgconfig.LoadEnvWithFallback(KeyCoinGeckoAPIURL, DefaultCoinGeckoURL, validateBaseURL))
	cfg.Market.APIKey = strings.TrimSpace(os.Getenv(KeyCoinGeckoAPIKey))

	cfg.News.Provider = pkgconfig.Track(tracker, "news_provider",
		pkgconfig.LoadEnvWithFallback(KeyNewsProvider, ProviderNewsAPI, validateProvider))
	cfg.News.APIURL = pkgconfig.Track(tracker, "news_api_url",
		pkgconfig.LoadEnvWithFallback(KeyNewsAPIURL, DefaultNewsAPIURL, validateBaseURL))
	cfg.News.RSSFeeds = pkgconfig.Track(tracker, "news_rss_feeds",
		pkgconfig.LoadEnvStringList(KeyNewsRSSFeeds, nil, validateBaseURL))
	if cfg.News.Provider == ProviderRSS && len(cfg.News.RSSFeeds) == 0 {
		logger.Warn("Configuration fallback applied",
			slog.String("field", "news_provider"),
			slog.String("warning", "NEWS_PROVIDER=rss without NEWS_RSS_FEEDS, using newsapi"))
		cfg.News.Provider = ProviderNewsAPI
	}

	cfg.SMTP.Host = pkgconfig.LoadEnvString(KeySMTPHost, mailer.DefaultHost)
	cfg.SMTP.Port = pkgconfig.Track(tracker, "smtp_port",
		pkgconfig.LoadEnvInt(KeySMTPPort, mailer.DefaultPort, func(v int) error {
			return pkgconfig.ValidateIntRange(v, 1, 65535)
		}))
	cfg.SMTP.Timeout = cfg.HTTP.Timeout

	cfg.SubjectPrefix = pkgconfig.LoadEnvString(KeySubjectPrefix, notify.DefaultSubjectPrefix)

	cfg.Log = LoadLogConfig()

	return cfg, nil
}

// LoadLogConfig reads the logging settings. It is separate from Load so the
// logger can exist before the rest of the configuration is validated.
func LoadLogConfig() LogConfig {
	return LogConfig{
		Level:  pkgconfig.LoadEnvString(KeyLogLevel, DefaultLogLevel),
		File:   pkgconfig.LoadEnvString(KeyLogFile, DefaultLogFile),
		Format: pkgconfig.LoadEnvString(KeyLogFormat, DefaultLogFormat),
	}
}

// loadRecipients prefers the list form and falls back to the two legacy
// variables. Duplicates are dropped, order is kept.
func loadRecipients() ([]string, error) {
	candidates := pkgconfig.SplitList(os.Getenv(KeyRecipients))
	if len(candidates) == 0 {
		for _, key := range []string{KeyRecipient, KeyRecipient2} {
			if v := strings.TrimSpace(os.Getenv(key)); v != "" {
				candidates = append(candidates, v)
			}
		}
	}

	seen := make(map[string]struct{}, len(candidates))
	recipients := make([]string, 0, len(candidates))
	for _, addr := range candidates {
		if err := pkgconfig.ValidateEmail(addr); err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidRecipient, addr, err)
		}
		key := strings.ToLower(addr)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		recipients = append(recipients, addr)
	}
	return recipients, nil
}

func validateAssetID(id string) error {
	for _, r := range id {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
			return fmt.Errorf("asset id %q must be lowercase alphanumeric or '-'", id)
		}
	}
	return nil
}

func validateProvider(p string) error {
	switch p {
	case ProviderNewsAPI, ProviderRSS:
		return nil
	default:
		return fmt.Errorf("unknown news provider %q", p)
	}
}

func validateBaseURL(raw string) error {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return fmt.Errorf("url %q must start with http:// or https://", raw)
	}
	return nil
}
