package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML overlay for non-secret settings.
// Secrets are not accepted here; unknown keys are rejected.
//
// Example:
//
//	report:
//	  assets: [bitcoin, ethereum]
//	  daily_at: "10:00"
//	  timezone: Europe/Berlin
//	http:
//	  max_retries: 5
//	  retry_delay: 10s
type FileConfig struct {
	Report struct {
		Assets        []string `yaml:"assets"`
		SubjectPrefix string   `yaml:"subject_prefix"`
		Interval      string   `yaml:"interval"`
		DailyAt       string   `yaml:"daily_at"`
		Timezone      string   `yaml:"timezone"`
		Recipients    []string `yaml:"recipients"`
	} `yaml:"report"`
	HTTP struct {
		MaxRetries *int   `yaml:"max_retries"`
		RetryDelay string `yaml:"retry_delay"`
		Timeout    string `yaml:"timeout"`
	} `yaml:"http"`
	News struct {
		Provider string   `yaml:"provider"`
		APIURL   string   `yaml:"api_url"`
		RSSFeeds []string `yaml:"rss_feeds"`
	} `yaml:"news"`
	Market struct {
		APIURL string `yaml:"api_url"`
	} `yaml:"market"`
	SMTP struct {
		Host string `yaml:"host"`
		Port *int   `yaml:"port"`
	} `yaml:"smtp"`
	Logging struct {
		Level  string `yaml:"level"`
		File   string `yaml:"file"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Health struct {
		Port    *int  `yaml:"port"`
		Enabled *bool `yaml:"enabled"`
	} `yaml:"health"`
}

// LoadFileConfig reads and parses a YAML overlay.
// The path is expected to come from a trusted source (environment or CLI flag).
func LoadFileConfig(path string) (*FileConfig, error) {
	// #nosec G304 -- path is provided by the operator, not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// EnvValues maps the overlay to the environment keys it stands in for.
// Unset fields are omitted.
func (f *FileConfig) EnvValues() map[string]string {
	values := make(map[string]string)
	set := func(key, value string) {
		if strings.TrimSpace(value) != "" {
			values[key] = value
		}
	}
	setInt := func(key string, value *int) {
		if value != nil {
			values[key] = strconv.Itoa(*value)
		}
	}

	set(KeyAssets, strings.Join(f.Report.Assets, ","))
	set(KeySubjectPrefix, f.Report.SubjectPrefix)
	set(KeyReportInterval, f.Report.Interval)
	set(KeyReportDailyAt, f.Report.DailyAt)
	set(KeyReportTimezone, f.Report.Timezone)
	set(KeyRecipients, strings.Join(f.Report.Recipients, ","))
	setInt(KeyHTTPMaxRetries, f.HTTP.MaxRetries)
	set(KeyHTTPRetryDelay, f.HTTP.RetryDelay)
	set(KeyHTTPTimeout, f.HTTP.Timeout)
	set(KeyNewsProvider, f.News.Provider)
	set(KeyNewsAPIURL, f.News.APIURL)
	set(KeyNewsRSSFeeds, strings.Join(f.News.RSSFeeds, ","))
	set(KeyCoinGeckoAPIURL, f.Market.APIURL)
	set(KeySMTPHost, f.SMTP.Host)
	setInt(KeySMTPPort, f.SMTP.Port)
	set(KeyLogLevel, f.Logging.Level)
	set(KeyLogFile, f.Logging.File)
	set(KeyLogFormat, f.Logging.Format)
	setInt(KeyHealthPort, f.Health.Port)
	if f.Health.Enabled != nil {
		values[KeyHealthEnabled] = strconv.FormatBool(*f.Health.Enabled)
	}

	return values
}

// Apply exports overlay values for keys not already set in the
// environment, so the environment always wins. It returns the keys applied,
// sorted.
func (f *FileConfig) Apply() ([]string, error) {
	values := f.EnvValues()
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var applied []string
	for _, key := range keys {
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, values[key]); err != nil {
			return applied, fmt.Errorf("apply %s: %w", key, err)
		}
		applied = append(applied, key)
	}
	return applied, nil
}
