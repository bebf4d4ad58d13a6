// Package entity defines the domain values that flow through a report run:
// news articles and market summary rows.
package entity

import (
	"net/url"
	"strings"
)

// Placeholders rendered for articles with missing fields.
const (
	UntitledArticle = "No title"
	MissingLink     = "#"
)

// Article is a news item as received from a news source.
// PublishedAt is kept as the text the source sent.
type Article struct {
	Title       string
	URL         string
	Description string
	PublishedAt string

	// SourceName is used for logging only.
	SourceName string
}

// DisplayTitle returns the title, or UntitledArticle when blank.
func (a Article) DisplayTitle() string {
	if strings.TrimSpace(a.Title) == "" {
		return UntitledArticle
	}
	return a.Title
}

// Link returns the article URL when it is an absolute http(s) URL,
// and MissingLink otherwise.
func (a Article) Link() string {
	if ValidateLink(a.URL) != nil {
		return MissingLink
	}
	return a.URL
}

// maxURLLength bounds links copied into the report.
const maxURLLength = 2048

// ValidateLink checks that rawURL is an absolute http or https URL with a host.
func ValidateLink(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return &ValidationError{Field: "url", Message: "URL is required"}
	}

	if len(rawURL) > maxURLLength {
		return &ValidationError{Field: "url", Message: "URL is too long"}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return &ValidationError{Field: "url", Message: err.Error()}
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "URL must use http or https scheme"}
	}

	if parsed.Host == "" {
		return &ValidationError{Field: "url", Message: "URL must have a valid host"}
	}

	return nil
}
