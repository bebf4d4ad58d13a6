// Package newsapi implements news.Source over the NewsAPI /v2/everything endpoint.
package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"crypto-report/internal/domain/entity"
	"crypto-report/internal/infra/httpclient"
	"crypto-report/internal/usecase/news"
)

// DefaultBaseURL is the public NewsAPI v2 endpoint.
const DefaultBaseURL = "https://newsapi.org/v2"

// APIKeyHeader carries the key so that it never appears in request URLs.
const APIKeyHeader = "X-Api-Key"

// ErrMissingAPIKey is returned by NewClient without a key.
var ErrMissingAPIKey = errors.New("newsapi: api key is required")

// JSONFetcher performs a GET returning a JSON body.
type JSONFetcher interface {
	GetJSON(ctx context.Context, url string) ([]byte, error)
}

// APIError is an error reported by NewsAPI in its response body.
type APIError struct {
	// HTTPStatus is 0 when NewsAPI answered 200 with status "error".
	HTTPStatus int
	Code       string
	Message    string

	err error
}

func (e *APIError) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("newsapi error %s (HTTP %d): %s", e.Code, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("newsapi error %s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return e.err }

type response struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// Client queries NewsAPI.
type Client struct {
	baseURL string
	fetcher JSONFetcher
}

// NewClient creates a Client. The fetcher must send the API key, typically
// via httpclient.WithHeader(APIKeyHeader, key); apiKey is only checked here.
func NewClient(baseURL, apiKey string, fetcher JSONFetcher) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("newsapi: invalid base url: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		fetcher: fetcher,
	}, nil
}

// Name implements news.Source.
func (c *Client) Name() string { return "newsapi" }

func (c *Client) everythingURL(q news.Query) string {
	params := url.Values{}
	params.Set("q", q.String())
	params.Set("sortBy", "publishedAt")
	if q.Language != "" {
		params.Set("language", q.Language)
	}
	if q.PageSize > 0 {
		params.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	return c.baseURL + "/everything?" + params.Encode()
}

// Search implements news.Source.
func (c *Client) Search(ctx context.Context, q news.Query) ([]entity.Article, error) {
	body, err := c.fetcher.GetJSON(ctx, c.everythingURL(q))
	if err != nil {
		if apiErr := apiErrorFrom(err); apiErr != nil {
			return nil, apiErr
		}
		return nil, fmt.Errorf("newsapi search %q: %w", q.Name, err)
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("newsapi: decode response: %w", err)
	}

	if resp.Status != "ok" {
		return nil, &APIError{Code: resp.Code, Message: resp.Message}
	}

	articles := make([]entity.Article, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		articles = append(articles, entity.Article{
			Title:       a.Title,
			URL:         a.URL,
			Description: a.Description,
			PublishedAt: a.PublishedAt,
			SourceName:  a.Source.Name,
		})
	}
	return articles, nil
}

// apiErrorFrom extracts the NewsAPI error body carried by a failed fetch.
func apiErrorFrom(err error) *APIError {
	var statusErr *httpclient.StatusError
	if !errors.As(err, &statusErr) {
		return nil
	}

	var resp response
	if json.Unmarshal(statusErr.Body, &resp) != nil || resp.Status != "error" {
		return nil
	}

	return &APIError{
		HTTPStatus: statusErr.StatusCode,
		Code:       resp.Code,
		Message:    resp.Message,
		err:        err,
	}
}
