// Package coingecko fetches spot prices and 24h change from the CoinGecko
// simple price endpoint.
package coingecko

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"crypto-report/internal/observability/logging"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// DefaultBaseURL is the public CoinGecko v3 API.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// ErrUnexpectedPayload is returned when the response is not an id-keyed object.
var ErrUnexpectedPayload = errors.New("coingecko: unexpected payload")

// JSONFetcher performs a GET returning a JSON body.
type JSONFetcher interface {
	GetJSON(ctx context.Context, url string) ([]byte, error)
}

// Quote is the USD price and 24h percentage change of one asset.
type Quote struct {
	ID        string
	Price     decimal.Decimal
	Change24h decimal.Decimal
}

// Client queries CoinGecko.
type Client struct {
	baseURL string
	fetcher JSONFetcher
}

// NewClient creates a Client. An empty baseURL means DefaultBaseURL.
func NewClient(baseURL string, fetcher JSONFetcher) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		fetcher: fetcher,
	}
}

func (c *Client) priceURL(ids []string) string {
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", "usd")
	q.Set("include_24hr_change", "true")
	return c.baseURL + "/simple/price?" + q.Encode()
}

// FetchQuotes returns the quotes CoinGecko reported, keyed by asset id.
// Ids CoinGecko does not know are simply absent from the map. An entry that
// is present but lacks a numeric usd price or 24h change fails the whole
// batch with ErrUnexpectedPayload.
func (c *Client) FetchQuotes(ctx context.Context, ids []string) (map[string]Quote, error) {
	body, err := c.fetcher.GetJSON(ctx, c.priceURL(ids))
	if err != nil {
		return nil, fmt.Errorf("fetch simple price: %w", err)
	}

	return parseQuotes(ctx, body)
}

func parseQuotes(ctx context.Context, body []byte) (map[string]Quote, error) {
	result := gjson.ParseBytes(body)
	if !result.IsObject() {
		return nil, fmt.Errorf("%w: expected object, got %s", ErrUnexpectedPayload, result.Type)
	}

	quotes := make(map[string]Quote)

	var parseErr error
	result.ForEach(func(key, value gjson.Result) bool {
		id := key.String()

		price, err := numberField(value, "usd")
		if err != nil {
			parseErr = fmt.Errorf("%w: price of %s: %v", ErrUnexpectedPayload, id, err)
			return false
		}
		change, err := numberField(value, "usd_24h_change")
		if err != nil {
			parseErr = fmt.Errorf("%w: 24h change of %s: %v", ErrUnexpectedPayload, id, err)
			return false
		}

		quotes[id] = Quote{ID: id, Price: price, Change24h: change}
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	logging.FromContext(ctx).DebugContext(ctx, "coingecko quotes parsed", slog.Int("quotes", len(quotes)))
	return quotes, nil
}

func numberField(entry gjson.Result, field string) (decimal.Decimal, error) {
	v := entry.Get(field)
	if !v.Exists() {
		return decimal.Zero, fmt.Errorf("missing %s", field)
	}
	if v.Type != gjson.Number {
		return decimal.Zero, fmt.Errorf("%s is %s, not a number", field, v.Type)
	}
	return decimal.NewFromString(v.Raw)
}
