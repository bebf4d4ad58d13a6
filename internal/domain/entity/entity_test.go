package entity

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestArticle_DisplayTitle(t *testing.T) {
	assert.Equal(t, "Bitcoin rallies", Article{Title: "Bitcoin rallies"}.DisplayTitle())
	assert.Equal(t, UntitledArticle, Article{}.DisplayTitle())
	assert.Equal(t, UntitledArticle, Article{Title: "   "}.DisplayTitle())
}

func TestArticle_Link(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "https", url: "https://example.com/a", want: "https://example.com/a"},
		{name: "http", url: "http://example.com/a?x=1", want: "http://example.com/a?x=1"},
		{name: "empty", url: "", want: MissingLink},
		{name: "javascript scheme", url: "javascript:alert(1)", want: MissingLink},
		{name: "relative", url: "/news/1", want: MissingLink},
		{name: "too long", url: "https://example.com/" + strings.Repeat("a", maxURLLength), want: MissingLink},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Article{URL: tt.url}.Link())
		})
	}
}

func TestValidateLink_ReturnsValidationError(t *testing.T) {
	err := ValidateLink("ftp://example.com")

	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))
	assert.Equal(t, "url", vErr.Field)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Equal(t, "validation error on field 'url': URL must use http or https scheme", err.Error())
}

func TestMarketRow(t *testing.T) {
	row := NewMarketRow("bitcoin", decimal.RequireFromString("65000.5"), decimal.RequireFromString("-1.2"))
	assert.Equal(t, "BITCOIN", row.Symbol)
	assert.False(t, row.IsSentinel())

	sentinel := NewSentinelRow(MessageMarketError)
	assert.True(t, sentinel.IsSentinel())
	assert.Equal(t, SentinelSymbol, sentinel.Symbol)
	assert.True(t, sentinel.Price.IsZero())
	assert.True(t, sentinel.Change24h.IsZero())
	assert.Equal(t, "Market data error", sentinel.Message)
}
