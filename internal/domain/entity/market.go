package entity

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Sentinel row messages.
const (
	MessageDataUnavailable = "Crypto data unavailable"
	MessageMarketError     = "Market data error"
)

// SentinelSymbol is the symbol carried by sentinel rows.
const SentinelSymbol = "N/A"

// MarketRow is one line of the market summary table.
// A row with a non-empty Message is a sentinel standing in for missing data.
type MarketRow struct {
	Symbol    string
	Price     decimal.Decimal
	Change24h decimal.Decimal
	Message   string
}

// NewMarketRow builds a quote row for assetID.
func NewMarketRow(assetID string, price, change decimal.Decimal) MarketRow {
	return MarketRow{
		Symbol:    strings.ToUpper(assetID),
		Price:     price,
		Change24h: change,
	}
}

// NewSentinelRow builds a placeholder row with the given message.
func NewSentinelRow(message string) MarketRow {
	return MarketRow{
		Symbol:    SentinelSymbol,
		Price:     decimal.Zero,
		Change24h: decimal.Zero,
		Message:   message,
	}
}

// IsSentinel reports whether the row is a placeholder.
func (r MarketRow) IsSentinel() bool {
	return r.Message != ""
}
