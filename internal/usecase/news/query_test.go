package news

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuery_String(t *testing.T) {
	assert.Equal(t, "cryptocurrency OR bitcoin OR ethereum", CryptoQuery().String())
	assert.Equal(t,
		"(regulation OR policy OR government) AND (cryptocurrency OR bitcoin OR crypto)",
		PolicyQuery().String())
	assert.Equal(t, "", Query{}.String())
	assert.Equal(t, "solana", Query{Groups: [][]string{{}, {"solana"}}}.String())
}

func TestQuery_PageSizes(t *testing.T) {
	assert.Equal(t, 10, CryptoQuery().PageSize)
	assert.Equal(t, 5, PolicyQuery().PageSize)
	assert.Equal(t, "en", CryptoQuery().Language)
	assert.Equal(t, "en", PolicyQuery().Language)
}

func TestQuery_Matches(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		text  string
		want  bool
	}{
		{name: "single group hit", query: CryptoQuery(), text: "Bitcoin hits new high", want: true},
		{name: "single group miss", query: CryptoQuery(), text: "Stocks slide on rate fears", want: false},
		{name: "both groups", query: PolicyQuery(), text: "SEC regulation targets crypto exchanges", want: true},
		{name: "only topic group", query: PolicyQuery(), text: "Bitcoin rallies", want: false},
		{name: "only policy group", query: PolicyQuery(), text: "Government shutdown looms", want: false},
		{name: "empty query", query: Query{}, text: "anything", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.query.Matches(tt.text))
		})
	}
}
