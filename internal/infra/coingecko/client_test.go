package coingecko

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crypto-report/internal/infra/httpclient"
	"crypto-report/internal/resilience/retry"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	body    []byte
	err     error
	gotURLs []string
}

func (s *stubFetcher) GetJSON(_ context.Context, url string) ([]byte, error) {
	s.gotURLs = append(s.gotURLs, url)
	return s.body, s.err
}

func TestFetchQuotes_RequestShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/simple/price", r.URL.Path)
		assert.Equal(t, "bitcoin,ethereum,celestia,solana", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		assert.Equal(t, "true", r.URL.Query().Get("include_24hr_change"))
		_, _ = w.Write([]byte(`{
			"bitcoin": {"usd": 65000.12, "usd_24h_change": -1.2345},
			"ethereum": {"usd": 3200.5, "usd_24h_change": 2.5}
		}`))
	}))
	defer server.Close()

	fetcher := httpclient.New(httpclient.Config{Timeout: time.Second, Retry: retry.Policy{MaxAttempts: 1}})
	client := NewClient(server.URL+"/api/v3/", fetcher)

	quotes, err := client.FetchQuotes(context.Background(), []string{"bitcoin", "ethereum", "celestia", "solana"})

	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.True(t, decimal.RequireFromString("65000.12").Equal(quotes["bitcoin"].Price))
	assert.True(t, decimal.RequireFromString("-1.2345").Equal(quotes["bitcoin"].Change24h))
	assert.Equal(t, "ethereum", quotes["ethereum"].ID)
	assert.NotContains(t, quotes, "celestia")
}

func TestFetchQuotes_DefaultBaseURL(t *testing.T) {
	fetcher := &stubFetcher{body: []byte(`{}`)}

	_, err := NewClient("", fetcher).FetchQuotes(context.Background(), []string{"bitcoin"})

	require.NoError(t, err)
	require.Len(t, fetcher.gotURLs, 1)
	assert.Equal(t,
		"https://api.coingecko.com/api/v3/simple/price?ids=bitcoin&include_24hr_change=true&vs_currencies=usd",
		fetcher.gotURLs[0])
}

func TestFetchQuotes_Parsing(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    map[string]Quote
		wantErr error
	}{
		{
			name: "empty object",
			body: `{}`,
			want: map[string]Quote{},
		},
		{
			name: "complete entries",
			body: `{"solana": {"usd": 150, "usd_24h_change": 1}, "bitcoin": {"usd": 65000.5, "usd_24h_change": -1.25}}`,
			want: map[string]Quote{
				"solana":  {ID: "solana", Price: decimal.NewFromInt(150), Change24h: decimal.NewFromInt(1)},
				"bitcoin": {ID: "bitcoin", Price: decimal.RequireFromString("65000.5"), Change24h: decimal.RequireFromString("-1.25")},
			},
		},
		{
			name:    "missing change",
			body:    `{"bitcoin": {"usd": 65000}}`,
			wantErr: ErrUnexpectedPayload,
		},
		{
			name:    "null change",
			body:    `{"solana": {"usd": 150, "usd_24h_change": null}}`,
			wantErr: ErrUnexpectedPayload,
		},
		{
			name:    "entry without usd",
			body:    `{"celestia": {"eur": 5}, "solana": {"usd": 150, "usd_24h_change": 1}}`,
			wantErr: ErrUnexpectedPayload,
		},
		{
			name:    "empty entry",
			body:    `{"bitcoin": {"usd": 65000, "usd_24h_change": 0.5}, "ethereum": {}}`,
			wantErr: ErrUnexpectedPayload,
		},
		{
			name:    "string price",
			body:    `{"bitcoin": {"usd": "65000", "usd_24h_change": 0.5}}`,
			wantErr: ErrUnexpectedPayload,
		},
		{
			name:    "array payload",
			body:    `[]`,
			wantErr: ErrUnexpectedPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient("http://example.test", &stubFetcher{body: []byte(tt.body)})

			got, err := client.FetchQuotes(context.Background(), []string{"bitcoin"})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for id, want := range tt.want {
				assert.True(t, want.Price.Equal(got[id].Price), id)
				assert.True(t, want.Change24h.Equal(got[id].Change24h), id)
				assert.Equal(t, want.ID, got[id].ID)
			}
		})
	}
}

func TestFetchQuotes_PropagatesFetchError(t *testing.T) {
	cause := &httpclient.TransientFetchError{URL: "x", Attempts: 3, Err: errors.New("boom")}
	client := NewClient("http://example.test", &stubFetcher{err: cause})

	_, err := client.FetchQuotes(context.Background(), []string{"bitcoin"})

	assert.ErrorIs(t, err, httpclient.ErrTransientFetch)
}
