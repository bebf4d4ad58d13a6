// Package resilience groups the fault-tolerance helpers used by the
// upstream API clients.
//
// The package supports:
//   - Circuit breakers for NewsAPI, CoinGecko and RSS feeds
//   - Fixed-count, fixed-delay retry with an injectable sleep
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.CoinGeckoConfig())
//	body, err := circuitbreaker.Call(cb, func() ([]byte, error) {
//	    return fetchQuotes(ctx)
//	})
//
//	attempts, err := retry.Do(ctx, retry.DefaultPolicy(), nil, func(ctx context.Context, attempt int) error {
//	    return performRequest(ctx)
//	})
package resilience
