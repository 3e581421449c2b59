package hls

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/jmylchreest/streamrepair/internal/cache"
	"github.com/jmylchreest/streamrepair/pkg/httpclient"
)

// FetcherConfig tunes retry behavior and the raw-segment cache.
type FetcherConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	CacheTTL    time.Duration
}

// DefaultFetcherConfig returns sensible defaults: 3 attempts, 500ms base
// backoff, 60s segment cache TTL.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		CacheTTL:    60 * time.Second,
	}
}

// Fetcher downloads one segment or key per call, retrying transport errors
// and 5xx responses with exponential backoff; HTTP 4xx is not retried. A
// raw-byte cache keyed by absolute URL+range is consulted first.
type Fetcher struct {
	client *httpclient.Client
	cfg    FetcherConfig
	raw    *cache.TTLCache
}

// NewFetcher creates a Fetcher using client for transport.
func NewFetcher(client *httpclient.Client, cfg FetcherConfig) *Fetcher {
	return &Fetcher{
		client: client,
		cfg:    cfg,
		raw:    cache.New(),
	}
}

// Fetch downloads the bytes at absoluteURL, honoring byteRange (an HTTP
// Range value such as "0-1023") when non-empty.
func (f *Fetcher) Fetch(ctx context.Context, absoluteURL, byteRange string) ([]byte, error) {
	cacheKey := absoluteURL + "|" + byteRange
	if cached, _, ok := f.raw.Get(cacheKey); ok {
		return cached, nil
	}

	var lastErr error
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		data, retryable, err := f.fetchOnce(ctx, absoluteURL, byteRange)
		if err == nil {
			f.raw.Set(cacheKey, data, f.cfg.CacheTTL)
			return data, nil
		}
		lastErr = err
		if !retryable || attempt == f.cfg.MaxAttempts {
			break
		}
		delay := time.Duration(float64(f.cfg.BaseDelay) * math.Pow(2, float64(attempt-1)))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrSegmentFetch, ctx.Err())
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrSegmentFetch, lastErr)
}

// fetchOnce performs a single fetch attempt, reporting whether a failure is
// retryable (transport errors and 5xx are; 4xx is not).
func (f *Fetcher) fetchOnce(ctx context.Context, absoluteURL, byteRange string) (data []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, absoluteURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("invalid URL: %w", err)
	}
	if byteRange != "" {
		req.Header.Set("Range", "bytes="+byteRange)
	}

	resp, err := f.client.DoWithContext(ctx, req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("server error status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, false, fmt.Errorf("client error status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}
	return body, false, nil
}

// FetchKey implements KeyFetcher, reusing Fetch's cache and retry policy.
func (f *Fetcher) FetchKey(ctx context.Context, uri string) ([]byte, error) {
	return f.Fetch(ctx, uri, "")
}
