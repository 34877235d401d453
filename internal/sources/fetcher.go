// Package sources implements the data producers around the extraction
// pipeline: the SEC XBRL frames fetcher, the filing metadata projection and
// the company index scraper.
package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ppiankov/finsent/internal/cache"
	"github.com/ppiankov/finsent/internal/model"
	"github.com/ppiankov/finsent/internal/worker"
	"go.uber.org/zap"
)

const maxAttempts = 3

// fetchSleepFunc is replaced in tests
var fetchSleepFunc = time.Sleep

// StatusError is a non-2xx HTTP response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// Fetcher performs polite GET requests: rate limited per host, cached, retried on transient failures
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	limiter    *worker.Limiter
	cache      cache.Cache
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithLimiter throttles requests per host
func WithLimiter(l *worker.Limiter) Option {
	return func(f *Fetcher) { f.limiter = l }
}

// WithCache stores successful responses; ttl 0 uses the cache default
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(f *Fetcher) {
		f.cache = c
		f.cacheTTL = ttl
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher creates a Fetcher from the HTTP configuration
func NewFetcher(cfg model.HTTPConfig, opts ...Option) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)

	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 50_000_000
	}

	f := &Fetcher{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
		cache:     cache.Nop{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchResult is a response body and its metadata
type FetchResult struct {
	Body        []byte
	StatusCode  int
	ContentType string
	FinalURL    string
	Cached      bool
}

// Fetch performs a single GET; accept sets the Accept header
func (f *Fetcher) Fetch(ctx context.Context, rawURL, accept string) (*FetchResult, error) {
	key := cache.Key(rawURL, accept)
	if body, ok := f.cache.Get(key); ok {
		f.logger.Debug("cache hit", zap.String("url", rawURL))
		return &FetchResult{Body: body, StatusCode: http.StatusOK, FinalURL: rawURL, Cached: true}, nil
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("read body: response exceeds %d bytes", f.maxBytes)
	}

	if err := f.cache.Set(key, body, f.cacheTTL); err != nil {
		f.logger.Warn("cache write failed", zap.String("url", rawURL), zap.Error(err))
	}

	return &FetchResult{
		Body:        body,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// Forget drops a cached response, for bodies the caller could not use
func (f *Fetcher) Forget(rawURL, accept string) {
	if err := f.cache.Delete(cache.Key(rawURL, accept)); err != nil {
		f.logger.Warn("cache delete failed", zap.String("url", rawURL), zap.Error(err))
	}
}

// FetchWithRetry retries transient failures (transport errors, 429, 5xx) with exponential backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL, accept string) (*FetchResult, error) {
	var lastErr error
	backoff := time.Second
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := f.Fetch(ctx, rawURL, accept)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) || ctx.Err() != nil || attempt == maxAttempts {
			break
		}
		f.logger.Debug("retrying fetch",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Error(err))
		fetchSleepFunc(backoff)
		backoff *= 2
	}
	return nil, lastErr
}

func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Code == http.StatusTooManyRequests || status.Code >= 500
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
