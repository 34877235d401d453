package worker

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/ppiankov/finsent/internal/model"
	"golang.org/x/time/rate"
)

// SECRequestsPerSecond is the ceiling SEC publishes for automated access to its hosts
const SECRequestsPerSecond = 10

// Limiter implements per-host rate limiting for the collaborator fetchers
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// NewLimiterFromConfig builds a limiter whose default rate never exceeds
// the SEC ceiling for sec.gov hosts
func NewLimiterFromConfig(cfg model.RateLimitingConfig) *Limiter {
	l := NewLimiter(cfg.RequestsPerSecond, cfg.BurstSize)
	secRate := min(cfg.RequestsPerSecond, SECRequestsPerSecond)
	for _, host := range []string{"data.sec.gov", "www.sec.gov"} {
		l.SetHostRate(host, secRate, cfg.BurstSize)
	}
	return l
}

// Wait blocks until a request to rawURL is allowed
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := extractHost(rawURL)
	if err != nil {
		return err
	}

	if err := l.getLimiter(host).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit %s: %w", host, err)
	}
	return nil
}

// Allow checks if a request is allowed without waiting
func (l *Limiter) Allow(rawURL string) bool {
	host, err := extractHost(rawURL)
	if err != nil {
		return false
	}

	return l.getLimiter(host).Allow()
}

func (l *Limiter) getLimiter(host string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[host]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[host]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[host] = limiter

	return limiter
}

// SetHostRate sets a custom rate limit for a specific host
func (l *Limiter) SetHostRate(host string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = float64(l.defaultRate)
	}

	l.limiters[host] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

func extractHost(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	return parsed.Host, nil
}
