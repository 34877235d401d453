package worker

import (
	"context"
	"testing"

	"github.com/ppiankov/finsent/internal/model"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(0, -1)
	if l2.defaultBurst != 1 {
		t.Errorf("expected default burst 1 for negative input, got %d", l2.defaultBurst)
	}
	if l2.defaultRate != 1 {
		t.Errorf("expected default rate 1 for zero input, got %v", l2.defaultRate)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "https://data.sec.gov/api/xbrl/frames"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "https://en.wikipedia.org"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "not a url"); err == nil {
		t.Error("expected error for a URL without host")
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	url := "https://data.sec.gov/x"
	if !limiter.Allow(url) {
		t.Fatal("first request should pass")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Wait(ctx, url); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestLimiter_RateLimit(t *testing.T) {
	limiter := NewLimiter(1, 1)
	url := "https://example.com"

	if err := limiter.Wait(context.Background(), url); err != nil {
		t.Errorf("first wait failed: %v", err)
	}
	if limiter.Allow(url) {
		t.Error("expected allow to fail (exhausted tokens)")
	}
	if !limiter.Allow("https://other.com") {
		t.Error("expected allow for other host")
	}
}

func TestLimiter_SetHostRate(t *testing.T) {
	limiter := NewLimiter(10, 10)
	limiter.SetHostRate("slow.com", 0.1, 1)

	if !limiter.Allow("http://slow.com") {
		t.Error("first request should pass")
	}
	if limiter.Allow("http://slow.com") {
		t.Error("second request should fail")
	}
	if !limiter.Allow("http://fast.com") {
		t.Error("other host should pass")
	}
}

func TestNewLimiterFromConfig_CapsSEC(t *testing.T) {
	limiter := NewLimiterFromConfig(model.RateLimitingConfig{RequestsPerSecond: 50, BurstSize: 2})

	sec := limiter.getLimiter("data.sec.gov")
	if sec.Limit() != SECRequestsPerSecond {
		t.Errorf("expected SEC rate %d, got %v", SECRequestsPerSecond, sec.Limit())
	}
	if other := limiter.getLimiter("en.wikipedia.org"); other.Limit() != 50 {
		t.Errorf("expected default rate 50, got %v", other.Limit())
	}
}

func TestExtractHost(t *testing.T) {
	host, err := extractHost("https://data.sec.gov/api/xbrl")
	if err != nil {
		t.Fatalf("extractHost failed: %v", err)
	}
	if host != "data.sec.gov" {
		t.Errorf("expected data.sec.gov, got %s", host)
	}

	if _, err := extractHost("::invalid"); err == nil {
		t.Error("expected error for invalid URL")
	}
}
