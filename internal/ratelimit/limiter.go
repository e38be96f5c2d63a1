// internal/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter paces browser navigations.
//
// The ad library throttles aggressively, so every search page load of a
// cycle goes through Wait, keyed by the host being navigated to.
type RateLimiter interface {
	// Wait blocks until a navigation to urlStr may start, or ctx is done.
	Wait(ctx context.Context, urlStr string) error
}

// HostLimiter keeps one token bucket per host.
type HostLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	perHost  rate.Limit
	burst    int
}

// NewHostLimiter creates a limiter allowing navigationsPerSecond per host.
// Non-positive values fall back to one navigation every five seconds with burst 1.
func NewHostLimiter(navigationsPerSecond float64, burst int) *HostLimiter {
	if navigationsPerSecond <= 0 {
		navigationsPerSecond = 0.2
	}
	if burst <= 0 {
		burst = 1
	}

	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		perHost:  rate.Limit(navigationsPerSecond),
		burst:    burst,
	}
}

// Wait blocks until the navigation may proceed according to the host's bucket
func (hl *HostLimiter) Wait(ctx context.Context, urlStr string) error {
	host := hostOf(urlStr)
	if host == "" {
		// let navigation fail on its own
		return nil
	}
	return hl.limiter(host).Wait(ctx)
}

func (hl *HostLimiter) limiter(host string) *rate.Limiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	l, ok := hl.limiters[host]
	if !ok {
		l = rate.NewLimiter(hl.perHost, hl.burst)
		hl.limiters[host] = l
	}
	return l
}

// hostOf returns the lowercased host of urlStr, or "" when it does not parse
func hostOf(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
