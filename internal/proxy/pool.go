package proxy

import (
	"sync"
	"time"
)

// DefaultCooldown is how long a proxy that failed a navigation is skipped
const DefaultCooldown = 5 * time.Minute

// Rotation hands out proxies round-robin, one per niche crawl, skipping
// proxies whose last navigation failed within the cooldown.
type Rotation struct {
	proxies  []string
	index    int
	cooldown time.Duration
	failed   map[string]time.Time
	now      func() time.Time
	mu       sync.Mutex
}

// NewRotation creates a Rotation over proxies. An empty list yields "" (direct connection).
func NewRotation(proxies []string, cooldown time.Duration) *Rotation {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Rotation{
		proxies:  append([]string(nil), proxies...),
		cooldown: cooldown,
		failed:   make(map[string]time.Time),
		now:      time.Now,
	}
}

// Next returns the next healthy proxy. When every proxy is cooling down the
// one that failed longest ago is returned, so a crawl is never starved.
func (r *Rotation) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.proxies) == 0 {
		return ""
	}

	oldest := ""
	var oldestAt time.Time
	for i := 0; i < len(r.proxies); i++ {
		p := r.proxies[r.index]
		r.index = (r.index + 1) % len(r.proxies)

		at, failed := r.failed[p]
		if !failed {
			return p
		}
		if r.now().Sub(at) >= r.cooldown {
			delete(r.failed, p)
			return p
		}
		if oldest == "" || at.Before(oldestAt) {
			oldest, oldestAt = p, at
		}
	}
	return oldest
}

// MarkFailed puts a proxy in cooldown
func (r *Rotation) MarkFailed(proxy string) {
	if proxy == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[proxy] = r.now()
}

// MarkHealthy clears the failure status of a proxy
func (r *Rotation) MarkHealthy(proxy string) {
	if proxy == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.failed, proxy)
}

// Len returns the number of configured proxies
func (r *Rotation) Len() int {
	return len(r.proxies)
}
