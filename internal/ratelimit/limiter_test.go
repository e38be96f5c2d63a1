package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestHostLimiter_PerHostBuckets(t *testing.T) {
	hl := NewHostLimiter(0.001, 1)
	if err := hl.Wait(context.Background(), "https://www.facebook.com/ads/library/?q=a"); err != nil {
		t.Fatalf("first navigation: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := hl.Wait(ctx, "https://WWW.facebook.com/ads/library/?q=b"); err == nil {
		t.Fatal("second navigation to the same host should be throttled")
	}
	if err := hl.Wait(ctx, "http://127.0.0.1:9999/ads/library/"); err != nil {
		t.Fatalf("another host has its own bucket: %v", err)
	}
}

func TestHostLimiter_WaitHonoursContext(t *testing.T) {
	hl := NewHostLimiter(0.001, 1)
	ctx := context.Background()
	if err := hl.Wait(ctx, "https://example.com"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := hl.Wait(ctx, "https://example.com"); err == nil {
		t.Fatal("expected wait to fail once the context expires")
	}

	if err := hl.Wait(context.Background(), "::not a url"); err != nil {
		t.Fatalf("unparseable URLs are not throttled: %v", err)
	}
}
