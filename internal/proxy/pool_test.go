package proxy

import (
	"testing"
	"time"
)

func TestRotation(t *testing.T) {
	r := NewRotation([]string{"p1", "p2", "p3"}, time.Minute)

	for _, want := range []string{"p1", "p2", "p3", "p1"} {
		if p := r.Next(); p != want {
			t.Errorf("Expected %s, got %s", want, p)
		}
	}

	r.MarkFailed("p2")

	// index is at p2, which is cooling down
	if p := r.Next(); p != "p3" {
		t.Errorf("Expected p3 (skipping p2), got %s", p)
	}
	if p := r.Next(); p != "p1" {
		t.Errorf("Expected p1, got %s", p)
	}
	if p := r.Next(); p != "p3" {
		t.Errorf("Expected p3, got %s", p)
	}

	r.MarkHealthy("p2")
	if p := r.Next(); p != "p1" {
		t.Errorf("Expected p1, got %s", p)
	}
	if p := r.Next(); p != "p2" {
		t.Errorf("Expected p2, got %s", p)
	}
}

func TestRotation_CooldownExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	r := NewRotation([]string{"p1", "p2"}, time.Minute)
	r.now = func() time.Time { return now }

	r.MarkFailed("p1")
	now = now.Add(time.Second)
	r.MarkFailed("p2")

	// all cooling down: the one that failed first comes back
	if p := r.Next(); p != "p1" {
		t.Errorf("Expected p1 as oldest failure, got %s", p)
	}

	now = now.Add(2 * time.Minute)
	if p := r.Next(); p != "p1" {
		t.Errorf("Expected p1 after cooldown, got %s", p)
	}
	if len(r.failed) != 1 {
		t.Errorf("expired failure should be cleared, failed=%v", r.failed)
	}
}

func TestRotation_Empty(t *testing.T) {
	r := NewRotation(nil, 0)
	if p := r.Next(); p != "" {
		t.Errorf("Expected direct connection, got %q", p)
	}
	r.MarkFailed("")
	if r.Len() != 0 {
		t.Error("expected no proxies")
	}
}
