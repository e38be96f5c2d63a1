package cache

import (
	"fmt"
	"testing"
)

func TestRunCounter_Increment(t *testing.T) {
	rc := NewRunCounter(10)

	for want := 1; want <= 3; want++ {
		if got := rc.Increment("123"); got != want {
			t.Fatalf("Increment #%d = %d", want, got)
		}
	}
	if got := rc.Get("123"); got != 3 {
		t.Errorf("Get = %d, want 3", got)
	}
	if got := rc.Get("unknown"); got != 0 {
		t.Errorf("Get(unknown) = %d, want 0", got)
	}
}

func TestRunCounter_EvictsOldestInserted(t *testing.T) {
	rc := NewRunCounter(3)

	rc.Increment("a")
	rc.Increment("b")
	rc.Increment("c")
	// Re-sighting "a" does not refresh its position
	rc.Increment("a")
	rc.Increment("d")

	if rc.Len() != 3 {
		t.Fatalf("Len = %d, want 3", rc.Len())
	}
	if rc.Get("a") != 0 {
		t.Error("expected oldest id a to be evicted")
	}
	for _, id := range []string{"b", "c", "d"} {
		if rc.Get(id) != 1 {
			t.Errorf("expected %s to be kept with count 1", id)
		}
	}

	// An evicted id starts over
	if got := rc.Increment("a"); got != 1 {
		t.Errorf("Increment after eviction = %d, want 1", got)
	}
}

func TestRunCounter_DefaultCapacity(t *testing.T) {
	rc := NewRunCounter(0)
	for i := 0; i < 600; i++ {
		rc.Increment(fmt.Sprintf("id-%d", i))
	}
	if rc.Len() != 500 {
		t.Errorf("Len = %d, want 500", rc.Len())
	}
	if rc.Stats()["evicted"].(uint64) != 100 {
		t.Errorf("unexpected stats: %v", rc.Stats())
	}
}
