package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	if Classify(ErrCodeNavigation, "x", nil) != nil {
		t.Fatal("nil error should classify to nil")
	}

	timeout := Classify(ErrCodeNavigation, "navigate", fmt.Errorf("wrap: %w", context.DeadlineExceeded))
	if timeout.Code != ErrCodeTimeout || !errors.Is(timeout, ErrTimeout) {
		t.Fatalf("expected timeout, got %v", timeout)
	}

	nav := Classify(ErrCodeNavigation, "navigate", errors.New("net::ERR_NAME_NOT_RESOLVED"))
	if nav.Code != ErrCodeNavigation {
		t.Fatalf("expected navigation code, got %s", nav.Code)
	}

	wrapped := fmt.Errorf("crawl: %w", nav)
	if CodeOf(wrapped) != ErrCodeNavigation {
		t.Fatalf("CodeOf = %s", CodeOf(wrapped))
	}
	if !errors.Is(wrapped, &EngineError{Code: ErrCodeNavigation}) {
		t.Fatal("errors.Is should match on code")
	}
}
