// Package reqctx carries a per-request id through handlers and into errors.
package reqctx

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Header is read from incoming requests and echoed on responses
const Header = "X-Request-Id"

type key int

const requestKey key = 0

type RequestContext struct {
	RequestID string
	StartTime time.Time
}

// WithRequestContext attaches a request context. An empty id gets a fresh one.
func WithRequestContext(ctx context.Context, id string) context.Context {
	if id == "" || len(id) > 128 {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, requestKey, &RequestContext{
		RequestID: id,
		StartTime: time.Now(),
	})
}

func GetRequestContext(ctx context.Context) *RequestContext {
	if rc, ok := ctx.Value(requestKey).(*RequestContext); ok {
		return rc
	}
	return &RequestContext{
		RequestID: "unknown",
		StartTime: time.Now(),
	}
}

// ID returns the request id stored in ctx, or "unknown"
func ID(ctx context.Context) string {
	return GetRequestContext(ctx).RequestID
}

// Middleware reuses the caller's X-Request-Id when present and sets it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithRequestContext(r.Context(), r.Header.Get(Header))
		w.Header().Set(Header, ID(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestError wraps an error with request context
type RequestError struct {
	RequestID string
	Err       error
}

// Error implements the error interface
func (e *RequestError) Error() string {
	return fmt.Sprintf("[%s] %v", e.RequestID, e.Err)
}

// Unwrap returns the underlying error
func (e *RequestError) Unwrap() error {
	return e.Err
}

// NewRequestError creates a new RequestError from context
func NewRequestError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	return &RequestError{
		RequestID: ID(ctx),
		Err:       err,
	}
}
