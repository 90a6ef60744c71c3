// internal/platform/requestid/requestid.go
package requestid

import (
	"context"

	"github.com/google/uuid"
)

// Header carries the request id in and out of the service.
const Header = "X-Request-ID"

type ctxKey struct{}

// New returns a fresh request id.
func New() string {
	return uuid.NewString()
}

// Valid reports whether an incoming header value can be reused as a request id.
func Valid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func WithContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the request id, or "" outside of a request.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
