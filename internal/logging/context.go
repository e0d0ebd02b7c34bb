package logging

import (
	"context"

	"github.com/google/uuid"
)

// CorrelationHeader is the request header the API reads and echoes so the
// website and this service can cross-reference a submission.
const CorrelationHeader = "X-Correlation-ID"

// ctxKey is unexported so no other package can collide with our value.
type ctxKey int

const correlationKey ctxKey = iota

// WithCorrelationID attaches a correlation ID to the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey, id)
}

// GetCorrelationID returns the context's correlation ID, or "" when the
// work was not started by an HTTP request.
func GetCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey).(string)
	return id
}

// NewCorrelationID mints an ID for requests that arrived without one.
func NewCorrelationID() string {
	return uuid.NewString()
}
