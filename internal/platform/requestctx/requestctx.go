// Package requestctx carries the per-request correlation id through
// context so logs, audit entries, and response envelopes can reference
// the same id without threading it through every signature.
package requestctx

import "context"

// key is unexported so no other package can collide with it.
type key struct{}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, key{}, id)
}

// GetRequestID returns the stored id, or "" when the context never
// passed through the request-id middleware.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(key{}).(string)
	return id
}
