// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them; services read them when
// stamping audit events, without importing net/http.
package requestcontext

import "context"

type (
	requestIDKey struct{}
	userAgentKey struct{}
)

// WithRequestID attaches the request correlation ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request correlation ID, or "" when unset.
func RequestID(ctx context.Context) string {
	s, _ := ctx.Value(requestIDKey{}).(string)
	return s
}

// WithUserAgent attaches the parsed client user agent.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, userAgentKey{}, ua)
}

// UserAgent returns the parsed client user agent, or "" when unset.
func UserAgent(ctx context.Context) string {
	s, _ := ctx.Value(userAgentKey{}).(string)
	return s
}
