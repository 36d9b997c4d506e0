package interceptors

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// SessionHeader is the response header carrying the daemon's telemetry session ID.
const SessionHeader = "x-session-id"

type contextKey struct{ name string }

var sessionIDKey = contextKey{"session_id"}

// WithSessionID returns a context carrying the telemetry session ID.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// GetSessionID returns the session ID from context and true if set; otherwise "", false.
func GetSessionID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(sessionIDKey).(string)
	return v, ok
}

// SessionUnary returns a unary server interceptor that puts sessionID in the handler context and
// the response headers. An empty sessionID disables it.
func SessionUnary(sessionID string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if sessionID == "" {
			return handler(ctx, req)
		}
		// SetHeader fails outside a real stream (e.g. direct calls in tests); the header is best-effort.
		_ = grpc.SetHeader(ctx, metadata.Pairs(SessionHeader, sessionID))
		return handler(WithSessionID(ctx, sessionID), req)
	}
}
