package ctxutil

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Sanjaee/zacode-auth/internal/constants"
	"github.com/google/uuid"
)

// ContextKey re-exports the shared context key type.
type ContextKey = constants.ContextKey

const (
	RequestIDKey = constants.CtxKeyRequestID
	UserIDKey    = constants.CtxKeyUserID
	ClientIPKey  = constants.CtxKeyClientIP
	UserAgentKey = constants.CtxKeyUserAgent
	StartTimeKey = constants.CtxKeyStartTime
	ModuleKey    = constants.CtxKeyModule
	FunctionKey  = constants.CtxKeyFunction
	UserRoleKey  = constants.CtxKeyUserRole
)

// NewContextWithRequest seeds a context with request metadata plus the
// module/function pair used by the context logger.
func NewContextWithRequest(ctx context.Context, r *http.Request, module, function string) context.Context {
	if GetRequestID(ctx) == "" {
		ctx = context.WithValue(ctx, RequestIDKey, uuid.NewString())
	}
	if r != nil {
		ctx = context.WithValue(ctx, ClientIPKey, clientIP(r))
		ctx = context.WithValue(ctx, UserAgentKey, r.UserAgent())
	}
	ctx = context.WithValue(ctx, StartTimeKey, time.Now())
	ctx = context.WithValue(ctx, ModuleKey, module)
	ctx = context.WithValue(ctx, FunctionKey, function)
	return ctx
}

// WithOperation tags a context with the module/function currently executing.
func WithOperation(ctx context.Context, module, function string) context.Context {
	ctx = context.WithValue(ctx, ModuleKey, module)
	return context.WithValue(ctx, FunctionKey, function)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	return getString(ctx, RequestIDKey)
}

func GetUserID(ctx context.Context) string {
	return getString(ctx, UserIDKey)
}

func GetClientIP(ctx context.Context) string {
	return getString(ctx, ClientIPKey)
}

func GetUserAgent(ctx context.Context) string {
	return getString(ctx, UserAgentKey)
}

func GetModule(ctx context.Context) string {
	return getString(ctx, ModuleKey)
}

func GetFunction(ctx context.Context) string {
	return getString(ctx, FunctionKey)
}

// GetDuration returns the elapsed time since the request start, zero when the
// context carries no start time.
func GetDuration(ctx context.Context) time.Duration {
	if ctx == nil {
		return 0
	}
	if start, ok := ctx.Value(StartTimeKey).(time.Time); ok {
		return time.Since(start)
	}
	return 0
}

func getString(ctx context.Context, key ContextKey) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(key).(string); ok {
		return value
	}
	return ""
}

// clientIP prefers X-Forwarded-For, which holds a comma-separated hop list
// when the request crossed multiple proxies; the first entry is the client.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.IndexByte(forwarded, ','); idx >= 0 {
			forwarded = forwarded[:idx]
		}
		return strings.TrimSpace(forwarded)
	}
	return r.RemoteAddr
}
