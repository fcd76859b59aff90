// internal/capture/requestctx.go
package capture

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// RequestContext carries the request correlation data attached to captures
// that happen during a request lifecycle.
type RequestContext struct {
	RequestID string
	UserAgent string
	RemoteIP  string
}

type contextKey struct{}

// WithRequestContext returns a context carrying rc.
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, contextKey{}, rc)
}

// RequestContextFrom extracts the request context, if any.
func RequestContextFrom(ctx context.Context) (RequestContext, bool) {
	rc, ok := ctx.Value(contextKey{}).(RequestContext)
	return rc, ok
}

// Middleware populates the request context for every request. Sends triggered
// inside the request see the correlation data; the value dies with the
// request context, nothing is stored globally.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		rc := RequestContext{
			RequestID: requestID,
			UserAgent: r.UserAgent(),
			RemoteIP:  realIP(r),
		}

		next.ServeHTTP(w, r.WithContext(WithRequestContext(r.Context(), rc)))
	})
}

func realIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
