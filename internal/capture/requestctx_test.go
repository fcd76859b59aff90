package capture_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mailtrace/mailtrace-backend/internal/capture"
)

func TestMiddlewarePropagatesRequestContext(t *testing.T) {
	var got capture.RequestContext
	var found bool

	handler := capture.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, found = capture.RequestContextFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/emails", nil)
	req.Header.Set("X-Request-Id", "req-42")
	req.Header.Set("User-Agent", "tester/1.0")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !found {
		t.Fatal("expected request context on the request")
	}
	if got.RequestID != "req-42" {
		t.Errorf("unexpected request id %q", got.RequestID)
	}
	if got.UserAgent != "tester/1.0" {
		t.Errorf("unexpected user agent %q", got.UserAgent)
	}
	if got.RemoteIP != "203.0.113.9" {
		t.Errorf("expected first forwarded address, got %q", got.RemoteIP)
	}
}

func TestMiddlewareGeneratesRequestID(t *testing.T) {
	var got capture.RequestContext

	handler := capture.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = capture.RequestContextFrom(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/emails", nil))

	if got.RequestID == "" {
		t.Error("expected a generated request id")
	}
}

func TestRequestContextAbsent(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/emails", nil)
	if _, ok := capture.RequestContextFrom(req.Context()); ok {
		t.Error("expected no request context on a bare request")
	}
}
