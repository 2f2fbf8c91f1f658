package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/toptracks/internal/shared"
)

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	t.Run("generates an id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if seen == "" {
			t.Fatal("expected request id in context")
		}
		if rec.Header().Get(RequestIDHeader) != seen {
			t.Errorf("expected response header %q, got %q", seen, rec.Header().Get(RequestIDHeader))
		}
	})

	t.Run("reuses incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "upstream-id")
		h.ServeHTTP(httptest.NewRecorder(), req)

		if seen != "upstream-id" {
			t.Errorf("expected upstream-id, got %q", seen)
		}
	})

	t.Run("no id outside middleware", func(t *testing.T) {
		if id := RequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); id != "" {
			t.Errorf("expected empty id, got %q", id)
		}
	})
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := shared.NewLogger(&buf)

	h := RequestIDMiddleware()(LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/profile", http.StatusFound)
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	out := buf.String()
	for _, want := range []string{"method=GET", "path=/", "status=302", "request_id="} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log output %q", want, out)
		}
	}
}

func TestRecoverMiddleware(t *testing.T) {
	var buf bytes.Buffer
	h := RecoverMiddleware(shared.NewLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("expected panic value to be logged, got %q", buf.String())
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	request := func(h http.Handler, addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("limits per client", func(t *testing.T) {
		h := RateLimitMiddleware(RateLimitConfig{RequestsPerMinute: 1, Burst: 2})(next)

		for i := range 2 {
			if rec := request(h, "10.0.0.1:1234"); rec.Code != http.StatusOK {
				t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
			}
		}

		rec := request(h, "10.0.0.1:5678")
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", rec.Code)
		}
		if rec.Header().Get("Retry-After") == "" {
			t.Error("expected Retry-After header")
		}

		if rec := request(h, "10.0.0.2:1234"); rec.Code != http.StatusOK {
			t.Errorf("other clients should not be limited, got %d", rec.Code)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		h := RateLimitMiddleware(RateLimitConfig{})(next)
		for range 10 {
			if rec := request(h, "10.0.0.1:1234"); rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
		}
	})
}
