package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		reuse    bool
	}{
		{"reuses valid id", "req-123", true},
		{"generates when missing", "", false},
		{"rejects control chars", "bad\nid", false},
		{"rejects oversized", strings.Repeat("a", maxRequestIDLength+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = middleware.GetReqID(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(middleware.RequestIDHeader, tt.incoming)
			}
			resp := httptest.NewRecorder()
			h.ServeHTTP(resp, req)

			if resp.Header().Get(middleware.RequestIDHeader) != seen {
				t.Fatalf("response header %q does not match context %q",
					resp.Header().Get(middleware.RequestIDHeader), seen)
			}
			if tt.reuse {
				if seen != tt.incoming {
					t.Fatalf("expected %q to be reused, got %q", tt.incoming, seen)
				}
				return
			}
			if _, err := uuid.Parse(seen); err != nil {
				t.Fatalf("expected generated UUID, got %q", seen)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	h := CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodOptions, "/v1/ring", nil)
	req.Header.Set("Origin", "http://localhost:8081")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}
	if got := resp.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, http.MethodPost) {
		t.Fatalf("expected POST to be allowed, got %q", got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := Security("/v1/api-docs")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/invite-code/qr" {
			w.Header().Set("Cache-Control", "private, no-store")
		}
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		path         string
		cacheControl string
		nosniff      string
	}{
		{"/v1/ring", "no-store", "nosniff"},
		{"/v1/invite-code/qr", "private, no-store", "nosniff"},
		{"/v1/api-docs", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := httptest.NewRecorder()
			h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if got := resp.Header().Get("Cache-Control"); got != tt.cacheControl {
				t.Errorf("Cache-Control: expected %q, got %q", tt.cacheControl, got)
			}
			if got := resp.Header().Get("X-Content-Type-Options"); got != tt.nosniff {
				t.Errorf("X-Content-Type-Options: expected %q, got %q", tt.nosniff, got)
			}
		})
	}
}

func TestRequestIDFromTraceparent(t *testing.T) {
	tests := []struct {
		name        string
		requestID   string
		traceparent string
		want        string
	}{
		{"trace id used", "", "00-0AF7651916CD43DD8448EB211C80319C-b7ad6b7169203331-01", "0af7651916cd43dd8448eb211c80319c"},
		{"request id wins", "req-1", "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01", "req-1"},
		{"all-zero trace id ignored", "", "00-00000000000000000000000000000000-b7ad6b7169203331-01", ""},
		{"malformed ignored", "", "garbage", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = middleware.GetReqID(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.requestID != "" {
				req.Header.Set(middleware.RequestIDHeader, tt.requestID)
			}
			req.Header.Set("traceparent", tt.traceparent)
			h.ServeHTTP(httptest.NewRecorder(), req)

			if tt.want == "" {
				if _, err := uuid.Parse(seen); err != nil {
					t.Fatalf("expected generated UUID, got %q", seen)
				}
				return
			}
			if seen != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, seen)
			}
		})
	}
}

func TestCORSConfiguredOrigins(t *testing.T) {
	h := CORS("https://app.ringlink.example")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for origin, want := range map[string]string{
		"https://app.ringlink.example": "https://app.ringlink.example",
		"https://evil.example":         "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
		req.Header.Set("Origin", origin)
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)
		if got := resp.Header().Get("Access-Control-Allow-Origin"); got != want {
			t.Errorf("origin %s: expected %q, got %q", origin, want, got)
		}
	}
}
