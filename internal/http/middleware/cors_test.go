package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORSOriginAllowlist(t *testing.T) {
	tests := []struct {
		name        string
		allowed     []string
		origin      string
		wantAllowed string
	}{
		{"listed origin echoed", []string{"https://portal.clinic.example"}, "https://portal.clinic.example", "https://portal.clinic.example"},
		{"unknown origin ignored", []string{"https://portal.clinic.example"}, "https://evil.example", ""},
		{"wildcard echoes any origin", []string{"*"}, "https://anywhere.example", "https://anywhere.example"},
		{"blank entries skipped", []string{"", "https://portal.clinic.example"}, "https://portal.clinic.example", "https://portal.clinic.example"},
		{"no origin header", []string{"https://portal.clinic.example"}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/intake/sessions/abc", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()

			called := false
			CORS(tt.allowed)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})).ServeHTTP(rec, req)

			if !called {
				t.Fatalf("handler not called for plain GET")
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllowed {
				t.Fatalf("allow-origin = %q, want %q", got, tt.wantAllowed)
			}
			if tt.wantAllowed != "" {
				if rec.Header().Get("Access-Control-Allow-Methods") == "" {
					t.Fatalf("allow-methods header missing")
				}
				if rec.Header().Get("Vary") != "Origin" {
					t.Fatalf("Vary = %q, want Origin", rec.Header().Get("Vary"))
				}
			}
		})
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/intake/message", nil)
	req.Header.Set("Origin", "https://portal.clinic.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()

	CORS([]string{"https://portal.clinic.example"})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler must not run on preflight")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://portal.clinic.example" {
		t.Fatalf("allow-origin = %q on preflight", got)
	}
}
