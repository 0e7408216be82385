package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/webseed87/camera/encoder"
	"github.com/webseed87/camera/gallery"
	"github.com/webseed87/camera/session"
	"github.com/webseed87/camera/source"
	"github.com/webseed87/camera/stores/memory"
)

func newTestRouter() http.Handler {
	live := source.NewLive()
	s := session.New(gallery.NewStore(memory.NewStore()), live, encoder.New())
	return setupRouter(s, live, nil)
}

func TestRouterCORS(t *testing.T) {
	testCases := []struct {
		name     string
		origin   string
		wantACAO string
	}{
		{"Localhost", "http://localhost:5173", "http://localhost:5173"},
		{"Loopback", "http://127.0.0.1:3002", "http://127.0.0.1:3002"},
		{"ForeignHTTPS", "https://evil.example.com", ""},
		{"LookalikeHost", "http://localhost.evil.example.com", ""},
	}

	r := newTestRouter()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/captures", nil)
			req.Header.Set("Origin", tc.origin)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tc.wantACAO {
				t.Errorf("Access-Control-Allow-Origin mismatch: got %q, want %q", got, tc.wantACAO)
			}
		})
	}
}

func TestRouterCORS_ForeignPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/captures", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	w := httptest.NewRecorder()
	newTestRouter().ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Preflight Access-Control-Allow-Origin mismatch: got %q, want empty", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "" {
		t.Errorf("Preflight Access-Control-Allow-Methods mismatch: got %q, want empty", got)
	}
}
