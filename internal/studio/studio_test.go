package studio

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/TrueSelph/jvcli/internal/config"
	"github.com/TrueSelph/jvcli/internal/session"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

// echoUpstream records the last proxied request and answers with a
// canned graph payload.
type echoUpstream struct {
	srv      *httptest.Server
	lastPath string
	lastAuth string
}

func newEchoUpstream(t *testing.T) *echoUpstream {
	t.Helper()
	u := &echoUpstream{}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.lastPath = r.URL.RequestURI()
		u.lastAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"nodes":[],"edges":[]}`))
	}))
	t.Cleanup(u.srv.Close)
	return u
}

func newTestRouter(t *testing.T, platformURL string, sessions *session.Service, token string) http.Handler {
	t.Helper()
	cfg := &config.Config{PlatformURL: platformURL}
	h := NewHandler(cfg, sessions, token, testLogger())
	router, err := h.NewRouter()
	if err != nil {
		t.Fatalf("building router: %v", err)
	}
	return router
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, "http://localhost:8000", nil, "")

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestProxyForwardsWithOperatorToken(t *testing.T) {
	upstream := newEchoUpstream(t)
	router := newTestRouter(t, upstream.srv.URL, nil, "operator-token")

	tests := []struct {
		path     string
		wantPath string
	}{
		{"/api/graph?root=abc123", "/graph?root=abc123"},
		{"/api/users", "/users"},
		{"/api/graph/node?node_id=n1&depth=2", "/graph/node?node_id=n1&depth=2"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest("GET", tt.path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", tt.path, w.Code)
			continue
		}
		if upstream.lastPath != tt.wantPath {
			t.Errorf("GET %s: upstream saw %q, want %q", tt.path, upstream.lastPath, tt.wantPath)
		}
		if upstream.lastAuth != "Bearer operator-token" {
			t.Errorf("GET %s: upstream auth %q, want operator token", tt.path, upstream.lastAuth)
		}
	}
}

func TestProxyRequireAuth(t *testing.T) {
	upstream := newEchoUpstream(t)
	sessions := session.NewService([]byte("studio-test-key"), time.Hour)
	router := newTestRouter(t, upstream.srv.URL, sessions, "operator-token")

	// No session: rejected before the proxy.
	req := httptest.NewRequest("GET", "/api/graph?root=abc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", w.Code)
	}
	if upstream.lastPath != "" {
		t.Fatal("request should not have reached upstream")
	}

	// Valid session: proxied with the session's own platform token.
	token, err := sessions.Issue("n::root", "user-platform-token", "")
	if err != nil {
		t.Fatalf("issuing session: %v", err)
	}

	req = httptest.NewRequest("GET", "/api/graph?root=abc", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with session, got %d: %s", w.Code, w.Body.String())
	}
	if upstream.lastAuth != "Bearer user-platform-token" {
		t.Errorf("upstream auth %q, want the session's platform token", upstream.lastAuth)
	}

	// Tampered session: rejected.
	req = httptest.NewRequest("GET", "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+token+"x")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with tampered session, got %d", w.Code)
	}
}

func TestProxyUpstreamDown(t *testing.T) {
	// Grab an address that refuses connections.
	dead := httptest.NewServer(http.NotFoundHandler())
	target := dead.URL
	dead.Close()

	router := newTestRouter(t, target, nil, "")

	req := httptest.NewRequest("GET", "/api/users", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}

	var resp errorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error != "platform unavailable" {
		t.Errorf("expected 'platform unavailable', got %q", resp.Error)
	}
}

func TestViewerServed(t *testing.T) {
	router := newTestRouter(t, "http://localhost:8000", nil, "")

	tests := []struct {
		path        string
		wantContent string
	}{
		{"/", "<!doctype html>"},
		{"/graph", "<!doctype html>"},
		{"/assets/studio.js", "use strict"},
		{"/assets/studio.css", ":root"},
		{"/favicon.svg", "<svg"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest("GET", tt.path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", tt.path, w.Code)
			continue
		}
		if !strings.Contains(w.Body.String(), tt.wantContent) {
			t.Errorf("GET %s: body does not contain %q", tt.path, tt.wantContent)
		}
	}

	// The viewer is read-only.
	req := httptest.NewRequest("POST", "/graph", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /graph: expected 405, got %d", w.Code)
	}
}
