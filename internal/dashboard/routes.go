// Package dashboard serves the local management UI for a running JIVAS
// server: an embedded single-page app plus the JSON API backing it.
package dashboard

import (
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/TrueSelph/jvcli/internal/config"
	"github.com/TrueSelph/jvcli/internal/platform"
	"github.com/TrueSelph/jvcli/internal/session"
	"github.com/TrueSelph/jvcli/internal/version"
)

//go:embed all:web
var webFS embed.FS

// getWebFS returns the web filesystem rooted at "web"
func getWebFS() http.FileSystem {
	sub, _ := fs.Sub(webFS, "web")
	return http.FS(sub)
}

// Handler wraps dependencies for the dashboard API.
type Handler struct {
	cfg      *config.Config
	sessions *session.Service
	store    *Store
	logger   *log.Logger
}

// NewHandler creates a new dashboard handler.
func NewHandler(cfg *config.Config, sessions *session.Service, store *Store, logger *log.Logger) *Handler {
	return &Handler{
		cfg:      cfg,
		sessions: sessions,
		store:    store,
		logger:   logger,
	}
}

// NewRouter creates the HTTP router with all routes registered.
func NewRouter(h *Handler) http.Handler {
	mux := http.NewServeMux()

	// Health
	mux.HandleFunc("GET /healthz", h.Health)

	// Session (public)
	mux.HandleFunc("POST /api/login", h.Login)
	mux.HandleFunc("POST /api/logout", h.Logout)
	mux.Handle("GET /api/session", h.WithAuth(http.HandlerFunc(h.GetSession)))

	// Agents
	mux.Handle("GET /api/agents", h.WithAuth(http.HandlerFunc(h.ListAgents)))
	mux.Handle("POST /api/agents/import", h.WithAuth(http.HandlerFunc(h.ImportAgent)))
	mux.Handle("POST /api/agents/init", h.WithAuth(http.HandlerFunc(h.InitAgents)))
	mux.Handle("GET /api/agents/{agent}", h.WithAuth(http.HandlerFunc(h.GetAgent)))
	mux.Handle("PUT /api/agents/{agent}", h.WithAuth(http.HandlerFunc(h.UpdateAgent)))
	mux.Handle("GET /api/agents/{agent}/healthcheck", h.WithAuth(http.HandlerFunc(h.Healthcheck)))

	// Actions
	mux.Handle("GET /api/agents/{agent}/actions", h.WithAuth(http.HandlerFunc(h.ListActions)))
	mux.Handle("GET /api/agents/{agent}/actions/{action}", h.WithAuth(http.HandlerFunc(h.GetAction)))
	mux.Handle("PUT /api/agents/{agent}/actions/{action}", h.WithAuth(http.HandlerFunc(h.UpdateAction)))

	// Chat
	mux.Handle("POST /api/agents/{agent}/interact", h.WithAuth(http.HandlerFunc(h.Interact)))
	mux.Handle("GET /api/agents/{agent}/chat", h.WithAuth(http.HandlerFunc(h.ChatHistory)))
	mux.Handle("DELETE /api/agents/{agent}/chat", h.WithAuth(http.HandlerFunc(h.ClearChat)))

	// Walkers and analytics
	mux.Handle("POST /api/agents/{agent}/walker/{walker}", h.WithAuth(http.HandlerFunc(h.WalkerExec)))
	mux.Handle("GET /api/agents/{agent}/analytics/{metric}", h.WithAuth(http.HandlerFunc(h.Analytics)))

	// Wrap mux with the SPA fallback
	return webFallback(mux)
}

// webFallback wraps a handler and serves the embedded app for unmatched
// GET requests.
func webFallback(next http.Handler) http.Handler {
	webFileServer := http.FileServer(getWebFS())

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			path := r.URL.Path

			// Static assets served directly
			if strings.HasPrefix(path, "/assets/") ||
				strings.HasPrefix(path, "/favicon") {
				webFileServer.ServeHTTP(w, r)
				return
			}

			// SPA routes fall back to index.html
			if path == "/" || (!strings.HasPrefix(path, "/api/") &&
				!strings.HasPrefix(path, "/healthz")) {
				r.URL.Path = "/"
				webFileServer.ServeHTTP(w, r)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// ----- Health -----

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: version.Current,
	})
}

// ----- Helpers -----

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// platformClient builds a client bound to the session's platform token.
func (h *Handler) platformClient(r *http.Request) *platform.Client {
	claims := SessionFromContext(r.Context())
	token := ""
	if claims != nil {
		token = claims.PlatformToken
	}
	return platform.NewClient(h.cfg.PlatformURL, token)
}
