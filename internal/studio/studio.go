// Package studio serves the local graph browser: an embedded viewer UI
// plus a reverse proxy that relays graph queries to a running Jivas
// server with the right authorization attached.
package studio

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/TrueSelph/jvcli/internal/config"
	"github.com/TrueSelph/jvcli/internal/session"
	"github.com/TrueSelph/jvcli/internal/version"
)

//go:embed all:web
var webFS embed.FS

func getWebFS() http.FileSystem {
	sub, _ := fs.Sub(webFS, "web")
	return http.FS(sub)
}

// Handler proxies the studio API and serves the embedded viewer.
type Handler struct {
	cfg      *config.Config
	sessions *session.Service // nil disables the auth gate
	token    string
	logger   *log.Logger
}

// NewHandler creates a studio handler. token is the operator platform
// token forwarded upstream for unauthenticated viewers; sessions, when
// non-nil, gates the proxy behind a valid dashboard session.
func NewHandler(cfg *config.Config, sessions *session.Service, token string, logger *log.Logger) *Handler {
	return &Handler{
		cfg:      cfg,
		sessions: sessions,
		token:    token,
		logger:   logger,
	}
}

type contextKey string

const ctxSession contextKey = "session"

func claimsFromContext(ctx context.Context) *session.Claims {
	if c, ok := ctx.Value(ctxSession).(*session.Claims); ok {
		return c
	}
	return nil
}

// NewRouter builds the studio routes: /healthz, the /api/ proxy and the
// embedded viewer for everything else.
func (h *Handler) NewRouter() (http.Handler, error) {
	target, err := url.Parse(h.cfg.PlatformURL)
	if err != nil {
		return nil, fmt.Errorf("invalid platform URL %q: %w", h.cfg.PlatformURL, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.Health)
	mux.Handle("/api/", h.withAuth(h.newProxy(target)))

	webFileServer := http.FileServer(getWebFS())
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
			return
		}
		// Viewer routes fall back to the app shell.
		if !strings.HasPrefix(r.URL.Path, "/assets/") &&
			!strings.HasPrefix(r.URL.Path, "/favicon") {
			r.URL.Path = "/"
		}
		webFileServer.ServeHTTP(w, r)
	}))

	return mux, nil
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Current,
	})
}

// withAuth validates the dashboard session when the gate is enabled and
// stashes the claims so the proxy can forward the caller's own platform
// token.
func (h *Handler) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.sessions == nil {
			next.ServeHTTP(w, r)
			return
		}

		token := session.FromRequest(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization", nil)
			return
		}
		claims, err := h.sessions.Validate(token)
		if err != nil {
			if errors.Is(err, session.ErrExpired) {
				writeError(w, http.StatusUnauthorized, "session expired", nil)
			} else {
				writeError(w, http.StatusUnauthorized, "invalid session", nil)
			}
			return
		}

		ctx := context.WithValue(r.Context(), ctxSession, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// newProxy relays /api/* to the platform's graph endpoints, swapping the
// inbound session credential for a platform token.
func (h *Handler) newProxy(target *url.URL) http.Handler {
	return &httputil.ReverseProxy{
		Director: func(req *http.Request) {
			req.URL.Scheme = target.Scheme
			req.URL.Host = target.Host
			req.Host = target.Host

			path := strings.TrimPrefix(req.URL.Path, "/api")
			if path == "" {
				path = "/"
			}
			req.URL.Path = path

			// Never leak the session token upstream. Authenticated
			// viewers ride on their own platform token, everyone else
			// on the operator token.
			req.Header.Del("Authorization")
			token := h.token
			if claims := claimsFromContext(req.Context()); claims != nil && claims.PlatformToken != "" {
				token = claims.PlatformToken
			}
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			h.logger.Error("proxy error", "path", r.URL.Path, "err", err)
			writeError(w, http.StatusBadGateway, "platform unavailable", err)
		},
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// ----- Helpers -----

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := errorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// ----- Server -----

// Server runs the studio until its context is canceled.
type Server struct {
	cfg         *config.Config
	token       string
	requireAuth bool
	logger      *log.Logger
}

// NewServer assembles a studio server. token is the operator platform
// token used for upstream calls; requireAuth gates the proxy behind
// dashboard sessions.
func NewServer(cfg *config.Config, token string, requireAuth bool, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "studio"})
	}
	return &Server{cfg: cfg, token: token, requireAuth: requireAuth, logger: logger}
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	var sessions *session.Service
	if s.requireAuth {
		if s.cfg.SessionSecret == "" {
			return errors.New("studio auth needs JVCLI_SESSION_SECRET shared with the dashboard")
		}
		sessions = session.NewService([]byte(s.cfg.SessionSecret), s.cfg.SessionTTL)
	}

	h := NewHandler(s.cfg, sessions, s.token, s.logger)
	handler, err := h.NewRouter()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         s.cfg.StudioListen,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("studio listening", "addr", srv.Addr, "upstream", s.cfg.PlatformURL)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
