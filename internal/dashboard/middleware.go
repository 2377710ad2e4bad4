package dashboard

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/TrueSelph/jvcli/internal/session"
)

type contextKey string

const ctxSession contextKey = "session"

// SessionFromContext returns the session claims from context.
func SessionFromContext(ctx context.Context) *session.Claims {
	if c, ok := ctx.Value(ctxSession).(*session.Claims); ok {
		return c
	}
	return nil
}

// WithAuth is middleware that requires a valid dashboard session, taken
// from the Authorization header or the session cookie.
func (h *Handler) WithAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := session.FromRequest(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization", nil)
			return
		}

		claims, err := h.sessions.Validate(token)
		if err != nil {
			session.ClearCookie(w)
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

// WithDefaults adds the default middleware stack to a handler.
func WithDefaults(h http.Handler, logger *log.Logger, debug bool) http.Handler {
	return withRequestID(withLogging(withRecovery(withCORS(h), logger), logger, debug))
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

func withLogging(next http.Handler, logger *log.Logger, debug bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		if debug || wrapped.status >= 400 {
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.status,
				"duration", time.Since(start),
				"request_id", w.Header().Get("X-Request-Id"))
		}
	})
}

func withRecovery(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic", "err", err, "path", r.URL.Path)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Reflect the requesting origin so cookie credentials keep working
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
