package dashboard

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/TrueSelph/jvcli/internal/config"
	"github.com/TrueSelph/jvcli/internal/session"
)

// Server runs the local dashboard: the embedded UI plus its JSON API.
type Server struct {
	cfg    *config.Config
	store  *Store
	logger *log.Logger
}

// NewServer assembles a dashboard server from config. The transcript
// store is optional; without it chat history is simply not persisted.
func NewServer(cfg *config.Config, store *Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "dashboard"})
	}
	return &Server{cfg: cfg, store: store, logger: logger}
}

// Run serves until ctx is canceled, then shuts down gracefully. In-flight
// requests get thirty seconds to finish.
func (s *Server) Run(ctx context.Context) error {
	key := []byte(s.cfg.SessionSecret)
	if len(key) == 0 {
		s.logger.Warn("no session secret configured, sessions will not survive a restart")
		key = session.RandomKey()
	}
	sessions := session.NewService(key, s.cfg.SessionTTL)

	h := NewHandler(s.cfg, sessions, s.store, s.logger)
	handler := WithDefaults(NewRouter(h), s.logger, s.cfg.Debug)

	srv := &http.Server{
		Addr:         s.cfg.DashboardListen,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "addr", srv.Addr)
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
