package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/TrueSelph/jvcli/internal/config"
	"github.com/TrueSelph/jvcli/internal/platform"
	"github.com/TrueSelph/jvcli/internal/studio"
)

var studioCmd = &cobra.Command{
	Use:   "studio",
	Short: "Run the graph studio",
	Long: `Serve the Jivas studio: a local graph viewer that proxies the
server's graph endpoints and renders the agent object graph in the
browser.

The proxy signs upstream requests with an operator token obtained by
logging in with JIVAS_USER and JIVAS_PASSWORD. With --require-auth,
viewers must instead present a dashboard session and their own platform
token is used.`,
}

var studioLaunchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Start the studio server",
	RunE:  runStudioLaunch,
}

var (
	studioPort        int
	studioRequireAuth bool
)

func init() {
	studioLaunchCmd.Flags().IntVar(&studioPort, "port", 0, "Listen port (default $JVCLI_STUDIO_LISTEN or 8989)")
	studioLaunchCmd.Flags().BoolVar(&studioRequireAuth, "require-auth", false, "Require a dashboard session for every request")

	studioCmd.AddCommand(studioLaunchCmd)
	rootCmd.AddCommand(studioCmd)
}

func runStudioLaunch(cmd *cobra.Command, args []string) error {
	cfg := config.FromEnv()
	if studioPort != 0 {
		cfg.StudioListen = fmt.Sprintf(":%d", studioPort)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "studio"})
	if verbose || cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	token := ""
	if cfg.Email != "" && cfg.Password != "" {
		session, err := platform.NewClient(cfg.PlatformURL, "").Login(cfg.Email, cfg.Password)
		if err != nil {
			logger.Warn("operator login failed, graph requests will be unauthenticated", "err", err)
		} else {
			token = session.Token
			logger.Info("logged in to Jivas server", "user", cfg.Email)
		}
	} else if !studioRequireAuth {
		logger.Warn("JIVAS_USER and JIVAS_PASSWORD not set, graph requests will be unauthenticated")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return studio.NewServer(cfg, token, studioRequireAuth, logger).Run(ctx)
}
