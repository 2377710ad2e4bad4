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
	"github.com/TrueSelph/jvcli/internal/dashboard"
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Run the browser dashboard",
	Long: `Serve the jvcli dashboard: a local web app for logging in to a
Jivas server, chatting with its agents, editing agent and action
configuration, and reading interaction analytics.`,
}

var clientLaunchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Start the dashboard server",
	RunE:  runClientLaunch,
}

var clientPort int

func init() {
	clientLaunchCmd.Flags().IntVar(&clientPort, "port", 0, "Listen port (default $JVCLI_CLIENT_LISTEN or 8501)")

	clientCmd.AddCommand(clientLaunchCmd)
	rootCmd.AddCommand(clientCmd)
}

func runClientLaunch(cmd *cobra.Command, args []string) error {
	cfg := config.FromEnv()
	if clientPort != 0 {
		cfg.DashboardListen = fmt.Sprintf(":%d", clientPort)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "dashboard"})
	if verbose || cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	var store *dashboard.Store
	if path, err := dashboard.DefaultStorePath(); err != nil {
		logger.Warn("chat history disabled", "err", err)
	} else if store, err = dashboard.OpenStore(path); err != nil {
		logger.Warn("chat history disabled", "err", err)
		store = nil
	} else {
		defer store.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return dashboard.NewServer(cfg, store, logger).Run(ctx)
}
