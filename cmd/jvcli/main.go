// Package main provides the jvcli CLI.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/TrueSelph/jvcli/internal/config"
	"github.com/TrueSelph/jvcli/internal/styles"
	"github.com/TrueSelph/jvcli/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "jvcli",
	Short: "Jivas package tooling and server companion",
	Long: `jvcli is the command-line companion to the Jivas platform: scaffold
actions and agents, publish them to the package registry, pull them
back down, and drive a running Jivas server together with its browser
dashboard and graph studio.`,
	Version: version.Current,
}

var verbose bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the client version and supported Jivas versions",
	Run:   runVersion,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	cobra.OnInitialize(func() {
		// Project .env files configure the server commands and the two
		// bundled servers without touching the shell environment.
		if err := config.LoadDotenv(".env"); err != nil {
			warnf("%v", err)
		}
		if verbose || os.Getenv("JVCLI_DEBUG") != "" {
			log.SetLevel(log.DebugLevel)
		}
	})

	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) {
	fmt.Println(styles.Title.Render("jvcli " + version.Current))
	fmt.Println(styles.Muted.Render("supported Jivas versions: " +
		strings.Join(version.SupportedJivasVersions, ", ")))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styles.Error.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

// ----- Output helpers -----

func successf(format string, a ...any) {
	fmt.Println(styles.Success.Render(fmt.Sprintf(format, a...)))
}

func infof(format string, a ...any) {
	fmt.Println(styles.Info.Render(fmt.Sprintf(format, a...)))
}

func warnf(format string, a ...any) {
	fmt.Println(styles.Warning.Render(fmt.Sprintf(format, a...)))
}

func mutedf(format string, a ...any) {
	fmt.Println(styles.Muted.Render(fmt.Sprintf(format, a...)))
}

// ----- Prompt helpers -----

// promptLine reads one line from stdin, shown with a label.
func promptLine(label string) (string, error) {
	fmt.Print(label + ": ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a secret with terminal echo disabled. When stdin is
// not a terminal (tests, pipes) it falls back to a plain line read.
func promptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptLine(label)
	}

	fmt.Print(label + ": ")
	secret, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}
