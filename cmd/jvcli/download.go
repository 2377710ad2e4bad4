package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/TrueSelph/jvcli/internal/archive"
	"github.com/TrueSelph/jvcli/internal/auth"
	"github.com/TrueSelph/jvcli/internal/registry"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download published packages",
	Long: `Fetch a published package archive from the registry and unpack it
into the conventional project location (actions/<ns>/<name> or
daf/<ns>/<name>).

Examples:
  jvcli download action myns/my_action          # Latest release
  jvcli download agent myns/my_agent 0.0.3      # Specific version`,
}

var downloadActionCmd = &cobra.Command{
	Use:   "action <name> [version]",
	Short: "Download a published action",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runDownloadAction,
}

var downloadAgentCmd = &cobra.Command{
	Use:   "agent <name> [version]",
	Short: "Download a published agent",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runDownloadAgent,
}

var downloadPath string

func init() {
	downloadActionCmd.Flags().StringVar(&downloadPath, "path", "", "Destination directory (default actions/<name>)")
	downloadAgentCmd.Flags().StringVar(&downloadPath, "path", "", "Destination directory (default daf/<name>)")

	downloadCmd.AddCommand(downloadActionCmd)
	downloadCmd.AddCommand(downloadAgentCmd)
	rootCmd.AddCommand(downloadCmd)
}

func runDownloadAction(cmd *cobra.Command, args []string) error {
	return downloadPackage(args, "actions")
}

func runDownloadAgent(cmd *cobra.Command, args []string) error {
	return downloadPackage(args, "daf")
}

func downloadPackage(args []string, root string) error {
	token, err := auth.Token()
	if err != nil {
		return err
	}

	name := args[0]
	pkgVersion := ""
	if len(args) > 1 {
		pkgVersion = args[1]
	}

	infof("Downloading %s...", name)
	pkg, err := registry.NewClient("", token).DownloadPackage(name, pkgVersion, false)
	if err != nil {
		return fmt.Errorf("downloading package: %w", err)
	}

	// The archive travels base64-encoded in the "file" field.
	encoded, ok := pkg["file"].(string)
	if !ok || encoded == "" {
		return fmt.Errorf("registry response carried no package file")
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("decoding package file: %w", err)
	}

	tmp, err := os.CreateTemp("", "jvcli-download-*.tar.gz")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}

	dest := downloadPath
	if dest == "" {
		dest = filepath.Join(root, filepath.FromSlash(name))
	}
	if err := archive.Extract(tmp.Name(), dest); err != nil {
		return fmt.Errorf("extracting package: %w", err)
	}

	if v, ok := pkg["version"].(string); ok && v != "" {
		successf("Downloaded %s %s to %s", name, v, dest)
	} else {
		successf("Downloaded %s to %s", name, dest)
	}
	return nil
}
