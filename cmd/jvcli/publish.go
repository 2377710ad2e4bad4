package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TrueSelph/jvcli/internal/archive"
	"github.com/TrueSelph/jvcli/internal/auth"
	"github.com/TrueSelph/jvcli/internal/deps"
	"github.com/TrueSelph/jvcli/internal/descriptor"
	"github.com/TrueSelph/jvcli/internal/registry"
	"github.com/TrueSelph/jvcli/internal/version"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish packages to the registry",
	Long: `Validate a package directory, build its release archive and upload
it to the registry under your namespace.

Examples:
  jvcli publish action --path ./actions/myns/my_action
  jvcli publish agent --path ./daf/myns/my_agent --visibility public
  jvcli publish action --path ./actions/myns/my_action --file-only -o ./dist`,
}

var publishActionCmd = &cobra.Command{
	Use:   "action",
	Short: "Publish an action package",
	RunE:  runPublishAction,
}

var publishAgentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Publish an agent package",
	RunE:  runPublishAgent,
}

var (
	publishPath             string
	publishActionVisibility string
	publishAgentVisibility  string
	publishFileOnly         bool
	publishOutput           string
	publishNamespace        string
)

func init() {
	for _, cmd := range []*cobra.Command{publishActionCmd, publishAgentCmd} {
		cmd.Flags().StringVar(&publishPath, "path", "", "Package directory containing info.yaml")
		cmd.Flags().BoolVarP(&publishFileOnly, "file-only", "f", false, "Build the archive without uploading")
		cmd.Flags().StringVarP(&publishOutput, "output", "o", "", "Directory for the built archive")
		cmd.Flags().StringVar(&publishNamespace, "namespace", "", "Namespace to publish under (default from package name)")
		cmd.MarkFlagRequired("path")
	}
	publishActionCmd.Flags().StringVar(&publishActionVisibility, "visibility", "public", "Package visibility (public or private)")
	publishAgentCmd.Flags().StringVar(&publishAgentVisibility, "visibility", "private", "Package visibility (public or private)")

	publishCmd.AddCommand(publishActionCmd)
	publishCmd.AddCommand(publishAgentCmd)
	rootCmd.AddCommand(publishCmd)
}

func runPublishAction(cmd *cobra.Command, args []string) error {
	return publishPackage("action", publishActionVisibility)
}

func runPublishAgent(cmd *cobra.Command, args []string) error {
	return publishPackage("agent", publishAgentVisibility)
}

func publishPackage(kind, visibility string) error {
	token, err := auth.Token()
	if err != nil {
		return err
	}

	visibility = strings.ToLower(visibility)
	if visibility != "public" && visibility != "private" {
		return fmt.Errorf("invalid visibility %q (use public or private)", visibility)
	}

	data, err := os.ReadFile(filepath.Join(publishPath, "info.yaml"))
	if err != nil {
		return fmt.Errorf("reading descriptor: %w", err)
	}

	warnings, err := descriptor.ValidateFormat(data, kind, version.Current)
	if err != nil {
		return fmt.Errorf("invalid descriptor: %w", err)
	}
	for _, w := range warnings {
		warnf("%s", w)
	}

	desc, err := descriptor.Parse(data)
	if err != nil {
		return err
	}
	pkg := desc.Package

	if err := descriptor.ValidatePackageName(pkg.Name, auth.Groups()); err != nil {
		return err
	}

	client := registry.NewClient("", token)
	if err := deps.Validate(pkg.Dependencies, client.HasPackage); err != nil {
		return err
	}

	// Archives are named <namespace>_<name>.tar.gz so a dist directory can
	// hold releases from several packages side by side.
	base := strings.ReplaceAll(pkg.Name, "/", "_") + ".tar.gz"
	outDir := publishOutput
	if outDir == "" {
		if publishFileOnly {
			outDir = "."
		} else {
			tmp, err := os.MkdirTemp("", "jvcli-publish-")
			if err != nil {
				return fmt.Errorf("creating temp dir: %w", err)
			}
			defer os.RemoveAll(tmp)
			outDir = tmp
		}
	} else if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	infof("Packaging %s %s...", pkg.Name, pkg.Version)
	result, err := archive.Create(publishPath, filepath.Join(outDir, base))
	if err != nil {
		return fmt.Errorf("building archive: %w", err)
	}
	mutedf("%d files, %d bytes, blake3 %s", result.Files, result.Size, result.Digest)

	if publishFileOnly {
		successf("Built archive %s", result.Path)
		return nil
	}

	namespace := publishNamespace
	if namespace == "" {
		namespace = pkg.Namespace()
	}

	resp, err := client.Publish(result.Path, visibility, namespace)
	if err != nil {
		return fmt.Errorf("publishing package: %w", err)
	}
	successf("Published %s %s (%s)", pkg.Name, pkg.Version, visibility)
	if resp.Message != "" {
		mutedf("%s", resp.Message)
	}
	return nil
}
