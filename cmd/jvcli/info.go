package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TrueSelph/jvcli/internal/auth"
	"github.com/TrueSelph/jvcli/internal/descriptor"
	"github.com/TrueSelph/jvcli/internal/registry"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show published package details",
	Long: `Fetch the descriptor of a published package from the registry.

Examples:
  jvcli info action myns/my_action            # Latest release
  jvcli info agent myns/my_agent 0.0.3        # Specific version`,
}

var infoActionCmd = &cobra.Command{
	Use:   "action <name> [version]",
	Short: "Show a published action's details",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runInfo,
}

var infoAgentCmd = &cobra.Command{
	Use:   "agent <name> [version]",
	Short: "Show a published agent's details",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runInfo,
}

func init() {
	infoCmd.AddCommand(infoActionCmd)
	infoCmd.AddCommand(infoAgentCmd)
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	token, err := auth.Token()
	if err != nil {
		return err
	}

	name := args[0]
	pkgVersion := ""
	if len(args) > 1 {
		pkgVersion = args[1]
	}

	info, err := registry.NewClient("", token).PackageInfo(name, pkgVersion)
	if err != nil {
		return fmt.Errorf("fetching package info: %w", err)
	}

	rendered, err := descriptor.Dump(info)
	if err != nil {
		return fmt.Errorf("rendering package info: %w", err)
	}

	infof("Package %s", name)
	fmt.Print(string(rendered))
	return nil
}
