package main

import (
	"github.com/spf13/cobra"

	"github.com/TrueSelph/jvcli/internal/archive"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove generated build artifacts",
	Long: `Walk the project tree and delete generated directories (__jac_gen__
and __pycache__) left behind by platform builds.`,
	RunE: runClean,
}

var cleanPath string

func init() {
	cleanCmd.Flags().StringVar(&cleanPath, "path", ".", "Directory to clean")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	removed, err := archive.Clean(cleanPath)
	if err != nil {
		return err
	}
	if removed == 0 {
		mutedf("Nothing to clean")
		return nil
	}
	successf("Removed %d generated directories", removed)
	return nil
}
