package main

import (
	"github.com/spf13/cobra"

	"github.com/TrueSelph/jvcli/internal/scaffold"
	"github.com/TrueSelph/jvcli/internal/version"
)

var startprojectCmd = &cobra.Command{
	Use:   "startproject <name>",
	Short: "Start a new Jivas project",
	Long: `Create a fresh Jivas project skeleton: entrypoint JAC files, an
environment template, helper scripts and empty actions/ and daf/
directories. A git repository is initialized in the new directory
unless --no-git is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runStartProject,
}

var (
	projectJivasVersion string
	projectNoGit        bool
)

func init() {
	startprojectCmd.Flags().StringVar(&projectJivasVersion, "jivas-version", version.Current, "Target Jivas version")
	startprojectCmd.Flags().BoolVar(&projectNoGit, "no-git", false, "Skip git repository initialization")
	rootCmd.AddCommand(startprojectCmd)
}

func runStartProject(cmd *cobra.Command, args []string) error {
	dir, err := scaffold.StartProject(scaffold.ProjectOptions{
		Name:         args[0],
		JivasVersion: projectJivasVersion,
		NoGit:        projectNoGit,
	})
	if err != nil {
		return err
	}

	successf("Project '%s' created successfully in %s!", args[0], dir)
	mutedf("next: cd %s, copy .env.example to .env, then 'jvcli server launch'", dir)
	return nil
}
