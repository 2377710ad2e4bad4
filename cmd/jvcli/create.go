package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/TrueSelph/jvcli/internal/auth"
	"github.com/TrueSelph/jvcli/internal/registry"
	"github.com/TrueSelph/jvcli/internal/scaffold"
	"github.com/TrueSelph/jvcli/internal/version"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create actions, agents and namespaces",
	Long: `Scaffold new Jivas resources.

Examples:
  jvcli create action --name my_action          # New action package
  jvcli create agent --name my_agent            # New agent (daf) package
  jvcli create namespace --name myteam          # Register a registry namespace`,
}

var createActionCmd = &cobra.Command{
	Use:   "action",
	Short: "Scaffold a new action package",
	RunE:  runCreateAction,
}

var createAgentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Scaffold a new agent (daf) package",
	RunE:  runCreateAgent,
}

var createNamespaceCmd = &cobra.Command{
	Use:   "namespace",
	Short: "Register a new registry namespace",
	RunE:  runCreateNamespace,
}

var (
	createName         string
	createType         string
	createNamespace    string
	createVersion      string
	createJivasVersion string
	createDescription  string
	createActionPath   string
	createAgentPath    string
)

func init() {
	for _, c := range []*cobra.Command{createActionCmd, createAgentCmd} {
		c.Flags().StringVar(&createName, "name", "", "Package name in snake_case (required)")
		c.Flags().StringVar(&createNamespace, "namespace", "", "Namespace to create under (default: your account's default)")
		c.Flags().StringVar(&createVersion, "version", "0.0.1", "Initial package version")
		c.Flags().StringVar(&createJivasVersion, "jivas-version", version.Current, "Target Jivas version")
		c.Flags().StringVar(&createDescription, "description", "", "Package description")
		c.MarkFlagRequired("name")
	}
	createActionCmd.Flags().StringVar(&createType, "type", "action", "Action type suffix (action, interact_action, vector_store_action)")
	createActionCmd.Flags().StringVar(&createActionPath, "path", "actions", "Parent directory for the new package")
	createAgentCmd.Flags().StringVar(&createAgentPath, "path", "daf", "Parent directory for the new package")

	createNamespaceCmd.Flags().StringVar(&createName, "name", "", "Namespace name (required)")
	createNamespaceCmd.MarkFlagRequired("name")

	createCmd.AddCommand(createActionCmd)
	createCmd.AddCommand(createAgentCmd)
	createCmd.AddCommand(createNamespaceCmd)
	rootCmd.AddCommand(createCmd)
}

// resolveNamespace falls back to the logged-in account's default namespace.
func resolveNamespace() (string, error) {
	if createNamespace != "" {
		return createNamespace, nil
	}
	if ns := auth.DefaultNamespace(); ns != "" {
		return ns, nil
	}
	return "", fmt.Errorf("no namespace given and none stored (run 'jvcli auth login' or pass --namespace)")
}

func runCreateAction(cmd *cobra.Command, args []string) error {
	ns, err := resolveNamespace()
	if err != nil {
		return err
	}

	dir, err := scaffold.CreateAction(scaffold.ActionOptions{
		Name:         createName,
		Type:         createType,
		Namespace:    ns,
		Version:      createVersion,
		JivasVersion: createJivasVersion,
		Description:  createDescription,
		Root:         createActionPath,
	})
	if err != nil {
		return err
	}

	successf("Action '%s' created successfully in %s!", createName, dir)
	return nil
}

func runCreateAgent(cmd *cobra.Command, args []string) error {
	ns, err := resolveNamespace()
	if err != nil {
		return err
	}

	dir, err := scaffold.CreateAgent(scaffold.AgentOptions{
		Name:         createName,
		Namespace:    ns,
		Version:      createVersion,
		JivasVersion: createJivasVersion,
		Description:  createDescription,
		Root:         createAgentPath,
	})
	if err != nil {
		return err
	}

	successf("Agent '%s' created successfully in %s!", createName, dir)
	return nil
}

func runCreateNamespace(cmd *cobra.Command, args []string) error {
	token, err := auth.Token()
	if err != nil {
		return err
	}

	result, err := registry.NewClient("", token).CreateNamespace(createName)
	if err != nil {
		return fmt.Errorf("creating namespace: %w", err)
	}

	// The new namespace joins the stored group list so later publishes
	// validate against it without a fresh login.
	if creds, err := auth.Load(); err == nil && creds != nil {
		if !slices.Contains(creds.Namespaces.Groups, createName) {
			creds.Namespaces.Groups = append(creds.Namespaces.Groups, createName)
			if err := auth.Save(creds); err != nil {
				warnf("namespace created but credentials not updated: %v", err)
			}
		}
	}

	successf("Namespace '%s' created successfully!", createName)
	if msg, ok := result["message"].(string); ok && msg != "" {
		mutedf("%s", msg)
	}
	return nil
}
