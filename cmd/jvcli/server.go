package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/TrueSelph/jvcli/internal/archive"
	"github.com/TrueSelph/jvcli/internal/platform"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Interface with the Jivas server",
	Long: `Launch and administer a Jivas server: start it from a JAC entry
file, create the admin account, log in, and initialize or import agents.

Credentials come from JIVAS_USER and JIVAS_PASSWORD (or a project .env
file) when set, falling back to flags and interactive prompts.`,
}

var serverLaunchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Launch the Jivas server from a JAC file",
	RunE:  runServerLaunch,
}

var serverLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the Jivas server and print a token",
	RunE:  runServerLogin,
}

var serverCreateadminCmd = &cobra.Command{
	Use:   "createadmin",
	Short: "Create the system administrator account",
	RunE:  runServerCreateadmin,
}

var serverInitagentsCmd = &cobra.Command{
	Use:   "initagents",
	Short: "Initialize agents on the running server",
	RunE:  runServerInitagents,
}

var serverImportagentCmd = &cobra.Command{
	Use:   "importagent <agent_name> [version]",
	Short: "Import an agent from a published DAF package",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runServerImportagent,
}

var (
	serverJacFile  string
	serverEmail    string
	serverPassword string
)

func init() {
	serverLaunchCmd.Flags().StringVar(&serverJacFile, "jac-file", "main.jac", "JAC entry file to run")

	for _, cmd := range []*cobra.Command{serverLoginCmd, serverCreateadminCmd} {
		cmd.Flags().StringVar(&serverEmail, "email", "", "Email address (default $JIVAS_USER)")
		cmd.Flags().StringVar(&serverPassword, "password", "", "Password (default $JIVAS_PASSWORD)")
	}

	serverCmd.AddCommand(serverLaunchCmd)
	serverCmd.AddCommand(serverLoginCmd)
	serverCmd.AddCommand(serverCreateadminCmd)
	serverCmd.AddCommand(serverInitagentsCmd)
	serverCmd.AddCommand(serverImportagentCmd)
	rootCmd.AddCommand(serverCmd)
}

func runServerLaunch(cmd *cobra.Command, args []string) error {
	infof("Launching Jivas server with JAC file: %s...", serverJacFile)

	jac := exec.Command("jac", "jvserve", serverJacFile)
	jac.Stdin = os.Stdin
	jac.Stdout = os.Stdout
	jac.Stderr = os.Stderr
	if err := jac.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("jac command not found (is the Jivas platform installed?)")
		}
		return fmt.Errorf("running server: %w", err)
	}
	return nil
}

func runServerLogin(cmd *cobra.Command, args []string) error {
	email, password, err := serverCredentials()
	if err != nil {
		return err
	}

	infof("Logging in to Jivas server as %s...", email)
	session, err := platform.NewClient("", "").Login(email, password)
	if err != nil {
		return fmt.Errorf("logging in: %w", err)
	}

	successf("Login successful!")
	fmt.Println("Token: " + session.Token)
	return nil
}

func runServerCreateadmin(cmd *cobra.Command, args []string) error {
	email, password, err := serverCredentials()
	if err != nil {
		return err
	}

	infof("Creating system admin...")
	if _, err := platform.NewClient("", "").Register(email, password); err != nil {
		return fmt.Errorf("creating admin: %w", err)
	}

	successf("Admin user created successfully!")
	return nil
}

func runServerInitagents(cmd *cobra.Command, args []string) error {
	client := platform.NewClient("", "")
	if err := client.Ping(); err != nil {
		return fmt.Errorf("server is not running (start it with 'jvcli server launch'): %w", err)
	}

	session, err := platformSession()
	if err != nil {
		return err
	}
	successf("Logged in to Jivas server")

	infof("Cleaning generated files before initializing agents...")
	if removed, err := archive.Clean("."); err != nil {
		warnf("clean failed: %v", err)
	} else if removed > 0 {
		mutedf("Removed %d generated directories", removed)
	}

	client.AuthToken = session.Token
	result, err := client.InitAgents()
	if err != nil {
		return fmt.Errorf("initializing agents: %w", err)
	}

	successf("Successfully initialized agents")
	if out, err := json.Marshal(result); err == nil && len(result) > 0 {
		mutedf("%s", out)
	}
	return nil
}

func runServerImportagent(cmd *cobra.Command, args []string) error {
	name := args[0]
	agentVersion := "latest"
	if len(args) > 1 {
		agentVersion = args[1]
	}

	client := platform.NewClient("", "")
	if err := client.Ping(); err != nil {
		return fmt.Errorf("server is not running (start it with 'jvcli server launch'): %w", err)
	}

	session, err := platformSession()
	if err != nil {
		return err
	}
	successf("Logged in to Jivas server")

	client.AuthToken = session.Token
	result, err := client.ImportAgent(name, agentVersion)
	if err != nil {
		return fmt.Errorf("importing agent: %w", err)
	}

	if id, ok := result["id"].(string); ok && id != "" {
		successf("Successfully imported agent. Agent ID: %s", id)
	} else {
		warnf("Agent imported but no ID was returned in the response")
	}
	return nil
}

// serverCredentials resolves platform credentials: environment first, then
// flags, then interactive prompts.
func serverCredentials() (string, string, error) {
	email := os.Getenv("JIVAS_USER")
	if email == "" {
		email = serverEmail
	}
	password := os.Getenv("JIVAS_PASSWORD")
	if password == "" {
		password = serverPassword
	}

	var err error
	if email == "" {
		if email, err = promptLine("Email"); err != nil {
			return "", "", err
		}
	}
	if password == "" {
		if password, err = promptPassword("Password"); err != nil {
			return "", "", err
		}
	}
	return email, password, nil
}

func platformSession() (*platform.Session, error) {
	email, password, err := serverCredentials()
	if err != nil {
		return nil, err
	}
	session, err := platform.NewClient("", "").Login(email, password)
	if err != nil {
		return nil, fmt.Errorf("logging in to Jivas server: %w", err)
	}
	return session, nil
}
