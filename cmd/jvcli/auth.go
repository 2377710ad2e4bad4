package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TrueSelph/jvcli/internal/auth"
	"github.com/TrueSelph/jvcli/internal/registry"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage package registry authentication",
	Long: `Authenticate against the Jivas package registry.

Examples:
  jvcli auth signup               # Create a registry account
  jvcli auth login                # Interactive login
  jvcli auth logout               # Clear stored credentials`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login to the package registry",
	RunE:  runAuthLogin,
}

var authSignupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a package registry account",
	RunE:  runAuthSignup,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Logout and clear stored credentials",
	RunE:  runAuthLogout,
}

var (
	authUsername string
	authEmail    string
	authPassword string
)

func init() {
	authLoginCmd.Flags().StringVar(&authEmail, "username", "", "Email or username (prompted when omitted)")
	authLoginCmd.Flags().StringVar(&authPassword, "password", "", "Password (prompted when omitted)")

	authSignupCmd.Flags().StringVar(&authUsername, "username", "", "Account username (prompted when omitted)")
	authSignupCmd.Flags().StringVar(&authEmail, "email", "", "Account email (prompted when omitted)")
	authSignupCmd.Flags().StringVar(&authPassword, "password", "", "Password (prompted when omitted)")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authSignupCmd)
	authCmd.AddCommand(authLogoutCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	emailOrUsername := authEmail
	if emailOrUsername == "" {
		var err error
		emailOrUsername, err = promptLine("Email or username")
		if err != nil {
			return err
		}
	}
	if emailOrUsername == "" {
		return fmt.Errorf("email or username required")
	}

	password := authPassword
	if password == "" {
		var err error
		password, err = promptPassword("Password")
		if err != nil {
			return err
		}
	}
	if password == "" {
		return fmt.Errorf("password required")
	}

	creds, err := registry.NewClient("", "").Login(emailOrUsername, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := saveCredentials(creds); err != nil {
		return err
	}
	successf("Logged in as %s", emailOrUsername)
	mutedf("default namespace: %s", creds.Namespaces.Default)
	return nil
}

func runAuthSignup(cmd *cobra.Command, args []string) error {
	username := authUsername
	if username == "" {
		var err error
		username, err = promptLine("Username")
		if err != nil {
			return err
		}
	}
	email := authEmail
	if email == "" {
		var err error
		email, err = promptLine("Email")
		if err != nil {
			return err
		}
	}
	password := authPassword
	if password == "" {
		var err error
		password, err = promptPassword("Password")
		if err != nil {
			return err
		}
	}
	if username == "" || email == "" || password == "" {
		return fmt.Errorf("username, email and password required")
	}

	creds, err := registry.NewClient("", "").Signup(username, email, password)
	if err != nil {
		return fmt.Errorf("signup failed: %w", err)
	}

	if err := saveCredentials(creds); err != nil {
		return err
	}
	successf("Account created, logged in as %s", username)
	mutedf("default namespace: %s", creds.Namespaces.Default)
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	if err := auth.Clear(); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	successf("Logged out")
	return nil
}

func saveCredentials(creds *registry.Credentials) error {
	err := auth.Save(&auth.Credentials{
		Token:      creds.Token,
		Email:      creds.Email,
		Namespaces: creds.Namespaces,
	})
	if err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	return nil
}
