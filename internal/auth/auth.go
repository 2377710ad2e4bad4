// Package auth persists registry credentials between command invocations.
package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/TrueSelph/jvcli/internal/registry"
)

// Credentials stores the registry login state.
type Credentials struct {
	Token      string              `json:"token"`
	Email      string              `json:"email,omitempty"`
	Namespaces registry.Namespaces `json:"namespaces"`
}

// Path returns the credentials file location. JVCLI_TOKEN_FILE overrides
// the default of ~/.jvcli/token.json.
func Path() string {
	if p := os.Getenv("JVCLI_TOKEN_FILE"); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".jvcli", "token.json")
}

// Load reads stored credentials. A missing file is not an error.
func Load() (*Credentials, error) {
	data, err := os.ReadFile(Path())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}
	return &creds, nil
}

// Save writes credentials restricted to the owner.
func Save(creds *Credentials) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// Clear removes stored credentials.
func Clear() error {
	if err := os.Remove(Path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing credentials: %w", err)
	}
	return nil
}

// Token returns the stored registry token, or an error telling the user
// to log in first.
func Token() (string, error) {
	creds, err := Load()
	if err != nil {
		return "", err
	}
	if creds == nil || creds.Token == "" {
		return "", fmt.Errorf("not logged in (run 'jvcli auth login')")
	}
	return creds.Token, nil
}

// Groups returns the namespaces the logged-in user may publish under.
func Groups() []string {
	creds, err := Load()
	if err != nil || creds == nil {
		return nil
	}
	return creds.Namespaces.Groups
}

// DefaultNamespace returns the account's default namespace, or empty when
// logged out.
func DefaultNamespace() string {
	creds, err := Load()
	if err != nil || creds == nil {
		return ""
	}
	return creds.Namespaces.Default
}
