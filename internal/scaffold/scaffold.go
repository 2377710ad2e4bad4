// Package scaffold writes action, agent and project skeletons from the
// versioned templates shipped with the tool.
package scaffold

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/TrueSelph/jvcli/internal/descriptor"
	"github.com/TrueSelph/jvcli/internal/templates"
	"github.com/TrueSelph/jvcli/internal/version"
)

// templateData carries the values substituted into scaffolding templates.
type templateData struct {
	Name         string // namespaced package name, e.g. "testuser/demo_action"
	ShortName    string // name without the namespace
	PascalName   string
	Title        string
	Author       string
	Version      string
	Description  string
	Type         string
	JivasVersion string
}

// ActionOptions configures CreateAction.
type ActionOptions struct {
	Name         string // snake_case name, the type suffix is appended when missing
	Type         string // action type, defaults to "action"
	Namespace    string
	Author       string // defaults to Namespace
	Version      string // defaults to "0.0.1"
	JivasVersion string // defaults to version.Current
	Description  string // defaults to "No description provided."
	Root         string // parent directory, defaults to "actions"
}

// CreateAction writes a new action package under Root/<namespace>/<name>
// and returns the created directory.
func CreateAction(opts ActionOptions) (string, error) {
	if err := descriptor.ValidateSnakeCase(opts.Name); err != nil {
		return "", fmt.Errorf("invalid action name: %w", err)
	}
	if opts.Namespace == "" {
		return "", fmt.Errorf("namespace is required")
	}
	if opts.Type == "" {
		opts.Type = "action"
	}
	name := opts.Name
	if !strings.HasSuffix(name, "_"+opts.Type) {
		name += "_" + opts.Type
	}
	jivasVersion, err := resolveJivasVersion(opts.JivasVersion)
	if err != nil {
		return "", err
	}

	data := templateData{
		Name:         opts.Namespace + "/" + name,
		ShortName:    name,
		PascalName:   pascalCase(name),
		Title:        TitleCase(name),
		Author:       defaultString(opts.Author, opts.Namespace),
		Version:      defaultString(opts.Version, "0.0.1"),
		Description:  defaultString(opts.Description, "No description provided."),
		Type:         opts.Type,
		JivasVersion: jivasVersion,
	}

	dir := filepath.Join(defaultString(opts.Root, "actions"), opts.Namespace, name)
	err = renderAll(jivasVersion, dir, data, map[string]string{
		"action_info.yaml":  "info.yaml",
		"action/lib.jac":    "lib.jac",
		"action/main.jac":   name + ".jac",
		"action/app/app.py": filepath.Join("app", "app.py"),
	})
	if err != nil {
		return "", err
	}
	if err := writeDocs(jivasVersion, dir, data); err != nil {
		return "", err
	}
	return dir, nil
}

// AgentOptions configures CreateAgent.
type AgentOptions struct {
	Name         string // snake_case agent name
	Namespace    string
	Author       string // defaults to Namespace
	Version      string // defaults to "0.0.1"
	JivasVersion string // defaults to version.Current
	Description  string // defaults to "No description provided."
	Root         string // parent directory, defaults to "daf"
}

// CreateAgent writes a new agent (daf) package under Root/<namespace>/<name>
// and returns the created directory.
func CreateAgent(opts AgentOptions) (string, error) {
	if err := descriptor.ValidateSnakeCase(opts.Name); err != nil {
		return "", fmt.Errorf("invalid agent name: %w", err)
	}
	if opts.Namespace == "" {
		return "", fmt.Errorf("namespace is required")
	}
	jivasVersion, err := resolveJivasVersion(opts.JivasVersion)
	if err != nil {
		return "", err
	}

	data := templateData{
		Name:         opts.Namespace + "/" + opts.Name,
		ShortName:    opts.Name,
		PascalName:   pascalCase(opts.Name),
		Title:        TitleCase(opts.Name),
		Author:       defaultString(opts.Author, opts.Namespace),
		Version:      defaultString(opts.Version, "0.0.1"),
		Description:  defaultString(opts.Description, "No description provided."),
		Type:         "daf",
		JivasVersion: jivasVersion,
	}

	dir := filepath.Join(defaultString(opts.Root, "daf"), opts.Namespace, opts.Name)
	err = renderAll(jivasVersion, dir, data, map[string]string{
		"agent_info.yaml":       "info.yaml",
		"agent/descriptor.yaml": "descriptor.yaml",
		"agent/knowledge.yaml":  "knowledge.yaml",
		"agent/memory.yaml":     "memory.yaml",
	})
	if err != nil {
		return "", err
	}
	if err := writeDocs(jivasVersion, dir, data); err != nil {
		return "", err
	}
	return dir, nil
}

// ProjectOptions configures StartProject.
type ProjectOptions struct {
	Name         string // snake_case project name, also the directory name
	JivasVersion string // defaults to version.Current
	Root         string // parent directory, defaults to the working directory
	NoGit        bool   // skip git repository initialization
}

// StartProject writes a fresh project skeleton and, unless disabled,
// initializes a git repository in it with the scaffold as the initial
// commit. It returns the project directory.
func StartProject(opts ProjectOptions) (string, error) {
	if err := descriptor.ValidateSnakeCase(opts.Name); err != nil {
		return "", fmt.Errorf("invalid project name: %w", err)
	}
	jivasVersion, err := resolveJivasVersion(opts.JivasVersion)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(defaultString(opts.Root, "."), opts.Name)
	if _, err := os.Stat(dir); err == nil {
		return "", fmt.Errorf("directory %s already exists", dir)
	}

	data := templateData{
		Name:         opts.Name,
		ShortName:    opts.Name,
		PascalName:   pascalCase(opts.Name),
		Title:        TitleCase(opts.Name),
		Version:      "0.0.1",
		JivasVersion: jivasVersion,
	}
	err = renderAll(jivasVersion, dir, data, map[string]string{
		"project/main.jac":          "main.jac",
		"project/globals.jac":       "globals.jac",
		"project/env.example":       ".env.example",
		"project/gitignore":         ".gitignore",
		"project/sh/serve.sh":       filepath.Join("sh", "serve.sh"),
		"project/sh/importagent.sh": filepath.Join("sh", "importagent.sh"),
	})
	if err != nil {
		return "", err
	}
	for _, script := range []string{"serve.sh", "importagent.sh"} {
		if err := os.Chmod(filepath.Join(dir, "sh", script), 0o755); err != nil {
			return "", fmt.Errorf("marking %s executable: %w", script, err)
		}
	}
	for _, sub := range []string{"actions", "daf"} {
		keep := filepath.Join(dir, sub, ".gitkeep")
		if err := os.MkdirAll(filepath.Dir(keep), 0o755); err != nil {
			return "", fmt.Errorf("creating %s: %w", sub, err)
		}
		if err := os.WriteFile(keep, nil, 0o644); err != nil {
			return "", fmt.Errorf("writing %s: %w", keep, err)
		}
	}

	if !opts.NoGit {
		if err := initRepo(dir); err != nil {
			return "", err
		}
	}
	return dir, nil
}

// TitleCase renders a snake_case name for human display, e.g.
// "test_interact_action" becomes "Test Interact Action".
func TitleCase(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func pascalCase(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, "")
}

func resolveJivasVersion(v string) (string, error) {
	if v == "" {
		v = version.Current
	}
	if !slices.Contains(version.SupportedJivasVersions, v) {
		return "", fmt.Errorf("jivas version %s is not supported (supported versions: %s)",
			v, strings.Join(version.SupportedJivasVersions, ", "))
	}
	if !templates.Has(v) {
		return "", fmt.Errorf("template for version %s not found", v)
	}
	return v, nil
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// renderAll renders template assets into dir, keyed by asset name to
// destination path relative to dir.
func renderAll(jivasVersion, dir string, data templateData, files map[string]string) error {
	for src, dst := range files {
		raw, err := templates.Read(jivasVersion, src)
		if err != nil {
			return err
		}
		out, err := render(raw, data)
		if err != nil {
			return fmt.Errorf("rendering %s: %w", src, err)
		}
		target := filepath.Join(dir, dst)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
		}
		if err := os.WriteFile(target, out, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", target, err)
		}
	}
	return nil
}

func render(raw []byte, data templateData) ([]byte, error) {
	tmpl, err := template.New("asset").Parse(string(raw))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeDocs renders the README and changelog stubs into dir.
func writeDocs(jivasVersion, dir string, data templateData) error {
	return renderAll(jivasVersion, dir, data, map[string]string{
		"docs/README.md":    "README.md",
		"docs/CHANGELOG.md": "CHANGELOG.md",
	})
}

// initRepo initializes a git repository in dir and records the scaffold
// as the initial commit.
func initRepo(dir string) error {
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		return fmt.Errorf("initializing repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree: %w", err)
	}
	if _, err := wt.Add("."); err != nil {
		return fmt.Errorf("staging files: %w", err)
	}
	_, err = wt.Commit("Initial commit", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "jvcli",
			Email: "admin@jivas.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("committing scaffold: %w", err)
	}
	return nil
}
