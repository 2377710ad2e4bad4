// Package descriptor parses, validates and writes the info.yaml files
// that describe action and agent packages.
package descriptor

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/TrueSelph/jvcli/internal/templates"
)

// Meta carries the human-facing fields of a package descriptor.
type Meta struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"`
	Group       string `yaml:"group,omitempty"`
}

// Package is the package block of an info.yaml file.
type Package struct {
	Name         string         `yaml:"name"`
	Author       string         `yaml:"author"`
	Version      string         `yaml:"version"`
	Meta         Meta           `yaml:"meta"`
	Dependencies map[string]any `yaml:"dependencies,omitempty"`
	Config       map[string]any `yaml:"config,omitempty"`
}

// Descriptor is a parsed info.yaml.
type Descriptor struct {
	Package Package `yaml:"package"`
}

// Parse decodes an info.yaml document.
func Parse(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing descriptor: %w", err)
	}
	return &d, nil
}

// Load reads and decodes the info.yaml at path.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading descriptor: %w", err)
	}
	return Parse(data)
}

// Namespace returns the namespace part of the package name, or "" when
// the name carries none.
func (p Package) Namespace() string {
	ns, _, ok := strings.Cut(p.Name, "/")
	if !ok {
		return ""
	}
	return ns
}

// ShortName returns the package name without its namespace.
func (p Package) ShortName() string {
	_, name, ok := strings.Cut(p.Name, "/")
	if !ok {
		return p.Name
	}
	return name
}

// IsAction reports whether the descriptor describes an action package.
func (p Package) IsAction() bool {
	return p.Meta.Type == "action" || strings.HasSuffix(p.Meta.Type, "action")
}

// IsAgent reports whether the descriptor describes an agent (daf) package.
func (p Package) IsAgent() bool {
	return p.Meta.Type == "daf" || p.Meta.Type == "agent"
}

var (
	snakeCaseRe = regexp.MustCompile(`^[a-z0-9_]+$`)
	bareNameRe  = regexp.MustCompile(`^[a-z0-9]+$`)
)

// ValidateSnakeCase checks that value is lowercase snake_case.
func ValidateSnakeCase(value string) error {
	if !snakeCaseRe.MatchString(value) {
		return fmt.Errorf("must be snake_case (lowercase letters, numbers, and underscores only)")
	}
	return nil
}

// ValidateName checks that value is a bare lowercase name, as used for
// namespaces and unqualified package names.
func ValidateName(value string) error {
	if !bareNameRe.MatchString(value) {
		return fmt.Errorf("must be lowercase letters and numbers only")
	}
	return nil
}

// ValidatePackageName checks that a full package name is namespaced and
// that its namespace is among the groups the current user belongs to.
func ValidatePackageName(name string, groups []string) error {
	ns, _, ok := strings.Cut(name, "/")
	if !ok {
		return fmt.Errorf("package name %q must include a namespace (e.g. \"namespace/action_name\")", name)
	}
	for _, g := range groups {
		if g == ns {
			return nil
		}
	}
	return fmt.Errorf("namespace %q is not accessible to the current user", ns)
}

// ValidateFormat compares the top-level keys of an info.yaml document
// against the descriptor template shipped for a platform version. Missing
// keys fail validation. Unknown extra keys only produce warnings since the
// package registry ignores them.
func ValidateFormat(data []byte, kind, jivasVersion string) ([]string, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing descriptor: %w", err)
	}

	name, err := templateFile(kind)
	if err != nil {
		return nil, err
	}
	raw, err := templates.Read(jivasVersion, name)
	if err != nil {
		return nil, err
	}
	want, err := templateKeys(raw)
	if err != nil {
		return nil, err
	}

	wantSet := make(map[string]bool, len(want))
	var missing []string
	for _, k := range want {
		wantSet[k] = true
		if _, ok := doc[k]; !ok {
			missing = append(missing, k)
		}
	}
	var extra []string
	for k := range doc {
		if !wantSet[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)

	if len(missing) > 0 {
		return nil, fmt.Errorf("info.yaml validation failed: missing keys: %s", strings.Join(missing, ", "))
	}
	var warnings []string
	if len(extra) > 0 {
		warnings = append(warnings, fmt.Sprintf("extra keys in info.yaml: %s (the package registry may ignore them)", strings.Join(extra, ", ")))
	}
	return warnings, nil
}

func templateFile(kind string) (string, error) {
	switch {
	case kind == "action" || strings.HasSuffix(kind, "action"):
		return "action_info.yaml", nil
	case kind == "daf" || kind == "agent":
		return "agent_info.yaml", nil
	}
	return "", fmt.Errorf("unknown package type %q", kind)
}

// templateKeys renders a descriptor template with empty values and returns
// its top-level keys sorted.
func templateKeys(raw []byte) ([]string, error) {
	tmpl, err := template.New("info").Option("missingkey=zero").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]string{}); err != nil {
		return nil, fmt.Errorf("rendering template: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Dump renders v as YAML with two-space indentation, switching long or
// multiline strings to block literals so exported descriptors stay
// readable.
func Dump(v any) ([]byte, error) {
	var node yaml.Node
	if err := node.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding yaml: %w", err)
	}
	blockLongStrings(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, fmt.Errorf("encoding yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func blockLongStrings(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" {
		if len(n.Value) > 150 || strings.Contains(n.Value, "\n") {
			// trailing whitespace on any line forces the encoder back to
			// quoted style, so strip it first
			lines := strings.Split(n.Value, "\n")
			for i, line := range lines {
				lines[i] = strings.TrimRight(line, " \t")
			}
			n.Value = strings.Join(lines, "\n")
			n.Style = yaml.LiteralStyle
		}
	}
	for _, child := range n.Content {
		blockLongStrings(child)
	}
}
