package descriptor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleInfo = `package:
  name: testuser/demo_action
  author: testuser
  version: 0.0.1
  meta:
    title: Demo Action
    description: A demo action.
    type: interact_action
  dependencies:
    jivas: "~2.0.0"
    actions:
      testuser/other_action: ">=0.0.1"
`

func TestParse(t *testing.T) {
	d, err := Parse([]byte(sampleInfo))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.Package.Name != "testuser/demo_action" {
		t.Errorf("Name = %q", d.Package.Name)
	}
	if d.Package.Version != "0.0.1" {
		t.Errorf("Version = %q", d.Package.Version)
	}
	if d.Package.Meta.Title != "Demo Action" {
		t.Errorf("Title = %q", d.Package.Meta.Title)
	}
	if d.Package.Meta.Type != "interact_action" {
		t.Errorf("Type = %q", d.Package.Meta.Type)
	}
	if d.Package.Dependencies["jivas"] != "~2.0.0" {
		t.Errorf("jivas dependency = %v", d.Package.Dependencies["jivas"])
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("package: [unclosed")); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "info.yaml")
	if err := os.WriteFile(path, []byte(sampleInfo), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.Package.Author != "testuser" {
		t.Errorf("Author = %q", d.Package.Author)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "info.yaml"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "reading descriptor") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPackage_NamespaceAndShortName(t *testing.T) {
	p := Package{Name: "testuser/demo_action"}
	if got := p.Namespace(); got != "testuser" {
		t.Errorf("Namespace = %q", got)
	}
	if got := p.ShortName(); got != "demo_action" {
		t.Errorf("ShortName = %q", got)
	}

	bare := Package{Name: "demo_action"}
	if got := bare.Namespace(); got != "" {
		t.Errorf("Namespace = %q, want empty", got)
	}
	if got := bare.ShortName(); got != "demo_action" {
		t.Errorf("ShortName = %q", got)
	}
}

func TestPackage_Kind(t *testing.T) {
	for _, typ := range []string{"action", "interact_action", "vector_store_action"} {
		p := Package{Meta: Meta{Type: typ}}
		if !p.IsAction() {
			t.Errorf("IsAction(%q) = false", typ)
		}
		if p.IsAgent() {
			t.Errorf("IsAgent(%q) = true", typ)
		}
	}
	for _, typ := range []string{"daf", "agent"} {
		p := Package{Meta: Meta{Type: typ}}
		if !p.IsAgent() {
			t.Errorf("IsAgent(%q) = false", typ)
		}
		if p.IsAction() {
			t.Errorf("IsAction(%q) = true", typ)
		}
	}
}

func TestValidateSnakeCase(t *testing.T) {
	for _, v := range []string{"demo", "demo_action", "a1_b2"} {
		if err := ValidateSnakeCase(v); err != nil {
			t.Errorf("ValidateSnakeCase(%q) = %v", v, err)
		}
	}
	for _, v := range []string{"Demo", "demo action", "demo-action", ""} {
		if err := ValidateSnakeCase(v); err == nil {
			t.Errorf("ValidateSnakeCase(%q) = nil, want error", v)
		}
	}
}

func TestValidateName(t *testing.T) {
	for _, v := range []string{"testuser", "ns1"} {
		if err := ValidateName(v); err != nil {
			t.Errorf("ValidateName(%q) = %v", v, err)
		}
	}
	for _, v := range []string{"test_user", "Test", "user!", ""} {
		if err := ValidateName(v); err == nil {
			t.Errorf("ValidateName(%q) = nil, want error", v)
		}
	}
}

func TestValidatePackageName(t *testing.T) {
	groups := []string{"testuser", "team"}
	if err := ValidatePackageName("testuser/demo_action", groups); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidatePackageName("team/demo_action", groups); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidatePackageName_NoNamespace(t *testing.T) {
	err := ValidatePackageName("demo_action", []string{"testuser"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "must include a namespace") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidatePackageName_ForeignNamespace(t *testing.T) {
	err := ValidatePackageName("other/demo_action", []string{"testuser"})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != `namespace "other" is not accessible to the current user` {
		t.Errorf("unexpected error: %q", got)
	}

	if err := ValidatePackageName("testuser/demo_action", nil); err == nil {
		t.Error("expected error with no groups")
	}
}

func TestValidateFormat(t *testing.T) {
	warnings, err := ValidateFormat([]byte("package:\n  name: demo\n"), "action", "2.0.0")
	if err != nil {
		t.Fatalf("ValidateFormat: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestValidateFormat_MissingKeys(t *testing.T) {
	_, err := ValidateFormat([]byte("name: demo\n"), "interact_action", "2.0.0")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != "info.yaml validation failed: missing keys: package" {
		t.Errorf("unexpected error: %q", got)
	}
}

func TestValidateFormat_ExtraKeys(t *testing.T) {
	warnings, err := ValidateFormat([]byte("package:\n  name: demo\nextra: 1\n"), "daf", "2.1.0")
	if err != nil {
		t.Fatalf("ValidateFormat: %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "extra keys in info.yaml: extra") {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestValidateFormat_UnknownType(t *testing.T) {
	_, err := ValidateFormat([]byte("package: {}\n"), "widget", "2.0.0")
	if err == nil || !strings.Contains(err.Error(), `unknown package type "widget"`) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateFormat_UnknownVersion(t *testing.T) {
	_, err := ValidateFormat([]byte("package: {}\n"), "action", "9.9.9")
	if err == nil || err.Error() != "template for version 9.9.9 not found" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDump_LongStringBecomesBlock(t *testing.T) {
	type doc struct {
		Name  string `yaml:"name"`
		Notes string `yaml:"notes"`
	}
	out, err := Dump(doc{Name: "demo", Notes: strings.Repeat("x", 151)})
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if !strings.Contains(string(out), "name: demo") {
		t.Errorf("short string should stay inline:\n%s", out)
	}
	if !strings.Contains(string(out), "notes: |-") {
		t.Errorf("long string should render as block literal:\n%s", out)
	}
}

func TestDump_MultilineString(t *testing.T) {
	out, err := Dump(map[string]string{"body": "line one\nline two "})
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, "body: |-") {
		t.Errorf("multiline string should render as block literal:\n%s", s)
	}
	if !strings.Contains(s, "  line one\n  line two") {
		t.Errorf("trailing whitespace should be stripped:\n%s", s)
	}
}
