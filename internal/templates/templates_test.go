package templates

import (
	"strings"
	"testing"
)

func TestHas(t *testing.T) {
	if !Has("2.0.0") {
		t.Error("expected assets for 2.0.0")
	}
	if !Has("2.1.0") {
		t.Error("expected assets for 2.1.0")
	}
	if Has("0.9.0") {
		t.Error("unexpected assets for 0.9.0")
	}
}

func TestRead(t *testing.T) {
	data, err := Read("2.0.0", "action_info.yaml")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !strings.Contains(string(data), "package:") {
		t.Errorf("unexpected template content: %q", data)
	}
}

func TestRead_UnknownVersion(t *testing.T) {
	_, err := Read("0.9.0", "action_info.yaml")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != "template for version 0.9.0 not found" {
		t.Errorf("unexpected error: %q", got)
	}
}

func TestDir(t *testing.T) {
	dir, err := Dir("2.1.0")
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	for _, name := range []string{"action/lib.jac", "agent/descriptor.yaml", "project/main.jac", "docs/README.md"} {
		if _, err := dir.Open(name); err != nil {
			t.Errorf("missing asset %s: %v", name, err)
		}
	}
}
