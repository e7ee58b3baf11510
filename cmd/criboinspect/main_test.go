package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sunholo/cribo/internal/resolver"
)

func TestParseModuleIDRejectsNonNumeric(t *testing.T) {
	if _, err := parseModuleID("nope"); err == nil {
		t.Fatal("expected error for non-numeric module id")
	}
}

func TestParseModuleIDParsesValidID(t *testing.T) {
	id, err := parseModuleID("3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != resolver.ModuleId(3) {
		t.Fatalf("got %v, want 3", id)
	}
}

func writeInspectTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestBuildDiscoversFirstPartyModules(t *testing.T) {
	root := writeInspectTree(t, map[string]string{
		"main.py":    "import helpers\nprint(helpers.greet())\n",
		"helpers.py": "def greet():\n    return 'hi'\n",
	})

	sess, err := build(filepath.Join(root, "main.py"))
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	var out bytes.Buffer
	sess.listModules(&out)
	listing := out.String()
	if !strings.Contains(listing, "helpers") {
		t.Fatalf("expected helpers module listed, got %q", listing)
	}
}

func TestDispatchShowsStrategyForKnownModule(t *testing.T) {
	root := writeInspectTree(t, map[string]string{
		"main.py":    "import helpers\nprint(helpers.greet())\n",
		"helpers.py": "def greet():\n    return 'hi'\n",
	})

	sess, err := build(filepath.Join(root, "main.py"))
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	var out bytes.Buffer
	sess.dispatch(":strategy 1", &out)
	if out.Len() == 0 {
		t.Fatal("expected strategy output")
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	sess := &session{}
	var out bytes.Buffer
	sess.dispatch(":bogus", &out)
	if !strings.Contains(out.String(), "unknown command") {
		t.Fatalf("expected unknown command message, got %q", out.String())
	}
}
