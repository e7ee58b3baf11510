package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func chtemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	prev := UpdateGoldens
	t.Cleanup(func() { UpdateGoldens = prev })
}

// TestAssertGoldenBundleRoundTrips exercises the write-then-compare
// cycle in a single process: toggling UpdateGoldens writes the golden
// file, then comparing the same bundle result against it succeeds.
func TestAssertGoldenBundleRoundTrips(t *testing.T) {
	chtemp(t)

	output := []byte("import sys as _cribo_sys\nprint('hello')\n")
	requirements := []string{"requests"}

	UpdateGoldens = true
	AssertGoldenBundle(t, "bundle", "round_trip", output, requirements)

	if _, err := os.Stat(GetGoldenPath("bundle", "round_trip")); err != nil {
		t.Fatalf("expected golden file to be written: %v", err)
	}

	UpdateGoldens = false
	AssertGoldenBundle(t, "bundle", "round_trip", output, requirements)
}

func TestGoldenMetaIsStable(t *testing.T) {
	chtemp(t)

	UpdateGoldens = true
	AssertGoldenBundle(t, "bundle", "meta_check", []byte("x = 1\n"), nil)

	raw, err := os.ReadFile(GetGoldenPath("bundle", "meta_check"))
	if err != nil {
		t.Fatal(err)
	}
	var golden GoldenFile
	if err := json.Unmarshal(raw, &golden); err != nil {
		t.Fatal(err)
	}
	// Only input-derived metadata goes into a golden file — nothing
	// host-specific, so committed fixtures compare equal on any machine.
	if golden.Meta.Schema != GoldenSchema {
		t.Fatalf("schema = %q, want %q", golden.Meta.Schema, GoldenSchema)
	}
	if golden.Meta.PythonVersion != GoldenPythonVersion {
		t.Fatalf("python_version = %q, want %q", golden.Meta.PythonVersion, GoldenPythonVersion)
	}
}

func TestGetGoldenPathJoinsFeatureAndName(t *testing.T) {
	got := GetGoldenPath("bundle", "cycle")
	want := filepath.Join("testdata", "bundle", "cycle.golden.json")
	if got != want {
		t.Fatalf("GetGoldenPath = %q, want %q", got, want)
	}
}

func TestLoadGoldenFileReturnsWrittenData(t *testing.T) {
	chtemp(t)
	UpdateGoldens = true

	CompareWithGolden(t, "bundle", "load_me", map[string]interface{}{"ok": true})

	loaded := LoadGoldenFile(t, "bundle", "load_me")
	m, ok := loaded.(map[string]interface{})
	if !ok {
		t.Fatalf("expected map, got %T", loaded)
	}
	if m["ok"] != true {
		t.Fatalf("expected ok=true, got %v", m["ok"])
	}
}
