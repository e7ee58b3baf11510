// Package testutil provides golden-file helpers for snapshotting
// bundler output: a golden file records the exact generated bundle (or
// any other serializable pipeline result) so regressions in emission
// show up as a readable diff.
package testutil

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// UpdateGoldens controls whether to rewrite golden files instead of
// comparing against them.
// Set via environment variable: UPDATE_GOLDENS=true go test ./...
var UpdateGoldens = os.Getenv("UPDATE_GOLDENS") == "true"

// GoldenSchema identifies the golden-file format.
const GoldenSchema = "cribo.golden/v1"

// GoldenPythonVersion is the default target version bundles are
// generated against; recorded in every golden file's metadata. Keeping
// the metadata to stable, input-derived values (rather than host
// details like toolchain version or OS) is what makes committed golden
// files comparable across machines.
const GoldenPythonVersion = "3.12"

// GoldenMeta tags a golden file with its format and the Python version
// the snapshot targets.
type GoldenMeta struct {
	Schema        string `json:"schema"`
	PythonVersion string `json:"python_version"`
}

// GoldenFile is the on-disk shape of one golden snapshot.
type GoldenFile struct {
	Meta GoldenMeta  `json:"meta"`
	Data interface{} `json:"data"`
}

// GetGoldenPath returns the path of a golden file relative to the
// test's package directory.
func GetGoldenPath(feature, name string) string {
	return filepath.Join("testdata", feature, name+".golden.json")
}

// AssertGoldenBundle snapshots one bundling run's observable result:
// the generated source text and the requirements sidecar list.
func AssertGoldenBundle(t *testing.T, feature, name string, output []byte, requirements []string) {
	t.Helper()
	CompareWithGolden(t, feature, name, map[string]interface{}{
		"output":       string(output),
		"requirements": requirements,
	})
}

// CompareWithGolden compares actual data with the named golden file,
// or rewrites the file when UpdateGoldens is set.
func CompareWithGolden(t *testing.T, feature, name string, actual interface{}) {
	t.Helper()

	goldenPath := GetGoldenPath(feature, name)
	golden := GoldenFile{
		Meta: GoldenMeta{Schema: GoldenSchema, PythonVersion: GoldenPythonVersion},
		Data: actual,
	}

	actualJSON, err := marshalDeterministic(golden)
	if err != nil {
		t.Fatalf("failed to marshal actual data: %v", err)
	}

	if UpdateGoldens {
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
			t.Fatalf("failed to create golden directory: %v", err)
		}
		if err := os.WriteFile(goldenPath, actualJSON, 0644); err != nil {
			t.Fatalf("failed to write golden file: %v", err)
		}
		t.Logf("Updated golden file: %s", goldenPath)
		return
	}

	expectedJSON, err := os.ReadFile(goldenPath)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("golden file does not exist: %s\nRun with UPDATE_GOLDENS=true to create", goldenPath)
		}
		t.Fatalf("failed to read golden file: %v", err)
	}

	// Compare JSON content, ignoring whitespace differences.
	if !jsonEqual(actualJSON, expectedJSON) {
		t.Errorf("golden file mismatch for %s/%s\nExpected:\n%s\nActual:\n%s",
			feature, name, string(expectedJSON), string(actualJSON))
	}
}

// LoadGoldenFile loads and returns a golden file's data.
func LoadGoldenFile(t *testing.T, feature, name string) interface{} {
	t.Helper()

	goldenPath := GetGoldenPath(feature, name)
	data, err := os.ReadFile(goldenPath)
	if err != nil {
		t.Fatalf("failed to load golden file %s: %v", goldenPath, err)
	}

	var golden GoldenFile
	if err := json.Unmarshal(data, &golden); err != nil {
		t.Fatalf("failed to unmarshal golden file: %v", err)
	}
	if golden.Meta.Schema != GoldenSchema {
		t.Fatalf("golden file %s has schema %q, want %q", goldenPath, golden.Meta.Schema, GoldenSchema)
	}

	return golden.Data
}

// marshalDeterministic marshals with sorted keys and stable
// indentation, so golden files diff cleanly.
func marshalDeterministic(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return json.MarshalIndent(m, "", "  ")
}

// jsonEqual compares two JSON byte slices for structural equality.
func jsonEqual(a, b []byte) bool {
	var aData, bData interface{}
	if err := json.Unmarshal(a, &aData); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bData); err != nil {
		return false
	}
	aJSON, _ := json.Marshal(aData)
	bJSON, _ := json.Marshal(bData)
	return bytes.Equal(aJSON, bJSON)
}
