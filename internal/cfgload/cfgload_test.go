package cfgload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsEmptyConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "cribo.yaml"))
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, cfg.Schema)
	assert.Empty(t, cfg.SourceRoots)
}

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cribo.yaml")
	content := "schema: cribo.config/v1\nsource_roots:\n  - src\npython_version: \"3.11\"\noutput: bundle.py\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Contains(t, cfg.SourceRoots, "src")
	assert.Equal(t, "3.11", cfg.PythonVersion)
	assert.Equal(t, "bundle.py", cfg.Output)
}

func TestLoadMergesPYTHONPATH(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cribo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source_roots:\n  - src\n"), 0644))

	t.Setenv("CRIBO_PYTHONPATH", "")
	t.Setenv("PYTHONPATH", "extra1"+string(filepath.ListSeparator)+"extra2")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"src", "extra1", "extra2"}, cfg.SourceRoots)
}

func TestValidateRejectsEmptySourceRoot(t *testing.T) {
	cfg := New()
	cfg.SourceRoots = []string{""}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsMalformedPythonVersion(t *testing.T) {
	cfg := New()
	cfg.PythonVersion = "3"
	assert.Error(t, cfg.Validate())
}

func TestParsePythonVersion(t *testing.T) {
	major, minor, err := ParsePythonVersion("3.12")
	require.NoError(t, err)
	assert.Equal(t, 3, major)
	assert.Equal(t, 12, minor)

	_, _, err = ParsePythonVersion("bogus")
	assert.Error(t, err)
}

func TestSaveRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cribo.yaml")

	cfg := New()
	cfg.SourceRoots = []string{"src"}
	cfg.PythonVersion = "3.12"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"src"}, loaded.SourceRoots)
	assert.Equal(t, "3.12", loaded.PythonVersion)
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join("proj", FileName), DefaultPath(filepath.Join("proj", "main.py")))
	assert.Equal(t, FileName, DefaultPath("main.py"))
}
