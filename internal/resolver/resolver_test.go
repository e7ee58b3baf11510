package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	return root
}

func TestRegisterEntryIsAlwaysModuleZero(t *testing.T) {
	root := writeTree(t, map[string]string{"main.py": "x = 1\n"})
	r := New([]string{root}, [2]int{3, 12})

	id, err := r.RegisterEntry(filepath.Join(root, "main.py"))
	require.NoError(t, err)
	assert.Equal(t, ModuleId(0), id)

	meta, ok := r.Metadata(id)
	require.True(t, ok)
	assert.Equal(t, EntryScript, meta.Kind)
}

func TestResolveAbsoluteFirstParty(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py":     "",
		"helpers.py":  "",
		"pkg/__init__.py": "",
		"pkg/sub.py":  "",
	})
	r := New([]string{root}, [2]int{3, 12})
	entryID, err := r.RegisterEntry(filepath.Join(root, "main.py"))
	require.NoError(t, err)

	res, err := r.Resolve(entryID, "helpers", 0)
	require.NoError(t, err)
	assert.Equal(t, ResFirstParty, res.Kind)

	res2, err := r.Resolve(entryID, "pkg.sub", 0)
	require.NoError(t, err)
	assert.Equal(t, ResFirstParty, res2.Kind)

	meta, ok := r.Metadata(res2.ModuleID)
	require.True(t, ok)
	assert.Equal(t, RegularModule, meta.Kind)
}

func TestResolveAbsoluteStdlib(t *testing.T) {
	root := writeTree(t, map[string]string{"main.py": ""})
	r := New([]string{root}, [2]int{3, 12})
	entryID, _ := r.RegisterEntry(filepath.Join(root, "main.py"))

	res, err := r.Resolve(entryID, "collections.abc", 0)
	require.NoError(t, err)
	assert.Equal(t, ResStdLib, res.Kind)
	assert.Equal(t, "collections.abc", res.StdlibName)
}

func TestResolveThirdParty(t *testing.T) {
	root := writeTree(t, map[string]string{"main.py": ""})
	r := New([]string{root}, [2]int{3, 12})
	entryID, _ := r.RegisterEntry(filepath.Join(root, "main.py"))

	res, err := r.Resolve(entryID, "requests", 0)
	require.NoError(t, err)
	assert.Equal(t, ResThirdParty, res.Kind)
	assert.Equal(t, "requests", res.ThirdPartyName)
}

func TestModuleFirstResolutionPrefersPyOverPackage(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py":            "",
		"widget.py":          "# module wins",
		"widget/__init__.py": "# package loses",
	})
	r := New([]string{root}, [2]int{3, 12})
	entryID, _ := r.RegisterEntry(filepath.Join(root, "main.py"))

	res, err := r.Resolve(entryID, "widget", 0)
	require.NoError(t, err)
	meta, _ := r.Metadata(res.ModuleID)
	assert.Equal(t, RegularModule, meta.Kind)
}

func TestRelativeImportFromPackageInit(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py":         "",
		"pkg/__init__.py": "",
		"pkg/a.py":        "",
		"pkg/b.py":        "",
	})
	r := New([]string{root}, [2]int{3, 12})
	_, err := r.RegisterEntry(filepath.Join(root, "main.py"))
	require.NoError(t, err)

	pkgInitID, err := r.Register("pkg", filepath.Join(root, "pkg", "__init__.py"), PackageInit)
	require.NoError(t, err)

	// `from . import a` inside pkg/__init__.py: level=1, bare name.
	res, err := r.Resolve(pkgInitID, "", 1)
	require.NoError(t, err)
	assert.Equal(t, ResFirstParty, res.Kind)
}

func TestRelativeImportFromSiblingModule(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py":         "",
		"pkg/__init__.py": "",
		"pkg/a.py":        "",
		"pkg/b.py":        "",
	})
	r := New([]string{root}, [2]int{3, 12})
	_, err := r.RegisterEntry(filepath.Join(root, "main.py"))
	require.NoError(t, err)
	r.Register("pkg", filepath.Join(root, "pkg", "__init__.py"), PackageInit)
	aID, err := r.Register("pkg.a", filepath.Join(root, "pkg", "a.py"), RegularModule)
	require.NoError(t, err)

	// Inside pkg/a.py: `from . import b` -> level=1, bare.
	res, err := r.Resolve(aID, "", 1)
	require.NoError(t, err)
	assert.Equal(t, ResFirstParty, res.Kind)

	// Inside pkg/a.py: `from .b import x` -> level=1, ModulePath="b".
	res2, err := r.Resolve(aID, "b", 1)
	require.NoError(t, err)
	assert.Equal(t, ResFirstParty, res2.Kind)
}

func TestRegisterIsIdempotentByCanonicalPath(t *testing.T) {
	root := writeTree(t, map[string]string{"main.py": "", "a.py": ""})
	r := New([]string{root}, [2]int{3, 12})
	r.RegisterEntry(filepath.Join(root, "main.py"))

	id1, err := r.Register("a", filepath.Join(root, "a.py"), RegularModule)
	require.NoError(t, err)
	id2, err := r.Register("a", filepath.Join(root, "a.py"), RegularModule)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestClassifyName(t *testing.T) {
	root := writeTree(t, map[string]string{"main.py": "", "mine.py": ""})
	r := New([]string{root}, [2]int{3, 12})

	assert.Equal(t, StandardLibrary, r.ClassifyName("os.path"))
	assert.Equal(t, FirstParty, r.ClassifyName("mine"))
	assert.Equal(t, ThirdParty, r.ClassifyName("numpy"))
}
