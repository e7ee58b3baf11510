package bundler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunholo/cribo/testutil"
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

func TestRunInlinesSimpleTwoModuleProgram(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py":    "from helpers import greet\nprint(greet('A'))\n",
		"helpers.py": "def greet(n):\n    return 'Hi, ' + n\n",
	})

	res, err := Run(Config{Entry: filepath.Join(root, "main.py")})
	require.NoError(t, err)
	out := string(res.Output)
	assert.Contains(t, out, "def greet")
	assert.NotContains(t, out, "_cribo_init__")
	assert.Contains(t, out, "print(greet('A'))")
	assert.Empty(t, res.Requirements)
}

func TestRunEmitsPreludeFirst(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py": "print('hello')\n",
	})

	res, err := Run(Config{Entry: filepath.Join(root, "main.py")})
	require.NoError(t, err)
	out := string(res.Output)
	assert.True(t, strings.HasPrefix(out, "import sys as _cribo_sys\n"))
	assert.Contains(t, out, "_cribo = _CriboModuleProxy('')")
	assert.Contains(t, out, "print('hello')")
}

func TestRunHoistsFutureImports(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py":    "from __future__ import annotations\nfrom helpers import greet\nprint(greet('x'))\n",
		"helpers.py": "def greet(n):\n    return n\n",
	})

	res, err := Run(Config{Entry: filepath.Join(root, "main.py")})
	require.NoError(t, err)
	out := string(res.Output)
	assert.True(t, strings.HasPrefix(out, "from __future__ import annotations\n"))
	// Hoisted once, at the very top only.
	assert.Equal(t, 1, strings.Count(out, "from __future__ import annotations"))
}

func TestRunRewritesStdlibThroughProxy(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py": "import json as J\ndef f(J):\n    return len(J)\nprint(f('abc'), J.dumps({'k': 1}))\n",
	})

	res, err := Run(Config{Entry: filepath.Join(root, "main.py")})
	require.NoError(t, err)
	out := string(res.Output)
	assert.NotContains(t, out, "import json as J")
	assert.Contains(t, out, "_cribo.json.dumps")
	// The shadowing parameter inside f stays untouched.
	assert.Contains(t, out, "return len(J)")
}

func TestRunWrapsWholeModuleImport(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py":    "import helpers\nprint(helpers.greet())\n",
		"helpers.py": "def greet():\n    return 'hi'\n",
	})

	res, err := Run(Config{Entry: filepath.Join(root, "main.py")})
	require.NoError(t, err)
	out := string(res.Output)
	assert.Contains(t, out, "def greet")
	assert.Contains(t, out, "_cribo_init__")
	assert.Contains(t, out, "helpers = _cribo_types.SimpleNamespace(__name__='helpers', __initialized__=False, __initializing__=False)")
	assert.Contains(t, out, "_cribo_sys.modules['helpers'] = helpers")
	assert.Contains(t, out, "helpers.__init__(helpers)")
}

func TestRunRecordsThirdPartyRequirement(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py": "import requests\nrequests.get('https://example.com')\n",
	})

	res, err := Run(Config{Entry: filepath.Join(root, "main.py"), EmitRequirements: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"requests"}, res.Requirements)
	// The third-party import itself survives verbatim.
	assert.Contains(t, string(res.Output), "import requests")
}

func TestRunRequirementsOmittedUnlessRequested(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py": "import requests\nrequests.get('https://example.com')\n",
	})

	res, err := Run(Config{Entry: filepath.Join(root, "main.py")})
	require.NoError(t, err)
	assert.Empty(t, res.Requirements)
}

func TestRunHandlesCircularWrapperModules(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py": "import a\nprint(a.value)\n",
		"a.py":    "import b\nvalue = 1\n",
		"b.py":    "import a\n",
	})

	res, err := Run(Config{Entry: filepath.Join(root, "main.py")})
	require.NoError(t, err)
	out := string(res.Output)
	assert.Contains(t, out, "__initializing__")
	assert.Contains(t, out, "__initialized__")
	// Both cycle members got module objects and init functions.
	assert.Contains(t, out, "_cribo_sys.modules['a'] = a")
	assert.Contains(t, out, "_cribo_sys.modules['b'] = b")
}

func TestRunPackageInitCycleFixture(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py":         "from foo import value\nprint(value)\n",
		"foo/__init__.py": "from .boo import helper\nvalue = helper() + 1\n",
		"foo/boo.py":      "def helper():\n    return 41\n",
	})

	res, err := Run(Config{Entry: filepath.Join(root, "main.py")})
	require.NoError(t, err)
	out := string(res.Output)

	// Both foo and foo.boo become module objects, boo attached to foo.
	assert.Contains(t, out, "_cribo_sys.modules['foo'] = foo")
	assert.Contains(t, out, "_cribo_sys.modules['foo.boo'] = foo_boo")
	assert.Contains(t, out, "foo.boo = foo_boo")
	// Exactly one entry-level init call for foo.
	assert.Equal(t, 1, strings.Count(out, "\nfoo.__init__(foo)\n"))
	assert.Contains(t, out, "value = foo.value")
	assert.Contains(t, out, "print(value)")
}

func TestRunRenamesCollidingSymbolsAcrossModules(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py": "from m1 import User\nfrom m2 import User as Other\nprint(User().tag, Other().tag)\n",
		"m1.py":   "class User:\n    tag = 1\n",
		"m2.py":   "class User:\n    tag = 2\n",
	})

	res, err := Run(Config{Entry: filepath.Join(root, "main.py")})
	require.NoError(t, err)
	out := string(res.Output)
	assert.Contains(t, out, "class User:")
	assert.Contains(t, out, "class User_2:")
	assert.Contains(t, out, "print(User().tag, User_2().tag)")
}

func TestRunWildcardReexportRespectsDunderAll(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py":         "from pkg import a\nprint(a)\n",
		"pkg/__init__.py": "from .impl import *\n",
		"pkg/impl.py":     "__all__ = ['a']\na = 1\nb = 2\n",
	})

	res, err := Run(Config{Entry: filepath.Join(root, "main.py")})
	require.NoError(t, err)
	out := string(res.Output)
	// pkg is a wrapper whose init pulls only `a` across from impl, per
	// impl's __all__; `b` stays an attribute of impl alone.
	assert.Contains(t, out, "_cribo_sys.modules['pkg'] = pkg")
	assert.Contains(t, out, "a = pkg_impl.a")
	assert.NotContains(t, out, "b = pkg_impl.b")
	assert.Contains(t, out, "a = pkg.a")
}

func TestRunPrunesUnreachableFirstPartyFunction(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py":    "from helpers import used\nprint(used())\n",
		"helpers.py": "def used():\n    return 1\n\n\ndef unused():\n    return 2\n",
	})

	res, err := Run(Config{Entry: filepath.Join(root, "main.py")})
	require.NoError(t, err)
	out := string(res.Output)
	assert.Contains(t, out, "def used")
	assert.NotContains(t, out, "def unused")
}

func TestRunNoTreeShakeKeepsEverything(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py":    "from helpers import used\nprint(used())\n",
		"helpers.py": "def used():\n    return 1\n\n\ndef unused():\n    return 2\n",
	})

	res, err := Run(Config{Entry: filepath.Join(root, "main.py"), NoTreeShake: true})
	require.NoError(t, err)
	out := string(res.Output)
	assert.Contains(t, out, "def used")
	assert.Contains(t, out, "def unused")
}

// TestRunMatchesGoldenBundle snapshots a full Run over the committed
// fixture project, so any change to the emitted bundle text shows up
// as a golden diff. The fixture deliberately stays wrapper-free: init
// function names embed a digest of the module's canonical path, which
// would tie a committed snapshot to one checkout location.
func TestRunMatchesGoldenBundle(t *testing.T) {
	res, err := Run(Config{Entry: filepath.Join("testdata", "simple_project", "main.py")})
	require.NoError(t, err)
	require.Empty(t, res.Diagnostics)

	testutil.AssertGoldenBundle(t, "bundle", "simple_inline", res.Output, res.Requirements)
}

func TestRunIsDeterministic(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py": "import a\nimport b\nprint(a.x + b.y)\n",
		"a.py":    "x = 1\n",
		"b.py":    "y = 2\n",
	})

	first, err := Run(Config{Entry: filepath.Join(root, "main.py")})
	require.NoError(t, err)
	second, err := Run(Config{Entry: filepath.Join(root, "main.py")})
	require.NoError(t, err)
	assert.Equal(t, string(first.Output), string(second.Output))
}

func TestRunSideEffectingModuleBecomesWrapper(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py":  "from loader import cache\nprint(cache)\n",
		"loader.py": "def build():\n    return {}\n\n\ncache = build()\n",
	})

	res, err := Run(Config{Entry: filepath.Join(root, "main.py")})
	require.NoError(t, err)
	out := string(res.Output)
	assert.Contains(t, out, "_cribo_sys.modules['loader'] = loader")
	assert.Contains(t, out, "cache = loader.cache")
}

func TestRunFlagsDynamicImport(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py": "import importlib\nname = 'x'\nm = importlib.import_module(name)\n",
	})

	res, err := Run(Config{Entry: filepath.Join(root, "main.py")})
	require.NoError(t, err)
	require.NotEmpty(t, res.Diagnostics)
	assert.Equal(t, "DynamicImportUnknown", string(res.Diagnostics[0].Kind))
}

func TestRunClassInheritanceCycleFails(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.py": "import a\nprint(a.Child)\n",
		"a.py":    "from b import Base\n\n\nclass Child(Base):\n    pass\n",
		"b.py":    "import a\n\n\nclass Base:\n    pass\n",
	})

	_, err := Run(Config{Entry: filepath.Join(root, "main.py")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEP002")
}
