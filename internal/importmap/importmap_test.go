package importmap

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRelativeTargets(t *testing.T) {
	m := &ImportMap{
		Imports: map[string]string{
			"foo": "./bar.js",
		},
	}

	resolved, err := Resolve(m, "https://example.com/project/")

	require.NoError(t, err)
	assert.Equal(t, "https://example.com/project/bar.js", resolved.Imports["foo"])
}

func TestResolveAbsoluteTargetsUnchanged(t *testing.T) {
	m := &ImportMap{
		Imports: map[string]string{
			"lib": "https://cdn.example.com/x.js",
		},
	}

	resolved, err := Resolve(m, "https://example.com/project/")

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/x.js", resolved.Imports["lib"])
}

func TestResolveScopes(t *testing.T) {
	m := &ImportMap{
		Imports: map[string]string{"a": "./a.js"},
		Scopes: map[string]map[string]string{
			"/vendor/": {
				"a": "./vendor/a.js",
				"b": "https://cdn.example.com/b.js",
			},
		},
	}

	resolved, err := Resolve(m, "https://example.com/")

	require.NoError(t, err)
	require.Contains(t, resolved.Scopes, "/vendor/")
	assert.Equal(t, "https://example.com/vendor/a.js", resolved.Scopes["/vendor/"]["a"])
	assert.Equal(t, "https://cdn.example.com/b.js", resolved.Scopes["/vendor/"]["b"])
}

func TestResolveDoesNotMutateInput(t *testing.T) {
	m := &ImportMap{
		Imports: map[string]string{"foo": "./bar.js"},
		Scopes: map[string]map[string]string{
			"/s/": {"x": "./x.js"},
		},
	}

	_, err := Resolve(m, "https://example.com/")

	require.NoError(t, err)
	assert.Equal(t, "./bar.js", m.Imports["foo"])
	assert.Equal(t, "./x.js", m.Scopes["/s/"]["x"])
}

func TestResolveMalformedTarget(t *testing.T) {
	m := &ImportMap{
		Imports: map[string]string{"bad": ":"},
	}

	_, err := Resolve(m, "https://example.com/")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestResolveMalformedBase(t *testing.T) {
	m := &ImportMap{Imports: map[string]string{"a": "./a.js"}}

	_, err := Resolve(m, "http://[::1")

	require.Error(t, err)
}

func TestCanonical(t *testing.T) {
	m := Canonical()

	require.Len(t, m.Imports, 3)
	assert.Equal(t, "/_loam/loam.js", m.Imports["loam"])
	assert.Equal(t, "/_loam/", m.Imports["loam/"])
	assert.Equal(t, "/_loam/live-reload.js", m.Imports["loam/live-reload"])
	assert.Nil(t, m.Scopes)
}

func TestBuildWithoutUserMap(t *testing.T) {
	m, err := Build(nil, "")

	require.NoError(t, err)
	assert.Equal(t, Canonical(), m)
}

func TestBuildUserImportsWin(t *testing.T) {
	user := &ImportMap{
		Imports: map[string]string{
			"loam": "https://cdn.example.com/custom-loam.js",
			"lit":  "https://cdn.example.com/lit.js",
		},
	}

	m, err := Build(user, "")

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/custom-loam.js", m.Imports["loam"])
	assert.Equal(t, "https://cdn.example.com/lit.js", m.Imports["lit"])
	assert.Equal(t, "/_loam/", m.Imports["loam/"])
}

func TestBuildResolvesUserMapAgainstBase(t *testing.T) {
	user := &ImportMap{
		Imports: map[string]string{"app": "./app.js"},
	}

	m, err := Build(user, "https://example.com/site/")

	require.NoError(t, err)
	assert.Equal(t, "https://example.com/site/app.js", m.Imports["app"])
}

func TestBuildAdoptsUserScopesVerbatim(t *testing.T) {
	user := &ImportMap{
		Imports: map[string]string{},
		Scopes: map[string]map[string]string{
			"/admin/": {"auth": "https://cdn.example.com/auth.js"},
		},
	}

	m, err := Build(user, "")

	require.NoError(t, err)
	assert.Equal(t, user.Scopes, m.Scopes)
}

func TestBuildMalformedUserEntry(t *testing.T) {
	user := &ImportMap{
		Imports: map[string]string{"bad": ":"},
	}

	_, err := Build(user, "https://example.com/")

	require.Error(t, err)
}

func TestLoadAndWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "import-map.json")

	original := &ImportMap{
		Imports: map[string]string{"foo": "https://example.com/foo.js"},
		Scopes: map[string]map[string]string{
			"/x/": {"y": "https://example.com/y.js"},
		},
	}
	require.NoError(t, original.WriteFile(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestJSONShape(t *testing.T) {
	m := &ImportMap{Imports: map[string]string{"a": "https://x/a.js"}}

	data, err := m.JSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "imports")
	assert.NotContains(t, decoded, "scopes")
}
