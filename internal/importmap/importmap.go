package importmap

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/conneroisu/loam/internal/errors"
)

// ImportMap maps bare module specifiers to resolution targets, optionally
// scoped by referrer URL prefix, in the browser import-map format.
type ImportMap struct {
	Imports map[string]string            `json:"imports"`
	Scopes  map[string]map[string]string `json:"scopes,omitempty"`
}

// ModuleRoot is where the dev server mounts loam's own client runtime.
const ModuleRoot = "/_loam/"

// Canonical returns the tool's own import map: three fixed entries pointing
// at its client runtime root. It defines no scopes.
func Canonical() *ImportMap {
	return &ImportMap{
		Imports: map[string]string{
			"loam":             ModuleRoot + "loam.js",
			"loam/":            ModuleRoot,
			"loam/live-reload": ModuleRoot + "live-reload.js",
		},
	}
}

// Resolve returns a copy of m with every relative target in Imports and in
// each scope's mapping rewritten to an absolute URL against base. Targets
// that are already absolute resolve to themselves. Scope keys are left
// untouched. The input map is never mutated.
func Resolve(m *ImportMap, base string) (*ImportMap, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL %q: %w", base, err)
	}

	resolved := &ImportMap{Imports: make(map[string]string, len(m.Imports))}
	for spec, target := range m.Imports {
		abs, err := baseURL.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("resolving import %q: %w", spec, err)
		}
		resolved.Imports[spec] = abs.String()
	}

	if m.Scopes != nil {
		resolved.Scopes = make(map[string]map[string]string, len(m.Scopes))
		for scope, mapping := range m.Scopes {
			targets := make(map[string]string, len(mapping))
			for spec, target := range mapping {
				abs, err := baseURL.Parse(target)
				if err != nil {
					return nil, fmt.Errorf("resolving scoped import %q in %q: %w", spec, scope, err)
				}
				targets[spec] = abs.String()
			}
			resolved.Scopes[scope] = targets
		}
	}

	return resolved, nil
}

// Build assembles the import map served to browsers: the canonical map,
// with user imports overlaid on top (user entries win on key collision).
// When base is non-empty the user map is resolved against it first. User
// scopes are adopted as-is; the canonical map defines none, so scopes are
// never merged.
func Build(user *ImportMap, base string) (*ImportMap, error) {
	result := Canonical()
	if user == nil {
		return result, nil
	}

	resolved := user
	if base != "" {
		var err error
		resolved, err = Resolve(user, base)
		if err != nil {
			return nil, err
		}
	}

	for spec, target := range resolved.Imports {
		result.Imports[spec] = target
	}
	result.Scopes = resolved.Scopes

	return result, nil
}

// Load reads an import map from a JSON file.
func Load(path string) (*ImportMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotFound, "reading import map", err).
			WithLocation(path, 0, 0)
	}

	var m ImportMap
	if err := json.Unmarshal(data, &m); err != nil {
		verr := errors.NewValidationError(errors.ErrCodeImportMapInvalid, "parsing import map")
		verr.Cause = err
		return nil, verr.WithLocation(path, 0, 0)
	}
	if m.Imports == nil {
		m.Imports = make(map[string]string)
	}

	return &m, nil
}

// JSON serializes m in the indented file format.
func (m *ImportMap) JSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// WriteFile writes m to path in the JSON file format.
func (m *ImportMap) WriteFile(path string) error {
	data, err := m.JSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return errors.NewIOError(errors.ErrCodeInternalError, "writing import map", err).
			WithLocation(path, 0, 0)
	}
	return nil
}
