package site

import (
	"bytes"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/loam/internal/errors"
)

const (
	yamlDelimiter = "---"
	tomlDelimiter = "+++"
)

// parseFrontMatter splits a page into its leading metadata block and body.
// YAML blocks are fenced with --- lines, TOML blocks with +++ lines. Pages
// without a fence return an empty metadata map and the full content.
func parseFrontMatter(path string, content []byte) (map[string]interface{}, string, error) {
	meta := map[string]interface{}{}

	delimiter, rest, found := openingFence(content)
	if !found {
		return meta, string(content), nil
	}

	closing := []byte("\n" + delimiter)
	end := bytes.Index(rest, closing)
	if end < 0 {
		return nil, "", errors.ErrFrontMatter(path, nil).
			WithContext("reason", "unterminated front matter block")
	}

	block := rest[:end]
	body := strings.TrimPrefix(strings.TrimPrefix(string(rest[end+len(closing):]), "\r\n"), "\n")

	var err error
	if delimiter == yamlDelimiter {
		err = yaml.Unmarshal(block, &meta)
	} else {
		err = toml.Unmarshal(block, &meta)
	}
	if err != nil {
		return nil, "", errors.ErrFrontMatter(path, err)
	}

	return normalizeTree(meta), body, nil
}

// openingFence detects a leading front matter fence and returns the
// delimiter, the content following the fence line, and whether one exists.
func openingFence(content []byte) (string, []byte, bool) {
	for _, delimiter := range []string{yamlDelimiter, tomlDelimiter} {
		prefix := []byte(delimiter)
		if !bytes.HasPrefix(content, prefix) {
			continue
		}
		rest := content[len(prefix):]
		if bytes.HasPrefix(rest, []byte("\r\n")) {
			return delimiter, rest[2:], true
		}
		if bytes.HasPrefix(rest, []byte("\n")) {
			return delimiter, rest[1:], true
		}
	}
	return "", nil, false
}

// decodeDataFile parses a standalone YAML data file such as _data.yml.
func decodeDataFile(path string, content []byte) (map[string]interface{}, error) {
	data := map[string]interface{}{}
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, errors.NewBuildError(errors.ErrCodeFrontMatter, "parsing data file", err).
			WithLocation(path, 0, 0)
	}
	return normalizeTree(data), nil
}

// normalizeTree rewrites decoder-specific map types into the plain
// map[string]interface{} shape the merge and templates expect.
func normalizeTree(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return normalizeTree(t)
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if key, ok := k.(string); ok {
				out[key] = normalizeValue(val)
			}
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}
