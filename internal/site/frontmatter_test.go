package site

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrontMatterYAML(t *testing.T) {
	content := []byte(`---
title: Hello
tags:
  - a
  - b
nav:
  order: 2
---
<p>body</p>
`)

	meta, body, err := parseFrontMatter("page.html", content)

	require.NoError(t, err)
	assert.Equal(t, "Hello", meta["title"])
	assert.Equal(t, []interface{}{"a", "b"}, meta["tags"])
	assert.Equal(t, map[string]interface{}{"order": 2}, meta["nav"])
	assert.Equal(t, "<p>body</p>\n", body)
}

func TestParseFrontMatterTOML(t *testing.T) {
	content := []byte(`+++
title = "Hello"
draft = true
+++
<p>body</p>
`)

	meta, body, err := parseFrontMatter("page.html", content)

	require.NoError(t, err)
	assert.Equal(t, "Hello", meta["title"])
	assert.Equal(t, true, meta["draft"])
	assert.Equal(t, "<p>body</p>\n", body)
}

func TestParseFrontMatterNone(t *testing.T) {
	content := []byte("<p>plain page</p>\n")

	meta, body, err := parseFrontMatter("page.html", content)

	require.NoError(t, err)
	assert.Empty(t, meta)
	assert.Equal(t, "<p>plain page</p>\n", body)
}

func TestParseFrontMatterCRLF(t *testing.T) {
	content := []byte("---\r\ntitle: Win\r\n---\r\n<p>body</p>\r\n")

	meta, body, err := parseFrontMatter("page.html", content)

	require.NoError(t, err)
	assert.Equal(t, "Win", meta["title"])
	assert.Equal(t, "<p>body</p>\r\n", body)
}

func TestParseFrontMatterUnterminated(t *testing.T) {
	content := []byte("---\ntitle: Hello\n<p>no closing fence</p>\n")

	_, _, err := parseFrontMatter("page.html", content)

	require.Error(t, err)
}

func TestParseFrontMatterInvalidYAML(t *testing.T) {
	content := []byte("---\ntitle: [unclosed\n---\n<p>x</p>\n")

	_, _, err := parseFrontMatter("page.html", content)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "page.html")
}

func TestParseFrontMatterDashesInBody(t *testing.T) {
	content := []byte(`---
title: Hello
---
<p>one</p>
---
<p>two</p>
`)

	meta, body, err := parseFrontMatter("page.html", content)

	require.NoError(t, err)
	assert.Equal(t, "Hello", meta["title"])
	assert.Contains(t, body, "<p>one</p>")
	assert.Contains(t, body, "<p>two</p>")
}

func TestDecodeDataFile(t *testing.T) {
	data, err := decodeDataFile("_data.yml", []byte("author: jo\nlinks:\n  docs: /docs\n"))

	require.NoError(t, err)
	assert.Equal(t, "jo", data["author"])
	assert.Equal(t, map[string]interface{}{"docs": "/docs"}, data["links"])
}

func TestDecodeDataFileInvalid(t *testing.T) {
	_, err := decodeDataFile("_data.yml", []byte("a: [unclosed"))

	require.Error(t, err)
}
