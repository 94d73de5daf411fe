package server

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/net/html"
)

const liveReloadTag = `<script type="module">import "loam/live-reload";</script>`

// injectScripts inserts the import map and the live-reload client into an
// HTML document: the import map script goes at the end of <head> (it must
// precede any module script), the live-reload script at the end of <body>.
// Documents without those elements get both appended at the end. The input
// slice is never modified.
func injectScripts(doc []byte, importMapJSON []byte) ([]byte, error) {
	importMapTag := fmt.Sprintf("<script type=\"importmap\">\n%s\n</script>", importMapJSON)

	var out bytes.Buffer
	out.Grow(len(doc) + len(importMapTag) + len(liveReloadTag))

	injectedMap, injectedReload := false, false

	z := html.NewTokenizer(bytes.NewReader(doc))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() == io.EOF {
				break
			}
			return nil, fmt.Errorf("tokenizing HTML: %w", z.Err())
		}

		if tt == html.EndTagToken {
			name, _ := z.TagName()
			switch string(name) {
			case "head":
				if !injectedMap {
					out.WriteString(importMapTag)
					injectedMap = true
				}
			case "body":
				if !injectedReload {
					out.WriteString(liveReloadTag)
					injectedReload = true
				}
			}
		}

		out.Write(z.Raw())
	}

	// Fragment without <head> or <body>; still make the page reloadable.
	if !injectedMap {
		out.WriteString(importMapTag)
	}
	if !injectedReload {
		out.WriteString(liveReloadTag)
	}

	return out.Bytes(), nil
}
