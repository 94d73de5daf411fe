package site

import (
	"bytes"
	"html/template"
	"path/filepath"

	"github.com/conneroisu/loam/internal/errors"
)

// defaultLayoutHTML wraps pages that name no layout of their own.
const defaultLayoutHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
</head>
<body>
{{.Content}}
</body>
</html>
`

// defaultLayoutName is the template the built-in layout registers under.
const defaultLayoutName = "default"

// PageContext is the data exposed to page bodies and layouts.
type PageContext struct {
	Site    map[string]interface{}
	Page    map[string]interface{}
	Title   string
	Content template.HTML
}

// loadLayouts parses the built-in layout plus every .html file in the
// layouts directory. User layouts register under their file name, so a
// page's "layout: post" selects post.html.
func loadLayouts(layoutsDir string) (*template.Template, error) {
	root, err := template.New(defaultLayoutName).Parse(defaultLayoutHTML)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternalError, "parsing built-in layout", err)
	}

	matches, err := filepath.Glob(filepath.Join(layoutsDir, "*.html"))
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeInternalError, "listing layouts", err)
	}
	if len(matches) > 0 {
		if _, err := root.ParseFiles(matches...); err != nil {
			return nil, errors.NewBuildError(errors.ErrCodeLayoutNotFound, "parsing layouts", err)
		}
	}

	return root, nil
}

// renderPage expands template actions in the page body, then wraps the
// result with the page's layout. Both stages see the same context; the
// layout additionally receives the rendered body as Content.
func renderPage(layouts *template.Template, page *Page, siteData map[string]interface{}) ([]byte, error) {
	ctx := PageContext{
		Site:  siteData,
		Page:  page.Data,
		Title: page.Title,
	}

	bodyTmpl, err := template.New(page.RelPath).Parse(page.Body)
	if err != nil {
		return nil, errors.ErrRenderFailed(page.SourcePath, err)
	}
	var body bytes.Buffer
	if err := bodyTmpl.Execute(&body, ctx); err != nil {
		return nil, errors.ErrRenderFailed(page.SourcePath, err)
	}
	ctx.Content = template.HTML(body.String())

	layout := layouts.Lookup(page.Layout + ".html")
	if layout == nil {
		if page.Layout != defaultLayoutName {
			return nil, errors.NewBuildError(errors.ErrCodeLayoutNotFound,
				"layout not found: "+page.Layout, nil).WithLocation(page.SourcePath, 0, 0)
		}
		layout = layouts.Lookup(defaultLayoutName)
	}

	var out bytes.Buffer
	if err := layout.Execute(&out, ctx); err != nil {
		return nil, errors.ErrRenderFailed(page.SourcePath, err)
	}
	return out.Bytes(), nil
}
