package site

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/conneroisu/loam/internal/config"
	"github.com/conneroisu/loam/internal/errors"
	"github.com/conneroisu/loam/internal/importmap"
	"github.com/conneroisu/loam/internal/logging"
	"github.com/conneroisu/loam/internal/options"
	"github.com/conneroisu/loam/internal/runner"
)

// dataFileName is the per-directory data file merged into every page below
// that directory.
const dataFileName = "_data.yml"

// Site builds a static site from a source tree: pages are .html files
// rendered through layouts, everything else is copied as an asset.
type Site struct {
	cfg    *config.Config
	logger logging.Logger
}

// Page is a source file rendered through the layout chain.
type Page struct {
	SourcePath string
	RelPath    string
	Layout     string
	Title      string
	Body       string
	Data       map[string]interface{}
}

// Asset is a source file copied to the output byte-for-byte.
type Asset struct {
	SourcePath string
	RelPath    string
}

// BuildResult summarizes a completed build.
type BuildResult struct {
	Pages    int           `json:"pages"`
	Assets   int           `json:"assets"`
	Duration time.Duration `json:"duration"`
	Output   string        `json:"output"`
}

// Inventory lists the source files a build would process.
type Inventory struct {
	Pages  []string `json:"pages" yaml:"pages"`
	Assets []string `json:"assets" yaml:"assets"`
}

// item is a unit of work for the build runner.
type item struct {
	isPage  bool
	absPath string
	relPath string
	dirData map[string]interface{}
}

// New creates a Site for cfg.
func New(cfg *config.Config, logger logging.Logger) *Site {
	if logger == nil {
		logger = logging.NewLogger(nil)
	}
	return &Site{cfg: cfg, logger: logger.WithComponent("site")}
}

// Build renders every page and copies every asset from the source tree
// into the output directory, processing files concurrently up to the
// configured limit, then writes the resolved import map. The first failing
// file aborts the build.
func (s *Site) Build(ctx context.Context) (*BuildResult, error) {
	start := time.Now()

	items, err := s.scan()
	if err != nil {
		return nil, err
	}

	if s.cfg.Build.Clean {
		if err := os.RemoveAll(s.cfg.Build.OutputDir); err != nil {
			return nil, errors.NewIOError(errors.ErrCodeInternalError, "cleaning output directory", err)
		}
	}
	if err := os.MkdirAll(s.cfg.Build.OutputDir, 0755); err != nil {
		return nil, errors.NewIOError(errors.ErrCodeInternalError, "creating output directory", err)
	}

	layouts, err := loadLayouts(s.cfg.Build.LayoutsDir)
	if err != nil {
		return nil, err
	}
	siteData := s.siteData()

	pages, assets := 0, 0
	for _, it := range items {
		if it.isPage {
			pages++
		} else {
			assets++
		}
	}

	worker := func(ctx context.Context, it item) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if it.isPage {
			return s.buildPage(layouts, siteData, it)
		}
		return s.copyAsset(it)
	}

	err = runner.Run(ctx, runner.FromSlice(items), worker,
		runner.WithLimit(s.cfg.Build.Concurrency))
	if err != nil {
		return nil, err
	}

	if err := s.writeImportMap(); err != nil {
		return nil, err
	}

	result := &BuildResult{
		Pages:    pages,
		Assets:   assets,
		Duration: time.Since(start),
		Output:   s.cfg.Build.OutputDir,
	}
	s.logger.Info(ctx, "build complete",
		"pages", result.Pages,
		"assets", result.Assets,
		"duration", result.Duration.String())
	return result, nil
}

// Inventory scans the source tree without building anything.
func (s *Site) Inventory() (*Inventory, error) {
	items, err := s.scan()
	if err != nil {
		return nil, err
	}

	inv := &Inventory{Pages: []string{}, Assets: []string{}}
	for _, it := range items {
		if it.isPage {
			inv.Pages = append(inv.Pages, it.relPath)
		} else {
			inv.Assets = append(inv.Assets, it.relPath)
		}
	}
	return inv, nil
}

// scan walks the source tree classifying pages and assets and collecting
// the per-directory data cascade. Files and directories whose name starts
// with an underscore are inputs to the build, never outputs.
func (s *Site) scan() ([]item, error) {
	sourceDir := s.cfg.Build.SourceDir
	if _, err := os.Stat(sourceDir); err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotFound, "source directory not found", err).
			WithLocation(sourceDir, 0, 0)
	}

	outputAbs, err := filepath.Abs(s.cfg.Build.OutputDir)
	if err != nil {
		return nil, errors.ErrInvalidPath(s.cfg.Build.OutputDir)
	}

	dirData := map[string]map[string]interface{}{}
	var items []item

	walkErr := filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}

		if d.IsDir() {
			if rel != "." {
				abs, _ := filepath.Abs(path)
				if abs == outputAbs {
					return filepath.SkipDir
				}
				if s.ignored(rel) || strings.HasPrefix(d.Name(), "_") {
					return filepath.SkipDir
				}
			}
			parent := map[string]interface{}{}
			if rel != "." {
				parent = dirData[filepath.Dir(rel)]
			}
			data, err := s.loadDirData(path, parent)
			if err != nil {
				return err
			}
			dirData[rel] = data
			return nil
		}

		if s.ignored(rel) || strings.HasPrefix(d.Name(), "_") {
			return nil
		}

		items = append(items, item{
			isPage:  strings.EqualFold(filepath.Ext(path), ".html"),
			absPath: path,
			relPath: rel,
			dirData: dirData[filepath.Dir(rel)],
		})
		return nil
	})
	if walkErr != nil {
		return nil, errors.NewIOError(errors.ErrCodeInternalError, "scanning source tree", walkErr)
	}

	return items, nil
}

// loadDirData merges a directory's _data.yml over the data inherited from
// its parent directory.
func (s *Site) loadDirData(dir string, parent map[string]interface{}) (map[string]interface{}, error) {
	path := filepath.Join(dir, dataFileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return parent, nil
		}
		return nil, errors.NewIOError(errors.ErrCodeInternalError, "reading data file", err).
			WithLocation(path, 0, 0)
	}

	decoded, err := decodeDataFile(path, raw)
	if err != nil {
		return nil, err
	}
	return options.MergeMaps(parent, decoded), nil
}

// buildPage parses, renders and writes one page.
func (s *Site) buildPage(layouts *template.Template, siteData map[string]interface{}, it item) error {
	content, err := os.ReadFile(it.absPath)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotFound, "reading page", err).
			WithLocation(it.absPath, 0, 0)
	}

	meta, body, err := parseFrontMatter(it.absPath, content)
	if err != nil {
		return err
	}

	page := &Page{
		SourcePath: it.absPath,
		RelPath:    it.relPath,
		Body:       body,
		Data:       options.MergeMaps(it.dirData, meta),
	}
	page.Layout = stringField(page.Data, "layout", defaultLayoutName)
	page.Title = stringField(page.Data, "title", s.cfg.Site.Title)

	rendered, err := renderPage(layouts, page, siteData)
	if err != nil {
		return err
	}

	return s.writeOutput(it.relPath, rendered)
}

// copyAsset copies one asset into the output tree.
func (s *Site) copyAsset(it item) error {
	data, err := os.ReadFile(it.absPath)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotFound, "reading asset", err).
			WithLocation(it.absPath, 0, 0)
	}
	return s.writeOutput(it.relPath, data)
}

func (s *Site) writeOutput(relPath string, data []byte) error {
	dest := filepath.Join(s.cfg.Build.OutputDir, relPath)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return errors.NewIOError(errors.ErrCodeInternalError, "creating output directory", err)
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return errors.NewIOError(errors.ErrCodeInternalError, "writing output file", err).
			WithLocation(dest, 0, 0)
	}
	return nil
}

// writeImportMap resolves and writes the import map served with the site.
func (s *Site) writeImportMap() error {
	var user *importmap.ImportMap
	if s.cfg.ImportMap.Path != "" {
		loaded, err := importmap.Load(s.cfg.ImportMap.Path)
		if err != nil {
			return err
		}
		user = loaded
	}

	m, err := importmap.Build(user, s.cfg.Site.BaseURL)
	if err != nil {
		return err
	}
	return m.WriteFile(s.cfg.ImportMapOutput())
}

// siteData assembles the Site template context from configuration.
func (s *Site) siteData() map[string]interface{} {
	base := map[string]interface{}{
		"title":    s.cfg.Site.Title,
		"base_url": s.cfg.Site.BaseURL,
	}
	return options.MergeMaps(base, s.cfg.Site.Data)
}

// ignored reports whether a source-relative path matches an ignore pattern.
// Patterns match whole path segments or glob against the base name.
func (s *Site) ignored(rel string) bool {
	base := filepath.Base(rel)
	for _, pattern := range s.cfg.Build.Ignore {
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			return true
		}
		for _, segment := range strings.Split(filepath.ToSlash(rel), "/") {
			if segment == pattern {
				return true
			}
		}
	}
	return false
}

func stringField(data map[string]interface{}, key, fallback string) string {
	if v, ok := data[key]; ok {
		if str, ok := v.(string); ok && str != "" {
			return str
		}
		return fmt.Sprint(v)
	}
	return fallback
}
