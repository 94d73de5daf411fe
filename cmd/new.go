package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/loam/internal/config"
)

var newLayout string

var newCmd = &cobra.Command{
	Use:     "new <name>",
	Aliases: []string{"n"},
	Short:   "Generate a new page",
	Long: `Generate a page skeleton in the source directory. The name becomes
the file path; nested paths create directories.

Examples:
  loam new about                  # src/about.html
  loam new blog/first-post        # src/blog/first-post.html
  loam new about --layout page    # Use layouts/page.html`,
	Args: cobra.ExactArgs(1),
	RunE: runNew,
}

func init() {
	rootCmd.AddCommand(newCmd)

	newCmd.Flags().StringVar(&newLayout, "layout", "", "Layout for the new page")
}

func runNew(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	name := strings.TrimSuffix(filepath.ToSlash(args[0]), ".html")
	if name == "" || strings.Contains(name, "..") {
		return fmt.Errorf("invalid page name: %s", args[0])
	}

	path := filepath.Join(cfg.Build.SourceDir, filepath.FromSlash(name)+".html")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}

	if err := os.WriteFile(path, []byte(pageSkeleton(name, newLayout)), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	fmt.Printf("✅ Created %s\n", path)
	return nil
}

// pageSkeleton builds the front matter and body for a generated page. The
// title comes from the last path segment, hyphens and underscores turned
// into spaces and title-cased.
func pageSkeleton(name, layout string) string {
	base := name
	if i := strings.LastIndex(name, "/"); i >= 0 {
		base = name[i+1:]
	}
	words := strings.NewReplacer("-", " ", "_", " ").Replace(base)
	title := cases.Title(language.English).String(words)

	var sb strings.Builder
	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "title: %s\n", title)
	if layout != "" {
		fmt.Fprintf(&sb, "layout: %s\n", layout)
	}
	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "<h1>%s</h1>\n", title)
	return sb.String()
}
