package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	initInteractive bool
	initForce       bool
)

var initCmd = &cobra.Command{
	Use:     "init [directory]",
	Aliases: []string{"i"},
	Short:   "Initialize a new site",
	Long: `Initialize a new loam site: configuration file, a source directory
with a starting page, and a default layout.

Examples:
  loam init                       # Initialize in the current directory
  loam init my-site               # Initialize in ./my-site
  loam init --interactive         # Answer prompts for title and directories`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initInteractive, "interactive", false, "Prompt for site settings")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing files")
}

// siteScaffold holds the answers that shape a new site.
type siteScaffold struct {
	Title     string
	SourceDir string
	OutputDir string
}

func runInit(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	scaffold := siteScaffold{
		Title:     "My Loam Site",
		SourceDir: "src",
		OutputDir: "public",
	}
	if initInteractive {
		if err := promptScaffold(&scaffold); err != nil {
			return err
		}
	}

	if err := writeScaffold(root, scaffold, initForce); err != nil {
		return err
	}

	fmt.Printf("✅ Site initialized in %s\n", root)
	fmt.Println("\nNext steps:")
	if root != "." {
		fmt.Printf("  cd %s\n", root)
	}
	fmt.Println("  loam serve")
	return nil
}

// promptScaffold fills scaffold from stdin, keeping defaults on empty input.
func promptScaffold(scaffold *siteScaffold) error {
	reader := bufio.NewReader(os.Stdin)

	ask := func(question, fallback string) (string, error) {
		fmt.Printf("%s [%s]: ", question, fallback)
		answer, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		answer = strings.TrimSpace(answer)
		if answer == "" {
			return fallback, nil
		}
		return answer, nil
	}

	var err error
	if scaffold.Title, err = ask("Site title", scaffold.Title); err != nil {
		return err
	}
	if scaffold.SourceDir, err = ask("Source directory", scaffold.SourceDir); err != nil {
		return err
	}
	if scaffold.OutputDir, err = ask("Output directory", scaffold.OutputDir); err != nil {
		return err
	}
	return nil
}

// writeScaffold creates the initial site files under root.
func writeScaffold(root string, scaffold siteScaffold, force bool) error {
	files := map[string]string{
		".loam.yml": fmt.Sprintf(`site:
  title: %q

build:
  source_dir: %q
  output_dir: %q

server:
  port: 8080
  host: localhost
`, scaffold.Title, scaffold.SourceDir, scaffold.OutputDir),

		filepath.Join(scaffold.SourceDir, "index.html"): `---
title: Home
---
<h1>{{.Title}}</h1>
<p>Welcome to {{.Site.title}}. Edit this page in ` + scaffold.SourceDir + `/index.html.</p>
`,

		filepath.Join("layouts", "default.html"): `<!DOCTYPE html>
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
`,
	}

	for rel, content := range files {
		path := filepath.Join(root, rel)

		if !force {
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
		}

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	return nil
}
