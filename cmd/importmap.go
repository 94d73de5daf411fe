package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/loam/internal/config"
	"github.com/conneroisu/loam/internal/importmap"
)

var (
	importMapOutput string
	importMapBase   string
)

var importMapCmd = &cobra.Command{
	Use:   "importmap",
	Short: "Write the resolved import map",
	Long: `Resolve the site's import map and write it as JSON: loam's canonical
entries, overlaid with the user map from import_map.path with relative
targets resolved against the base URL.

Examples:
  loam importmap                               # Write to the configured output
  loam importmap -o map.json                   # Write to map.json
  loam importmap --base https://example.com/   # Resolve against a base URL`,
	RunE: runImportMap,
}

func init() {
	rootCmd.AddCommand(importMapCmd)

	importMapCmd.Flags().StringVarP(&importMapOutput, "output", "o", "", "Output file (default: configured import map output)")
	importMapCmd.Flags().String("base", "", "Base URL for resolving relative targets (default: site.base_url)")
}

func runImportMap(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	base := cfg.Site.BaseURL
	if flagBase, _ := cmd.Flags().GetString("base"); flagBase != "" {
		base = flagBase
	}

	var user *importmap.ImportMap
	if cfg.ImportMap.Path != "" {
		user, err = importmap.Load(cfg.ImportMap.Path)
		if err != nil {
			return err
		}
	}

	m, err := importmap.Build(user, base)
	if err != nil {
		return err
	}

	output := importMapOutput
	if output == "" {
		output = cfg.ImportMapOutput()
	}

	if err := m.WriteFile(output); err != nil {
		return err
	}

	fmt.Printf("✅ Import map written to: %s (%d entries)\n", output, len(m.Imports))
	return nil
}
