package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/loam/internal/config"
	"github.com/conneroisu/loam/internal/site"
)

var listFormat string

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"l"},
	Short:   "List discovered pages and assets",
	Long: `List the pages and assets a build would process, without building.

Examples:
  loam list                       # Table of pages and assets
  loam list -f json               # Output as JSON
  loam list --format yaml         # Output as YAML`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listFormat, "format", "f", "text", "Output format (text, json, yaml)")
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	inv, err := site.New(cfg, newLogger()).Inventory()
	if err != nil {
		return fmt.Errorf("scanning source tree: %w", err)
	}

	return writeInventory(os.Stdout, inv, listFormat)
}

func writeInventory(w io.Writer, inv *site.Inventory, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(inv)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(inv)
	case "text":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, p := range inv.Pages {
			fmt.Fprintf(tw, "page\t%s\n", p)
		}
		for _, a := range inv.Assets {
			fmt.Fprintf(tw, "asset\t%s\n", a)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(w, "\n%d pages, %d assets\n", len(inv.Pages), len(inv.Assets))
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json, yaml)", format)
	}
}
