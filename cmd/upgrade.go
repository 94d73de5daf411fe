package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/loam/internal/upgrade"
	"github.com/conneroisu/loam/internal/version"
)

var upgradeForce bool

var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Check for a newer version of loam",
	Long: `Check whether a newer version of loam is available. Results are
cached for 24 hours so repeated runs don't hit the network.

Stable builds are compared against the published release metadata;
development builds are compared against the latest commit.

Examples:
  loam upgrade                    # Check (cached for 24h)
  loam upgrade --force            # Ignore the cache and check now`,
	RunE: runUpgrade,
}

func init() {
	rootCmd.AddCommand(upgradeCmd)

	upgradeCmd.Flags().BoolVar(&upgradeForce, "force", false, "Ignore the 24h check cache")
}

func runUpgrade(cmd *cobra.Command, args []string) error {
	current := version.GetVersion()
	if current == "dev" {
		fmt.Println("Running a local build; upgrade checks are disabled.")
		return nil
	}

	var store upgrade.Store
	if upgradeForce {
		store = upgrade.NewMemoryStore()
	} else {
		fileStore, err := upgrade.DefaultFileStore()
		if err != nil {
			return fmt.Errorf("opening upgrade cache: %w", err)
		}
		store = fileStore
	}

	checker := upgrade.NewChecker(&upgrade.Config{
		Current: current,
		Store:   store,
	})

	info, err := checker.Check(cmd.Context())
	if err != nil {
		return fmt.Errorf("upgrade check failed: %w", err)
	}

	if info == nil {
		fmt.Printf("loam %s is up to date (or was checked within the last 24h).\n", current)
		return nil
	}

	fmt.Printf("A new version is available: %s (current: %s)\n", info.Latest, info.Current)
	fmt.Printf("Upgrade with: %s\n", info.Command)
	return nil
}
