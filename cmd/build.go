package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/loam/internal/config"
	"github.com/conneroisu/loam/internal/site"
)

// durationPrecision keeps printed build times readable.
const durationPrecision = time.Millisecond

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Build the site",
	Long: `Build the site: render every page through its layout, copy assets,
and write the resolved import map into the output directory.

Pages and assets are processed concurrently up to build.concurrency.

Examples:
  loam build                      # Build with configured settings
  loam build --clean              # Remove the output directory first
  loam build --concurrency 16     # Cap concurrent file processing`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().Bool("clean", false, "Remove the output directory before building")
	buildCmd.Flags().Int("concurrency", 0, "Maximum files processed concurrently (0 = default)")
	buildCmd.Flags().String("source", "", "Source directory (overrides config)")
	buildCmd.Flags().StringP("output", "o", "", "Output directory (overrides config)")

	viper.BindPFlag("build.clean", buildCmd.Flags().Lookup("clean"))
	viper.BindPFlag("build.concurrency", buildCmd.Flags().Lookup("concurrency"))
	viper.BindPFlag("build.source_dir", buildCmd.Flags().Lookup("source"))
	viper.BindPFlag("build.output_dir", buildCmd.Flags().Lookup("output"))
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Println("🔨 Building site...")

	result, err := site.New(cfg, newLogger()).Build(ctx)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	fmt.Printf("✅ Build completed in %v\n", result.Duration.Round(durationPrecision))
	fmt.Printf("   - %d pages rendered\n", result.Pages)
	fmt.Printf("   - %d assets copied\n", result.Assets)
	fmt.Printf("   - Output written to: %s\n", result.Output)
	return nil
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
