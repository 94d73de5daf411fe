package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/loam/internal/config"
	"github.com/conneroisu/loam/internal/logging"
	"github.com/conneroisu/loam/internal/site"
	"github.com/conneroisu/loam/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Rebuild the site on source changes",
	Long: `Watch the source directory and rebuild the site whenever files
change, without starting the development server.

Examples:
  loam watch                      # Rebuild on every change
  loam watch --debounce 500ms     # Wait longer before rebuilding`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Duration("debounce", 300*time.Millisecond, "How long to batch changes before rebuilding")
	viper.BindPFlag("build.debounce", watchCmd.Flags().Lookup("debounce"))
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := newLogger()
	builder := site.New(cfg, logger)

	ctx, cancel := signalContext()
	defer cancel()

	if _, err := builder.Build(ctx); err != nil {
		return fmt.Errorf("initial build failed: %w", err)
	}

	fmt.Printf("👀 Watching %s for changes (Ctrl+C to stop)\n", cfg.Build.SourceDir)

	return watchAndRebuild(ctx, cfg, logger, builder, nil)
}

// watchAndRebuild watches the source tree and rebuilds on each debounced
// change batch, invoking onRebuild after every successful build. Build
// failures are reported and watching continues; the site stays at its last
// good state. Blocks until ctx is cancelled.
func watchAndRebuild(ctx context.Context, cfg *config.Config, logger logging.Logger, builder *site.Site, onRebuild func()) error {
	debounce := viper.GetDuration("build.debounce")
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}

	fw, err := watcher.NewFileWatcher(debounce)
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Stop()

	fw.AddFilter(watcher.NoOutputFilter(cfg.Build.OutputDir))
	fw.AddFilter(watcher.IgnoreFilter(cfg.Build.Ignore))
	fw.AddFilter(watcher.NoHiddenFilter)
	fw.AddFilter(watcher.NoEditorTempFilter)
	fw.AddFilter(watcher.NoGitFilter)

	fw.AddHandler(func(events []watcher.ChangeEvent) error {
		logger.Info(ctx, "source changed, rebuilding", "files", len(events))

		result, err := builder.Build(ctx)
		if err != nil {
			logger.Error(ctx, err, "rebuild failed")
			return nil
		}

		fmt.Printf("🔄 Rebuilt %d pages, %d assets in %v\n",
			result.Pages, result.Assets, result.Duration.Round(durationPrecision))
		if onRebuild != nil {
			onRebuild()
		}
		return nil
	})

	if err := fw.AddRecursive(cfg.Build.SourceDir); err != nil {
		return fmt.Errorf("watching %s: %w", cfg.Build.SourceDir, err)
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}
