package cmd

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/loam/internal/config"
	"github.com/conneroisu/loam/internal/logging"
	"github.com/conneroisu/loam/internal/server"
	"github.com/conneroisu/loam/internal/site"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the development server with live reload",
	Long: `Build the site, serve it locally, and rebuild on source changes.
Connected browsers reload automatically after each successful rebuild.

Examples:
  loam serve                      # Serve on the configured port
  loam serve --port 3000          # Serve on port 3000
  loam serve --no-open            # Don't open the browser`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	bindServerFlags(serveCmd.Flags())
}

// bindServerFlags registers the server flag set and wires it into viper.
// Shared so any command that starts the dev server exposes the same flags.
func bindServerFlags(flags *pflag.FlagSet) {
	flags.IntP("port", "p", 8080, "Port to serve on")
	flags.String("host", "localhost", "Host to bind to")
	flags.Bool("no-open", false, "Don't open browser automatically")

	viper.BindPFlag("server.port", flags.Lookup("port"))
	viper.BindPFlag("server.host", flags.Lookup("host"))
	viper.BindPFlag("server.no-open", flags.Lookup("no-open"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := newLogger()
	builder := site.New(cfg, logger)

	ctx, cancel := signalContext()
	defer cancel()

	// Initial build so the server has something to serve.
	if _, err := builder.Build(ctx); err != nil {
		return fmt.Errorf("initial build failed: %w", err)
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Start(gctx)
	})

	g.Go(func() error {
		return watchAndRebuild(gctx, cfg, logger, builder, func() {
			if err := srv.RefreshImportMap(); err != nil {
				logger.Warn(gctx, err, "refreshing import map")
			}
			srv.NotifyReload()
		})
	})

	fmt.Printf("Serving %s at %s\n", cfg.Build.OutputDir, srv.URL())
	fmt.Println("Press Ctrl+C to stop")

	if cfg.Server.Open {
		openBrowser(gctx, logger, srv.URL())
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// openBrowser opens url in the platform browser, best effort.
func openBrowser(ctx context.Context, logger logging.Logger, url string) {
	var name string
	var args []string
	switch runtime.GOOS {
	case "darwin":
		name = "open"
	case "windows":
		name = "rundll32"
		args = []string{"url.dll,FileProtocolHandler"}
	default:
		name = "xdg-open"
	}

	if err := exec.Command(name, append(args, url)...).Start(); err != nil {
		logger.Debug(ctx, "could not open browser", "error", err.Error())
	}
}
