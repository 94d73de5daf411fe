// Package cmd provides the loam command-line interface.
//
// Configuration System:
//
//	The CLI supports flexible configuration through multiple sources with
//	clear precedence:
//	1. Command-line flags (--config, --port, etc.) - highest priority
//	2. LOAM_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (LOAM_SERVER_PORT, etc.)
//	4. Configuration files (.loam.yml) - lowest priority
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/loam/internal/logging"
	"github.com/conneroisu/loam/internal/upgrade"
	"github.com/conneroisu/loam/internal/version"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "loam",
	Short: "A static-site build tool with live reload",
	Long: `Loam builds static sites from plain HTML pages, layouts and front
matter, and serves them during development with live reload.

Key Features:
  • Concurrent build pipeline for pages and assets
  • YAML/TOML front matter and per-directory data files
  • Browser import-map generation and injection
  • Dev server with WebSocket live reload
  • File watching with debounced rebuilds

Quick Start:
  loam init                       Initialize a new site
  loam build                      Build the site
  loam serve                      Start the development server
  loam list                       List discovered pages and assets

Command Aliases (for faster typing):
  build (b), serve (s), watch (w), list (l), new (n)

Documentation: https://github.com/conneroisu/loam`,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		maybePrintUpgradeHint(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .loam.yml, can also use LOAM_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig initializes the configuration system.
//
// Configuration Loading Priority (highest to lowest):
//  1. --config flag: explicitly specified config file path
//  2. LOAM_CONFIG_FILE environment variable: custom config file path
//  3. Default: .loam.yml in current directory
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("LOAM_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".loam")
	}

	// Automatic environment variable binding with LOAM_ prefix, e.g.
	// LOAM_SERVER_PORT, LOAM_BUILD_OUTPUT_DIR.
	viper.SetEnvPrefix("LOAM")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the CLI logger from the --log-level flag.
func newLogger() logging.Logger {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(viper.GetString("log-level"))
	return logging.NewLogger(cfg)
}

// maybePrintUpgradeHint runs the cached upgrade check once per invocation
// and prints a hint when a newer build exists. Best effort: failures are
// logged at debug level and never affect the command's outcome.
func maybePrintUpgradeHint(cmd *cobra.Command) {
	switch cmd.Name() {
	case "upgrade", "version", "help", "completion":
		return
	}

	store, err := upgrade.DefaultFileStore()
	if err != nil {
		return
	}

	checker := upgrade.NewChecker(&upgrade.Config{
		Current: version.GetVersion(),
		Store:   store,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	info, err := checker.Check(ctx)
	if err != nil {
		newLogger().Debug(ctx, "upgrade check failed", "error", err.Error())
		return
	}
	if info != nil {
		fmt.Fprintf(os.Stderr, "\nA new version of loam is available: %s (current: %s)\n", info.Latest, info.Current)
		fmt.Fprintf(os.Stderr, "Upgrade with: %s\n", info.Command)
	}
}
