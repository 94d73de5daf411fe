// Package config provides configuration management for loam sites using
// Viper for flexible configuration loading from files, environment
// variables, and command-line flags.
//
// The configuration system supports YAML files, environment variable
// overrides with LOAM_ prefix, and validation. It manages the source and
// output directories, build concurrency, dev server settings, the user
// import map, and per-plugin option trees.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/conneroisu/loam/internal/options"
	"github.com/conneroisu/loam/internal/runner"
)

type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Build     BuildConfig     `yaml:"build"`
	Server    ServerConfig    `yaml:"server"`
	ImportMap ImportMapConfig `yaml:"import_map"`
	Plugins   PluginsConfig   `yaml:"plugins"`
}

type SiteConfig struct {
	Title   string                 `yaml:"title"`
	BaseURL string                 `yaml:"base_url"`
	Data    map[string]interface{} `yaml:"data"`
}

type BuildConfig struct {
	SourceDir   string   `yaml:"source_dir"`
	OutputDir   string   `yaml:"output_dir"`
	LayoutsDir  string   `yaml:"layouts_dir"`
	Ignore      []string `yaml:"ignore"`
	Concurrency int      `yaml:"concurrency"`
	Clean       bool     `yaml:"clean"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	Open           bool     `yaml:"open"`
	NoOpen         bool     `yaml:"no-open"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type ImportMapConfig struct {
	// Path is the user-authored import map file, relative to the project
	// root. Empty means only the canonical map is served.
	Path string `yaml:"path"`

	// Output is where the resolved map is written during builds. Empty
	// defaults to import-map.json inside the output directory.
	Output string `yaml:"output"`
}

type PluginsConfig struct {
	Enabled []string                          `yaml:"enabled"`
	Options map[string]map[string]interface{} `yaml:"options"`
}

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Handle ignore patterns set via viper (workaround for viper slice handling)
	if viper.IsSet("build.ignore") && len(config.Build.Ignore) == 0 {
		ignore := viper.GetStringSlice("build.ignore")
		if len(ignore) > 0 {
			config.Build.Ignore = ignore
		}
	}

	// Apply default values for BuildConfig if not set
	if config.Build.SourceDir == "" {
		config.Build.SourceDir = "src"
	}
	if config.Build.OutputDir == "" {
		config.Build.OutputDir = "public"
	}
	if config.Build.LayoutsDir == "" {
		config.Build.LayoutsDir = "layouts"
	}
	if len(config.Build.Ignore) == 0 {
		config.Build.Ignore = []string{"node_modules", ".git"}
	}
	if config.Build.Concurrency == 0 {
		config.Build.Concurrency = runner.DefaultLimit
	}

	// Apply default values for ServerConfig if not set
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}

	// Override no-open if explicitly set via flag
	if viper.IsSet("server.no-open") && viper.GetBool("server.no-open") {
		config.Server.Open = false
	}

	// Apply default values for SiteConfig if not set
	if config.Site.Title == "" {
		config.Site.Title = "Loam Site"
	}

	if config.Plugins.Options == nil {
		config.Plugins.Options = make(map[string]map[string]interface{})
	}
	if viper.IsSet("plugins.enabled") {
		config.Plugins.Enabled = viper.GetStringSlice("plugins.enabled")
	}

	// Validate configuration values
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// PluginOptions merges a plugin's default option tree with the user's
// overrides from plugins.options.<name>. Neither tree is mutated.
func (c *Config) PluginOptions(name string, defaults map[string]interface{}) map[string]interface{} {
	return options.MergeMaps(defaults, c.Plugins.Options[name])
}

// ImportMapOutput returns the configured import map output path, defaulting
// to import-map.json inside the output directory.
func (c *Config) ImportMapOutput() string {
	if c.ImportMap.Output != "" {
		return c.ImportMap.Output
	}
	return filepath.Join(c.Build.OutputDir, "import-map.json")
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validateBuildConfig(&config.Build); err != nil {
		return fmt.Errorf("build config: %w", err)
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Validate port range (allow 0 for system-assigned ports in testing)
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if config.Host != "" {
		// Basic validation - no dangerous characters
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
	}

	return nil
}

// validateBuildConfig validates build configuration values
func validateBuildConfig(config *BuildConfig) error {
	if config.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", config.Concurrency)
	}

	for name, path := range map[string]string{
		"source_dir":  config.SourceDir,
		"output_dir":  config.OutputDir,
		"layouts_dir": config.LayoutsDir,
	} {
		if err := validatePath(path); err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, path, err)
		}
	}

	return nil
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)

	// Reject path traversal attempts
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	// Reject dangerous characters
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
