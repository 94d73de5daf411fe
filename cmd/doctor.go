package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/conneroisu/loam/internal/config"
	"github.com/conneroisu/loam/internal/importmap"
	"github.com/conneroisu/loam/internal/version"
)

var doctorFormat string

// doctorCheck is one diagnostic result.
type doctorCheck struct {
	Name       string `json:"name" yaml:"name"`
	Status     string `json:"status" yaml:"status"` // "ok", "warning", "error"
	Message    string `json:"message" yaml:"message"`
	Suggestion string `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

// doctorReport is the full diagnostic output.
type doctorReport struct {
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
	Version   string        `json:"version" yaml:"version"`
	Checks    []doctorCheck `json:"checks" yaml:"checks"`
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose site and environment problems",
	Long: `Run diagnostics against the current site: configuration validity,
directory layout, and import map health.

Examples:
  loam doctor                     # Human-readable report
  loam doctor --format yaml       # YAML report for tooling`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().StringVarP(&doctorFormat, "format", "f", "text", "Output format (text, yaml)")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	report := doctorReport{
		Timestamp: time.Now(),
		Version:   version.GetVersion(),
		Checks:    collectChecks(),
	}

	switch doctorFormat {
	case "yaml":
		data, err := yaml.Marshal(report)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
	case "text":
		printDoctorText(report)
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, yaml)", doctorFormat)
	}

	for _, check := range report.Checks {
		if check.Status == "error" {
			return fmt.Errorf("doctor found problems")
		}
	}
	return nil
}

func collectChecks() []doctorCheck {
	var checks []doctorCheck

	// Configuration loads and validates.
	cfg, err := config.Load()
	if err != nil {
		checks = append(checks, doctorCheck{
			Name:       "configuration",
			Status:     "error",
			Message:    err.Error(),
			Suggestion: "Fix .loam.yml or run 'loam init' to generate one",
		})
		return checks
	}
	name := "defaults"
	if used := viper.ConfigFileUsed(); used != "" {
		name = used
	}
	checks = append(checks, doctorCheck{
		Name:    "configuration",
		Status:  "ok",
		Message: "loaded from " + name,
	})

	// Source directory exists.
	if info, err := os.Stat(cfg.Build.SourceDir); err != nil || !info.IsDir() {
		checks = append(checks, doctorCheck{
			Name:       "source directory",
			Status:     "error",
			Message:    cfg.Build.SourceDir + " does not exist",
			Suggestion: "Run 'loam init' or set build.source_dir",
		})
	} else {
		checks = append(checks, doctorCheck{
			Name:    "source directory",
			Status:  "ok",
			Message: cfg.Build.SourceDir,
		})
	}

	// Layouts directory is optional; the built-in layout covers its absence.
	if info, err := os.Stat(cfg.Build.LayoutsDir); err != nil || !info.IsDir() {
		checks = append(checks, doctorCheck{
			Name:       "layouts",
			Status:     "warning",
			Message:    cfg.Build.LayoutsDir + " not found, using the built-in layout",
			Suggestion: "Create " + cfg.Build.LayoutsDir + "/default.html to customize pages",
		})
	} else {
		checks = append(checks, doctorCheck{
			Name:    "layouts",
			Status:  "ok",
			Message: cfg.Build.LayoutsDir,
		})
	}

	// User import map parses when configured.
	if cfg.ImportMap.Path != "" {
		if _, err := importmap.Load(cfg.ImportMap.Path); err != nil {
			checks = append(checks, doctorCheck{
				Name:       "import map",
				Status:     "error",
				Message:    err.Error(),
				Suggestion: "Fix the JSON in " + cfg.ImportMap.Path,
			})
		} else {
			checks = append(checks, doctorCheck{
				Name:    "import map",
				Status:  "ok",
				Message: cfg.ImportMap.Path,
			})
		}
	}

	return checks
}

func printDoctorText(report doctorReport) {
	icons := map[string]string{"ok": "✅", "warning": "⚠️", "error": "❌"}

	fmt.Printf("loam doctor (%s)\n\n", report.Version)
	for _, check := range report.Checks {
		fmt.Printf("%s %s: %s\n", icons[check.Status], check.Name, check.Message)
		if check.Suggestion != "" {
			fmt.Printf("   → %s\n", check.Suggestion)
		}
	}
}
