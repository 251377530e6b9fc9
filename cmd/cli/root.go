// Package cli provides the command-line interface for gvmrun. It implements
// the cobra command tree with commands for running a scan lifecycle and
// inspecting the resolved configuration.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gvmrun/gvmrun/internal/config"
	"github.com/gvmrun/gvmrun/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "gvmrun",
	Short: "OpenVAS scan runner",
	Long: `gvmrun drives a GVM/OpenVAS backend through GMP over a local Unix
socket: it resolves or creates the objects a scan needs, starts the scan,
waits for it to finish and saves the report in XML or PDF form.

Configuration comes from the environment (GMP_USER, GMP_PASSWORD,
SCAN_TARGETS, SCAN_CONFIG_ID, SCANNER_ID and friends), optionally loaded
from a local .env file.`,
	Version:       getVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadDotEnv)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "optional YAML config file overriding the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadDotEnv loads a local .env file when present. Real environment
// variables keep precedence over file values.
func loadDotEnv() {
	if err := godotenv.Load(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Loaded environment from .env")
	}
}

// loadConfig builds the configuration from the environment and the optional
// config file flag.
func loadConfig() (*config.Config, error) {
	return config.LoadWithFile(cfgFile)
}

// initLogging initializes structured logging from the loaded configuration.
func initLogging(cfg *config.Config) {
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:     logging.LogLevel(level),
		Format:    logging.LogFormat(cfg.Logging.Format),
		Output:    cfg.Logging.Output,
		AddSource: level == "debug",
	})
	if err != nil {
		logger = logging.NewDefault()
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}
	logging.SetDefault(logger)
}

// getVersion returns the version string.
func getVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)
}

// SetVersion sets the version information (called from main).
func SetVersion(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
	rootCmd.Version = getVersion()
}
