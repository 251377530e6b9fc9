// Package config builds the gvmrun configuration from process environment
// variables, with optional YAML file overrides. The configuration is
// constructed once at process entry and passed down explicitly; there are
// no ambient globals.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	apperrors "github.com/gvmrun/gvmrun/internal/errors"
	"github.com/gvmrun/gvmrun/internal/gmp"
)

const (
	defaultReportDir      = "openvas_reports"
	defaultPollSeconds    = 10
	defaultTaskNamePrefix = "GitHub Actions Scan"
)

// Config represents the complete gvmrun configuration.
type Config struct {
	// GMP connection and credentials
	GMP GMPConfig `yaml:"gmp" json:"gmp"`

	// Scan definition
	Scan ScanConfig `yaml:"scan" json:"scan"`

	// Report output
	Report ReportConfig `yaml:"report" json:"report"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// GMPConfig holds connection and credential settings for gvmd.
type GMPConfig struct {
	// Username for GMP authentication
	User string `yaml:"user" json:"user" validate:"required"`

	// Password for GMP authentication
	Password string `yaml:"password" json:"password" validate:"required"`

	// Unix socket path where gvmd listens
	SocketPath string `yaml:"socket_path" json:"socket_path" validate:"required"`
}

// ScanConfig holds the definition of the scan to run.
type ScanConfig struct {
	// Hosts to scan, in gvmd hosts syntax (e.g. "10.0.0.5" or a CIDR)
	Targets string `yaml:"targets" json:"targets" validate:"required"`

	// Scan config id (e.g. the id of "Full and fast")
	ConfigID string `yaml:"config_id" json:"config_id" validate:"required"`

	// Scanner id, visible in the web UI
	ScannerID string `yaml:"scanner_id" json:"scanner_id" validate:"required"`

	// Prefix for the generated task name
	TaskNamePrefix string `yaml:"task_name_prefix" json:"task_name_prefix"`

	// Interval between status polls
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval" validate:"gt=0"`
}

// ReportConfig holds report output settings.
type ReportConfig struct {
	// Directory the report file is written to
	Dir string `yaml:"dir" json:"dir" validate:"required"`

	// Output encoding: xml or pdf
	Format string `yaml:"format" json:"format" validate:"oneof=xml pdf"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level" json:"level"`

	// Log format (text, json)
	Format string `yaml:"format" json:"format"`

	// Log output (stdout, stderr, file path)
	Output string `yaml:"output" json:"output"`
}

// envBindings maps viper keys to the environment variables they load from.
// The env names are the ones the CI workflows already set.
var envBindings = map[string]string{
	"gmp.user":              "GMP_USER",
	"gmp.password":          "GMP_PASSWORD",
	"gmp.socket_path":       "GMP_SOCKET_PATH",
	"scan.targets":          "SCAN_TARGETS",
	"scan.config_id":        "SCAN_CONFIG_ID",
	"scan.scanner_id":       "SCANNER_ID",
	"scan.task_name_prefix": "TASK_NAME_PREFIX",
	"scan.poll_interval":    "POLL_INTERVAL",
	"report.dir":            "REPORT_DIR",
	"report.format":         "REPORT_FORMAT",
	"logging.level":         "LOG_LEVEL",
	"logging.format":        "LOG_FORMAT",
	"logging.output":        "LOG_OUTPUT",
}

// fieldEnv maps validated struct paths back to env names for diagnostics.
var fieldEnv = map[string]string{
	"Config.GMP.User":          "GMP_USER",
	"Config.GMP.Password":      "GMP_PASSWORD",
	"Config.GMP.SocketPath":    "GMP_SOCKET_PATH",
	"Config.Scan.Targets":      "SCAN_TARGETS",
	"Config.Scan.ConfigID":     "SCAN_CONFIG_ID",
	"Config.Scan.ScannerID":    "SCANNER_ID",
	"Config.Scan.PollInterval": "POLL_INTERVAL",
	"Config.Report.Dir":        "REPORT_DIR",
	"Config.Report.Format":     "REPORT_FORMAT",
}

// Default returns a configuration with sensible defaults. Required fields
// stay empty and fail validation until provided.
func Default() *Config {
	return &Config{
		GMP: GMPConfig{
			SocketPath: gmp.DefaultSocketPath,
		},
		Scan: ScanConfig{
			TaskNamePrefix: defaultTaskNamePrefix,
			PollInterval:   defaultPollSeconds * time.Second,
		},
		Report: ReportConfig{
			Dir:    defaultReportDir,
			Format: "xml",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load builds the configuration from the environment.
func Load() (*Config, error) {
	return LoadWithFile("")
}

// LoadWithFile builds the configuration from the environment, with values
// from an optional YAML file taking effect where the environment is silent.
func LoadWithFile(path string) (*Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("gmp.socket_path", defaults.GMP.SocketPath)
	v.SetDefault("scan.task_name_prefix", defaults.Scan.TaskNamePrefix)
	v.SetDefault("scan.poll_interval", defaultPollSeconds)
	v.SetDefault("report.dir", defaults.Report.Dir)
	v.SetDefault("report.format", defaults.Report.Format)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.output", defaults.Logging.Output)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, apperrors.WrapConfigError("failed to bind environment", err)
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.WrapConfigError("failed to read config file", err)
		}
		var fileValues map[string]any
		if err := yaml.Unmarshal(data, &fileValues); err != nil {
			return nil, apperrors.WrapConfigError("failed to parse config file", err)
		}
		if err := v.MergeConfigMap(fileValues); err != nil {
			return nil, apperrors.WrapConfigError("failed to merge config file", err)
		}
	}

	config := &Config{
		GMP: GMPConfig{
			User:       v.GetString("gmp.user"),
			Password:   v.GetString("gmp.password"),
			SocketPath: v.GetString("gmp.socket_path"),
		},
		Scan: ScanConfig{
			Targets:        strings.TrimSpace(v.GetString("scan.targets")),
			ConfigID:       v.GetString("scan.config_id"),
			ScannerID:      v.GetString("scan.scanner_id"),
			TaskNamePrefix: v.GetString("scan.task_name_prefix"),
			PollInterval:   time.Duration(v.GetInt("scan.poll_interval")) * time.Second,
		},
		Report: ReportConfig{
			Dir:    v.GetString("report.dir"),
			Format: strings.ToLower(v.GetString("report.format")),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
			Output: v.GetString("logging.output"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration, reporting missing required environment
// values by their environment variable name.
func (c *Config) Validate() error {
	validate := validator.New()
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.WrapConfigError("configuration validation failed", err)
	}

	first := validationErrors[0]
	env := fieldEnv[first.StructNamespace()]
	if env == "" {
		env = first.StructNamespace()
	}
	if first.Tag() == "required" {
		return apperrors.ErrConfigMissing(env)
	}
	return apperrors.WrapConfigError(
		fmt.Sprintf("invalid value for %s", env),
		fmt.Errorf("failed %q constraint", first.Tag()))
}

// TargetName returns the idempotent-lookup name for the scan target.
func (c *Config) TargetName() string {
	return fmt.Sprintf("GA Target: %s", c.Scan.Targets)
}

// TaskName returns the idempotent-lookup name for the scan task.
func (c *Config) TaskName() string {
	return fmt.Sprintf("%s (%s)", c.Scan.TaskNamePrefix, c.Scan.Targets)
}

// ReportFormatID returns the gvmd report format id for the configured output
// encoding.
func (c *Config) ReportFormatID() string {
	if c.Report.Format == "pdf" {
		return gmp.ReportFormatPDF
	}
	return gmp.ReportFormatXML
}

// DebugFields returns the resolved configuration as log fields with secrets
// redacted, for the startup debug dump.
func (c *Config) DebugFields() []any {
	return []any{
		"gmp_user", c.GMP.User,
		"gmp_socket_path", c.GMP.SocketPath,
		"scan_targets", c.Scan.Targets,
		"scan_config_id", c.Scan.ConfigID,
		"scanner_id", c.Scan.ScannerID,
		"task_name_prefix", c.Scan.TaskNamePrefix,
		"poll_interval", c.Scan.PollInterval,
		"report_dir", c.Report.Dir,
		"report_format", c.Report.Format,
	}
}
