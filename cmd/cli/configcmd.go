package cli

import (
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// configCmd shows the configuration as the run command would resolve it.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	Long: `Show the configuration resolved from the environment, the optional
.env file and the --config file, with secrets redacted. Useful for checking
what a run would use before starting one.`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Setting", "Value")

	rows := [][]string{
		{"GMP user", cfg.GMP.User},
		{"GMP password", "[redacted]"},
		{"Socket path", cfg.GMP.SocketPath},
		{"Scan targets", cfg.Scan.Targets},
		{"Scan config id", cfg.Scan.ConfigID},
		{"Scanner id", cfg.Scan.ScannerID},
		{"Target name", cfg.TargetName()},
		{"Task name", cfg.TaskName()},
		{"Poll interval", cfg.Scan.PollInterval.String()},
		{"Report dir", cfg.Report.Dir},
		{"Report format", cfg.Report.Format},
		{"Report format id", cfg.ReportFormatID()},
	}
	for _, row := range rows {
		_ = table.Append(row)
	}
	return table.Render()
}
