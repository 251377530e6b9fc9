package cli

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	apperrors "github.com/gvmrun/gvmrun/internal/errors"
	"github.com/gvmrun/gvmrun/internal/gmp"
	"github.com/gvmrun/gvmrun/internal/logging"
	"github.com/gvmrun/gvmrun/internal/scan"
)

var (
	runFormat       string
	runReportDir    string
	runSocketPath   string
	runPollInterval int
)

// runCmd executes one full scan lifecycle.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scan and save its report",
	Long: `Run one scan lifecycle: authenticate to gvmd, resolve or create the
port list and target, create and start the scan task, poll until the task
reaches a terminal state, then fetch the report and write it to the report
directory.

Existing objects are reused: a target that already exists under the derived
name is picked up instead of being created again, so repeated runs against
the same targets do not pile up duplicate targets.`,
	Example: `  SCAN_TARGETS=10.0.0.5 gvmrun run
  gvmrun run --format pdf --report-dir /tmp/reports
  gvmrun run --socket /run/gvmd/gvmd.sock --poll-interval 30`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFormat, "format", "", "report output format: xml or pdf (default from REPORT_FORMAT)")
	runCmd.Flags().StringVar(&runReportDir, "report-dir", "", "directory to write the report to (default from REPORT_DIR)")
	runCmd.Flags().StringVar(&runSocketPath, "socket", "", "gvmd Unix socket path (default from GMP_SOCKET_PATH)")
	runCmd.Flags().IntVar(&runPollInterval, "poll-interval", 0, "seconds between status polls (default from POLL_INTERVAL)")
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Flags override the environment.
	if runFormat != "" {
		cfg.Report.Format = runFormat
	}
	if runReportDir != "" {
		cfg.Report.Dir = runReportDir
	}
	if runSocketPath != "" {
		cfg.GMP.SocketPath = runSocketPath
	}
	if runPollInterval > 0 {
		cfg.Scan.PollInterval = time.Duration(runPollInterval) * time.Second
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	initLogging(cfg)
	log := logging.Default()

	client, err := gmp.Dial(cfg.GMP.SocketPath)
	if err != nil {
		log.Error("Failed to connect to gvmd", "socket", cfg.GMP.SocketPath, "error", err)
		return err
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := scan.NewRunner(cfg, client, log)
	result, err := runner.Run(ctx)
	if err != nil {
		log.Error("Scan run failed", "code", apperrors.GetCode(err), "error", err)
		return err
	}

	displayRunSummary(result)
	return nil
}

// displayRunSummary prints the run outcome in a table format.
func displayRunSummary(result *scan.Result) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Run", "Task", "Report", "Status", "Progress", "Duration", "Saved To")

	_ = table.Append([]string{
		shortID(result.RunID),
		shortID(result.TaskID),
		shortID(result.ReportID),
		string(result.Status),
		strconv.Itoa(result.Progress) + "%",
		result.Duration.Round(time.Second).String(),
		result.ReportPath,
	})
	_ = table.Render()
}

// shortID truncates UUIDs for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8] + "..."
	}
	return id
}
