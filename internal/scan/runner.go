package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/gvmrun/gvmrun/internal/config"
	"github.com/gvmrun/gvmrun/internal/errors"
	"github.com/gvmrun/gvmrun/internal/logging"
	"github.com/gvmrun/gvmrun/internal/metrics"
)

const (
	reportDirPerm  = 0750
	reportFilePerm = 0640
)

// Result summarizes one completed scan lifecycle.
type Result struct {
	RunID      string
	PortListID string
	TargetID   string
	TaskID     string
	ReportID   string
	Status     Status
	Progress   int
	ReportPath string
	Duration   time.Duration
}

// Runner sequences the full scan lifecycle: authenticate, resolve resources,
// create and start the task, wait for a terminal state, fetch the report and
// persist it. Either the whole sequence completes and a file is written, or
// the run fails before any file exists.
type Runner struct {
	cfg    *config.Config
	client Client
	log    *logging.Logger
}

// NewRunner creates a runner for one scan lifecycle.
func NewRunner(cfg *config.Config, client Client, log *logging.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		client: client,
		log:    log,
	}
}

// Run executes the lifecycle end to end and returns the run summary.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	started := time.Now()
	result := &Result{RunID: uuid.NewString()}
	log := r.log.WithRunID(result.RunID)

	log.Debug("Resolved configuration", r.cfg.DebugFields()...)

	if err := r.client.Authenticate(ctx, r.cfg.GMP.User, r.cfg.GMP.Password); err != nil {
		return nil, err
	}
	log.InfoGMP("Authenticated to GVM")

	resolver := NewResolver(r.client, log)
	portListID, err := resolver.ResolvePortList(ctx)
	if err != nil {
		return nil, err
	}
	result.PortListID = portListID

	targetID, err := resolver.ResolveTarget(ctx, r.cfg.TargetName(), r.cfg.Scan.Targets, portListID)
	if err != nil {
		return nil, err
	}
	result.TargetID = targetID

	lifecycle := NewLifecycle(r.client, log, r.cfg.Scan.PollInterval)
	handle, err := lifecycle.CreateAndStartTask(ctx,
		r.cfg.TaskName(), r.cfg.Scan.ConfigID, targetID, r.cfg.Scan.ScannerID)
	if err != nil {
		return nil, err
	}
	result.TaskID = handle.ID
	result.ReportID = handle.ReportID

	pollStart := time.Now()
	poller := NewPoller(r.client, log, r.cfg.Scan.PollInterval)
	status, progress, err := poller.WaitForTerminal(ctx, handle.ID)
	if err != nil {
		return nil, err
	}
	metrics.RecordStageDuration("poll", time.Since(pollStart))
	result.Status = status
	result.Progress = progress

	// A stopped or interrupted task can still carry a partial report, so the
	// fetch proceeds on any terminal state.
	if status != StatusDone {
		log.Warn("Fetching report after non-completed terminal state",
			"task_id", handle.ID, "status", status)
	}

	format := Format(r.cfg.Report.Format)
	fetcher := NewFetcher(r.client, log)
	payload, err := fetcher.Fetch(ctx, handle.ReportID, format)
	if err != nil {
		return nil, err
	}

	path, err := writeReport(r.cfg.Report.Dir, handle.ReportID, format, payload)
	if err != nil {
		return nil, err
	}
	result.ReportPath = path
	result.Duration = time.Since(started)
	metrics.RecordStageDuration("run", result.Duration)

	log.Info("Saved report", "path", path, "bytes", len(payload))
	logMetricsSummary(log)
	return result, nil
}

// writeReport persists the payload under a deterministic name keyed by
// report id and format. The write goes through a temp file and a rename so
// a failure never leaves a partial report behind.
func writeReport(dir, reportID string, format Format, payload []byte) (string, error) {
	if err := os.MkdirAll(dir, reportDirPerm); err != nil {
		return "", errors.WrapScanError(errors.CodeReportWrite, "failed to create report directory", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s.%s", reportID, format.Extension()))
	tmp, err := os.CreateTemp(dir, reportID+".*.tmp")
	if err != nil {
		return "", errors.WrapScanError(errors.CodeReportWrite, "failed to create report file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", errors.WrapScanError(errors.CodeReportWrite, "failed to write report", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", errors.WrapScanError(errors.CodeReportWrite, "failed to close report file", err)
	}
	if err := os.Chmod(tmpName, reportFilePerm); err != nil {
		os.Remove(tmpName)
		return "", errors.WrapScanError(errors.CodeReportWrite, "failed to set report permissions", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", errors.WrapScanError(errors.CodeReportWrite, "failed to finalize report file", err)
	}
	return path, nil
}

// logMetricsSummary emits the collected run counters at debug level.
func logMetricsSummary(log *logging.Logger) {
	for _, m := range metrics.Global().Snapshot() {
		fields := []any{"metric", m.Name, "value", m.Value}
		for k, v := range m.Labels {
			fields = append(fields, k, v)
		}
		log.Debug("Run metric", fields...)
	}
}
