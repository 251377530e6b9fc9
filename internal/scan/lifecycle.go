package scan

import (
	"context"
	"time"

	"github.com/gvmrun/gvmrun/internal/errors"
	"github.com/gvmrun/gvmrun/internal/gmp"
	"github.com/gvmrun/gvmrun/internal/logging"
	"github.com/gvmrun/gvmrun/internal/metrics"
)

// Lifecycle creates and starts scan tasks and resolves the report id the
// run will eventually fetch.
type Lifecycle struct {
	client   Client
	log      *logging.Logger
	interval time.Duration
	sleep    SleepFunc
}

// NewLifecycle creates a lifecycle manager polling at the given interval
// while discovering the report id.
func NewLifecycle(client Client, log *logging.Logger, interval time.Duration) *Lifecycle {
	return &Lifecycle{
		client:   client,
		log:      log.WithComponent("lifecycle"),
		interval: interval,
		sleep:    defaultSleep,
	}
}

// CreateAndStartTask creates the task, starts it, and resolves the report id.
// Older gvmd versions return the report id directly in the start response;
// newer ones queue the task and the id has to be discovered by polling the
// task object until a last report is attached.
func (l *Lifecycle) CreateAndStartTask(ctx context.Context, name, configID, targetID, scannerID string) (*TaskHandle, error) {
	resp, err := l.client.CreateTask(ctx, name, configID, targetID, scannerID)
	if err != nil {
		return nil, err
	}
	taskID := resp.Attr("id")
	if taskID == "" {
		return nil, errors.NewScanErrorWithResource(errors.CodeTaskCreationFailed,
			"task creation response carried no id", name)
	}
	l.log.InfoTask("Created task", taskID, "name", name)

	start, err := l.client.StartTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if reportID := reportIDFromStart(start); reportID != "" {
		l.log.InfoTask("Task started", taskID, "report_id", reportID)
		return &TaskHandle{ID: taskID, ReportID: reportID}, nil
	}

	l.log.InfoTask("Start response carried no report id, discovering via task", taskID,
		"status", start.Attr("status"), "status_text", start.Attr("status_text"))
	reportID, err := l.discoverReportID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	l.log.InfoTask("Task started", taskID, "report_id", reportID)
	return &TaskHandle{ID: taskID, ReportID: reportID}, nil
}

// reportIDFromStart extracts the report id from a start_task response,
// accepting both the report_id element and a descendant report element.
func reportIDFromStart(start *gmp.Node) string {
	if node := start.Find("report_id"); node != nil {
		return node.Text()
	}
	for _, report := range start.Descendants("report") {
		if id := report.Attr("id"); id != "" {
			return id
		}
	}
	return ""
}

// discoverReportID polls the task until a last report is attached. The loop
// has no iteration bound: it ends when a report appears, when the task stops
// without one, or when the context is canceled.
func (l *Lifecycle) discoverReportID(ctx context.Context, taskID string) (string, error) {
	for {
		resp, err := l.client.GetTask(ctx, taskID)
		if err != nil {
			return "", err
		}
		metrics.IncrementPolls("report_id")

		if reportID := resp.Find("task/last_report/report").Attr("id"); reportID != "" {
			return reportID, nil
		}

		status := Status(resp.Find("task/status").Text())
		if status.EndedWithoutReport() {
			l.log.Debug("Raw task response", "task_id", taskID, "xml", resp.String())
			return "", errors.NewScanErrorWithResource(errors.CodeTaskStoppedBeforeReport,
				"task ended before a report was attached", taskID)
		}

		l.log.InfoTask("Waiting for report id", taskID, "status", status)
		if err := l.sleep(ctx, l.interval); err != nil {
			return "", errors.WrapScanError(errors.CodeCanceled, "report id discovery canceled", err)
		}
	}
}
