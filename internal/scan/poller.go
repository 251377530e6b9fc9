package scan

import (
	"context"
	"strconv"
	"time"

	"github.com/gvmrun/gvmrun/internal/errors"
	"github.com/gvmrun/gvmrun/internal/logging"
	"github.com/gvmrun/gvmrun/internal/metrics"
)

// Poller watches a running task until it reaches a terminal state.
type Poller struct {
	client   Client
	log      *logging.Logger
	interval time.Duration
	sleep    SleepFunc
}

// NewPoller creates a poller with the given poll interval.
func NewPoller(client Client, log *logging.Logger, interval time.Duration) *Poller {
	return &Poller{
		client:   client,
		log:      log.WithComponent("poller"),
		interval: interval,
		sleep:    defaultSleep,
	}
}

// WaitForTerminal polls the task status and progress until the task is Done,
// Stopped or Interrupted, logging each observation. It returns the terminal
// status so the caller can decide how to treat a non-completed scan. The
// loop is bounded only by the task terminating or the context ending.
func (p *Poller) WaitForTerminal(ctx context.Context, taskID string) (Status, int, error) {
	for {
		resp, err := p.client.GetTask(ctx, taskID)
		if err != nil {
			return "", 0, err
		}
		metrics.IncrementPolls("status")

		status := Status(resp.Find("task/status").Text())
		progress, _ := strconv.Atoi(resp.Find("task/progress").Text())
		p.log.InfoTask("Scan progress", taskID, "status", status, "progress", progress)

		if status.Terminal() {
			return status, progress, nil
		}

		if err := p.sleep(ctx, p.interval); err != nil {
			return "", 0, errors.WrapScanError(errors.CodeCanceled, "status polling canceled", err)
		}
	}
}
