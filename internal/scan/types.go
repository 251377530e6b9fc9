// Package scan implements the scan lifecycle against a GVM backend: resolving
// the objects a scan needs, creating and starting the task, polling until a
// terminal state, and retrieving the rendered report.
package scan

import (
	"context"
	"time"

	"github.com/gvmrun/gvmrun/internal/gmp"
)

// Client is the slice of the GMP surface the scan lifecycle consumes.
// *gmp.Client implements it; tests substitute fakes.
type Client interface {
	Authenticate(ctx context.Context, user, password string) error
	GetPortLists(ctx context.Context, filter string) (*gmp.Node, error)
	GetTargets(ctx context.Context, filter string) (*gmp.Node, error)
	CreateTarget(ctx context.Context, name, hosts, portListID string) (*gmp.Node, error)
	CreateTask(ctx context.Context, name, configID, targetID, scannerID string) (*gmp.Node, error)
	StartTask(ctx context.Context, taskID string) (*gmp.Node, error)
	GetTask(ctx context.Context, taskID string) (*gmp.Node, error)
	GetReport(ctx context.Context, reportID, formatID string, details bool) (*gmp.Node, error)
}

// Status is a task status as reported by gvmd.
type Status string

const (
	StatusNew         Status = "New"
	StatusRequested   Status = "Requested"
	StatusQueued      Status = "Queued"
	StatusRunning     Status = "Running"
	StatusDone        Status = "Done"
	StatusStopped     Status = "Stopped"
	StatusInterrupted Status = "Interrupted"
)

// Terminal reports whether the task has finished, successfully or not.
func (s Status) Terminal() bool {
	switch s {
	case StatusDone, StatusStopped, StatusInterrupted:
		return true
	}
	return false
}

// EndedWithoutReport reports whether the task ended in a state that never
// attaches a report.
func (s Status) EndedWithoutReport() bool {
	return s == StatusStopped || s == StatusInterrupted
}

// TaskHandle identifies a started task and, once discovered, its report.
type TaskHandle struct {
	ID       string
	ReportID string
}

// SleepFunc suspends between poll iterations. Injectable so tests can run
// the unbounded loops without real delays.
type SleepFunc func(ctx context.Context, d time.Duration) error

// defaultSleep waits for the duration or until the context is canceled.
func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
