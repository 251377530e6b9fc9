package scan

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gvmrun/gvmrun/internal/gmp"
	"github.com/gvmrun/gvmrun/internal/logging"
)

// fakeClient scripts GMP responses per operation. Response slices are
// consumed one element per call; the last element repeats once exhausted so
// idempotency tests can replay lookups.
type fakeClient struct {
	authErr   error
	authCalls int

	portListResponses []*gmp.Node
	portListErr       error
	portListFilters   []string

	targetResponses []*gmp.Node
	targetFilters   []string

	createTargetResponse *gmp.Node
	createTargetErr      error
	createTargetCalls    int

	createTaskResponse *gmp.Node
	createTaskErr      error

	startResponse *gmp.Node
	startErr      error

	taskResponses []*gmp.Node
	taskErr       error
	taskCalls     int

	reportResponse  *gmp.Node
	reportErr       error
	reportFormatIDs []string
}

func (f *fakeClient) Authenticate(_ context.Context, _, _ string) error {
	f.authCalls++
	return f.authErr
}

func (f *fakeClient) GetPortLists(_ context.Context, filter string) (*gmp.Node, error) {
	f.portListFilters = append(f.portListFilters, filter)
	if f.portListErr != nil {
		return nil, f.portListErr
	}
	return popNode(&f.portListResponses), nil
}

func (f *fakeClient) GetTargets(_ context.Context, filter string) (*gmp.Node, error) {
	f.targetFilters = append(f.targetFilters, filter)
	return popNode(&f.targetResponses), nil
}

func (f *fakeClient) CreateTarget(_ context.Context, _, _, _ string) (*gmp.Node, error) {
	f.createTargetCalls++
	if f.createTargetErr != nil {
		return nil, f.createTargetErr
	}
	return f.createTargetResponse, nil
}

func (f *fakeClient) CreateTask(_ context.Context, _, _, _, _ string) (*gmp.Node, error) {
	if f.createTaskErr != nil {
		return nil, f.createTaskErr
	}
	return f.createTaskResponse, nil
}

func (f *fakeClient) StartTask(_ context.Context, _ string) (*gmp.Node, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.startResponse, nil
}

func (f *fakeClient) GetTask(_ context.Context, _ string) (*gmp.Node, error) {
	f.taskCalls++
	if f.taskErr != nil {
		return nil, f.taskErr
	}
	return popNode(&f.taskResponses), nil
}

func (f *fakeClient) GetReport(_ context.Context, _, formatID string, _ bool) (*gmp.Node, error) {
	f.reportFormatIDs = append(f.reportFormatIDs, formatID)
	if f.reportErr != nil {
		return nil, f.reportErr
	}
	return f.reportResponse, nil
}

// popNode consumes the head of a response script, keeping the last element.
func popNode(nodes *[]*gmp.Node) *gmp.Node {
	if len(*nodes) == 0 {
		return nil
	}
	head := (*nodes)[0]
	if len(*nodes) > 1 {
		*nodes = (*nodes)[1:]
	}
	return head
}

// mustParse builds a response node from raw XML.
func mustParse(t *testing.T, raw string) *gmp.Node {
	t.Helper()
	node, err := gmp.ParseBytes([]byte(raw))
	require.NoError(t, err)
	return node
}

// testLogger returns a logger that only emits errors, keeping test output quiet.
func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.New(logging.Config{
		Level:  logging.LevelError,
		Format: logging.FormatText,
		Output: "stderr",
	})
	require.NoError(t, err)
	return logger
}

// countingSleep returns a SleepFunc that counts calls without waiting.
func countingSleep(count *int) SleepFunc {
	return func(context.Context, time.Duration) error {
		*count++
		return nil
	}
}
