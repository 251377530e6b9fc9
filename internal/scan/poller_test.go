package scan

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gvmrun/gvmrun/internal/errors"
	"github.com/gvmrun/gvmrun/internal/gmp"
)

func taskStatusResponse(t *testing.T, status string, progress int) *gmp.Node {
	t.Helper()
	return mustParse(t, `
		<get_tasks_response status="200">
			<task id="J1">
				<status>`+status+`</status>
				<progress>`+strconv.Itoa(progress)+`</progress>
			</task>
		</get_tasks_response>`)
}

func TestWaitForTerminalDone(t *testing.T) {
	client := &fakeClient{
		taskResponses: []*gmp.Node{
			taskStatusResponse(t, "Running", 10),
			taskStatusResponse(t, "Running", 55),
			taskStatusResponse(t, "Done", 100),
		},
	}
	var sleeps int
	poller := NewPoller(client, testLogger(t), 10*time.Second)
	poller.sleep = countingSleep(&sleeps)

	status, progress, err := poller.WaitForTerminal(context.Background(), "J1")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, status)
	assert.Equal(t, 100, progress)
	assert.Equal(t, 3, client.taskCalls)
	assert.Equal(t, 2, sleeps)
}

func TestWaitForTerminalNonDoneStates(t *testing.T) {
	for _, terminal := range []string{"Stopped", "Interrupted"} {
		t.Run(terminal, func(t *testing.T) {
			client := &fakeClient{
				taskResponses: []*gmp.Node{
					taskStatusResponse(t, "Running", 40),
					taskStatusResponse(t, terminal, 40),
				},
			}
			var sleeps int
			poller := NewPoller(client, testLogger(t), 10*time.Second)
			poller.sleep = countingSleep(&sleeps)

			status, progress, err := poller.WaitForTerminal(context.Background(), "J1")
			require.NoError(t, err)
			assert.Equal(t, Status(terminal), status)
			assert.Equal(t, 40, progress)
			assert.Equal(t, 1, sleeps)
		})
	}
}

func TestWaitForTerminalImmediate(t *testing.T) {
	client := &fakeClient{
		taskResponses: []*gmp.Node{taskStatusResponse(t, "Done", 100)},
	}
	var sleeps int
	poller := NewPoller(client, testLogger(t), 10*time.Second)
	poller.sleep = countingSleep(&sleeps)

	status, _, err := poller.WaitForTerminal(context.Background(), "J1")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, status)
	assert.Equal(t, 0, sleeps)
}

func TestWaitForTerminalCanceled(t *testing.T) {
	client := &fakeClient{
		taskResponses: []*gmp.Node{taskStatusResponse(t, "Running", 10)},
	}
	poller := NewPoller(client, testLogger(t), 10*time.Second)
	poller.sleep = func(ctx context.Context, _ time.Duration) error {
		return context.Canceled
	}

	_, _, err := poller.WaitForTerminal(context.Background(), "J1")
	require.Error(t, err)
	assert.Equal(t, errors.CodeCanceled, errors.GetCode(err))
}

func TestWaitForTerminalProtocolError(t *testing.T) {
	client := &fakeClient{
		taskErr: errors.NewProtocolError("get_tasks", "500", "Internal error"),
	}
	poller := NewPoller(client, testLogger(t), 10*time.Second)

	_, _, err := poller.WaitForTerminal(context.Background(), "J1")
	require.Error(t, err)
	assert.Equal(t, errors.CodeProtocol, errors.GetCode(err))
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusDone.Terminal())
	assert.True(t, StatusStopped.Terminal())
	assert.True(t, StatusInterrupted.Terminal())
	assert.False(t, StatusRequested.Terminal())
	assert.False(t, StatusQueued.Terminal())
	assert.False(t, StatusRunning.Terminal())

	assert.True(t, StatusStopped.EndedWithoutReport())
	assert.True(t, StatusInterrupted.EndedWithoutReport())
	assert.False(t, StatusDone.EndedWithoutReport())
	assert.False(t, StatusRunning.EndedWithoutReport())
}
