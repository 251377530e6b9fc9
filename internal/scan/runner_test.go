package scan

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gvmrun/gvmrun/internal/config"
	"github.com/gvmrun/gvmrun/internal/errors"
	"github.com/gvmrun/gvmrun/internal/gmp"
)

func runnerConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.GMP.User = "admin"
	cfg.GMP.Password = "secret"
	cfg.Scan.Targets = "10.0.0.5"
	cfg.Scan.ConfigID = "daba56c8-73ec-11df-a475-002264764cea"
	cfg.Scan.ScannerID = "08b69003-5fc2-4037-a479-93b440211c73"
	cfg.Scan.PollInterval = time.Millisecond
	cfg.Report.Dir = filepath.Join(t.TempDir(), "openvas_reports")
	require.NoError(t, cfg.Validate())
	return cfg
}

// fullRunClient scripts every response a successful end-to-end run needs.
func fullRunClient(t *testing.T) *fakeClient {
	t.Helper()
	return &fakeClient{
		portListResponses: []*gmp.Node{mustParse(t, `
			<get_port_lists_response status="200">
				<port_list id="PL1"><name>OpenVAS Default</name></port_list>
			</get_port_lists_response>`)},
		targetResponses: []*gmp.Node{mustParse(t, `
			<get_targets_response status="200">
				<target id="T1"><name>GA Target: 10.0.0.5</name></target>
			</get_targets_response>`)},
		createTaskResponse: mustParse(t,
			`<create_task_response status="201" id="J1"/>`),
		startResponse: mustParse(t,
			`<start_task_response status="202"><report_id>R1</report_id></start_task_response>`),
		taskResponses: []*gmp.Node{
			taskStatusResponse(t, "Running", 10),
			taskStatusResponse(t, "Running", 55),
			taskStatusResponse(t, "Done", 100),
		},
		reportResponse: mustParse(t, `
			<get_reports_response status="200">
				<report id="R1">&lt;report&gt;ok&lt;/report&gt;</report>
			</get_reports_response>`),
	}
}

func TestRunnerFullLifecycle(t *testing.T) {
	cfg := runnerConfig(t)
	client := fullRunClient(t)
	runner := NewRunner(cfg, client, testLogger(t))

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, client.authCalls)
	assert.Equal(t, "PL1", result.PortListID)
	assert.Equal(t, "T1", result.TargetID)
	assert.Equal(t, "J1", result.TaskID)
	assert.Equal(t, "R1", result.ReportID)
	assert.Equal(t, StatusDone, result.Status)
	assert.Equal(t, 100, result.Progress)
	assert.NotEmpty(t, result.RunID)

	wantPath := filepath.Join(cfg.Report.Dir, "R1.xml")
	assert.Equal(t, wantPath, result.ReportPath)
	data, err := os.ReadFile(wantPath)
	require.NoError(t, err)
	assert.Equal(t, "<report>ok</report>", string(data))

	// The temp file used for the atomic write must be gone.
	entries, err := os.ReadDir(cfg.Report.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "R1.xml", entries[0].Name())
}

func TestRunnerPDFReport(t *testing.T) {
	cfg := runnerConfig(t)
	cfg.Report.Format = "pdf"
	client := fullRunClient(t)
	client.reportResponse = mustParse(t, `
		<get_reports_response status="200">
			<report id="R1">`+pdfBase64Payload()+`</report>
		</get_reports_response>`)
	runner := NewRunner(cfg, client, testLogger(t))

	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Report.Dir, "R1.pdf"), result.ReportPath)
	require.Len(t, client.reportFormatIDs, 1)
	assert.Equal(t, gmp.ReportFormatPDF, client.reportFormatIDs[0])

	data, err := os.ReadFile(result.ReportPath)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(data[:5]))
}

func TestRunnerStoppedStillFetches(t *testing.T) {
	cfg := runnerConfig(t)
	client := fullRunClient(t)
	client.taskResponses = []*gmp.Node{
		taskStatusResponse(t, "Running", 40),
		taskStatusResponse(t, "Stopped", 40),
	}
	runner := NewRunner(cfg, client, testLogger(t))

	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, result.Status)
	assert.FileExists(t, result.ReportPath)
}

func TestRunnerAuthFailure(t *testing.T) {
	cfg := runnerConfig(t)
	client := fullRunClient(t)
	client.authErr = errors.NewProtocolError("authenticate", "400", "Authentication failed")
	runner := NewRunner(cfg, client, testLogger(t))

	_, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeAuthenticationFailed, errors.GetCode(err))
	assert.NoDirExists(t, cfg.Report.Dir)
}

func TestRunnerFetchFailureLeavesNoFile(t *testing.T) {
	cfg := runnerConfig(t)
	client := fullRunClient(t)
	client.reportErr = errors.NewProtocolError("get_reports", "404", "Failed to find report")
	runner := NewRunner(cfg, client, testLogger(t))

	_, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.NoDirExists(t, cfg.Report.Dir)
}

func TestRunnerCreatesMissingResources(t *testing.T) {
	cfg := runnerConfig(t)
	client := fullRunClient(t)
	client.targetResponses = []*gmp.Node{mustParse(t,
		`<get_targets_response status="200"/>`)}
	client.createTargetResponse = mustParse(t,
		`<create_target_response status="201" id="T9"/>`)
	runner := NewRunner(cfg, client, testLogger(t))

	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "T9", result.TargetID)
	assert.Equal(t, 1, client.createTargetCalls)
}

func TestWriteReportRefusesBadDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "reports")
	require.NoError(t, os.WriteFile(blocker, []byte("not a dir"), 0640))

	_, err := writeReport(blocker, "R1", FormatXML, []byte("x"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeReportWrite, errors.GetCode(err))
}

func pdfBase64Payload() string {
	raw := append([]byte("%PDF-1.4\n"), make([]byte, 300)...)
	return base64.StdEncoding.EncodeToString(raw)
}
