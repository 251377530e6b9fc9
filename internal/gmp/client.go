package gmp

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/gvmrun/gvmrun/internal/errors"
	"github.com/gvmrun/gvmrun/internal/metrics"
)

// DefaultSocketPath is where gvmd listens on a standard install.
const DefaultSocketPath = "/run/gvmd/gvmd.sock"

// Built-in gvmd report format ids.
const (
	ReportFormatXML = "c1645568-627a-11e3-a660-406186ea4fc5"
	ReportFormatPDF = "c402cc3e-b531-11e1-9163-406186ea4fc5"
)

// Client speaks GMP over a single connection. GMP is strictly
// request/response, so one session decoder over the socket is enough; the
// client is not safe for concurrent use.
type Client struct {
	conn net.Conn
	dec  *xml.Decoder
}

// Dial connects to gvmd on the given Unix socket path.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, errors.WrapProtocolError("connect", err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an established connection. Used directly by tests with
// in-memory pipes.
func NewClient(conn net.Conn) *Client {
	return &Client{
		conn: conn,
		dec:  xml.NewDecoder(conn),
	}
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// NameFilter builds a GMP filter string matching objects by exact name.
// The underlying filter language may still return partial matches; callers
// verify names on the results.
func NameFilter(name string) string {
	return fmt.Sprintf("name=%q", name)
}

// exchange writes one command and decodes the single response element the
// server sends back. Responses with a non-2xx status attribute fail the
// command.
func (c *Client) exchange(ctx context.Context, command, payload string) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapProtocolError(command, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
		defer func() { _ = c.conn.SetDeadline(time.Time{}) }()
	}

	metrics.IncrementCommands(command)
	if _, err := io.WriteString(c.conn, payload); err != nil {
		return nil, errors.WrapProtocolError(command, err)
	}

	resp, err := decodeNext(c.dec)
	if err != nil {
		return nil, errors.WrapProtocolError(command, err)
	}

	status := resp.Attr("status")
	if len(status) == 0 || status[0] != '2' {
		return nil, errors.NewProtocolError(command, status, resp.Attr("status_text"))
	}
	return resp, nil
}

// Authenticate logs in the session. Every other command requires a prior
// successful authentication.
func (c *Client) Authenticate(ctx context.Context, user, password string) error {
	payload := fmt.Sprintf(
		"<authenticate><credentials><username>%s</username><password>%s</password></credentials></authenticate>",
		escapeXML(user), escapeXML(password))
	_, err := c.exchange(ctx, "authenticate", payload)
	return err
}

// GetPortLists lists port lists, optionally narrowed by a filter string.
func (c *Client) GetPortLists(ctx context.Context, filter string) (*Node, error) {
	return c.exchange(ctx, "get_port_lists", commandWithFilter("get_port_lists", filter))
}

// GetTargets lists targets, optionally narrowed by a filter string.
func (c *Client) GetTargets(ctx context.Context, filter string) (*Node, error) {
	return c.exchange(ctx, "get_targets", commandWithFilter("get_targets", filter))
}

// CreateTarget creates a named target covering hosts, bound to a port list.
func (c *Client) CreateTarget(ctx context.Context, name, hosts, portListID string) (*Node, error) {
	payload := fmt.Sprintf(
		"<create_target><name>%s</name><hosts>%s</hosts><port_list id=\"%s\"/></create_target>",
		escapeXML(name), escapeXML(hosts), escapeXML(portListID))
	return c.exchange(ctx, "create_target", payload)
}

// CreateTask creates a scan task binding a config, a target and a scanner.
func (c *Client) CreateTask(ctx context.Context, name, configID, targetID, scannerID string) (*Node, error) {
	payload := fmt.Sprintf(
		"<create_task><name>%s</name><config id=\"%s\"/><target id=\"%s\"/><scanner id=\"%s\"/></create_task>",
		escapeXML(name), escapeXML(configID), escapeXML(targetID), escapeXML(scannerID))
	return c.exchange(ctx, "create_task", payload)
}

// StartTask starts a created task. Depending on the gvmd version the
// response may already carry the report id.
func (c *Client) StartTask(ctx context.Context, taskID string) (*Node, error) {
	payload := fmt.Sprintf("<start_task task_id=\"%s\"/>", escapeXML(taskID))
	return c.exchange(ctx, "start_task", payload)
}

// GetTask fetches a single task with details.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Node, error) {
	payload := fmt.Sprintf("<get_tasks task_id=\"%s\" details=\"1\"/>", escapeXML(taskID))
	return c.exchange(ctx, "get_tasks", payload)
}

// GetReport fetches a report rendered in the given format.
func (c *Client) GetReport(ctx context.Context, reportID, formatID string, details bool) (*Node, error) {
	detailsFlag := "0"
	if details {
		detailsFlag = "1"
	}
	payload := fmt.Sprintf(
		"<get_reports report_id=\"%s\" details=\"%s\" format_id=\"%s\"/>",
		escapeXML(reportID), detailsFlag, escapeXML(formatID))
	return c.exchange(ctx, "get_reports", payload)
}

func commandWithFilter(command, filter string) string {
	if filter == "" {
		return fmt.Sprintf("<%s/>", command)
	}
	return fmt.Sprintf("<%s filter=\"%s\"/>", command, escapeXML(filter))
}
