package scan

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/gvmrun/gvmrun/internal/errors"
	"github.com/gvmrun/gvmrun/internal/gmp"
	"github.com/gvmrun/gvmrun/internal/logging"
)

// minBase64Length is how long a text payload must be before it is treated
// as an embedded base64 document rather than incidental element text.
const minBase64Length = 200

// Format is a report output encoding.
type Format string

const (
	FormatXML Format = "xml"
	FormatPDF Format = "pdf"
)

// ID returns the gvmd report format id for the encoding.
func (f Format) ID() string {
	if f == FormatPDF {
		return gmp.ReportFormatPDF
	}
	return gmp.ReportFormatXML
}

// Extension returns the output file extension for the encoding.
func (f Format) Extension() string {
	return string(f)
}

// Fetcher retrieves rendered reports and extracts their payloads.
type Fetcher struct {
	client Client
	log    *logging.Logger
}

// NewFetcher creates a report fetcher over the given client.
func NewFetcher(client Client, log *logging.Logger) *Fetcher {
	return &Fetcher{
		client: client,
		log:    log.WithComponent("fetcher"),
	}
}

// Fetch retrieves the report in the requested encoding and returns the
// decoded payload bytes. The encoding is chosen by the caller; there is no
// auto-detection.
func (f *Fetcher) Fetch(ctx context.Context, reportID string, format Format) ([]byte, error) {
	f.log.Info("Fetching report", "report_id", reportID, "format", format)
	resp, err := f.client.GetReport(ctx, reportID, format.ID(), true)
	if err != nil {
		return nil, err
	}

	if format == FormatPDF {
		return extractBase64(resp, reportID)
	}
	return extractText(resp, reportID)
}

// extractText returns the text body of the first report node that has one.
func extractText(resp *gmp.Node, reportID string) ([]byte, error) {
	for _, report := range resp.FindAll("report") {
		text := report.Text()
		if strings.TrimSpace(text) != "" {
			return []byte(text), nil
		}
	}
	return nil, errors.NewScanErrorWithResource(errors.CodeEmptyReportBody,
		"report body is empty", reportID)
}

// extractBase64 scans every report node for an embedded base64 document and
// decodes the first plausible one.
func extractBase64(resp *gmp.Node, reportID string) ([]byte, error) {
	for _, report := range resp.Descendants("report") {
		candidate := strings.TrimSpace(report.Text())
		if !plausibleBase64(candidate) {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(candidate)
		if err != nil {
			return nil, errors.WrapScanError(errors.CodeBase64Decode,
				"report payload failed base64 decoding", err)
		}
		return decoded, nil
	}
	return nil, errors.NewScanErrorWithResource(errors.CodeNoBase64PayloadFound,
		"no base64 payload found in report", reportID)
}

// plausibleBase64 reports whether s looks like an embedded base64 document:
// longer than the minimum threshold and made only of base64 alphabet
// characters.
func plausibleBase64(s string) bool {
	if len(s) <= minBase64Length {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '+' || r == '/' || r == '=':
		default:
			return false
		}
	}
	return true
}
