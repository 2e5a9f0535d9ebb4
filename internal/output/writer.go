package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/quotecrawl/internal/model"
)

// Report formats.
const (
	ReportText     = "text"
	ReportMarkdown = "markdown"
	ReportJSON     = "json"
)

// ReportFormats lists the formats accepted by NewReportWriter.
func ReportFormats() []string {
	return []string{ReportText, ReportMarkdown, ReportJSON}
}

// ReportWriter writes the summary of a finished crawl branch.
type ReportWriter interface {
	// Write outputs the report and returns the number of bytes written.
	Write(report *model.CrawlReport) (int, error)
}

// NewReportWriter returns the report writer for format.
// version is embedded in formats that carry metadata.
func NewReportWriter(format string, w io.Writer, version string) (ReportWriter, error) {
	switch strings.ToLower(format) {
	case "", ReportText:
		return NewTextWriter(w), nil
	case ReportMarkdown, "md":
		return NewMarkdownWriter(w, version), nil
	case ReportJSON:
		return NewJSONReportWriter(w, version, WithPrettyPrint()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownReportFormat, format)
	}
}

// MultiWriter writes a report to several ReportWriters, e.g. a terminal
// summary and a report file.
type MultiWriter struct {
	writers []ReportWriter
}

// NewMultiWriter creates a ReportWriter that writes to all writers.
func NewMultiWriter(writers ...ReportWriter) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all writers and stops on the first error.
func (m *MultiWriter) Write(report *model.CrawlReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusText describes how the branch ended.
func statusText(report *model.CrawlReport) string {
	switch {
	case report.TimedOut:
		return "TIMED OUT (partial results)"
	case report.ErrorMessage != "":
		return "ERROR - " + report.ErrorMessage
	default:
		return "Complete"
	}
}

// truncateString shortens s to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
