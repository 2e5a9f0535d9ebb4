package output

import (
	"encoding/json"
	"io"

	"github.com/nao1215/quotecrawl/internal/model"
)

// JSONReportWriter outputs reports in JSON format.
type JSONReportWriter struct {
	baseWriter

	version string

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONReportWriter.
type JSONWriterOption func(*JSONReportWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONReportWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONReportWriter creates a JSONReportWriter that outputs to the given writer.
func NewJSONReportWriter(output io.Writer, version string, opts ...JSONWriterOption) *JSONReportWriter {
	w := &JSONReportWriter{
		baseWriter: newBaseWriter(output),
		version:    version,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport wraps a report with output metadata and summaries.
type JSONReport struct {
	// Version is the quotecrawl version that generated this report.
	Version string `json:"version,omitempty"`

	// Report is the full crawl report.
	Report *model.CrawlReport `json:"report"`

	// TopAuthors lists the most quoted authors.
	TopAuthors []model.Count `json:"top_authors"`

	// TopTags lists the most frequent tags.
	TopTags []model.Count `json:"top_tags"`
}

// Write outputs the wrapped report.
func (w *JSONReportWriter) Write(report *model.CrawlReport) (int, error) {
	return w.writeJSON(&JSONReport{
		Version:    w.version,
		Report:     report,
		TopAuthors: report.TopAuthors(topCount),
		TopTags:    report.TopTags(topCount),
	})
}

// writeJSON marshals v and writes it with a trailing newline.
func (w *JSONReportWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
