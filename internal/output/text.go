package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/quotecrawl/internal/model"
)

// topCount is the number of authors and tags shown in summaries.
const topCount = 10

// TextWriter outputs human-readable text reports.
type TextWriter struct {
	baseWriter

	// verbose adds the per-page table and the tag list.
	verbose bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithVerbose enables the per-page and tag sections.
func WithVerbose(verbose bool) TextWriterOption {
	return func(w *TextWriter) {
		w.verbose = verbose
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report.
func (w *TextWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	if w.verbose {
		w.writePages(&sb, report)
	}
	w.writeCounts(&sb, "TOP AUTHORS", report.TopAuthors(topCount))
	if w.verbose {
		w.writeCounts(&sb, "TOP TAGS", report.TopTags(topCount))
	}
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

func (w *TextWriter) writeHeader(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        QUOTECRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Seed:           %s\n", report.Seed)
	if !report.StartedAt.IsZero() {
		fmt.Fprintf(sb, "Started:        %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(sb, "Duration:       %s\n", report.Duration().Round(1e6))
	fmt.Fprintf(sb, "Pages:          %d\n", report.PageCount())
	fmt.Fprintf(sb, "Records:        %d\n", report.RecordCount())
	if missing := report.MissingFieldCount(); missing > 0 {
		fmt.Fprintf(sb, "Missing fields: %d\n", missing)
	}
	if report.StopReason != model.StopNone {
		fmt.Fprintf(sb, "Stopped:        %s (%s)\n", report.StopReason, report.StopReason.Description())
	}
	if report.StopDetail != "" && report.ErrorMessage == "" {
		fmt.Fprintf(sb, "Detail:         %s\n", report.StopDetail)
	}
	if report.RunID != 0 {
		fmt.Fprintf(sb, "Run ID:         %d\n", report.RunID)
	}
	fmt.Fprintf(sb, "Status:         %s\n", statusText(report))
	sb.WriteString("\n")
}

func (w *TextWriter) writePages(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString("PAGES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	for _, p := range report.Pages {
		fmt.Fprintf(sb, "  %3d  %-48s %3d records\n", p.Number, truncateString(p.URL, 48), p.RecordCount)
	}
	sb.WriteString("\n")
}

func (w *TextWriter) writeCounts(sb *strings.Builder, title string, counts []model.Count) {
	if len(counts) == 0 {
		return
	}
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	for _, c := range counts {
		fmt.Fprintf(sb, "  %-40s %5d\n", truncateString(c.Label, 40), c.Count)
	}
	sb.WriteString("\n")
}
