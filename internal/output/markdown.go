package output

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/quotecrawl/internal/model"
)

// chartTags is the number of tags shown in the pie chart.
const chartTags = 8

// MarkdownWriter outputs reports in Markdown format.
type MarkdownWriter struct {
	baseWriter
	version string
	title   cases.Caser
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, version string) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		version:    version,
		title:      cases.Title(language.English),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writePages(md, report)
	w.writeAuthors(md, report)
	w.writeTags(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("Quote Crawl Report")
	md.PlainText("")

	rows := [][]string{
		{"Seed", "`" + report.Seed + "`"},
		{"Pages", strconv.Itoa(report.PageCount())},
		{"Records", strconv.Itoa(report.RecordCount())},
		{"Missing Fields", strconv.Itoa(report.MissingFieldCount())},
		{"Duration", report.Duration().Round(1e6).String()},
	}
	if !report.StartedAt.IsZero() {
		rows = append(rows, []string{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")})
	}
	if report.StopReason != model.StopNone {
		rows = append(rows, []string{"Stop Reason", "`" + string(report.StopReason) + "` " + report.StopReason.Description()})
	}
	rows = append(rows, []string{"Status", statusText(report)})

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	switch {
	case report.TimedOut:
		md.Warningf("The crawl was cancelled. Records from fetched pages are complete.")
	case report.StopReason.IsFailure():
		md.Cautionf("The crawl stopped early: %s", report.ErrorMessage)
	case report.MissingFieldCount() > 0:
		md.Importantf("%d record field(s) could not be read and were left empty.", report.MissingFieldCount())
	default:
		md.Tip("All pages were crawled and every record field was found.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writePages(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Pages")
	md.PlainText("")

	if len(report.Pages) == 0 {
		md.PlainText("No pages were fetched.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Pages))
	for i, p := range report.Pages {
		next := p.NextURL
		if next == "" {
			next = "-"
		}
		rows[i] = []string{
			strconv.Itoa(p.Number),
			truncateString(p.URL, 60),
			strconv.Itoa(p.StatusCode),
			strconv.Itoa(p.RecordCount),
			strconv.Itoa(p.MissingFields),
			truncateString(next, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"#", "URL", "Status", "Records", "Missing", "Next"},
		Rows:   rows,
	})
	md.PlainText("")

	if report.StopDetail != "" {
		md.Details("Stop detail", report.StopDetail)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeAuthors(md *markdown.Markdown, report *model.CrawlReport) {
	authors := report.TopAuthors(topCount)
	if len(authors) == 0 {
		return
	}

	md.H2("Top Authors")
	md.PlainText("")

	rows := make([][]string, len(authors))
	for i, a := range authors {
		rows[i] = []string{a.Label, strconv.Itoa(a.Count)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Author", "Quotes"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeTags(md *markdown.Markdown, report *model.CrawlReport) {
	tags := report.TopTags(chartTags)
	if len(tags) == 0 {
		return
	}

	md.H2("Tags")
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Most Frequent Tags"),
		piechart.WithShowData(true),
	)
	for _, t := range tags {
		chart.LabelAndIntValue(w.title.String(t.Label), uint64(t.Count)) //nolint:gosec // counts are positive
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	footer := "*Report generated by [quotecrawl](https://github.com/nao1215/quotecrawl)"
	if w.version != "" {
		footer += " " + w.version
	}
	md.PlainText(footer + "*")
}
