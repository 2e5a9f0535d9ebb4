// Package output writes crawl results.
//
// Two kinds of writers live here. Record writers stream the extracted
// quote records as each page is processed:
//   - JSONLinesWriter: one JSON object per line (default)
//   - JSONWriter: a single JSON array
//   - CSVWriter: CSV with a quote,author,about,tags header
//
// Report writers summarize a finished crawl branch:
//   - TextWriter: human-readable text for the terminal
//   - MarkdownWriter: Markdown with tables and a mermaid tag chart
//   - JSONReportWriter: the full report as JSON
//
// Record writers are safe for concurrent use so several branches crawled
// in parallel can share one destination. Records of one WriteRecords call
// are never interleaved with another call.
package output
