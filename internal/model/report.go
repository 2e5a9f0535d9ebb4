package model

import (
	"net/url"
	"sort"
	"strings"
	"time"
)

// CrawlReport is the result of crawling one branch from a seed URL.
// Records appear in the order they were emitted: page order first, then
// document order within each page.
type CrawlReport struct {
	// Seed is the URL the branch started from.
	Seed string `json:"seed"`

	// StartedAt is when the first fetch was scheduled.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the branch stopped.
	FinishedAt time.Time `json:"finished_at"`

	// Pages summarizes every page that was fetched, in crawl order.
	Pages []PageSummary `json:"pages"`

	// Records contains every record emitted by the branch.
	Records []Record `json:"records"`

	// StopReason classifies why the branch stopped.
	StopReason StopReason `json:"stop_reason"`

	// StopDetail carries the underlying observation, e.g. the rejected candidate.
	StopDetail string `json:"stop_detail,omitempty"`

	// Error holds a failure raised by a pipeline step, if any.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error for serialization.
	ErrorMessage string `json:"error,omitempty"`

	// TimedOut is true when the pipeline was cancelled before finishing.
	TimedOut bool `json:"timed_out"`

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// RunID is the database id of the stored run, zero when not stored.
	RunID int64 `json:"run_id,omitempty"`
}

// NewCrawlReport creates an empty report for the given seed URL.
func NewCrawlReport(seed string) *CrawlReport {
	return &CrawlReport{
		Seed:    seed,
		Pages:   make([]PageSummary, 0),
		Records: make([]Record, 0),
	}
}

// AddPage appends a page summary and the records extracted from that page.
func (r *CrawlReport) AddPage(summary PageSummary, records []Record) {
	summary.RecordCount = len(records)
	r.Pages = append(r.Pages, summary)
	r.Records = append(r.Records, records...)
}

// Stop marks the branch as stopped with the given reason.
// The first reason wins; later calls are ignored.
func (r *CrawlReport) Stop(reason StopReason, detail string) {
	if r.StopReason != StopNone {
		return
	}
	r.StopReason = reason
	r.StopDetail = detail
}

// Host returns the host of the seed URL, or the seed itself when it does not parse.
func (r *CrawlReport) Host() string {
	u, err := url.Parse(r.Seed)
	if err != nil || u.Host == "" {
		return r.Seed
	}
	return strings.ToLower(u.Host)
}

// Duration returns how long the branch ran.
func (r *CrawlReport) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// PageCount returns the number of pages fetched.
func (r *CrawlReport) PageCount() int {
	return len(r.Pages)
}

// RecordCount returns the number of records emitted.
func (r *CrawlReport) RecordCount() int {
	return len(r.Records)
}

// MissingFieldCount returns the total number of degraded fields across pages.
func (r *CrawlReport) MissingFieldCount() int {
	total := 0
	for _, p := range r.Pages {
		total += p.MissingFields
	}
	return total
}

// Count is a label with an occurrence count.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// TopAuthors returns up to n authors ordered by number of records.
// Ties are broken alphabetically. Records without an author are skipped.
func (r *CrawlReport) TopAuthors(n int) []Count {
	counts := make(map[string]int)
	for _, rec := range r.Records {
		if rec.Author != "" {
			counts[rec.Author]++
		}
	}
	return topN(counts, n)
}

// TopTags returns up to n tags ordered by number of records carrying them.
// The raw tags attribute is split on commas only for this summary; records
// themselves keep the raw string.
func (r *CrawlReport) TopTags(n int) []Count {
	counts := make(map[string]int)
	for _, rec := range r.Records {
		for _, tag := range strings.Split(rec.Tags, ",") {
			tag = strings.TrimSpace(tag)
			if tag != "" {
				counts[tag]++
			}
		}
	}
	return topN(counts, n)
}

// topN sorts counts by descending count, then label, and keeps n entries.
// A non-positive n keeps everything.
func topN(counts map[string]int, n int) []Count {
	result := make([]Count, 0, len(counts))
	for label, c := range counts {
		result = append(result, Count{Label: label, Count: c})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Label < result[j].Label
	})
	if n > 0 && len(result) > n {
		result = result[:n]
	}
	return result
}
