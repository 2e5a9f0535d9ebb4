package model

// Record is one quote extracted from a quote block.
// A Record is produced fresh for every page and never modified after it is
// emitted. It has no identity beyond its position in the page.
//
// Any field may be empty when the corresponding markup was missing; a
// missing field never drops the whole record.
type Record struct {
	// Quote is the direct text of the quote's text span.
	Quote string `json:"quote"`

	// Author is the direct text of the author element.
	Author string `json:"author"`

	// About is the absolute URL of the author detail page.
	About string `json:"about"`

	// Tags is the raw content attribute of the tags marker.
	// It is a comma-delimited list as rendered by the site and is not split.
	Tags string `json:"tags"`
}

// IsEmpty reports whether every field of the record is empty.
func (r Record) IsEmpty() bool {
	return r.Quote == "" && r.Author == "" && r.About == "" && r.Tags == ""
}

// CSVHeader is the column order used when a Record is written as CSV.
var CSVHeader = []string{"quote", "author", "about", "tags"}

// CSVRow returns the record's fields in CSVHeader order.
func (r Record) CSVRow() []string {
	return []string{r.Quote, r.Author, r.About, r.Tags}
}
