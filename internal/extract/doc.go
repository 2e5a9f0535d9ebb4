// Package extract turns one fetched listing page into quote records.
//
// The Extractor selects every quote block in a parsed document and reads
// four sub-fields from each block: the quote text, the author, the author
// detail link (made absolute against the page origin) and the raw tags
// attribute. Blocks are returned in document order.
//
// A selector miss never aborts a record or a page. The field degrades to an
// empty string and a MissingFieldError is reported next to the records so
// callers can log or count it.
package extract
