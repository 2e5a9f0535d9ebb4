package model

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Page is a fetched page body together with its transport metadata.
// The crawler builds one Page per fetch and hands its document to the
// extractor and the pagination driver.
type Page struct {
	// URL is the resolved URL the page was fetched from.
	URL string `json:"url"`

	// Number is the 1-based position of the page in its branch.
	Number int `json:"number"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// Headers contains all HTTP response headers in canonical form.
	Headers map[string][]string `json:"headers,omitempty"`

	// ContentType is the MIME type of the response, including parameters.
	ContentType string `json:"content_type"`

	// Raw contains the complete response body.
	Raw []byte `json:"-"`

	// Hash is the SHA3-256 fingerprint of Raw.
	Hash string `json:"hash"`
}

// ComputeHash calculates and sets the SHA3-256 hash of the page's raw content.
// This should be called after setting the Raw field.
func (p *Page) ComputeHash() {
	if len(p.Raw) == 0 {
		p.Hash = ""
		return
	}

	hash := sha3.Sum256(p.Raw)
	p.Hash = hex.EncodeToString(hash[:])
}

// GetHeader returns the first value of the header with the given canonical
// name, or "" when it is absent.
func (p *Page) GetHeader(name string) string {
	if values, ok := p.Headers[name]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}

// IsHTML returns true if the page content type indicates HTML.
// An empty content type is treated as HTML, since many small sites omit it.
func (p *Page) IsHTML() bool {
	ct := strings.ToLower(strings.TrimSpace(p.ContentType))
	if ct == "" {
		return true
	}
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}

// PageSummary records what one page contributed to a crawl.
type PageSummary struct {
	// Number is the 1-based position of the page in its branch.
	Number int `json:"number"`

	// URL is the URL the page was fetched from.
	URL string `json:"url"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// Hash is the SHA3-256 fingerprint of the page body.
	Hash string `json:"hash,omitempty"`

	// RecordCount is the number of records extracted from the page.
	RecordCount int `json:"record_count"`

	// MissingFields is the number of sub-fields that degraded to empty.
	MissingFields int `json:"missing_fields,omitempty"`

	// NextURL is the validated next page, empty when the branch stopped here.
	NextURL string `json:"next_url,omitempty"`
}
