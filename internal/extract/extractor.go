package extract

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/quotecrawl/internal/model"
)

// tagsAttr is the attribute holding the raw tag list.
const tagsAttr = "content"

// hrefAttr is the attribute holding the author detail link.
const hrefAttr = "href"

// Result is what one page contributed.
type Result struct {
	// Records holds one record per quote block, in document order.
	Records []model.Record

	// Missing lists every sub-field that degraded to an empty value.
	Missing []*MissingFieldError
}

// Extractor reads quote records from parsed documents.
// It holds no per-page state and is safe for concurrent use.
type Extractor struct {
	selectors Selectors
	logger    *slog.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithSelectors overrides the selectors. Empty fields keep their defaults.
func WithSelectors(s Selectors) ExtractorOption {
	return func(e *Extractor) {
		e.selectors = s.Merge(DefaultSelectors())
	}
}

// WithLogger sets the logger for missing-field observations.
func WithLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtractor creates an Extractor with DefaultSelectors.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		selectors: DefaultSelectors(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Selectors returns the selectors in use.
func (e *Extractor) Selectors() Selectors {
	return e.selectors
}

// Extract returns one record per quote block in doc.
// pageURL is the URL doc was fetched from; its origin turns relative author
// links into absolute URLs. A page without quote blocks yields no records
// and no error.
func (e *Extractor) Extract(doc *goquery.Document, pageURL *url.URL) Result {
	result := Result{Records: make([]model.Record, 0)}
	if doc == nil {
		return result
	}

	origin, originErr := model.OriginOf(pageURL)

	doc.Find(e.selectors.Quote).Each(func(i int, block *goquery.Selection) {
		var rec model.Record
		missing := func(field, selector, attr string) {
			result.Missing = append(result.Missing, &MissingFieldError{
				Block:    i,
				Field:    field,
				Selector: selector,
				Attr:     attr,
			})
		}

		if text, ok := directText(block.Find(e.selectors.Text)); ok {
			rec.Quote = text
		} else {
			missing(FieldQuote, e.selectors.Text, "")
		}

		if author, ok := directText(block.Find(e.selectors.Author)); ok {
			rec.Author = author
		} else {
			missing(FieldAuthor, e.selectors.Author, "")
		}

		rec.About = e.about(block, origin, originErr, func(attr string) {
			missing(FieldAbout, e.selectors.About, attr)
		})

		if tagsSel := block.Find(e.selectors.Tags); tagsSel.Length() == 0 {
			missing(FieldTags, e.selectors.Tags, "")
		} else if tags, ok := tagsSel.First().Attr(tagsAttr); ok {
			rec.Tags = norm.NFC.String(tags)
		} else {
			missing(FieldTags, e.selectors.Tags, tagsAttr)
		}

		result.Records = append(result.Records, rec)
	})

	for _, m := range result.Missing {
		e.logger.Debug("quote field missing",
			"url", urlString(pageURL),
			"block", m.Block,
			"field", m.Field,
			"selector", m.Selector,
		)
	}

	return result
}

// about resolves the author detail link of block against origin.
func (e *Extractor) about(block *goquery.Selection, origin model.Origin, originErr error, miss func(attr string)) string {
	anchor := block.Find(e.selectors.About)
	if anchor.Length() == 0 {
		miss("")
		return ""
	}

	href, ok := anchor.First().Attr(hrefAttr)
	if !ok || strings.TrimSpace(href) == "" {
		miss(hrefAttr)
		return ""
	}

	if originErr != nil {
		origin = model.Origin{}
	}
	abs, err := origin.Resolve(href)
	if err != nil {
		e.logger.Debug("author link not resolvable", "href", href, "error", err)
		miss(hrefAttr)
		return ""
	}
	return abs
}

// directText returns the concatenated text-node children of the first
// element in sel, excluding text inside nested elements.
func directText(sel *goquery.Selection) (string, bool) {
	if sel.Length() == 0 {
		return "", false
	}

	var b strings.Builder
	for c := sel.Get(0).FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(norm.NFC.String(b.String())), true
}

func urlString(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.String()
}
