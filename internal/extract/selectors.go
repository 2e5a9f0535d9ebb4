package extract

// Selectors are the CSS selectors used to locate a quote block and its
// sub-fields. Field selectors are evaluated inside each block.
type Selectors struct {
	// Quote selects each quote block in the document.
	Quote string `yaml:"quote" json:"quote"`

	// Text selects the element whose direct text is the quote.
	Text string `yaml:"text" json:"text"`

	// Author selects the element whose direct text is the author name.
	Author string `yaml:"author" json:"author"`

	// About selects the anchor whose href is the author detail link.
	About string `yaml:"about" json:"about"`

	// Tags selects the element whose content attribute holds the tags.
	Tags string `yaml:"tags" json:"tags"`
}

// DefaultSelectors returns selectors matching the quotes.toscrape.com layout.
func DefaultSelectors() Selectors {
	return Selectors{
		Quote:  "div.quote",
		Text:   "span.text",
		Author: "small.author",
		About:  "a",
		Tags:   "meta.keywords",
	}
}

// Merge returns s with empty fields taken from fallback.
func (s Selectors) Merge(fallback Selectors) Selectors {
	if s.Quote == "" {
		s.Quote = fallback.Quote
	}
	if s.Text == "" {
		s.Text = fallback.Text
	}
	if s.Author == "" {
		s.Author = fallback.Author
	}
	if s.About == "" {
		s.About = fallback.About
	}
	if s.Tags == "" {
		s.Tags = fallback.Tags
	}
	return s
}
