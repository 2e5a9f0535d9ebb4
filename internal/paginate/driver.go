package paginate

import (
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/quotecrawl/internal/model"
)

// DefaultNavSelector selects the navigation region.
const DefaultNavSelector = "nav"

// Decision is the outcome of NextPage for one page.
type Decision struct {
	// Next is the validated URL to fetch next, nil when the branch ends.
	Next *url.URL

	// Candidate is the absolute candidate URL, empty when none was found.
	Candidate string

	// Err explains why Next is nil. It is never a crawl failure.
	Err error
}

// Continue reports whether the branch has a next page.
func (d Decision) Continue() bool {
	return d.Next != nil
}

// Driver computes next-page decisions. It holds no per-branch state and is
// safe for concurrent use.
type Driver struct {
	navSelector string
	resolver    Resolver
	logger      *slog.Logger
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithNavSelector sets the selector of the navigation region.
func WithNavSelector(selector string) DriverOption {
	return func(d *Driver) {
		if selector != "" {
			d.navSelector = selector
		}
	}
}

// WithResolver sets the navigation resolver.
func WithResolver(r Resolver) DriverOption {
	return func(d *Driver) {
		if r != nil {
			d.resolver = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) DriverOption {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDriver creates a Driver using the "nav" region and CountResolver.
func NewDriver(opts ...DriverOption) *Driver {
	d := &Driver{
		navSelector: DefaultNavSelector,
		resolver:    CountResolver{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Resolver returns the resolver in use.
func (d *Driver) Resolver() Resolver {
	return d.resolver
}

// NextPage decides whether the page at pageURL has a next page.
// The returned state is always advanced by one page, whatever the decision.
func (d *Driver) NextPage(doc *goquery.Document, pageURL *url.URL, state State) (Decision, State) {
	state = state.Advance()

	decision := d.decide(doc, pageURL, state.ExpectedPage)
	d.logger.Debug("next page decision",
		"url", urlString(pageURL),
		"expected_page", state.ExpectedPage,
		"candidate", decision.Candidate,
		"resolver", d.resolver.Name(),
		"continue", decision.Continue(),
		"reason", errString(decision.Err),
	)
	return decision, state
}

func (d *Driver) decide(doc *goquery.Document, pageURL *url.URL, expected int) Decision {
	if doc == nil {
		return Decision{Err: ErrNoNavigation}
	}

	nav := doc.Find(d.navSelector).First()
	if nav.Length() == 0 {
		return Decision{Err: ErrNoNavigation}
	}

	anchor, err := d.resolver.Resolve(nav.Find("a"))
	if err != nil {
		return Decision{Err: err}
	}

	href, ok := anchor.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return Decision{Err: ErrMissingHref}
	}

	origin, _ := model.OriginOf(pageURL)
	candidate, err := origin.Resolve(href)
	if err != nil {
		return Decision{Err: fmt.Errorf("%w: %q: %w", ErrUnparseablePageNumber, href, err)}
	}

	got, err := PageNumberOf(candidate)
	if err != nil {
		return Decision{Candidate: candidate, Err: err}
	}
	if got != strconv.Itoa(expected) {
		return Decision{
			Candidate: candidate,
			Err:       &ValidationMismatchError{Expected: expected, Got: got, Candidate: candidate},
		}
	}

	next, err := url.Parse(candidate)
	if err != nil {
		return Decision{Candidate: candidate, Err: fmt.Errorf("%w: %w", ErrUnparseablePageNumber, err)}
	}
	return Decision{Next: next, Candidate: candidate}
}

// PageNumberOf returns the second-to-last "/"-delimited segment of
// candidate, which must be a decimal integer. For ".../page/3/" it returns "3".
// The segment is returned as written, so "03" does not equal page 3.
func PageNumberOf(candidate string) (string, error) {
	parts := strings.Split(candidate, "/")
	if len(parts) < 2 {
		return "", fmt.Errorf("%w: %q", ErrUnparseablePageNumber, candidate)
	}

	segment := parts[len(parts)-2]
	if _, err := strconv.Atoi(segment); err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnparseablePageNumber, candidate)
	}
	return segment, nil
}

func urlString(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.String()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
