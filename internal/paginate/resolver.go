package paginate

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
)

// Resolver names accepted by ResolverByName.
const (
	ResolverCount   = "count"
	ResolverRelNext = "rel-next"
	ResolverLabel   = "label"
)

// DefaultNextLabel is the label LabelResolver looks for when none is given.
const DefaultNextLabel = "Next"

// Resolver picks the next-page candidate among the anchors of a navigation
// region. Anchors are given in document order. Resolve returns ErrNoAnchors
// when there is no candidate.
type Resolver interface {
	Name() string
	Resolve(anchors *goquery.Selection) (*goquery.Selection, error)
}

// CountResolver disambiguates by number of anchors.
// Zero anchors means no next page, one anchor is taken as the candidate and
// with two or more the second anchor is the candidate and the first
// ("previous") is ignored.
type CountResolver struct{}

// Name returns the resolver name.
func (CountResolver) Name() string { return ResolverCount }

// Resolve returns the candidate anchor.
func (CountResolver) Resolve(anchors *goquery.Selection) (*goquery.Selection, error) {
	switch n := anchors.Length(); {
	case n == 0:
		return nil, ErrNoAnchors
	case n == 1:
		return anchors.Eq(0), nil
	default:
		return anchors.Eq(1), nil
	}
}

// RelNextResolver selects the first anchor with rel="next".
type RelNextResolver struct{}

// Name returns the resolver name.
func (RelNextResolver) Name() string { return ResolverRelNext }

// Resolve returns the candidate anchor.
func (RelNextResolver) Resolve(anchors *goquery.Selection) (*goquery.Selection, error) {
	next := anchors.Filter("[rel~=next]")
	if next.Length() == 0 {
		return nil, ErrNoAnchors
	}
	return next.First(), nil
}

// LabelResolver selects the first anchor whose text contains Label,
// compared case-insensitively.
type LabelResolver struct {
	Label string
}

// Name returns the resolver name.
func (LabelResolver) Name() string { return ResolverLabel }

// Resolve returns the candidate anchor.
func (r LabelResolver) Resolve(anchors *goquery.Selection) (*goquery.Selection, error) {
	label := r.Label
	if strings.TrimSpace(label) == "" {
		label = DefaultNextLabel
	}
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(label))

	next := anchors.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(fold.String(s.Text()), want)
	})
	if next.Length() == 0 {
		return nil, ErrNoAnchors
	}
	return next.First(), nil
}

// ResolverNames lists the names accepted by ResolverByName.
func ResolverNames() []string {
	return []string{ResolverCount, ResolverRelNext, ResolverLabel}
}

// ResolverByName returns the resolver registered under name.
// An empty name selects CountResolver. label is only used by LabelResolver.
func ResolverByName(name, label string) (Resolver, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ResolverCount:
		return CountResolver{}, nil
	case ResolverRelNext:
		return RelNextResolver{}, nil
	case ResolverLabel:
		return LabelResolver{Label: label}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownResolver, name)
	}
}
