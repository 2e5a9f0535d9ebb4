package extract

import (
	"errors"
	"fmt"
)

// ErrMissingField is the sentinel wrapped by every MissingFieldError.
var ErrMissingField = errors.New("field missing")

// Field names used in MissingFieldError and in metrics labels.
const (
	FieldQuote  = "quote"
	FieldAuthor = "author"
	FieldAbout  = "about"
	FieldTags   = "tags"
)

// MissingFieldError describes a sub-field that could not be read from a
// quote block. It is recovered locally: the field is left empty.
type MissingFieldError struct {
	// Block is the 0-based index of the quote block in the page.
	Block int

	// Field is one of FieldQuote, FieldAuthor, FieldAbout, FieldTags.
	Field string

	// Selector is the selector that found nothing.
	Selector string

	// Attr is the attribute that was absent, empty when the element itself was missing.
	Attr string
}

func (e *MissingFieldError) Error() string {
	if e.Attr != "" {
		return fmt.Sprintf("quote block %d: %s: %q has no %s attribute", e.Block, e.Field, e.Selector, e.Attr)
	}
	return fmt.Sprintf("quote block %d: %s: no match for %q", e.Block, e.Field, e.Selector)
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMissingField
}
