package paginate

import (
	"errors"
	"fmt"

	"github.com/nao1215/quotecrawl/internal/model"
)

var (
	// ErrNoNavigation is returned when the page has no navigation region.
	ErrNoNavigation = errors.New("no navigation region")

	// ErrNoAnchors is returned when the resolver finds no candidate anchor.
	ErrNoAnchors = errors.New("no next page link")

	// ErrMissingHref is returned when the candidate anchor has no href.
	ErrMissingHref = errors.New("next page link has no href")

	// ErrUnparseablePageNumber is returned when the candidate URL carries no
	// numeric page segment, or cannot be made absolute at all.
	ErrUnparseablePageNumber = errors.New("next page link has no page number")

	// ErrUnknownResolver is returned by ResolverByName for unknown names.
	ErrUnknownResolver = errors.New("unknown navigation resolver")
)

// ValidationMismatchError is returned when the candidate's page number does
// not match the expected counter. It ends the branch normally.
type ValidationMismatchError struct {
	Expected  int
	Got       string
	Candidate string
}

func (e *ValidationMismatchError) Error() string {
	return fmt.Sprintf("next page link %s points to page %q, expected %d", e.Candidate, e.Got, e.Expected)
}

// ReasonFor maps a Decision error to the stop reason recorded for the branch.
func ReasonFor(err error) model.StopReason {
	var mismatch *ValidationMismatchError
	switch {
	case err == nil:
		return model.StopNone
	case errors.Is(err, ErrNoNavigation):
		return model.StopNoNavigation
	case errors.Is(err, ErrNoAnchors):
		return model.StopNoNextLink
	case errors.Is(err, ErrMissingHref):
		return model.StopMissingHref
	case errors.Is(err, ErrUnparseablePageNumber):
		return model.StopUnparseablePageNumber
	case errors.As(err, &mismatch):
		return model.StopPageMismatch
	default:
		return model.StopNoNextLink
	}
}
