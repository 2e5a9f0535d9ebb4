package model

// StopReason classifies why a branch stopped following next-page links.
// Every reason except StopFetchError, StopOutputError and StopCancelled is
// a normal end of the crawl, not a failure.
type StopReason string

const (
	// StopNone means the branch has not stopped yet.
	StopNone StopReason = ""

	// StopNoNavigation means the page had no navigation region.
	StopNoNavigation StopReason = "no_navigation"

	// StopNoNextLink means the navigation region held no usable anchor.
	StopNoNextLink StopReason = "no_next_link"

	// StopMissingHref means the candidate anchor had no href attribute.
	StopMissingHref StopReason = "missing_href"

	// StopUnparseablePageNumber means the candidate URL carried no page number.
	StopUnparseablePageNumber StopReason = "unparseable_page_number"

	// StopPageMismatch means the candidate's page number disagreed with the
	// expected page counter.
	StopPageMismatch StopReason = "page_mismatch"

	// StopMaxPages means the configured page limit was reached.
	StopMaxPages StopReason = "max_pages"

	// StopFetchError means a page could not be fetched or parsed.
	StopFetchError StopReason = "fetch_error"

	// StopOutputError means emitted records could not be written.
	StopOutputError StopReason = "output_error"

	// StopCancelled means the crawl context was cancelled.
	StopCancelled StopReason = "cancelled"
)

// IsFailure reports whether the reason reflects a failure outside the
// pagination core rather than a normal end of pagination.
func (r StopReason) IsFailure() bool {
	return r == StopFetchError || r == StopOutputError || r == StopCancelled
}

// Description returns a short human-readable explanation of the reason.
func (r StopReason) Description() string {
	switch r {
	case StopNone:
		return "still running"
	case StopNoNavigation:
		return "page has no navigation region"
	case StopNoNextLink:
		return "navigation region has no next link"
	case StopMissingHref:
		return "next link has no href"
	case StopUnparseablePageNumber:
		return "next link carries no page number"
	case StopPageMismatch:
		return "next link points to an unexpected page"
	case StopMaxPages:
		return "page limit reached"
	case StopFetchError:
		return "page could not be fetched"
	case StopOutputError:
		return "records could not be written"
	case StopCancelled:
		return "crawl was cancelled"
	default:
		return string(r)
	}
}
