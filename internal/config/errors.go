package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoSeed is returned when no seed URL is configured.
	ErrNoSeed = errors.New("no seed URL specified")

	// ErrInvalidSeed is returned when a seed is not an absolute http(s) URL.
	ErrInvalidSeed = errors.New("invalid seed URL: must be an absolute http or https URL")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidMaxPages is returned when the page limit is negative.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrUnknownFormat is returned for an unsupported record format.
	ErrUnknownFormat = errors.New("unknown record format")

	// ErrUnknownReportFormat is returned for an unsupported report format.
	ErrUnknownReportFormat = errors.New("unknown report format")

	// ErrUnknownResolver is returned for an unsupported next-link resolver.
	ErrUnknownResolver = errors.New("unknown next-link resolver")

	// ErrInvalidSiteConfig is returned when a site file entry has invalid values.
	ErrInvalidSiteConfig = errors.New("invalid site configuration")
)
