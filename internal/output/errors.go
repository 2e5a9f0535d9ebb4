package output

import "errors"

var (
	// ErrUnknownFormat is returned for an unsupported record format.
	ErrUnknownFormat = errors.New("unknown record format")

	// ErrUnknownReportFormat is returned for an unsupported report format.
	ErrUnknownReportFormat = errors.New("unknown report format")

	// ErrWriterClosed is returned when records are written after Close.
	ErrWriterClosed = errors.New("record writer is closed")
)
