package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/nao1215/quotecrawl/internal/model"
)

// Record formats.
const (
	FormatJSONL = "jsonl"
	FormatJSON  = "json"
	FormatCSV   = "csv"
)

// RecordFormats lists the formats accepted by NewRecordWriter.
func RecordFormats() []string {
	return []string{FormatJSONL, FormatJSON, FormatCSV}
}

// RecordWriter streams records to a destination.
// Close finishes the document (closing bracket, flush); it does not close
// the underlying io.Writer.
type RecordWriter interface {
	WriteRecords(records []model.Record) error
	Close() error
}

// NewRecordWriter returns the record writer for format.
func NewRecordWriter(format string, w io.Writer) (RecordWriter, error) {
	switch strings.ToLower(format) {
	case "", FormatJSONL, "jsonlines", "ndjson":
		return NewJSONLinesWriter(w), nil
	case FormatJSON:
		return NewJSONWriter(w), nil
	case FormatCSV:
		return NewCSVWriter(w), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// JSONLinesWriter writes one JSON object per record and line.
type JSONLinesWriter struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closed bool
}

// NewJSONLinesWriter creates a JSONLinesWriter writing to w.
func NewJSONLinesWriter(w io.Writer) *JSONLinesWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONLinesWriter{enc: enc}
}

// WriteRecords writes records, one line each.
func (w *JSONLinesWriter) WriteRecords(records []model.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}
	for _, rec := range records {
		if err := w.enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	return nil
}

// Close marks the writer closed.
func (w *JSONLinesWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

// JSONWriter writes all records as one JSON array.
// The array is opened by the first record and closed by Close.
type JSONWriter struct {
	mu      sync.Mutex
	output  io.Writer
	written int
	closed  bool
}

// NewJSONWriter creates a JSONWriter writing to w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{output: w}
}

// WriteRecords appends records to the array.
func (w *JSONWriter) WriteRecords(records []model.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}
	for _, rec := range records {
		data, err := marshalRecord(rec)
		if err != nil {
			return err
		}

		sep := ",\n  "
		if w.written == 0 {
			sep = "[\n  "
		}
		if _, err := io.WriteString(w.output, sep); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
		if _, err := w.output.Write(data); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
		w.written++
	}
	return nil
}

// Close terminates the array. An empty crawl produces "[]".
func (w *JSONWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	tail := "\n]\n"
	if w.written == 0 {
		tail = "[]\n"
	}
	if _, err := io.WriteString(w.output, tail); err != nil {
		return fmt.Errorf("failed to close JSON array: %w", err)
	}
	return nil
}

// marshalRecord encodes rec without HTML escaping.
func marshalRecord(rec model.Record) ([]byte, error) {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return []byte(strings.TrimSuffix(b.String(), "\n")), nil
}

// CSVWriter writes records as CSV rows under a model.CSVHeader header.
type CSVWriter struct {
	mu          sync.Mutex
	w           *csv.Writer
	wroteHeader bool
	closed      bool
}

// NewCSVWriter creates a CSVWriter writing to w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// WriteRecords writes one row per record and flushes.
func (w *CSVWriter) WriteRecords(records []model.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}
	if err := w.header(); err != nil {
		return err
	}
	for _, rec := range records {
		if err := w.w.Write(rec.CSVRow()); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.w.Flush()
	return w.w.Error()
}

// Close writes the header if nothing was written and flushes.
func (w *CSVWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.header(); err != nil {
		return err
	}
	w.w.Flush()
	return w.w.Error()
}

func (w *CSVWriter) header() error {
	if w.wroteHeader {
		return nil
	}
	w.wroteHeader = true
	if err := w.w.Write(model.CSVHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	return nil
}
