package timeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/myorg/tempo/internal/controller"
)

// CSVWriter writes trace entries to a CSV file.
type CSVWriter struct {
	file    *os.File
	writer  *csv.Writer
	headers []string
	written int64
	mu      sync.Mutex
}

// CSV headers for trace export.
var defaultHeaders = []string{
	"seq",
	"wall",
	"clock",
	"local",
	"dt",
	"iteration",
	"speed",
	"status",
	"overflow",
}

const wallFormat = time.RFC3339Nano

// NewCSVWriter creates a new CSV writer for the specified path.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV file: %w", err)
	}

	return &CSVWriter{
		file:    f,
		writer:  csv.NewWriter(f),
		headers: defaultHeaders,
	}, nil
}

// CreateCSV creates path and writes the header row.
func CreateCSV(path string) (*CSVWriter, error) {
	w, err := NewCSVWriter(path)
	if err != nil {
		return nil, err
	}
	if err := w.WriteHeader(); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// WriteHeader writes the CSV header row.
func (w *CSVWriter) WriteHeader() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Write(w.headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	w.writer.Flush()
	return w.writer.Error()
}

// WriteEntry writes a single trace entry as a CSV row.
func (w *CSVWriter) WriteEntry(entry TraceEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Write(entryToRow(entry)); err != nil {
		return fmt.Errorf("failed to write CSV row: %w", err)
	}
	w.written++
	return nil
}

// WriteAll writes multiple trace entries and flushes.
func (w *CSVWriter) WriteAll(entries []TraceEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, entry := range entries {
		if err := w.writer.Write(entryToRow(entry)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
		w.written++
	}

	w.writer.Flush()
	return w.writer.Error()
}

// WriteEntries implements Sink. The run ID is not part of the CSV format.
func (w *CSVWriter) WriteEntries(_ context.Context, _ uuid.UUID, entries []TraceEntry) error {
	return w.WriteAll(entries)
}

// Flush flushes the CSV writer buffer to disk.
func (w *CSVWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close flushes and closes the CSV file.
func (w *CSVWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// Written returns the number of entries written.
func (w *CSVWriter) Written() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Headers returns the CSV headers.
func (w *CSVWriter) Headers() []string {
	return w.headers
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// entryToRow converts a TraceEntry to a CSV row.
func entryToRow(e TraceEntry) []string {
	return []string{
		strconv.FormatInt(e.Seq, 10),
		e.Wall.Format(wallFormat),
		formatFloat(e.Clock),
		formatFloat(e.Local),
		formatFloat(e.Dt),
		formatFloat(e.Iteration),
		formatFloat(e.Speed),
		e.Status.String(),
		e.Overflow.String(),
	}
}

// rowToEntry parses a CSV row back to a TraceEntry.
func rowToEntry(row []string) (TraceEntry, error) {
	if len(row) < len(defaultHeaders) {
		return TraceEntry{}, fmt.Errorf("row has %d columns, need %d", len(row), len(defaultHeaders))
	}

	var e TraceEntry
	var err error

	if e.Seq, err = strconv.ParseInt(row[0], 10, 64); err != nil {
		return e, fmt.Errorf("invalid seq: %w", err)
	}
	if e.Wall, err = time.Parse(wallFormat, row[1]); err != nil {
		return e, fmt.Errorf("invalid wall: %w", err)
	}

	floats := []struct {
		name string
		dst  *float64
	}{
		{"clock", &e.Clock},
		{"local", &e.Local},
		{"dt", &e.Dt},
		{"iteration", &e.Iteration},
		{"speed", &e.Speed},
	}
	for i, f := range floats {
		if *f.dst, err = strconv.ParseFloat(row[2+i], 64); err != nil {
			return e, fmt.Errorf("invalid %s: %w", f.name, err)
		}
	}

	if e.Status, err = controller.ParseStatus(row[7]); err != nil {
		return e, fmt.Errorf("invalid status: %w", err)
	}
	if e.Overflow, err = controller.ParseOverflow(row[8]); err != nil {
		return e, err
	}
	return e, nil
}

// ParseCSV reads trace entries from r. The first row is the header.
func ParseCSV(r io.Reader) ([]TraceEntry, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(records) < 2 {
		return nil, nil
	}
	records = records[1:]

	entries := make([]TraceEntry, 0, len(records))
	for i, row := range records {
		entry, err := rowToEntry(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ReadCSV reads a CSV file and returns trace entries.
func ReadCSV(path string) ([]TraceEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	return ParseCSV(f)
}
