package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gofrs/flock"
)

// csvHeader is the column layout of the per-request export.
var csvHeader = []string{"timestamp", "status", "latency_ms", "bytes_received"}

// CSVSink streams one row per recorded outcome to a file. The file is held
// under an exclusive advisory lock for the lifetime of the sink so two runs
// cannot interleave rows in the same export.
//
// The sink does no locking of its own; the Collector serializes access.
type CSVSink struct {
	file  *os.File
	flock *flock.Flock
	w     *csv.Writer
}

// OpenCSVSink creates (or truncates) path and writes the header row. It
// fails without touching the file when another process already holds the
// lock on path.
func OpenCSVSink(path string) (*CSVSink, error) {
	lk := flock.New(path)
	locked, err := lk.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s is locked by another process", path)
	}

	f, err := os.Create(path)
	if err != nil {
		_ = lk.Unlock()
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	cleanup := func() {
		_ = f.Close()
		_ = lk.Unlock()
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		cleanup()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		cleanup()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	return &CSVSink{file: f, flock: lk, w: w}, nil
}

// WriteOutcome appends one row and flushes it, so the export stays complete
// even if the process dies mid-run. A status of 0 is written as an empty
// field.
func (s *CSVSink) WriteOutcome(ts time.Time, status int, latencyMs float64, bytesReceived int64) error {
	statusField := ""
	if status > 0 {
		statusField = strconv.Itoa(status)
	}
	row := []string{
		strconv.FormatFloat(float64(ts.UnixNano())/1e9, 'f', 6, 64),
		statusField,
		strconv.FormatFloat(latencyMs, 'f', -1, 64),
		strconv.FormatInt(bytesReceived, 10),
	}
	if err := s.w.Write(row); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

// Close flushes pending rows, releases the lock, and closes the file.
func (s *CSVSink) Close() error {
	s.w.Flush()
	err := s.w.Error()
	if uerr := s.flock.Unlock(); err == nil {
		err = uerr
	}
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}
