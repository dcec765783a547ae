package metrics_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/volleyhttp/volley/internal/metrics"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	return rows
}

func TestCSVSinkRowsFlushedPerOutcome(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	sink, err := metrics.OpenCSVSink(path)
	if err != nil {
		t.Fatalf("open sink: %v", err)
	}

	c := metrics.NewCollector()
	c.AttachSink(sink)
	c.Start()

	if err := c.RecordRequest(200, 12500*time.Microsecond, 100, nil); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := c.RecordRequest(0, 3*time.Millisecond, 0, os.ErrDeadlineExceeded); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	// Rows must already be on disk before the sink is closed.
	rows := readCSV(t, path)
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d rows", len(rows))
	}

	header := rows[0]
	want := []string{"timestamp", "status", "latency_ms", "bytes_received"}
	for i, col := range want {
		if header[i] != col {
			t.Errorf("header[%d]: expected %q, got %q", i, col, header[i])
		}
	}

	first := rows[1]
	if ts, err := strconv.ParseFloat(first[0], 64); err != nil || ts <= 0 {
		t.Errorf("timestamp must be epoch seconds, got %q", first[0])
	}
	if first[1] != "200" {
		t.Errorf("expected status 200, got %q", first[1])
	}
	if first[2] != "12.5" {
		t.Errorf("expected latency 12.5, got %q", first[2])
	}
	if first[3] != "100" {
		t.Errorf("expected 100 bytes, got %q", first[3])
	}

	// A missing response leaves the status field empty.
	second := rows[2]
	if second[1] != "" {
		t.Errorf("expected empty status field, got %q", second[1])
	}

	if err := c.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if got := readCSV(t, path); len(got) != 3 {
		t.Fatalf("finalize must not add rows, got %d", len(got))
	}
}

func TestCSVSinkRowOrderMatchesRecordOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "order.csv")
	sink, err := metrics.OpenCSVSink(path)
	if err != nil {
		t.Fatalf("open sink: %v", err)
	}
	c := metrics.NewCollector()
	c.AttachSink(sink)

	statuses := []int{201, 404, 500, 200, 302}
	for _, s := range statuses {
		if err := c.RecordRequest(s, time.Millisecond, 1, nil); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}
	if err := c.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != len(statuses)+1 {
		t.Fatalf("expected %d rows, got %d", len(statuses)+1, len(rows))
	}
	for i, s := range statuses {
		if rows[i+1][1] != strconv.Itoa(s) {
			t.Errorf("row %d: expected status %d, got %q", i, s, rows[i+1][1])
		}
	}
}

func TestCSVSinkExclusiveLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locked.csv")
	first, err := metrics.OpenCSVSink(path)
	if err != nil {
		t.Fatalf("open sink: %v", err)
	}

	if _, err := metrics.OpenCSVSink(path); err == nil {
		t.Fatal("expected second open on the same path to fail while locked")
	}

	if err := first.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	third, err := metrics.OpenCSVSink(path)
	if err != nil {
		t.Fatalf("open after unlock failed: %v", err)
	}
	if err := third.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}
