// Package output renders run results: the console report, the machine JSON
// summary, the live progress line, and the standalone HTML report.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/volleyhttp/volley/internal/metrics"
)

// PrintReport outputs the human-readable results. The error breakdown maps
// transport failure categories to counts and may be nil.
func PrintReport(w io.Writer, s metrics.Summary, errorBreakdown map[string]int64) {
	fmt.Fprintln(w, "\n--- Load Test Results ---")
	fmt.Fprintf(w, "Total Requests:    %d\n", s.TotalRequests)
	fmt.Fprintf(w, "Successful:        %d\n", s.Successful)
	fmt.Fprintf(w, "Failed:            %d\n", s.Failed)
	fmt.Fprintf(w, "Elapsed:           %.2fs\n", s.ElapsedSeconds)
	fmt.Fprintf(w, "Throughput:        %.2f req/s\n", s.ThroughputRPS)

	fmt.Fprintln(w, "\nLatency:")
	fmt.Fprintf(w, "  Mean:            %s\n", formatLatency(s.MeanLatencyMs))
	fmt.Fprintf(w, "  Median:          %s\n", formatLatency(s.MedianLatencyMs))
	fmt.Fprintf(w, "  P95:             %s\n", formatLatency(s.P95LatencyMs))
	fmt.Fprintf(w, "  P99:             %s\n", formatLatency(s.P99LatencyMs))

	if len(s.StatusCounts) > 0 {
		fmt.Fprintln(w, "\nStatus Codes:")
		for _, row := range metrics.SortStatusCounts(s.StatusCounts) {
			fmt.Fprintf(w, "  %s: %d\n", row.Code, row.Count)
		}
	}

	if len(errorBreakdown) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, row := range sortedErrorRows(errorBreakdown) {
			fmt.Fprintf(w, "  %s: %d\n", row.Label, row.Count)
		}
	}

	fmt.Fprintln(w, "\nData Received:")
	fmt.Fprintf(w, "  Total Bytes:     %d\n", s.BytesReceived)
	fmt.Fprintf(w, "  Avg/Response:    %.1f bytes\n", s.AvgBytesPerResponse)
}

// PrintJSONReport outputs the summary as indented JSON.
func PrintJSONReport(w io.Writer, s metrics.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteSummaryFile writes the summary as indented JSON to path.
func WriteSummaryFile(path string, s metrics.Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

func formatLatency(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f ms", *v)
}

type labelCount struct {
	Label string
	Count int64
}

func sortedErrorRows(breakdown map[string]int64) []labelCount {
	rows := make([]labelCount, 0, len(breakdown))
	for label, count := range breakdown {
		rows = append(rows, labelCount{Label: label, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Label < rows[j].Label
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
