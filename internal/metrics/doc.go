// Package metrics aggregates per-request outcomes into live statistics and
// a final run summary.
//
// # Collector
//
// The central [Collector] type receives one call per completed request
// attempt:
//
//	collector := metrics.NewCollector()
//	collector.Start()
//
//	// status 0 means no HTTP response was received
//	if err := collector.RecordRequest(status, latency, bytesRead, reqErr); err != nil {
//		// only the CSV sink can fail; treat as fatal for the run
//	}
//
// While the run is active, [Collector.Stats] computes a live view backed by
// an HDR histogram, cheap enough to call from a progress ticker or a
// dashboard redraw loop.
//
// # Summary
//
// After all workers have stopped, [Collector.Finalize] freezes the elapsed
// clock and [Collector.Summary] produces the final results. Summary
// percentiles are exact: they are computed from the full latency sample
// list, not the histogram approximation, so they can be reproduced from the
// CSV export. Latency fields are nil when no request completed.
//
// # CSV Export
//
// Attach a [CSVSink] to stream every outcome to disk as it is recorded:
//
//	sink, err := metrics.OpenCSVSink("results.csv")
//	if err != nil {
//		return err
//	}
//	collector.AttachSink(sink)
//
// Rows appear in the exact order outcomes were recorded and are flushed row
// by row. The sink holds an exclusive file lock until Finalize closes it.
//
// # Time-Series Data
//
// [Collector.Snapshot] appends one chart point per call; [Collector.History]
// returns the series for the HTML report.
package metrics
