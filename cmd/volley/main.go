package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/volleyhttp/volley/internal/config"
	"github.com/volleyhttp/volley/internal/dashboard"
	"github.com/volleyhttp/volley/internal/httpclient"
	"github.com/volleyhttp/volley/internal/metrics"
	"github.com/volleyhttp/volley/internal/output"
	"github.com/volleyhttp/volley/internal/ratelimit"
	"github.com/volleyhttp/volley/internal/runner"
	"github.com/volleyhttp/volley/internal/threshold"
	"github.com/volleyhttp/volley/internal/tracing"
)

const (
	progressInterval = time.Second
	snapshotInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

type stderrFailureLogger struct {
	mu sync.Mutex
}

func (l *stderrFailureLogger) LogFailure(err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(os.Stderr, "[volley] request failed: %v\n", err)
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}

	if cfg.WriteConfig != "" {
		if err := cfg.WriteTemplate(cfg.WriteConfig); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Wrote starter config to %s\n", cfg.WriteConfig)
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	builder, err := httpclient.NewRequestBuilder(cfg)
	if err != nil {
		return err
	}

	client := httpclient.NewClient(cfg)
	collector := metrics.NewCollector()
	defer func() { _ = collector.Finalize() }()

	if cfg.CSVOut != "" {
		sink, err := metrics.OpenCSVSink(cfg.CSVOut)
		if err != nil {
			return err
		}
		collector.AttachSink(sink)
	}

	runID := ulid.Make().String()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		_ = provider.Shutdown(shutdownCtx)
	}()

	// A CSV write failure must stop the run rather than silently dropping
	// rows. The first failure cancels the run context; workers unwind and
	// the error surfaces after Run returns.
	var sinkOnce sync.Once
	var sinkErr error
	abortRun := func(err error) {
		sinkOnce.Do(func() {
			sinkErr = err
			cancel()
		})
	}

	requester := &httpRequester{
		client:    client,
		builder:   builder,
		collector: collector,
		method:    cfg.Method,
		target:    cfg.TargetURL,
		runID:     runID,
		abort:     abortRun,
	}
	if cfg.Tracing.Enabled {
		requester.tracing = provider
	}

	var wrapped runner.Requester = requester
	if cfg.LogErrors {
		wrapped = runner.WithLogging(wrapped, &stderrFailureLogger{})
	}

	var limiter runner.Limiter
	if cfg.Rate > 0 {
		// Burst capacity matches the worker count so a freshly filled
		// bucket can saturate every worker at once.
		limiter = ratelimit.NewBucket(cfg.Rate, cfg.Concurrency)
	}

	r := runner.New(runner.Options{
		Concurrency:   cfg.Concurrency,
		TotalRequests: cfg.Total,
		Duration:      cfg.Duration,
		Limiter:       limiter,
		Requester:     wrapped,
	})

	var dash *dashboard.Dashboard
	if cfg.Dashboard {
		dash, err = dashboard.New(collector, dashboard.TestConfig{
			TargetURL:   cfg.TargetURL,
			Method:      cfg.Method,
			Concurrency: cfg.Concurrency,
			Rate:        cfg.Rate,
			Duration:    cfg.Duration,
			Total:       cfg.Total,
			Timeout:     cfg.Timeout,
			ConfigFile:  cfg.ConfigFile,
		}, cancel)
		if err != nil {
			return err
		}
		dash.Start()
	}

	var progress *output.ProgressReporter
	if !cfg.JSONOutput && !cfg.Dashboard {
		progress = output.NewProgressReporter(collector, progressInterval, os.Stdout)
		progress.Start()
	}

	// Periodic snapshots feed the HTML report's time-series charts.
	var snapDone chan struct{}
	if cfg.HTMLOutput != "" {
		snapDone = make(chan struct{})
		go func() {
			defer close(snapDone)
			ticker := time.NewTicker(snapshotInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					collector.Snapshot()
				}
			}
		}()
	}

	collector.Start()
	result := r.Run(ctx)
	cancel()
	if snapDone != nil {
		<-snapDone
	}

	if progress != nil {
		progress.Stop()
		fmt.Fprintln(os.Stdout)
	}
	if dash != nil {
		dash.Stop()
	}

	if sinkErr != nil {
		_ = collector.Finalize()
		return sinkErr
	}

	if cfg.HTMLOutput != "" {
		// Final point so short runs still chart.
		collector.Snapshot()
	}
	finalizeErr := collector.Finalize()

	summary := collector.Summary()
	stats := collector.Stats(result.Duration)

	var thresholdResults []threshold.Result
	if len(thresholds) > 0 {
		thresholdResults = threshold.NewEvaluator(thresholds).Evaluate(summary)
	}

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(os.Stdout, summary); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(os.Stdout, "\nRun %s against %s\n", runID, cfg.TargetURL)
		output.PrintReport(os.Stdout, summary, stats.Errors)
		if len(thresholdResults) > 0 {
			fmt.Fprintln(os.Stdout, "\nThresholds:")
			for _, res := range thresholdResults {
				fmt.Fprintf(os.Stdout, "  %s\n", res.Message)
			}
		}
	}

	if cfg.SummaryOut != "" {
		if err := output.WriteSummaryFile(cfg.SummaryOut, summary); err != nil {
			return err
		}
		if !cfg.JSONOutput {
			fmt.Fprintf(os.Stdout, "Saved JSON summary to %s\n", cfg.SummaryOut)
		}
	}

	if cfg.HTMLOutput != "" {
		if err := writeHTMLReport(cfg, collector, summary, stats, thresholdResults, runID); err != nil {
			return err
		}
		if !cfg.JSONOutput {
			fmt.Fprintf(os.Stdout, "HTML report written to %s\n", cfg.HTMLOutput)
		}
	}

	if finalizeErr != nil {
		return finalizeErr
	}

	failed := 0
	for _, res := range thresholdResults {
		if !res.Pass {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d thresholds failed", failed, len(thresholdResults))
	}
	return nil
}

func writeHTMLReport(cfg *config.Config, collector *metrics.Collector, summary metrics.Summary, stats metrics.Stats, thresholdResults []threshold.Result, runID string) error {
	f, err := os.Create(cfg.HTMLOutput)
	if err != nil {
		return fmt.Errorf("create html report: %w", err)
	}
	meta := output.ReportMetadata{
		RunID:     runID,
		TargetURL: cfg.TargetURL,
		Method:    cfg.Method,
	}
	if err := output.GenerateHTMLReport(f, summary, stats, collector.History(), thresholdResults, meta); err != nil {
		f.Close()
		return fmt.Errorf("generate html report: %w", err)
	}
	return f.Close()
}
