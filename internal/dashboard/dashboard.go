package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/volleyhttp/volley/internal/metrics"
)

// TestConfig holds load test configuration parameters for display.
type TestConfig struct {
	TargetURL   string        // Full target URL
	Method      string        // HTTP method
	Concurrency int           // Number of concurrent workers
	Rate        float64       // Requests per second (0 = unlimited)
	Duration    time.Duration // Test duration (0 = unlimited)
	Total       int           // Total requests to execute (0 = unlimited)
	Timeout     time.Duration // Request timeout
	ConfigFile  string        // Path to config file if used
}

// Dashboard renders a live terminal UI for load test metrics.
type Dashboard struct {
	collector    *metrics.Collector
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	// Widgets
	grid           *ui.Grid
	latencySparkle *widgets.SparklineGroup
	latencyPara    *widgets.Paragraph
	rpsGauge       *widgets.Gauge
	statusList     *widgets.List
	errorList      *widgets.List
	summaryPara    *widgets.Paragraph
	metricsPara    *widgets.Paragraph
	latencyHistory []float64
	peakRPS        float64
	startTime      time.Time
	targetURL      string
	testConfig     TestConfig
}

// New creates a new Dashboard.
func New(collector *metrics.Collector, cfg TestConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		collector:      collector,
		ctx:            ctx,
		cancel:         cancel,
		shutdownFunc:   shutdownFunc,
		latencyHistory: make([]float64, 0, 100),
		startTime:      time.Now(),
		targetURL:      cfg.TargetURL,
		testConfig:     cfg,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

// initWidgets initializes all dashboard widgets.
func (d *Dashboard) initWidgets() {
	// Latency Sparkline
	sparkline := widgets.NewSparkline()
	sparkline.Title = "Latency (ms)"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.latencySparkle = widgets.NewSparklineGroup(sparkline)
	d.latencySparkle.Title = "Real-time Latency"
	d.latencySparkle.BorderStyle.Fg = ui.ColorCyan

	// Latency Metrics Paragraph
	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency Stats"
	d.latencyPara.Text = "Min: 0ms\nMean: 0ms\nP50: 0ms\nP95: 0ms\nP99: 0ms"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	// RPS Gauge
	d.rpsGauge = widgets.NewGauge()
	d.rpsGauge.Title = "Requests Per Second"
	d.rpsGauge.Percent = 0
	d.rpsGauge.BarColor = ui.ColorBlue
	d.rpsGauge.BorderStyle.Fg = ui.ColorCyan
	d.rpsGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	// Status Code List
	d.statusList = widgets.NewList()
	d.statusList.Title = "Status Codes"
	d.statusList.Rows = []string{"No responses yet"}
	d.statusList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.statusList.BorderStyle.Fg = ui.ColorCyan

	// Error Breakdown List
	d.errorList = widgets.NewList()
	d.errorList.Title = "Errors"
	d.errorList.Rows = []string{"No errors"}
	d.errorList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.errorList.BorderStyle.Fg = ui.ColorCyan

	// Summary Paragraph
	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Test Summary"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	// Metrics Paragraph (plain text summary)
	d.metricsPara = widgets.NewParagraph()
	d.metricsPara.Title = "Metrics"
	d.metricsPara.Text = "Waiting for data..."
	d.metricsPara.BorderStyle.Fg = ui.ColorCyan
}

// setupGrid configures the layout grid.
func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.14,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.20,
			ui.NewCol(0.5, d.rpsGauge),
			ui.NewCol(0.5, d.metricsPara),
		),
		ui.NewRow(0.32,
			ui.NewCol(0.65, d.latencySparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.34,
			ui.NewCol(0.5, d.statusList),
			ui.NewCol(0.5, d.errorList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and cleans up.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

// run is the main dashboard update loop.
func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			// Drain any remaining events
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			// Check if context is done to avoid blocking
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Do not return here; wait for Stop() to cancel context
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

// update refreshes all widget data from the collector.
func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	elapsed := time.Since(d.startTime)
	stats := d.collector.Stats(elapsed)

	// Update latency history for sparkline
	if stats.MeanLatency > 0 {
		latencyMs := millis(stats.MeanLatency)
		d.latencyHistory = append(d.latencyHistory, latencyMs)
		if len(d.latencyHistory) > 100 {
			d.latencyHistory = d.latencyHistory[1:]
		}
		d.latencySparkle.Sparklines[0].Data = d.latencyHistory
		// Update sparkline title with current latency values
		d.latencySparkle.Title = fmt.Sprintf(
			"Real-time Latency | Current: %.2fms | Min: %.2fms | Max: %.2fms",
			latencyMs,
			millis(stats.MinLatency),
			millis(stats.MaxLatency),
		)
	}

	currentRPS := stats.RequestsPerSec
	if currentRPS > d.peakRPS {
		d.peakRPS = currentRPS
	}
	scale := d.peakRPS
	if scale < 100 {
		scale = 100
	}
	rpsPercent := int((currentRPS / scale) * 100)
	if rpsPercent > 100 {
		rpsPercent = 100
	}
	d.rpsGauge.Percent = rpsPercent
	d.rpsGauge.Label = fmt.Sprintf("%.1f RPS", currentRPS)

	successRate := 0.0
	if stats.Total > 0 {
		successRate = (float64(stats.Successes) / float64(stats.Total)) * 100
	}

	// Build test parameters line
	params := d.formatTestParams()

	d.summaryPara.Text = fmt.Sprintf(
		"Target: %s\n%s\nElapsed: %s | Total: %d | Success Rate: %.1f%%",
		d.targetURL,
		params,
		elapsed.Round(time.Second),
		stats.Total,
		successRate,
	)

	d.metricsPara.Text = fmt.Sprintf(
		"Total Requests:    %d\nSuccessful:        %d\nFailed:            %d\nCurrent RPS:       %.2f\nSuccess Rate:      %.1f%%\nBytes Received:    %d\nP50/P95/P99:       %.2f / %.2f / %.2f ms",
		stats.Total,
		stats.Successes,
		stats.Failures,
		currentRPS,
		successRate,
		stats.BytesReceived,
		millis(stats.P50Latency),
		millis(stats.P95Latency),
		millis(stats.P99Latency),
	)

	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %.2fms\nMean: %.2fms\nP50:  %.2fms\nP95:  %.2fms\nP99:  %.2fms",
		millis(stats.MinLatency),
		millis(stats.MeanLatency),
		millis(stats.P50Latency),
		millis(stats.P95Latency),
		millis(stats.P99Latency),
	)

	d.statusList.Rows = formatStatusRows(stats.StatusCounts)
	d.errorList.Rows = formatErrorRows(stats.Errors)
}

// render draws all widgets to the screen.
func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func formatStatusRows(counts map[string]int64) []string {
	rows := metrics.SortStatusCounts(counts)
	if len(rows) == 0 {
		return []string{"[No responses yet](fg:green)"}
	}
	maxRows := len(rows)
	if maxRows > 10 {
		maxRows = 10
	}
	formatted := make([]string, 0, maxRows)
	for i := 0; i < maxRows; i++ {
		row := rows[i]
		color := "green"
		if row.Code >= "400" {
			color = "red"
		}
		formatted = append(formatted, fmt.Sprintf("[%s](fg:%s) %d", row.Code, color, row.Count))
	}
	return formatted
}

func formatErrorRows(errs map[string]int64) []string {
	if len(errs) == 0 {
		return []string{"[No errors](fg:green)"}
	}
	type errorRow struct {
		label string
		count int64
	}
	rows := make([]errorRow, 0, len(errs))
	for label, count := range errs {
		rows = append(rows, errorRow{label: label, count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count == rows[j].count {
			return rows[i].label < rows[j].label
		}
		return rows[i].count > rows[j].count
	})
	maxRows := len(rows)
	if maxRows > 10 {
		maxRows = 10
	}
	formatted := make([]string, 0, maxRows)
	for i := 0; i < maxRows; i++ {
		formatted = append(formatted, fmt.Sprintf("[%s](fg:red) %d", rows[i].label, rows[i].count))
	}
	return formatted
}

// formatTestParams formats the test configuration parameters for display.
func (d *Dashboard) formatTestParams() string {
	var parts []string

	// Method (only show if non-default)
	if d.testConfig.Method != "" && d.testConfig.Method != "GET" {
		parts = append(parts, fmt.Sprintf("Method: %s", d.testConfig.Method))
	}

	// Concurrency
	if d.testConfig.Concurrency > 0 {
		parts = append(parts, fmt.Sprintf("Workers: %d", d.testConfig.Concurrency))
	}

	// Rate
	if d.testConfig.Rate > 0 {
		parts = append(parts, fmt.Sprintf("Rate: %g/s", d.testConfig.Rate))
	} else {
		parts = append(parts, "Rate: unlimited")
	}

	// Duration
	if d.testConfig.Duration > 0 {
		parts = append(parts, fmt.Sprintf("Duration: %s", d.testConfig.Duration))
	}

	// Total
	if d.testConfig.Total > 0 {
		parts = append(parts, fmt.Sprintf("Total: %d", d.testConfig.Total))
	}

	// Timeout
	if d.testConfig.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("Timeout: %s", d.testConfig.Timeout))
	}

	// Config file (only show if used)
	if d.testConfig.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", d.testConfig.ConfigFile))
	}

	if len(parts) == 0 {
		return ""
	}

	return strings.Join(parts, " | ")
}
