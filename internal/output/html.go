package output

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/volleyhttp/volley/internal/metrics"
	"github.com/volleyhttp/volley/internal/threshold"
)

// HTMLReportData contains all data needed for the HTML report template.
type HTMLReportData struct {
	GeneratedAt string
	Metadata    ReportMetadata
	Summary     metrics.Summary
	Stats       metrics.Stats
	StatusRows  []metrics.StatusBucket
	ErrorRows   []labelCount
	History     []metrics.DataPoint
	HistoryJSON string
	Thresholds  *ThresholdSummary
}

// ReportMetadata describes the run the report belongs to.
type ReportMetadata struct {
	RunID     string
	TargetURL string
	Method    string
}

// ThresholdSummary aggregates threshold outcomes for the report table.
type ThresholdSummary struct {
	Total   int
	Passed  int
	Failed  int
	Results []ThresholdRow
}

// ThresholdRow is one evaluated threshold in the report table.
type ThresholdRow struct {
	Threshold string
	Metric    string
	Aggregate string
	Operator  string
	Expected  float64
	Actual    float64
	Pass      bool
}

// GenerateHTMLReport renders a standalone HTML report with embedded charts.
func GenerateHTMLReport(w io.Writer, summary metrics.Summary, stats metrics.Stats, history []metrics.DataPoint, thresholdResults []threshold.Result, meta ReportMetadata) error {
	var thresholds *ThresholdSummary
	if len(thresholdResults) > 0 {
		thresholds = &ThresholdSummary{
			Total:   len(thresholdResults),
			Results: make([]ThresholdRow, len(thresholdResults)),
		}
		for i, tr := range thresholdResults {
			thresholds.Results[i] = ThresholdRow{
				Threshold: tr.Threshold.Raw,
				Metric:    tr.Threshold.Metric,
				Aggregate: tr.Threshold.Aggregate,
				Operator:  tr.Threshold.Operator,
				Expected:  tr.Threshold.Value,
				Actual:    tr.Actual,
				Pass:      tr.Pass,
			}
			if tr.Pass {
				thresholds.Passed++
			} else {
				thresholds.Failed++
			}
		}
	}

	historyJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	data := HTMLReportData{
		GeneratedAt: time.Now().Format(time.RFC3339),
		Metadata:    meta,
		Summary:     summary,
		Stats:       stats,
		StatusRows:  metrics.SortStatusCounts(summary.StatusCounts),
		ErrorRows:   sortedErrorRows(stats.Errors),
		History:     history,
		HistoryJSON: string(historyJSON),
		Thresholds:  thresholds,
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatDuration": func(d time.Duration) string {
			return d.String()
		},
		"formatFloat": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
		"formatLatency": formatLatency,
		"formatPercent": func(part, total int64) string {
			if total == 0 {
				return "0.0"
			}
			return fmt.Sprintf("%.1f", (float64(part)/float64(total))*100)
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("execute template: %w", err)
	}
	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Volley Load Test Report</title>
    <style>
        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #2c3e50;
            line-height: 1.6;
            padding: 20px;
        }
        .container {
            max-width: 1400px;
            margin: 0 auto;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0,0,0,0.1);
            overflow: hidden;
        }
        header {
            background: linear-gradient(135deg, #0ea5e9 0%, #6366f1 100%);
            color: white;
            padding: 30px 40px;
        }
        header h1 {
            font-size: 2rem;
            margin-bottom: 10px;
        }
        header .meta {
            opacity: 0.9;
            font-size: 0.9rem;
        }
        .content {
            padding: 40px;
        }
        .grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(250px, 1fr));
            gap: 20px;
            margin-bottom: 40px;
        }
        .card {
            background: #f8f9fa;
            border-radius: 8px;
            padding: 20px;
            border-left: 4px solid #0ea5e9;
        }
        .card h3 {
            font-size: 0.9rem;
            color: #6c757d;
            text-transform: uppercase;
            letter-spacing: 0.5px;
            margin-bottom: 10px;
        }
        .card .value {
            font-size: 2rem;
            font-weight: bold;
            color: #2c3e50;
        }
        .card .subvalue {
            font-size: 0.85rem;
            color: #6c757d;
            margin-top: 5px;
        }
        .card.success {
            border-left-color: #10b981;
        }
        .card.error {
            border-left-color: #ef4444;
        }
        .section {
            margin-bottom: 40px;
        }
        .section h2 {
            font-size: 1.5rem;
            margin-bottom: 20px;
            padding-bottom: 10px;
            border-bottom: 2px solid #e5e7eb;
        }
        .chart-container {
            background: white;
            border-radius: 8px;
            padding: 20px;
            margin-bottom: 30px;
            border: 1px solid #e5e7eb;
        }
        .chart-container h3 {
            font-size: 1.1rem;
            margin-bottom: 15px;
            color: #4b5563;
        }
        .chart {
            width: 100%;
            height: 300px;
        }
        table {
            width: 100%;
            border-collapse: collapse;
            background: white;
        }
        th, td {
            text-align: left;
            padding: 12px;
            border-bottom: 1px solid #e5e7eb;
        }
        th {
            background: #f8f9fa;
            font-weight: 600;
            color: #4b5563;
            font-size: 0.9rem;
            text-transform: uppercase;
            letter-spacing: 0.5px;
        }
        tr:hover {
            background: #f8f9fa;
        }
        .badge {
            display: inline-block;
            padding: 4px 12px;
            border-radius: 12px;
            font-size: 0.85rem;
            font-weight: 600;
        }
        .badge-success {
            background: #d1fae5;
            color: #065f46;
        }
        .badge-error {
            background: #fee2e2;
            color: #991b1b;
        }
        .latency-grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(150px, 1fr));
            gap: 15px;
            margin-top: 20px;
        }
        .latency-item {
            background: #f8f9fa;
            padding: 15px;
            border-radius: 6px;
            text-align: center;
        }
        .latency-item .label {
            font-size: 0.85rem;
            color: #6c757d;
            margin-bottom: 5px;
        }
        .latency-item .value {
            font-size: 1.3rem;
            font-weight: bold;
            color: #2c3e50;
        }
    </style>
    <script src="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.iife.min.js"></script>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.min.css">
</head>
<body>
    <div class="container">
        <header>
            <h1>Volley Load Test Report</h1>
            {{if .Metadata.TargetURL}}
            <div class="meta" style="margin-top: 5px;">Target: {{if .Metadata.Method}}{{.Metadata.Method}} {{end}}<a href="{{.Metadata.TargetURL}}" style="color: white; text-decoration: underline;">{{.Metadata.TargetURL}}</a></div>
            {{end}}
            <div class="meta">{{if .Metadata.RunID}}Run: {{.Metadata.RunID}} | {{end}}Generated: {{.GeneratedAt}} | Elapsed: {{formatFloat .Summary.ElapsedSeconds}}s</div>
        </header>

        <div class="content">
            <!-- Summary Cards -->
            <div class="grid">
                <div class="card">
                    <h3>Total Requests</h3>
                    <div class="value">{{.Summary.TotalRequests}}</div>
                </div>
                <div class="card success">
                    <h3>Successful</h3>
                    <div class="value">{{.Summary.Successful}}</div>
                    <div class="subvalue">{{formatPercent .Summary.Successful .Summary.TotalRequests}}%</div>
                </div>
                <div class="card error">
                    <h3>Failed</h3>
                    <div class="value">{{.Summary.Failed}}</div>
                    <div class="subvalue">{{formatPercent .Summary.Failed .Summary.TotalRequests}}%</div>
                </div>
                <div class="card">
                    <h3>Throughput</h3>
                    <div class="value">{{formatFloat .Summary.ThroughputRPS}}</div>
                    <div class="subvalue">requests/sec</div>
                </div>
                <div class="card">
                    <h3>Bytes Received</h3>
                    <div class="value">{{.Summary.BytesReceived}}</div>
                    <div class="subvalue">{{formatFloat .Summary.AvgBytesPerResponse}} avg/response</div>
                </div>
            </div>

            <!-- Charts Section -->
            {{if .History}}
            <div class="section">
                <h2>Performance Over Time</h2>

                <div class="chart-container">
                    <h3>Requests Per Second</h3>
                    <div id="rps-chart" class="chart"></div>
                </div>

                <div class="chart-container">
                    <h3>Latency Percentiles (ms)</h3>
                    <div id="latency-chart" class="chart"></div>
                </div>
            </div>
            {{end}}

            <!-- Latency Statistics -->
            <div class="section">
                <h2>Latency Statistics</h2>
                <div class="latency-grid">
                    <div class="latency-item">
                        <div class="label">Min</div>
                        <div class="value">{{formatDuration .Stats.MinLatency}}</div>
                    </div>
                    <div class="latency-item">
                        <div class="label">Max</div>
                        <div class="value">{{formatDuration .Stats.MaxLatency}}</div>
                    </div>
                    <div class="latency-item">
                        <div class="label">Mean</div>
                        <div class="value">{{formatLatency .Summary.MeanLatencyMs}}</div>
                    </div>
                    <div class="latency-item">
                        <div class="label">Median</div>
                        <div class="value">{{formatLatency .Summary.MedianLatencyMs}}</div>
                    </div>
                    <div class="latency-item">
                        <div class="label">P95</div>
                        <div class="value">{{formatLatency .Summary.P95LatencyMs}}</div>
                    </div>
                    <div class="latency-item">
                        <div class="label">P99</div>
                        <div class="value">{{formatLatency .Summary.P99LatencyMs}}</div>
                    </div>
                </div>
            </div>

            <!-- Thresholds -->
            {{if .Thresholds}}
            <div class="section">
                <h2>Thresholds ({{.Thresholds.Passed}}/{{.Thresholds.Total}} Passed)</h2>
                <table>
                    <thead>
                        <tr>
                            <th>Threshold</th>
                            <th>Metric</th>
                            <th>Expected</th>
                            <th>Actual</th>
                            <th>Status</th>
                        </tr>
                    </thead>
                    <tbody>
                        {{range .Thresholds.Results}}
                        <tr>
                            <td>{{.Threshold}}</td>
                            <td>{{.Metric}} ({{.Aggregate}})</td>
                            <td>{{.Operator}} {{formatFloat .Expected}}</td>
                            <td>{{formatFloat .Actual}}</td>
                            <td>
                                {{if .Pass}}
                                <span class="badge badge-success">✓ PASS</span>
                                {{else}}
                                <span class="badge badge-error">✗ FAIL</span>
                                {{end}}
                            </td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}

            <!-- Status Codes -->
            {{if .StatusRows}}
            <div class="section">
                <h2>Status Codes</h2>
                <table>
                    <thead>
                        <tr>
                            <th>Code</th>
                            <th>Count</th>
                            <th>Share</th>
                        </tr>
                    </thead>
                    <tbody>
                        {{range .StatusRows}}
                        <tr>
                            <td><strong>{{.Code}}</strong></td>
                            <td>{{.Count}}</td>
                            <td>{{formatPercent .Count $.Summary.TotalRequests}}%</td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}

            <!-- Error Breakdown -->
            {{if .ErrorRows}}
            <div class="section">
                <h2>Transport Errors</h2>
                <table>
                    <thead>
                        <tr>
                            <th>Category</th>
                            <th>Count</th>
                        </tr>
                    </thead>
                    <tbody>
                        {{range .ErrorRows}}
                        <tr>
                            <td>{{.Label}}</td>
                            <td>{{.Count}}</td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}
        </div>
    </div>

    {{if .History}}
    <script>
        const historyJSON = {{.HistoryJSON}};
        const history = JSON.parse(historyJSON);

        if (history && history.length > 0) {
            const timestamps = history.map(d => d.elapsed_seconds);

            const rpsData = [
                timestamps,
                history.map(d => d.requests_per_sec)
            ];

            new uPlot({
                title: "Requests Per Second",
                width: document.getElementById('rps-chart').offsetWidth,
                height: 300,
                scales: { x: { time: false } },
                series: [
                    { label: "Time (s)" },
                    {
                        label: "RPS",
                        stroke: "#0ea5e9",
                        fill: "rgba(14, 165, 233, 0.1)",
                        width: 2
                    }
                ],
                axes: [
                    { label: "Time (seconds)" },
                    { label: "Requests/sec" }
                ]
            }, rpsData, document.getElementById('rps-chart'));

            const latencyData = [
                timestamps,
                history.map(d => d.p50_latency_ms),
                history.map(d => d.p95_latency_ms),
                history.map(d => d.p99_latency_ms)
            ];

            new uPlot({
                title: "Latency Percentiles",
                width: document.getElementById('latency-chart').offsetWidth,
                height: 300,
                scales: { x: { time: false } },
                series: [
                    { label: "Time (s)" },
                    {
                        label: "P50",
                        stroke: "#10b981",
                        width: 2
                    },
                    {
                        label: "P95",
                        stroke: "#f59e0b",
                        width: 2
                    },
                    {
                        label: "P99",
                        stroke: "#ef4444",
                        width: 2
                    }
                ],
                axes: [
                    { label: "Time (seconds)" },
                    { label: "Latency (ms)" }
                ]
            }, latencyData, document.getElementById('latency-chart'));
        }
    </script>
    {{end}}
</body>
</html>
`
