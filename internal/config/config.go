package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	TargetURL       string            `mapstructure:"target" yaml:"target"`
	Method          string            `mapstructure:"method" yaml:"method"`
	Headers         map[string]string `mapstructure:"headers" yaml:"headers,omitempty"`
	Body            string            `mapstructure:"body" yaml:"body,omitempty"`
	BodyFile        string            `mapstructure:"body_file" yaml:"body_file,omitempty"`
	Concurrency     int               `mapstructure:"concurrency" yaml:"concurrency"`
	Rate            float64           `mapstructure:"rate" yaml:"rate"`
	Duration        time.Duration     `mapstructure:"duration" yaml:"duration"`
	Total           int               `mapstructure:"total" yaml:"total"`
	Timeout         time.Duration     `mapstructure:"timeout" yaml:"timeout"`
	Insecure        bool              `mapstructure:"insecure" yaml:"insecure"`
	FollowRedirects bool              `mapstructure:"follow_redirects" yaml:"follow_redirects"`
	CSVOut          string            `mapstructure:"csv_out" yaml:"csv_out,omitempty"`
	SummaryOut      string            `mapstructure:"summary_out" yaml:"summary_out,omitempty"`
	JSONOutput      bool              `mapstructure:"json_output" yaml:"json_output"`
	Dashboard       bool              `mapstructure:"dashboard" yaml:"dashboard"`
	LogErrors       bool              `mapstructure:"log_errors" yaml:"log_errors"`
	HTMLOutput      string            `mapstructure:"html_output" yaml:"html_output,omitempty"`
	Thresholds      []string          `mapstructure:"thresholds" yaml:"thresholds,omitempty"`
	Tracing         TracingConfig     `mapstructure:"tracing" yaml:"tracing"`
	ConfigFile      string            `mapstructure:"-" yaml:"-"`
	WriteConfig     string            `mapstructure:"-" yaml:"-"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	Protocol    string  `mapstructure:"protocol" yaml:"protocol,omitempty"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name" yaml:"service_name,omitempty"`
	SampleRate  float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure" yaml:"insecure"`
	Propagate   bool    `mapstructure:"propagate" yaml:"propagate"`
}

// DurationMode reports whether the run is time-bounded. A positive duration
// wins over a request budget when both are configured.
func (c Config) DurationMode() bool {
	return c.Duration > 0
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string
	var warnings []string

	if strings.TrimSpace(c.TargetURL) == "" {
		issues = append(issues, "target is required (use --help for usage information)")
	}

	// Security warnings for high rate/concurrency
	if c.Rate > 1000 {
		warnings = append(warnings, fmt.Sprintf("WARNING: High rate limit configured (%.0f RPS). Ensure you have authorization to test the target system.", c.Rate))
	}
	if c.Concurrency > 500 {
		warnings = append(warnings, fmt.Sprintf("WARNING: High concurrency configured (%d workers). Ensure you have authorization to test the target system.", c.Concurrency))
	}

	if len(warnings) > 0 {
		for _, w := range warnings {
			fmt.Fprintln(os.Stderr, w)
		}
	}

	if c.Concurrency < 1 {
		issues = append(issues, "concurrency must be >= 1")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.Total < 0 {
		issues = append(issues, "total must be >= 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Duration < 0 {
		issues = append(issues, "duration must be >= 0")
	}
	if c.Duration <= 0 && c.Total <= 0 {
		issues = append(issues, "either duration or total must be set")
	}
	if strings.TrimSpace(c.Body) != "" && strings.TrimSpace(c.BodyFile) != "" {
		issues = append(issues, "body and bodyFile are mutually exclusive")
	}
	if c.Dashboard && c.JSONOutput {
		issues = append(issues, "dashboard and json-output are mutually exclusive")
	}

	tracingIssues := validateTracingConfig(c.Tracing)
	if len(tracingIssues) > 0 {
		issues = append(issues, tracingIssues...)
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}

	return nil
}

func validateTracingConfig(tc TracingConfig) []string {
	var issues []string
	if !tc.Enabled {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(tc.Protocol)) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", tc.Protocol))
	}
	if tc.SampleRate < 0 || tc.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0 and 1, got %g", tc.SampleRate))
	}

	return issues
}
