package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// configTemplate mirrors Config with durations rendered as strings so the
// generated file round-trips through the loader.
type configTemplate struct {
	Target          string            `yaml:"target"`
	Method          string            `yaml:"method"`
	Headers         map[string]string `yaml:"headers,omitempty"`
	Body            string            `yaml:"body,omitempty"`
	BodyFile        string            `yaml:"body_file,omitempty"`
	Concurrency     int               `yaml:"concurrency"`
	Rate            float64           `yaml:"rate"`
	Duration        string            `yaml:"duration,omitempty"`
	Total           int               `yaml:"total,omitempty"`
	Timeout         string            `yaml:"timeout"`
	Insecure        bool              `yaml:"insecure"`
	FollowRedirects bool              `yaml:"follow_redirects"`
	CSVOut          string            `yaml:"csv_out,omitempty"`
	SummaryOut      string            `yaml:"summary_out,omitempty"`
	JSONOutput      bool              `yaml:"json_output"`
	LogErrors       bool              `yaml:"log_errors"`
	HTMLOutput      string            `yaml:"html_output,omitempty"`
	Thresholds      []string          `yaml:"thresholds,omitempty"`
	Tracing         tracingTemplate   `yaml:"tracing"`
}

type tracingTemplate struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint,omitempty"`
	Protocol    string  `yaml:"protocol,omitempty"`
	ServiceName string  `yaml:"service_name,omitempty"`
	SampleRate  float64 `yaml:"sample_rate"`
	Insecure    bool    `yaml:"insecure"`
	Propagate   bool    `yaml:"propagate"`
}

const templateHeader = `# volley configuration
# Values here are overridden by command-line flags.
`

// WriteTemplate writes the configuration as a YAML file that can be passed
// back via --config. Flag values already applied to c are included, so the
// command line used to generate the template is reproducible from the file.
func (c Config) WriteTemplate(path string) error {
	tmpl := configTemplate{
		Target:          c.TargetURL,
		Method:          c.Method,
		Headers:         c.Headers,
		Body:            c.Body,
		BodyFile:        c.BodyFile,
		Concurrency:     c.Concurrency,
		Rate:            c.Rate,
		Total:           c.Total,
		Timeout:         c.Timeout.String(),
		Insecure:        c.Insecure,
		FollowRedirects: c.FollowRedirects,
		CSVOut:          c.CSVOut,
		SummaryOut:      c.SummaryOut,
		JSONOutput:      c.JSONOutput,
		LogErrors:       c.LogErrors,
		HTMLOutput:      c.HTMLOutput,
		Thresholds:      c.Thresholds,
		Tracing: tracingTemplate{
			Enabled:     c.Tracing.Enabled,
			Endpoint:    c.Tracing.Endpoint,
			Protocol:    c.Tracing.Protocol,
			ServiceName: c.Tracing.ServiceName,
			SampleRate:  c.Tracing.SampleRate,
			Insecure:    c.Tracing.Insecure,
			Propagate:   c.Tracing.Propagate,
		},
	}
	if c.Duration > 0 {
		tmpl.Duration = c.Duration.String()
	}

	data, err := yaml.Marshal(tmpl)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	out := append([]byte(templateHeader), data...)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
