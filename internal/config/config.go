// Package config provides parsing and validation of a measurement run's
// configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Format identifies the physical encoding of the capture inputs.
type Format string

const (
	// FormatBinary is the compact fixed-layout binary record format with
	// an embedded identifier.
	FormatBinary Format = "binary"

	// FormatPcap is a generic pcap capture requiring derived identifiers
	// and hardware-timestamp extraction.
	FormatPcap Format = "pcap"
)

// RunConfig is the full configuration of a correlation run and, optionally,
// the paced stimulus that feeds it.
//
// Example YAML:
//
//	inputs:
//	  - captures/run1-pre.mscap
//	  - captures/run1-post.mscap
//	format: binary
//	output: latencies
//	bucketWidth: 1000
//	maskBits: 24
//	threshold: -50
//	pace:
//	  mode: cbr
//	  rate: 100000
type RunConfig struct {
	// Inputs are the two capture files; which is pre and which post is
	// resolved from the file naming convention.
	Inputs []string `yaml:"inputs"`

	// Format selects binary or pcap input decoding.
	Format Format `yaml:"format,omitempty"`

	// Output is the base name for the histogram artifact.
	Output string `yaml:"output,omitempty"`

	// BucketWidth is the histogram bucket width in device-clock units.
	BucketWidth int64 `yaml:"bucketWidth,omitempty"`

	// MaskBits is the correlation table's identifier mask width in bits.
	MaskBits uint `yaml:"maskBits,omitempty"`

	// Threshold is the signed negative-latency abort threshold.
	Threshold int64 `yaml:"threshold,omitempty"`

	// PrefillLead is the prefill safety bound in addressable slots.
	PrefillLead uint64 `yaml:"prefillLead,omitempty"`

	// Dump short-circuits correlation and dumps raw records as text.
	Dump bool `yaml:"dump,omitempty"`

	// Pace configures the stimulus pacer.
	Pace PaceConfig `yaml:"pace,omitempty"`
}

// PaceConfig configures the traffic pacer.
type PaceConfig struct {
	// Mode is "greedy" or "cbr".
	Mode string `yaml:"mode,omitempty"`

	// Rate is the CBR target in packets per second.
	Rate float64 `yaml:"rate,omitempty"`

	// BatchSize is the dequeue batch size.
	BatchSize int `yaml:"batchSize,omitempty"`

	// IdleWindow bounds deadline catch-up after a traffic gap.
	IdleWindow Duration `yaml:"idleWindow,omitempty"`

	// Target is the egress host:port.
	Target string `yaml:"target,omitempty"`
}

// LoadConfig reads and parses a YAML run configuration from a file.
func LoadConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := &RunConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields with their defaults.
func ApplyDefaults(cfg *RunConfig) {
	if cfg.Format == "" {
		cfg.Format = FormatBinary
	}
	if cfg.Output == "" {
		cfg.Output = "latencies"
	}
	if cfg.BucketWidth == 0 {
		cfg.BucketWidth = 1000
	}
	if cfg.MaskBits == 0 {
		cfg.MaskBits = 24
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = -50
	}
	if cfg.PrefillLead == 0 {
		cfg.PrefillLead = 100
	}
	if cfg.Pace.Mode == "" {
		cfg.Pace.Mode = "cbr"
	}
	if cfg.Pace.BatchSize == 0 {
		cfg.Pace.BatchSize = 64
	}
	if cfg.Pace.IdleWindow == 0 {
		cfg.Pace.IdleWindow = Duration(10 * time.Millisecond)
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Validate validates the run configuration.
//
// Returns nil if valid, or a ValidationErrors containing all problems found.
func (c *RunConfig) Validate() error {
	errs := &ValidationErrors{}

	if !c.Dump && len(c.Inputs) != 2 {
		errs.Add("inputs", fmt.Sprintf("dual-stream correlation requires exactly 2 capture files, got %d", len(c.Inputs)))
	}
	if c.Dump && len(c.Inputs) < 1 {
		errs.Add("inputs", "dump mode requires at least 1 capture file")
	}

	if c.Format != FormatBinary && c.Format != FormatPcap {
		errs.Add("format", fmt.Sprintf("must be %q or %q, got %q", FormatBinary, FormatPcap, c.Format))
	}

	if c.BucketWidth < 0 {
		errs.Add("bucketWidth", "must be positive")
	}
	if c.MaskBits > 32 {
		errs.Add("maskBits", fmt.Sprintf("must be between 1 and 32, got %d", c.MaskBits))
	}
	if c.Threshold > 0 {
		errs.Add("threshold", "must be zero or negative: positive latency never aborts a run")
	}

	if c.Pace.Mode != "" && c.Pace.Mode != "greedy" && c.Pace.Mode != "cbr" {
		errs.Add("pace.mode", fmt.Sprintf("must be \"greedy\" or \"cbr\", got %q", c.Pace.Mode))
	}
	if c.Pace.Mode == "cbr" && c.Pace.Rate < 0 {
		errs.Add("pace.rate", "must not be negative")
	}
	if c.Pace.BatchSize < 0 {
		errs.Add("pace.batchSize", "must not be negative")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
