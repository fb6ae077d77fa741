package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	content := `
inputs:
  - captures/run1-pre.mscap
  - captures/run1-post.mscap
format: binary
output: run1
bucketWidth: 500
maskBits: 20
threshold: -25
pace:
  mode: cbr
  rate: 100000
  target: 10.0.0.2:9000
  idleWindow: 5ms
`
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"captures/run1-pre.mscap", "captures/run1-post.mscap"}, cfg.Inputs)
	assert.Equal(t, FormatBinary, cfg.Format)
	assert.Equal(t, "run1", cfg.Output)
	assert.Equal(t, int64(500), cfg.BucketWidth)
	assert.Equal(t, uint(20), cfg.MaskBits)
	assert.Equal(t, int64(-25), cfg.Threshold)
	assert.Equal(t, "cbr", cfg.Pace.Mode)
	assert.Equal(t, float64(100000), cfg.Pace.Rate)
	assert.Equal(t, Duration(5*time.Millisecond), cfg.Pace.IdleWindow)
}

func TestLoadConfig_NotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("inputs: [unclosed"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestApplyDefaults(t *testing.T) {
	cfg := &RunConfig{
		Inputs: []string{"a-pre.mscap", "a-post.mscap"},
	}
	ApplyDefaults(cfg)

	assert.Equal(t, FormatBinary, cfg.Format)
	assert.Equal(t, "latencies", cfg.Output)
	assert.Equal(t, int64(1000), cfg.BucketWidth)
	assert.Equal(t, uint(24), cfg.MaskBits)
	assert.Equal(t, int64(-50), cfg.Threshold)
	assert.Equal(t, uint64(100), cfg.PrefillLead)
	assert.Equal(t, "cbr", cfg.Pace.Mode)
	assert.Equal(t, 64, cfg.Pace.BatchSize)
	assert.Equal(t, Duration(10*time.Millisecond), cfg.Pace.IdleWindow)
}

func TestValidate(t *testing.T) {
	valid := func() *RunConfig {
		cfg := &RunConfig{Inputs: []string{"a-pre.mscap", "a-post.mscap"}}
		ApplyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*RunConfig)
		wantErr string
	}{
		{"valid", func(c *RunConfig) {}, ""},
		{"one input", func(c *RunConfig) { c.Inputs = c.Inputs[:1] }, "inputs"},
		{"dump with no inputs", func(c *RunConfig) { c.Dump = true; c.Inputs = nil }, "inputs"},
		{"bad format", func(c *RunConfig) { c.Format = "csv" }, "format"},
		{"mask too wide", func(c *RunConfig) { c.MaskBits = 40 }, "maskBits"},
		{"positive threshold", func(c *RunConfig) { c.Threshold = 10 }, "threshold"},
		{"bad pace mode", func(c *RunConfig) { c.Pace.Mode = "turbo" }, "pace.mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &RunConfig{
		Inputs:   []string{"only-one-pre.mscap"},
		Format:   "csv",
		MaskBits: 99,
	}

	err := cfg.Validate()
	require.Error(t, err)

	verrs, ok := err.(*ValidationErrors)
	require.True(t, ok, "error should be *ValidationErrors, got %T", err)
	assert.Len(t, verrs.Errors, 3)
}
