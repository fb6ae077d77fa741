package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/dutlat/internal/pace"
)

// newPaceTestCmd builds a fresh command carrying the pace flag set, so each
// test gets its own flag state.
func newPaceTestCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "pace"}
	addPaceFlags(cmd)
	return cmd
}

func writePaceYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuildPaceConfig_FromConfigFile(t *testing.T) {
	path := writePaceYAML(t, `
pace:
  mode: greedy
  rate: 250000
  batchSize: 32
  idleWindow: 5ms
  target: 192.0.2.1:9000
`)

	cmd := newPaceTestCmd()
	require.NoError(t, cmd.Flags().Set("config", path))

	cfg, target, err := buildPaceConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, pace.ModeGreedy, cfg.Mode)
	assert.Equal(t, float64(250000), cfg.Rate)
	assert.Equal(t, 32, cfg.BatchSize)
	assert.Equal(t, 5*time.Millisecond, cfg.IdleWindow)
	assert.Equal(t, "192.0.2.1:9000", target)
}

func TestBuildPaceConfig_FlagsWinOverFile(t *testing.T) {
	path := writePaceYAML(t, `
pace:
  mode: cbr
  rate: 1000
  target: 192.0.2.1:9000
`)

	cmd := newPaceTestCmd()
	require.NoError(t, cmd.Flags().Set("config", path))
	require.NoError(t, cmd.Flags().Set("rate", "5000"))
	require.NoError(t, cmd.Flags().Set("target", "198.51.100.7:4000"))

	cfg, target, err := buildPaceConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, pace.ModeCBR, cfg.Mode)
	assert.Equal(t, float64(5000), cfg.Rate)
	assert.Equal(t, "198.51.100.7:4000", target)
}

func TestBuildPaceConfig_FlagDefaultsWithoutFile(t *testing.T) {
	cmd := newPaceTestCmd()
	require.NoError(t, cmd.Flags().Set("target", "127.0.0.1:5000"))

	cfg, target, err := buildPaceConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, pace.ModeCBR, cfg.Mode)
	assert.Equal(t, float64(1000), cfg.Rate)
	assert.Equal(t, 64, cfg.BatchSize)
	assert.Equal(t, 10*time.Millisecond, cfg.IdleWindow)
	assert.Equal(t, "127.0.0.1:5000", target)
}

func TestBuildPaceConfig_MissingFileFails(t *testing.T) {
	cmd := newPaceTestCmd()
	require.NoError(t, cmd.Flags().Set("config", "/nonexistent/run.yaml"))

	_, _, err := buildPaceConfig(cmd)
	require.Error(t, err)
}
