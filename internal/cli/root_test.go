package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapclean/internal/cli/config"
	"github.com/leapstack-labs/leapclean/internal/testutil"
	"github.com/leapstack-labs/leapclean/pkg/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// project creates a working directory holding the default input file.
func project(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteParquet(t, filepath.Join(dir, config.DefaultInput), testutil.OrdersFixture)
	t.Chdir(dir)
	t.Cleanup(config.ResetConfig)
	return dir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRun_Defaults(t *testing.T) {
	dir := project(t)

	stdout, _, err := execute(t, "run")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, config.DefaultOutput))
	assert.FileExists(t, filepath.Join(dir, config.DefaultStateFile))
	assert.Contains(t, stdout, "# Run summary")
	assert.Contains(t, stdout, "- **rows_written:** 3")
	assert.Contains(t, stdout, "iphone")
	assert.Contains(t, stdout, "(3 rows)")
}

func TestRun_JSON(t *testing.T) {
	project(t)

	stdout, _, err := execute(t, "run", "--format", "json", "--workers", "3", "--output", "clean/out.parquet")
	require.NoError(t, err)

	var summary struct {
		RunID  string `json:"run_id"`
		Status string `json:"status"`
		Output string `json:"output"`
		Stats  struct {
			Read             int64 `json:"read"`
			Written          int64 `json:"written"`
			DroppedNight     int64 `json:"dropped_night"`
			DroppedTV        int64 `json:"dropped_tv"`
			MalformedAddress int64 `json:"malformed_address"`
		} `json:"stats"`
		Preview []map[string]any `json:"preview"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, "completed", summary.Status)
	assert.Equal(t, "out.parquet", filepath.Base(summary.Output))
	assert.Equal(t, int64(5), summary.Stats.Read)
	assert.Equal(t, int64(3), summary.Stats.Written)
	assert.Equal(t, int64(1), summary.Stats.DroppedNight)
	assert.Equal(t, int64(1), summary.Stats.DroppedTV)
	assert.Equal(t, int64(1), summary.Stats.MalformedAddress)
	require.Len(t, summary.Preview, 3)
	assert.Equal(t, "2023-01-22", summary.Preview[0]["order_date"])
	assert.Equal(t, "NULL", summary.Preview[2]["purchase_state"])
}

func TestRun_MissingInput(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Cleanup(config.ResetConfig)

	_, _, err := execute(t, "run", "--preview-limit", "0")
	require.ErrorIs(t, err, adapter.ErrInputNotFound)
}

func TestRun_InvalidFlag(t *testing.T) {
	project(t)

	_, _, err := execute(t, "run", "--address-policy", "drop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown address policy")
}

func TestRun_ConfigFile(t *testing.T) {
	dir := project(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "leapclean.yaml"), []byte(`
output: cleaned.parquet
preview_limit: 1
state_path: ""
`), 0600))

	stdout, _, err := execute(t, "run", "-f", "csv")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "cleaned.parquet"))
	assert.NoFileExists(t, filepath.Join(dir, config.DefaultStateFile))
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2, "header plus one preview row")
	assert.True(t, strings.HasPrefix(lines[0], "order_id,order_date,product"))
}

func TestHistory(t *testing.T) {
	project(t)

	_, _, err := execute(t, "run", "--preview-limit", "0")
	require.NoError(t, err)
	_, _, err = execute(t, "run", "--preview-limit", "0")
	require.NoError(t, err)

	stdout, _, err := execute(t, "history", "--format", "json", "--limit", "5")
	require.NoError(t, err)

	var runs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, "completed", runs[0]["status"])
	assert.InDelta(t, 3, runs[0]["rows_written"], 0)
}

func TestPreview(t *testing.T) {
	project(t)

	stdout, _, err := execute(t, "preview", config.DefaultInput, "--limit", "2", "--format", "csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[1], "iPhone")
}

func TestConfigCommand(t *testing.T) {
	dir := project(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "leapclean.yaml"), []byte("workers: 3\n"), 0600))
	t.Setenv("LEAPCLEAN_TIMEZONE", "Europe/Paris")

	stdout, _, err := execute(t, "config", "--state", "h.db")
	require.NoError(t, err)

	assert.Contains(t, stdout, "# config file: ")
	assert.Contains(t, stdout, "workers: 3")
	assert.Contains(t, stdout, "timezone: Europe/Paris")
	assert.Contains(t, stdout, "preview_limit: 20")
	assert.Contains(t, stdout, "h.db")
	assert.Contains(t, stdout, "type: duckdb")
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "leapclean v"+Version)
}

func TestCompletion(t *testing.T) {
	stdout, _, err := execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, stdout, "leapclean")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, false).Debug("hidden")
	NewLogger(&buf, false).Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	NewLogger(&buf, true).Debug("debug on")
	assert.Contains(t, buf.String(), "debug on")
}
