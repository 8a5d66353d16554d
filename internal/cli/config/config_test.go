package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFlags mirrors the flags registered by the root and run commands.
func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("state", "", "")
	fs.String("database", "", "")
	fs.BoolP("verbose", "v", false, "")
	fs.StringP("format", "f", "", "")
	fs.String("input", "", "")
	fs.String("output", "", "")
	fs.Int("preview-limit", 0, "")
	fs.Int("workers", 0, "")
	fs.String("timezone", "", "")
	fs.String("address-policy", "", "")
	return fs
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "leapclean.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Cleanup(ResetConfig)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	cwd, err := os.Getwd()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cwd, DefaultInput), cfg.Input)
	assert.Equal(t, filepath.Join(cwd, DefaultOutput), cfg.Output)
	assert.Equal(t, filepath.Join(cwd, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, DefaultPreviewLimit, cfg.PreviewLimit)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, "null", cfg.AddressPolicy)
	assert.Equal(t, "auto", cfg.OutputFormat)
	assert.Empty(t, cfg.DatabasePath)
	require.NotNil(t, cfg.Target)
	assert.Equal(t, "duckdb", cfg.Target.Type)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Cleanup(ResetConfig)

	path := writeConfig(t, dir, `
input: data/orders.parquet
output: s3://bucket/clean/orders.parquet
preview_limit: 5
workers: 4
timezone: America/New_York
address_policy: fail
output_format: json
target:
  type: duckdb
  database: scratch.duckdb
  params:
    extensions: [httpfs]
    settings:
      memory_limit: 2GB
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "data", "orders.parquet"), cfg.Input)
	assert.Equal(t, "s3://bucket/clean/orders.parquet", cfg.Output, "remote paths are not resolved")
	assert.Equal(t, 5, cfg.PreviewLimit)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "fail", cfg.AddressPolicy)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, filepath.Join(dir, "scratch.duckdb"), cfg.Target.Database)
	assert.Equal(t, cfg.Target.Database, cfg.DatabasePath)
	assert.Equal(t, []any{"httpfs"}, cfg.Target.Params["extensions"])
	assert.Equal(t, path, GetConfigFileUsed())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())
}

func TestLoadConfig_SearchesUpward(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "preview_limit: 3\ninput: orders.parquet\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0750))
	t.Chdir(nested)
	t.Cleanup(ResetConfig)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.PreviewLimit)
	assert.Equal(t, filepath.Join(root, "orders.parquet"), cfg.Input, "relative to the config file")
}

func TestLoadConfig_Precedence(t *testing.T) {
	tests := []struct {
		name  string
		file  string
		env   map[string]string
		flags []string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "env overrides file",
			file: "workers: 2\n",
			env:  map[string]string{"LEAPCLEAN_WORKERS": "6"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 6, cfg.Workers)
			},
		},
		{
			name:  "flag overrides env",
			file:  "workers: 2\n",
			env:   map[string]string{"LEAPCLEAN_WORKERS": "6"},
			flags: []string{"--workers", "8"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8, cfg.Workers)
			},
		},
		{
			name: "unchanged flag keeps file value",
			file: "preview_limit: 7\n",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7, cfg.PreviewLimit)
			},
		},
		{
			name:  "state flag maps to state_path",
			flags: []string{"--state", "history.db"},
			check: func(t *testing.T, cfg *Config) {
				cwd, _ := os.Getwd()
				assert.Equal(t, filepath.Join(cwd, "history.db"), cfg.StatePath)
			},
		},
		{
			name:  "format flag maps to output_format",
			flags: []string{"-f", "csv"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "csv", cfg.OutputFormat)
			},
		},
		{
			name:  "database flag overrides target database",
			file:  "target:\n  type: duckdb\n  database: from_file.duckdb\n",
			flags: []string{"--database", ":memory:"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ":memory:", cfg.Target.Database)
			},
		},
		{
			name: "nested target env var",
			env:  map[string]string{"LEAPCLEAN_TARGET_DATABASE": "env.duckdb"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "env.duckdb", filepath.Base(cfg.Target.Database))
			},
		},
		{
			name: "env var expansion in paths",
			file: "input: ${LEAPCLEAN_TEST_DATA}/orders.parquet\n",
			env:  map[string]string{"LEAPCLEAN_TEST_DATA": "/srv/data"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/srv/data/orders.parquet", cfg.Input)
			},
		},
		{
			name: "empty state path disables history",
			file: "state_path: \"\"\n",
			check: func(t *testing.T, cfg *Config) {
				assert.Empty(t, cfg.StatePath)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Chdir(dir)
			t.Cleanup(ResetConfig)
			if tt.file != "" {
				writeConfig(t, dir, tt.file)
			}
			for key, val := range tt.env {
				t.Setenv(key, val)
			}
			fs := newFlags()
			require.NoError(t, fs.Parse(tt.flags))

			cfg, err := LoadConfig("", fs)
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		wantErr string
	}{
		{name: "bad timezone", file: "timezone: Mars/Olympus\n", wantErr: "invalid timezone"},
		{name: "bad address policy", file: "address_policy: drop\n", wantErr: "unknown address policy"},
		{name: "negative preview", file: "preview_limit: -1\n", wantErr: "preview_limit"},
		{name: "zero workers", file: "workers: 0\n", wantErr: "workers"},
		{name: "bad output format", file: "output_format: xml\n", wantErr: "unknown output format"},
		{name: "malformed yaml", file: "input: [unclosed\n", wantErr: "error reading config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Chdir(dir)
			t.Cleanup(ResetConfig)
			writeConfig(t, dir, tt.file)

			_, err := LoadConfig("", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Cleanup(ResetConfig)

	_, err := LoadConfig("does-not-exist.yaml", nil)
	require.Error(t, err)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("LEAPCLEAN_TEST_BUCKET", "orders")

	assert.Equal(t, "s3://orders/in.parquet", expandEnvVars("s3://${LEAPCLEAN_TEST_BUCKET}/in.parquet"))
	assert.Equal(t, "${LEAPCLEAN_TEST_UNSET}/x", expandEnvVars("${LEAPCLEAN_TEST_UNSET}/x"))
	assert.Equal(t, "plain", expandEnvVars("plain"))
}

func TestResolvePathRelativeTo(t *testing.T) {
	assert.Equal(t, "", resolvePathRelativeTo("", "/base"))
	assert.Equal(t, ":memory:", resolvePathRelativeTo(":memory:", "/base"))
	assert.Equal(t, "/abs/x", resolvePathRelativeTo("/abs/x", "/base"))
	assert.Equal(t, "https://h/x", resolvePathRelativeTo("https://h/x", "/base"))
	assert.Equal(t, filepath.Join("/base", "rel", "x"), resolvePathRelativeTo("rel/x", "/base"))
}
