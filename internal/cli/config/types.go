// Package config provides configuration management for the leapclean CLI.
package config

// TargetConfig selects and configures the columnar engine.
type TargetConfig struct {
	// Type is the registered adapter name ("duckdb").
	Type string `koanf:"type" yaml:"type"`
	// Database is the engine database file; empty is in-memory.
	Database string            `koanf:"database" yaml:"database,omitempty"`
	Options  map[string]string `koanf:"options" yaml:"options,omitempty"`
	// Params is passed through to the adapter (extensions, settings, secrets).
	Params map[string]any `koanf:"params" yaml:"params,omitempty"`
}

// Config holds all CLI configuration options.
type Config struct {
	Input         string        `koanf:"input" yaml:"input"`
	Output        string        `koanf:"output" yaml:"output"`
	PreviewLimit  int           `koanf:"preview_limit" yaml:"preview_limit"`
	Workers       int           `koanf:"workers" yaml:"workers"`
	Timezone      string        `koanf:"timezone" yaml:"timezone"`
	AddressPolicy string        `koanf:"address_policy" yaml:"address_policy"`
	StatePath     string        `koanf:"state_path" yaml:"state_path"`
	DatabasePath  string        `koanf:"database" yaml:"database,omitempty"` // kept in sync with Target.Database
	Verbose       bool          `koanf:"verbose" yaml:"verbose"`
	OutputFormat  string        `koanf:"output_format" yaml:"output_format"`
	Target        *TargetConfig `koanf:"target" yaml:"target"`

	// ProjectRoot is the directory relative paths were resolved against.
	ProjectRoot string `koanf:"-" yaml:"-"`
}

// Default configuration values.
const (
	DefaultInput         = "orders_data.parquet"
	DefaultOutput        = "output_directory/orders_data_clean.parquet"
	DefaultPreviewLimit  = 20
	DefaultWorkers       = 1
	DefaultTimezone      = "UTC"
	DefaultAddressPolicy = "null"
	DefaultStateFile     = ".leapclean/state.db"
	DefaultTargetType    = "duckdb"
	DefaultOutputFormat  = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// OutputFormats lists the accepted values of output_format.
var OutputFormats = []string{"auto", "text", "markdown", "json", "csv"}
