package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// EnvPrefix is the prefix of environment variables read by the loader.
const EnvPrefix = "LEAPCLEAN_"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// configNames are the file names searched for, in order.
var configNames = []string{"leapclean.yaml", "leapclean.yml"}

// flagKeys maps CLI flag names to config keys where they differ.
var flagKeys = map[string]string{
	"state":  "state_path",
	"format": "output_format",
}

// pathFlags are flags whose values are paths relative to the working directory.
var pathFlags = map[string]string{
	"input":    "input",
	"output":   "output",
	"state":    "state_path",
	"database": "database",
}

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config
)

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func configExistsIn(dir string) string {
	for _, name := range configNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findConfigUpward searches upward from startDir for a leapclean config file.
func findConfigUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if found := configExistsIn(dir); found != "" {
			return found
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// isRemote reports whether p is a URL rather than a local path.
func isRemote(p string) bool {
	return strings.Contains(p, "://")
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Empty paths, URLs and ":memory:" are returned unchanged.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || isRemote(path) || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]any {
	return map[string]any{
		"input":          DefaultInput,
		"output":         DefaultOutput,
		"preview_limit":  DefaultPreviewLimit,
		"workers":        DefaultWorkers,
		"timezone":       DefaultTimezone,
		"address_policy": DefaultAddressPolicy,
		"state_path":     DefaultStateFile,
		"verbose":        false,
		"output_format":  DefaultOutputFormat,
		"target.type":    DefaultTargetType,
	}
}

// LoadConfig loads configuration from defaults, file, environment variables and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	// 1. Load defaults
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file: explicit --config, else search upward from CWD
	configFileUsed = cfgFile
	if configFileUsed == "" {
		configFileUsed = findConfigUpward(cwd)
	}
	projectRoot := cwd
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
		if abs, err := filepath.Abs(configFileUsed); err == nil {
			projectRoot = filepath.Dir(abs)
		}
	}

	// 3. Load environment variables
	// Transform: LEAPCLEAN_PREVIEW_LIMIT -> preview_limit, LEAPCLEAN_TARGET_TYPE -> target.type
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	flagPaths := make(map[string]string)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if mapped, ok := flagKeys[f.Name]; ok {
				key = mapped
			}
			if pathKey, ok := pathFlags[f.Name]; ok {
				flagPaths[pathKey] = f.Value.String()
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectRoot = projectRoot

	if cfg.Target == nil {
		cfg.Target = &TargetConfig{}
	}
	if cfg.Target.Type == "" {
		cfg.Target.Type = DefaultTargetType
	}

	// 6. Expand ${VAR} references, then resolve relative paths. Paths given
	// as flags are relative to the working directory, all others to the
	// project root.
	cfg.Input = expandEnvVars(cfg.Input)
	cfg.Output = expandEnvVars(cfg.Output)
	cfg.StatePath = expandEnvVars(cfg.StatePath)
	cfg.DatabasePath = expandEnvVars(cfg.DatabasePath)
	cfg.Target.Database = expandEnvVars(cfg.Target.Database)

	resolve := func(key, value string) string {
		if _, fromFlag := flagPaths[key]; fromFlag {
			return resolvePathRelativeTo(value, cwd)
		}
		return resolvePathRelativeTo(value, projectRoot)
	}
	cfg.Input = resolve("input", cfg.Input)
	cfg.Output = resolve("output", cfg.Output)
	cfg.StatePath = resolve("state_path", cfg.StatePath)
	cfg.DatabasePath = resolve("database", cfg.DatabasePath)
	cfg.Target.Database = resolvePathRelativeTo(cfg.Target.Database, projectRoot)

	// --database overrides target.database; otherwise keep them in sync.
	if _, ok := flagPaths["database"]; ok {
		cfg.Target.Database = cfg.DatabasePath
	} else if cfg.Target.Database == "" && cfg.DatabasePath != "" {
		cfg.Target.Database = cfg.DatabasePath
	} else if cfg.Target.Database != "" && cfg.DatabasePath == "" {
		cfg.DatabasePath = cfg.Target.Database
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	currentConfig = &cfg
	return &cfg, nil
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if rest, ok := strings.CutPrefix(key, "target_"); ok {
		return "target." + rest
	}
	return key
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})
}
