// Package commands implements the leapclean subcommands.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapclean/internal/cli/config"
	"github.com/leapstack-labs/leapclean/internal/cli/output"
	"github.com/leapstack-labs/leapclean/internal/engine"
	"github.com/leapstack-labs/leapclean/pkg/core"
	"github.com/leapstack-labs/leapclean/pkg/transform"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// engineOptions controls which engine resources a command needs.
type engineOptions struct {
	history bool
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	return newCommandContext(cmd, engineOptions{history: true})
}

func newCommandContext(cmd *cobra.Command, opts engineOptions) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContextWithoutEngine(cmd)

	eng, err := createEngine(cmdCtx.Cfg, cmdCtx.Logger, opts)
	if err != nil {
		return nil, nil, err
	}
	cmdCtx.Engine = eng

	cleanup := func() {
		if err := eng.Close(); err != nil {
			cmdCtx.Logger.Warn("failed to close engine", slog.String("error", err.Error()))
		}
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that don't need engine access.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// getConfig returns the current configuration, loading defaults and
// environment variables if the root command did not load one.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	if cfg, err := config.LoadConfig("", nil); err == nil {
		return cfg
	}
	return &config.Config{
		Input:         config.DefaultInput,
		Output:        config.DefaultOutput,
		PreviewLimit:  config.DefaultPreviewLimit,
		Workers:       config.DefaultWorkers,
		Timezone:      config.DefaultTimezone,
		AddressPolicy: config.DefaultAddressPolicy,
		StatePath:     config.DefaultStateFile,
		OutputFormat:  config.DefaultOutputFormat,
		Target:        &config.TargetConfig{Type: config.DefaultTargetType},
	}
}

func createEngine(cfg *config.Config, logger *slog.Logger, opts engineOptions) (*engine.Engine, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	policy, err := transform.ParseAddressPolicy(cfg.AddressPolicy)
	if err != nil {
		return nil, err
	}

	var adapterConfig *core.AdapterConfig
	if cfg.Target != nil {
		adapterConfig = &core.AdapterConfig{
			Type:    cfg.Target.Type,
			Path:    cfg.Target.Database,
			Options: cfg.Target.Options,
			Params:  cfg.Target.Params,
		}
	}

	engineCfg := engine.Config{
		Input:         cfg.Input,
		Output:        cfg.Output,
		PreviewLimit:  cfg.PreviewLimit,
		Workers:       cfg.Workers,
		Location:      loc,
		AddressPolicy: policy,
		AdapterConfig: adapterConfig,
		Logger:        logger,
	}
	if opts.history {
		engineCfg.StatePath = cfg.StatePath
	}

	eng, err := engine.New(engineCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	return eng, nil
}
