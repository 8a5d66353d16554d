package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapclean/internal/cli/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after merging defaults, leapclean.yaml,
LEAPCLEAN_* environment variables and flags, as YAML.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig()

			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}

			w := cmd.OutOrStdout()
			if file := config.GetConfigFileUsed(); file != "" {
				_, _ = fmt.Fprintf(w, "# config file: %s\n", file)
			}
			_, err = w.Write(out)
			return err
		},
	}
}
