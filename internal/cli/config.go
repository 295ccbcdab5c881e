package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/config"
)

// ConfigCmd creates the config command.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the effective configuration, one KEY=value per line.

Values come from the environment (and a .env file if present), with defaults
for everything unset. Tokens and API keys are redacted. Validation errors are
reported after the listing.`,
		Example: `  transcribebot config
  STT_BACKEND=groq transcribebot config`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(env)
		},
	}
}

// runConfig prints every entry even when validation fails, so the
// offending value can be seen next to the error.
func runConfig(env *Env) error {
	cfg, err := config.Load(env.Getenv)

	for _, e := range cfg.Entries() {
		fmt.Fprintf(env.Stdout, "%s=%s\n", e.Key, e.Value)
	}
	if err != nil {
		return err
	}

	if tokenErr := cfg.RequireToken(); tokenErr != nil {
		fmt.Fprintf(env.Stderr, "Warning: %v (serve will not start)\n", tokenErr)
	}
	return nil
}
