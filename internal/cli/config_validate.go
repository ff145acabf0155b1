package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/descartecerto/internal/config"
)

// NewConfigValidateCmd creates the config validate command for validating configuration.
func NewConfigValidateCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		Long: `Validates the configuration after the config file, any project overlay and
DESCARTE_* environment variables have been applied.

This includes:
- Database driver and DSN presence
- Ranking limits (default must not exceed max)
- Positive server timeouts and disposal weight cap
- Logging level and format names`,
		Example: `  # Validate current configuration
  descarte config validate

  # Validate and show the effective values
  descarte config validate --verbose`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigValidate(cmd, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed validation information")

	return cmd
}

// runConfigValidate executes the configuration validation logic.
func runConfigValidate(cmd *cobra.Command, verbose bool) error {
	cfg := config.GetGlobalConfig()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	cmd.Printf("Configuration is valid\n")

	if verbose {
		printVerboseDetails(cmd, cfg)
	}

	return nil
}

// printVerboseDetails prints detailed configuration information.
func printVerboseDetails(cmd *cobra.Command, cfg *config.Config) {
	cmd.Println()
	cmd.Println("Configuration details:")
	cmd.Printf("  Server address: %s\n", cfg.Server.Address)
	cmd.Printf("  Database driver: %s\n", cfg.Database.Driver)
	cmd.Printf("  Ranking limit: %d (max %d)\n", cfg.Impact.DefaultRankingLimit, cfg.Impact.MaxRankingLimit)
	cmd.Printf("  Points per kg: %g\n", cfg.Impact.PointsPerKg)
	cmd.Printf("  Logging level: %s\n", cfg.Logging.Level)
	cmd.Printf("  Log file: %s\n", cfg.Logging.File)
	if dir := config.GetResolvedProjectDir(); dir != "" {
		cmd.Printf("  Project overlay: %s\n", dir)
	}
}
