package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/descartecerto/internal/config"
	"github.com/rshade/descartecerto/internal/logging"
)

// Output formats accepted by --output.
const (
	outputTable = "table"
	outputJSON  = "json"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// NewRootCmd creates the root Cobra command for the descarte CLI.
// It resolves the project overlay, wires up logging and registers the
// serve, db, user, disposal, impact and config command groups.
func NewRootCmd(ver string) *cobra.Command {
	var (
		logResult  *logging.LogPathResult
		projectDir string
	)

	cmd := &cobra.Command{
		Use:           "descarte",
		Short:         "Recycling impact aggregator",
		Long:          "descarte: record recycled material disposals and track their environmental impact",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			output, _ := cmd.Flags().GetString("output")
			if output != outputTable && output != outputJSON {
				return fmt.Errorf("--output must be %q or %q, got %q", outputTable, outputJSON, output)
			}

			cwd, _ := os.Getwd()
			resolved := config.ResolveProjectDir(cmd.Context(), projectDir, cwd)
			config.SetResolvedProjectDir(resolved)
			config.InitGlobalConfigWithProject(cmd.Context(), resolved)

			result := setupLogging(cmd)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if logResult != nil {
				return logResult.Close()
			}
			return nil
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().StringP("output", "o", outputTable, "output format: table or json")
	cmd.PersistentFlags().StringVar(&projectDir, "project-dir", "",
		"directory holding a .descarte/config.yaml overlay (default: search upward from the working directory)")

	cmd.AddCommand(
		NewServeCmd(ver),
		newDBCmd(),
		newUserCmd(),
		newDisposalCmd(),
		newImpactCmd(),
		newConfigCmd(),
	)
	return cmd
}

const rootCmdExample = `  # Create the schema and start the API on :8080
  descarte db migrate
  descarte serve

  # Register a participant and record a disposal
  descarte user add --name "Ana Souza" --school "EE Jardim"
  descarte disposal record --user <id> --material plastico --weight 2.5

  # Inspect the aggregate
  descarte impact show
  descarte impact ranking --limit 5 -o json

  # Rebuild the aggregate from the disposal log
  descarte impact recompute`

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "db", Short: "Database management commands"}
	cmd.AddCommand(NewDBMigrateCmd())
	return cmd
}

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Participant management commands"}
	cmd.AddCommand(NewUserAddCmd())
	return cmd
}

func newDisposalCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "disposal", Short: "Disposal recording commands"}
	cmd.AddCommand(NewDisposalRecordCmd())
	return cmd
}

func newImpactCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "impact", Short: "Environmental impact commands"}
	cmd.AddCommand(
		NewImpactShowCmd(), NewImpactRecomputeCmd(), NewImpactUserCmd(),
		NewImpactRankingCmd(), NewImpactMaterialsCmd(),
	)
	return cmd
}

// newConfigCmd creates the config command group with configuration subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(NewConfigInitCmd(), NewConfigGetCmd(), NewConfigValidateCmd())
	return cmd
}
