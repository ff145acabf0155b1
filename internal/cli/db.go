package cli

import (
	"github.com/spf13/cobra"
)

// NewDBMigrateCmd creates the db migrate command.
func NewDBMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create any missing tables and indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			cmd.Printf("Database schema is up to date (%s)\n", a.cfg.Database.Driver)
			return nil
		},
	}
}
