package cli

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rshade/descartecerto/internal/impact"
)

// NewUserAddCmd creates the user add command.
func NewUserAddCmd() *cobra.Command {
	var (
		id     string
		name   string
		school string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a participant",
		Example: `  descarte user add --name "Ana Souza" --school "EE Jardim"
  descarte user add --id 3f1c... --name "Bruno"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(name) == "" {
				return errors.New("--name is required")
			}
			if id == "" {
				id = uuid.NewString()
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			u := impact.User{ID: id, Name: name, School: school, CreatedAt: time.Now().UTC()}
			if err = a.store.CreateUser(cmd.Context(), u); err != nil {
				return err
			}
			return renderUser(cmd, u)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "user ID (default: random UUID)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&school, "school", "", "school or collection point")
	return cmd
}
