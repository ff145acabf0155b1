package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/descartecerto/internal/greenops"
	"github.com/rshade/descartecerto/internal/impact"
)

// NewDisposalRecordCmd creates the disposal record command.
func NewDisposalRecordCmd() *cobra.Command {
	var (
		userID   string
		material string
		weight   float64
		unit     string
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a disposal and update the aggregate",
		Long: `Records one disposal for a registered user. The weight is converted to
kilograms from --unit (kg, g, t, lb). The global aggregate is created first
if it does not exist yet.`,
		Example: `  descarte disposal record --user 3f1c... --material PAPER --weight 1.2
  descarte disposal record --user 3f1c... --material vidro --weight 800 --unit g`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kg, err := greenops.NormalizeToKg(weight, unit)
			if err != nil {
				return fmt.Errorf("invalid weight: %w", err)
			}

			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, _, err = a.agg.EnsureAggregate(ctx); err != nil {
				return err
			}

			d, err := a.agg.RecordDisposal(ctx, impact.DisposalInput{
				UserID:   userID,
				Material: material,
				WeightKg: kg,
			})
			if err != nil {
				return err
			}
			return renderDisposal(cmd, d)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID")
	cmd.Flags().StringVar(&material, "material", "", "material kind (PLASTIC, GLASS, PAPER, METAL, ORGANIC, ELECTRONIC)")
	cmd.Flags().Float64Var(&weight, "weight", 0, "weight of the disposal")
	cmd.Flags().StringVar(&unit, "unit", "kg", "unit of --weight")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("material")
	_ = cmd.MarkFlagRequired("weight")
	return cmd
}
