package cli

import (
	"github.com/spf13/cobra"

	"github.com/rshade/descartecerto/internal/greenops"
)

// NewImpactShowCmd creates the impact show command.
func NewImpactShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the global impact aggregate",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			agg, _, err := a.agg.EnsureAggregate(ctx)
			if err != nil {
				return err
			}
			return renderGlobalImpact(cmd, agg)
		},
	}
}

// NewImpactRecomputeCmd creates the impact recompute command.
func NewImpactRecomputeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recompute",
		Short: "Rebuild the global aggregate from the disposal log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			agg, err := a.agg.CalculateTotalImpact(ctx)
			if err != nil {
				return err
			}
			return renderGlobalImpact(cmd, agg)
		},
	}
}

// NewImpactUserCmd creates the impact user command.
func NewImpactUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "user <user-id>",
		Short: "Show one user's impact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.agg.GetUserImpact(ctx, args[0])
			if err != nil {
				return err
			}
			return renderUserImpact(cmd, report)
		},
	}
}

// NewImpactRankingCmd creates the impact ranking command.
func NewImpactRankingCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "ranking",
		Short: "List users by points",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.agg.GetImpactRanking(ctx, limit)
			if err != nil {
				return err
			}
			return renderRanking(cmd, entries)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "number of users (default: impact.default_ranking_limit)")
	return cmd
}

// NewImpactMaterialsCmd creates the impact materials command.
func NewImpactMaterialsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "materials",
		Short: "List per-kilogram impact factors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return renderMaterials(cmd, greenops.FactorTable())
		},
	}
}
