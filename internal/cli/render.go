package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rshade/descartecerto/internal/greenops"
	"github.com/rshade/descartecerto/internal/impact"
)

const tabPadding = 2

// globalImpactView is the JSON shape of impact show and impact recompute.
type globalImpactView struct {
	Impact        impact.GlobalImpact        `json:"impact"`
	TotalWeight   float64                    `json:"totalWeight"`
	Equivalencies greenops.EquivalencyOutput `json:"equivalencies"`
}

func wantJSON(cmd *cobra.Command) bool {
	output, _ := cmd.Flags().GetString("output")
	return output == outputJSON
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// isWriterTerminal reports whether w is an *os.File attached to a terminal.
func isWriterTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isTerminal(f)
	}
	return false
}

// heading renders s bold and green on a terminal and as-is elsewhere.
func heading(w io.Writer, s string) string {
	if !isWriterTerminal(w) {
		return s
	}
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("34")).Render(s)
}

// headerRow renders tab-separated column names with a dashed underline.
func headerRow(w io.Writer, cols ...string) string {
	dashes := make([]string, len(cols))
	for i, c := range cols {
		dashes[i] = strings.Repeat("-", len(c))
	}
	return heading(w, strings.Join(cols, "\t")) + "\n" + strings.Join(dashes, "\t") + "\n"
}

func renderUser(cmd *cobra.Command, u impact.User) error {
	out := cmd.OutOrStdout()
	if wantJSON(cmd) {
		return writeJSON(out, u)
	}
	_, err := fmt.Fprintf(out, "Created user %s (%s)\n", u.ID, u.Name)
	return err
}

func renderDisposal(cmd *cobra.Command, d impact.Disposal) error {
	out := cmd.OutOrStdout()
	if wantJSON(cmd) {
		return writeJSON(out, d)
	}
	_, err := fmt.Fprintf(out, "Recorded %s kg of %s for %s: +%s points (disposal %s)\n",
		greenops.FormatFloat(d.WeightKg, 2), d.Material, d.UserID, greenops.FormatNumber(d.Points), d.ID)
	return err
}

func renderGlobalImpact(cmd *cobra.Command, agg impact.GlobalImpact) error {
	out := cmd.OutOrStdout()
	eq, err := greenops.CalculateForImpact(agg.Impact())
	if err != nil {
		return fmt.Errorf("computing equivalencies: %w", err)
	}
	if wantJSON(cmd) {
		return writeJSON(out, globalImpactView{Impact: agg, TotalWeight: agg.TotalWeight(), Equivalencies: eq})
	}

	w := tabwriter.NewWriter(out, 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(w, heading(out, "GLOBAL IMPACT"))
	fmt.Fprint(w, headerRow(out, "Metric", "Value"))
	fmt.Fprintf(w, "CO2 avoided (kg)\t%s\n", greenops.FormatFloat(agg.CO2Reduction, 2))
	fmt.Fprintf(w, "Water saved (L)\t%s\n", greenops.FormatFloat(agg.WaterSaved, 2))
	fmt.Fprintf(w, "Energy saved (kWh)\t%s\n", greenops.FormatFloat(agg.EnergySaved, 2))
	fmt.Fprintf(w, "Trees preserved\t%s\n", greenops.FormatFloat(agg.TreesEquivalent, 2))
	fmt.Fprintf(w, "Decomposition avoided (years)\t%s\n", greenops.FormatFloat(agg.DecompositionTime, 1))
	fmt.Fprintf(w, "Total weight (kg)\t%s\n", greenops.FormatFloat(agg.TotalWeight(), 2))
	fmt.Fprintf(w, "Active users\t%s\n", greenops.FormatNumber(agg.ActiveUsers))
	fmt.Fprintf(w, "Total points\t%s\n", greenops.FormatNumber(agg.TotalPoints))
	fmt.Fprintf(w, "Updated\t%s\n", agg.UpdatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintln(w)

	fmt.Fprint(w, headerRow(out, "Material", "Weight (kg)"))
	totals := agg.MaterialTotals()
	for _, kind := range greenops.AllMaterials() {
		fmt.Fprintf(w, "%s\t%s\n", kind, greenops.FormatFloat(totals[kind], 2))
	}
	if !eq.IsEmpty {
		fmt.Fprintln(w)
		fmt.Fprintln(w, eq.DisplayText)
	}
	return w.Flush()
}

func renderUserImpact(cmd *cobra.Command, r impact.UserImpactReport) error {
	out := cmd.OutOrStdout()
	if wantJSON(cmd) {
		return writeJSON(out, r)
	}

	s := r.Summary
	w := tabwriter.NewWriter(out, 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(w, heading(out, fmt.Sprintf("%s (%s)", r.User.Name, r.User.ID)))
	fmt.Fprintf(w, "School\t%s\n", r.User.School)
	fmt.Fprintf(w, "Points\t%s\n", greenops.FormatNumber(r.User.Points))
	fmt.Fprintf(w, "Disposals\t%d\n", s.TotalDisposals)
	fmt.Fprintf(w, "Total weight (kg)\t%s\n", greenops.FormatFloat(s.TotalWeight, 2))
	fmt.Fprintf(w, "CO2 avoided (kg)\t%s\n", greenops.FormatFloat(s.CO2Reduction, 2))
	fmt.Fprintf(w, "Water saved (L)\t%s\n", greenops.FormatFloat(s.WaterSaved, 2))
	fmt.Fprintf(w, "Energy saved (kWh)\t%s\n", greenops.FormatFloat(s.EnergySaved, 2))
	fmt.Fprintf(w, "Trees preserved\t%s\n", greenops.FormatNumber(s.TreesEquivalent))
	fmt.Fprintf(w, "Decomposition avoided (years)\t%s\n", greenops.FormatNumber(s.DecompositionTime))
	return w.Flush()
}

func renderRanking(cmd *cobra.Command, entries []impact.UserRankEntry) error {
	out := cmd.OutOrStdout()
	if wantJSON(cmd) {
		if entries == nil {
			entries = []impact.UserRankEntry{}
		}
		return writeJSON(out, entries)
	}
	if len(entries) == 0 {
		cmd.Println("No users registered.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, tabPadding, ' ', 0)
	fmt.Fprint(w, headerRow(out, "#", "User", "Name", "School", "Points", "CO2 (kg)", "Water (L)", "Trees"))
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Rank, e.UserID, e.Name, e.School,
			greenops.FormatNumber(e.Points),
			greenops.FormatFloat(e.CO2Reduction, 2),
			greenops.FormatFloat(e.WaterSaved, 2),
			greenops.FormatNumber(e.TreesEquivalent),
		)
	}
	return w.Flush()
}

func renderMaterials(cmd *cobra.Command, rows []greenops.MaterialImpactFactor) error {
	out := cmd.OutOrStdout()
	if wantJSON(cmd) {
		return writeJSON(out, rows)
	}

	w := tabwriter.NewWriter(out, 0, 0, tabPadding, ' ', 0)
	fmt.Fprint(w, headerRow(out, "Material", "CO2/kg", "Water L/kg", "Energy kWh/kg", "Trees/kg", "Decomposition yrs/kg"))
	for _, f := range rows {
		fmt.Fprintf(w, "%s\t%g\t%g\t%g\t%g\t%g\n",
			f.Kind, f.CO2PerKg, f.WaterPerKg, f.EnergyPerKg, f.TreesPerKg, f.DecompositionYearsPerKg)
	}
	return w.Flush()
}
