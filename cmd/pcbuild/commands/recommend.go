package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"pcbuilder/internal/app"
	"pcbuilder/internal/catalog"
	"pcbuilder/internal/export"
	"pcbuilder/internal/recommend"

	"github.com/spf13/cobra"
)

type recommendFlags struct {
	budget      string
	useCase     string
	aesthetic   string
	monitor     bool
	keyboard    bool
	mouse       bool
	resolution  string
	refreshRate int
	midpoint    bool
	xlsx        string
}

func newRecommendCmd(e *env) *cobra.Command {
	f := &recommendFlags{}
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend a build for a budget",
		Example: `  pcbuild recommend --budget 1200 --use-case gaming
  pcbuild recommend --budget '$2,000' --use-case streaming --monitor --aesthetic white --xlsx build.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecommend(cmd, e, f)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.budget, "budget", "", "total budget in USD")
	flags.StringVar(&f.useCase, "use-case", "general", "gaming, productivity, streaming or general")
	flags.StringVar(&f.aesthetic, "aesthetic", "", "preferred aesthetic tag, e.g. white or rgb")
	flags.BoolVar(&f.monitor, "monitor", false, "include a monitor")
	flags.BoolVar(&f.keyboard, "keyboard", false, "include a keyboard")
	flags.BoolVar(&f.mouse, "mouse", false, "include a mouse")
	flags.StringVar(&f.resolution, "resolution", "", "monitor resolution: 1080p, 1440p or 4K")
	flags.IntVar(&f.refreshRate, "refresh-rate", 0, "minimum monitor refresh rate in Hz")
	flags.BoolVar(&f.midpoint, "midpoint", false, "use range midpoints instead of random fractions")
	flags.StringVar(&f.xlsx, "xlsx", "", "also write the build to this xlsx file")
	return cmd
}

func (f *recommendFlags) preferences() (recommend.Preferences, error) {
	raw := map[string]interface{}{
		"use_case": f.useCase,
		"monitor":  f.monitor,
		"keyboard": f.keyboard,
		"mouse":    f.mouse,
	}
	if f.budget != "" {
		raw["budget"] = f.budget
	}
	if f.aesthetic != "" {
		raw["aesthetic"] = f.aesthetic
	}
	if f.resolution != "" {
		raw["monitor_resolution"] = f.resolution
	}
	if f.refreshRate > 0 {
		raw["monitor_refresh_rate"] = f.refreshRate
	}
	return recommend.ParsePreferences(raw)
}

func runRecommend(cmd *cobra.Command, e *env, f *recommendFlags) error {
	prefs, err := f.preferences()
	if err != nil {
		return err
	}

	db, err := e.openDB()
	if err != nil {
		return err
	}
	snap, err := catalog.NewRepository(db).LoadSnapshot(cmd.Context())
	if err != nil {
		return err
	}

	opts := app.AllocatorOptions(e.cfg, e.logger(cmd, "[Recommender] "))
	if f.midpoint {
		opts = append(opts, recommend.WithFractions(recommend.Midpoint{}))
	}
	result, err := recommend.New(snap, opts...).Recommend(prefs)
	if err != nil {
		var infeasible *recommend.InfeasibleError
		if errors.As(err, &infeasible) && len(infeasible.Committed) > 0 {
			warn.Fprintf(cmd.ErrOrStderr(), "Picked %v before giving up\n", infeasible.Committed)
		}
		return err
	}

	printBuild(cmd.OutOrStdout(), result)

	if f.xlsx != "" {
		if err := writeSheet(f.xlsx, result); err != nil {
			return err
		}
		good.Fprintf(cmd.OutOrStdout(), "Saved spreadsheet to %s\n", f.xlsx)
	}
	return nil
}

func printBuild(w io.Writer, result *recommend.BuildResult) {
	heading.Fprintf(w, "Here's a %s build for your $%s budget:\n", result.Preferences.UseCase, result.Preferences.Budget.StringFixed(2))
	for _, p := range result.OrderedParts() {
		fmt.Fprintf(w, "  %-12s %s ($%s at %s)\n", p.Category, p.Product.Name, p.Price.Price.StringFixed(2), p.Price.RetailerName)
	}
	good.Fprintf(w, "Total: $%s ($%s left over)\n", result.Total.StringFixed(2), result.Remaining().StringFixed(2))
	for _, warning := range result.Warnings {
		warn.Fprintf(w, "Note: %s\n", warning)
	}
}

func writeSheet(path string, result *recommend.BuildResult) error {
	sheet, err := export.BuildSheet(result)
	if err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer out.Close()
	return export.Write(out, sheet)
}
