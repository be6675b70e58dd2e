package commands

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/guard-rota/pkg/core/services"
)

// ScheduleCmd creates the schedule command
func ScheduleCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Generate a guard schedule for a date range",
		Long: `Generate a guard schedule for every date in [--from, --to].

Backtracking search fills the schedule first. If slots are left open the genetic
optimiser tries to improve on it unless --no-ga is set or genetic.disabled is configured.
Incomplete schedules are only saved with --force.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromFlag, _ := cmd.Flags().GetString("from")
			toFlag, _ := cmd.Flags().GetString("to")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			noGA, _ := cmd.Flags().GetBool("no-ga")
			force, _ := cmd.Flags().GetBool("force")
			quiet, _ := cmd.Flags().GetBool("quiet")
			metricsOut, _ := cmd.Flags().GetString("metrics-out")

			from, to, err := parseRange(fromFlag, toFlag)
			if err != nil {
				return err
			}

			opts := services.GenerateOptions{
				From:        from,
				To:          to,
				DryRun:      dryRun,
				ForceCommit: force,
				NoGA:        noGA,
			}

			var registry *prometheus.Registry
			if metricsOut != "" {
				registry = prometheus.NewRegistry()
				opts.Registerer = registry
			}

			result, err := services.GenerateSchedule(app.Ctx, app.Database, app.Cfg, app.Logger, opts)
			if err != nil {
				return err
			}

			if registry != nil {
				if err := prometheus.WriteToTextfile(metricsOut, registry); err != nil {
					return fmt.Errorf("failed to write metrics: %w", err)
				}
				app.Logger.Info("Metrics written", zap.String("path", metricsOut))
			}

			out := cmd.OutOrStdout()
			if !quiet {
				fmt.Fprintln(out)
				printSchedule(out, result.Context, result.Schedule)
			}
			printUnassigned(out, result.Context, result.Diagnostics)

			fmt.Fprintln(out)
			if result.Complete() {
				fmt.Fprintf(out, "✓ Schedule complete (%s)\n\n", result.Source)
			} else {
				fmt.Fprintf(out, "⚠️  Schedule incomplete (%s)\n\n", result.Source)
			}
			fmt.Fprintf(out, "Assigned:    %d / %d\n", result.Schedule.AssignedCount(), result.Schedule.TotalSlots())
			fmt.Fprintf(out, "Fitness:     %.4f\n", result.Fitness)
			fmt.Fprintf(out, "Backtracks:  %d\n", result.Diagnostics.Statistics.TotalBacktracks)
			fmt.Fprintf(out, "Duration:    %s\n", result.Duration)

			switch {
			case result.Saved:
				fmt.Fprintf(out, "Run ID:      %s\n\n", result.RunID)
			case dryRun:
				fmt.Fprintln(out, "\nDry run - schedule not saved")
			default:
				fmt.Fprintln(out, "\nSchedule not saved - use --force to save an incomplete schedule")
			}

			return nil
		},
	}

	cmd.Flags().String("from", "", "First date to schedule (YYYY-MM-DD, required)")
	cmd.Flags().String("to", "", "Last date to schedule (YYYY-MM-DD, defaults to --from)")
	cmd.Flags().Bool("dry-run", false, "Run without saving to database")
	cmd.Flags().Bool("no-ga", false, "Skip the genetic optimiser")
	cmd.Flags().Bool("force", false, "Save the schedule even if slots are left unassigned")
	cmd.Flags().BoolP("quiet", "q", false, "Do not print the schedule table")
	cmd.Flags().String("metrics-out", "", "Write Prometheus metrics for the run to this file")

	return cmd
}
