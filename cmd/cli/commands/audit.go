package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/guard-rota/pkg/core/services"
)

// AuditCmd creates the audit command
func AuditCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "audit [run_id]",
		Short: "Re-validate a stored schedule against every hard constraint (defaults to latest run)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var runID string
			if len(args) > 0 {
				runID = args[0]
			}

			result, err := services.AuditSchedule(app.Ctx, app.Database, app.Cfg, app.Logger, runID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nRun ID:      %s\n", result.Run.ID)
			fmt.Fprintf(out, "Range:       %s - %s\n", result.Run.Start, result.Run.End)
			fmt.Fprintf(out, "Source:      %s\n", result.Run.Source)
			printReport(out, result.Report)
			fmt.Fprintln(out)

			if !result.Report.Consistent() {
				return fmt.Errorf("run %s has %d constraint violations", result.Run.ID, len(result.Report.Violations))
			}
			return nil
		},
	}
}
