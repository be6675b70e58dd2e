package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/guard-rota/pkg/core/services"
)

// PublishCmd creates the publish command
func PublishCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "publish [run_id]",
		Short: "Publish a stored schedule to the schedule sheet (defaults to latest run)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var runID string
			if len(args) > 0 {
				runID = args[0]
			}

			client, err := app.SheetsClient()
			if err != nil {
				return err
			}

			result, err := services.PublishSchedule(app.Ctx, app.Database, client, app.Cfg, app.Logger, runID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✓ Schedule published successfully!\n\n")
			fmt.Fprintf(out, "Run ID:      %s\n", result.RunID)
			fmt.Fprintf(out, "Tab:         %s\n", result.TabTitle)
			fmt.Fprintf(out, "Rows:        %d\n\n", result.Rows)
			return nil
		},
	}
}
