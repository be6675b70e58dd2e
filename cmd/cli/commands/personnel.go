package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jakechorley/guard-rota/pkg/core/services"
	"github.com/jakechorley/guard-rota/pkg/db"
)

// PersonnelCmd creates the personnel command
func PersonnelCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "personnel",
		Short: "List personnel, or import them from a YAML data file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			importPath, _ := cmd.Flags().GetString("import")
			asOfFlag, _ := cmd.Flags().GetString("as-of")

			if importPath != "" {
				return importPersonnel(cmd, app, importPath)
			}

			asOf := time.Now()
			if asOfFlag != "" {
				var err error
				if asOf, err = parseDate("as-of", asOfFlag); err != nil {
					return err
				}
			}

			summaries, err := services.ListPersonnel(app.Ctx, app.Database, app.Logger, asOf)
			if err != nil {
				return err
			}
			printPersonnel(cmd.OutOrStdout(), summaries)
			return nil
		},
	}

	cmd.Flags().String("import", "", "Replace personnel, positions and fixed rules with those in this YAML data file")
	cmd.Flags().String("as-of", "", "Only consider shifts before this date (YYYY-MM-DD, defaults to today)")

	return cmd
}

func importPersonnel(cmd *cobra.Command, app *AppContext, path string) error {
	target, ok := app.Database.(services.PersonnelImporter)
	if !ok {
		return fmt.Errorf("--import requires the postgres database driver (configured: %s)", app.Cfg.Database.Driver)
	}

	source, err := db.OpenFileDB(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	count, err := services.ImportPersonnel(app.Ctx, source, target, app.Logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Imported %d personnel from %s\n\n", count, path)
	return nil
}

func printPersonnel(w io.Writer, summaries []services.PersonnelSummary) {
	fmt.Fprintf(w, "\nFound %d personnel:\n\n", len(summaries))
	for _, s := range summaries {
		status := "available"
		switch {
		case s.Person.Retired:
			status = "retired"
		case !s.Person.Available:
			status = "unavailable"
		}

		positions := "none"
		if len(s.Positions) > 0 {
			positions = strings.Join(s.Positions, ", ")
		}

		lastShift := "never"
		if s.LastShift != "" {
			lastShift = s.LastShift
		}

		fmt.Fprintf(w, "- %s (%d) - %s - positions: %s - last shift: %s\n",
			s.Person.Name,
			s.Person.ID,
			status,
			positions,
			lastShift,
		)
	}
}
