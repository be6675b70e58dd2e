package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jakechorley/guard-rota/pkg/core/constraints"
	"github.com/jakechorley/guard-rota/pkg/core/model"
	"github.com/jakechorley/guard-rota/pkg/core/search"
)

// printSchedule writes one line per date and period with the name at each position
func printSchedule(w io.Writer, sctx *model.SchedulingContext, schedule *model.Schedule) {
	header := []string{fmt.Sprintf("%-10s", "Date"), fmt.Sprintf("%-11s", "Period")}
	for _, pos := range sctx.Positions {
		header = append(header, fmt.Sprintf("%-16s", pos.Name))
	}
	fmt.Fprintln(w, strings.TrimRight(strings.Join(header, " "), " "))

	for d, date := range sctx.Dates {
		for period := model.Period(0); period < model.NumPeriods; period++ {
			cells := []string{
				fmt.Sprintf("%-10s", date.Format(model.DateLayout)),
				fmt.Sprintf("%-11s", period.String()),
			}
			for pos := range sctx.Positions {
				cells = append(cells, fmt.Sprintf("%-16s", displayName(sctx, schedule.GetAssignment(d, period, pos))))
			}
			fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, " "), " "))
		}
	}
}

func displayName(sctx *model.SchedulingContext, personID int) string {
	if personID == model.Unassigned {
		return "-"
	}
	if p, ok := sctx.PersonByID(personID); ok {
		return p.Name
	}
	return fmt.Sprintf("#%d", personID)
}

// printUnassigned lists the slots search could not fill, grouped by reason
func printUnassigned(w io.Writer, sctx *model.SchedulingContext, diagnostics search.Diagnostics) {
	if len(diagnostics.Unassigned) == 0 {
		return
	}
	fmt.Fprintf(w, "\n⚠️  %d unassigned slots (%s):\n", len(diagnostics.Unassigned), diagnostics.Summary())
	for _, u := range diagnostics.Unassigned {
		fmt.Fprintf(w, "  ✗ %s %s %s: %s (eligible %d, feasible %d)\n",
			u.Date,
			u.Slot.Period,
			sctx.Positions[u.Slot.Position].Name,
			u.Reason,
			u.Eligible,
			u.Feasible)
	}
}

// printReport writes the audit verdict followed by per-rule violation counts
func printReport(w io.Writer, report constraints.ConsistencyReport) {
	fmt.Fprintf(w, "Checked:     %d assignments\n", report.Checked)
	fmt.Fprintf(w, "Unassigned:  %d slots\n", report.Unassigned)
	if report.Consistent() {
		fmt.Fprintln(w, "\n✓ No violations found")
		return
	}

	fmt.Fprintf(w, "\n✗ %d violations found:\n", len(report.Violations))
	byRule := report.ViolationsByRule()
	rules := make([]string, 0, len(byRule))
	for rule := range byRule {
		rules = append(rules, rule)
	}
	sort.Strings(rules)
	for _, rule := range rules {
		fmt.Fprintf(w, "  %-20s %d\n", rule, byRule[rule])
	}
	fmt.Fprintln(w)
	for _, v := range report.Violations {
		fmt.Fprintf(w, "  ✗ %s\n", v.Error())
	}
}
