package commands

import (
	"fmt"
	"time"

	"github.com/jakechorley/guard-rota/pkg/core/model"
)

// parseDate parses a YYYY-MM-DD flag value
func parseDate(flag, value string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be a date in YYYY-MM-DD format: %w", flag, err)
	}
	return t, nil
}

// parseRange parses --from and --to. An empty to means a single date.
func parseRange(from, to string) (time.Time, time.Time, error) {
	if from == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("--from is required")
	}
	start, err := parseDate("from", from)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to == "" {
		return start, start, nil
	}
	end, err := parseDate("to", to)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to (%s) is before --from (%s)", to, from)
	}
	return start, end, nil
}
