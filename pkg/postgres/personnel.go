package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jakechorley/guard-rota/pkg/core/model"
	"github.com/jakechorley/guard-rota/pkg/db"
)

// GetPersonnel retrieves every person record
func (d *DB) GetPersonnel(ctx context.Context) ([]db.Person, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, name, available, retired, skills
		FROM person
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query personnel: %w", err)
	}
	defer rows.Close()

	var personnel []db.Person
	for rows.Next() {
		var p db.Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Available, &p.Retired, &p.Skills); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		personnel = append(personnel, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating personnel: %w", err)
	}

	return personnel, nil
}

// GetPositions retrieves every position with its eligible person ids
func (d *DB) GetPositions(ctx context.Context) ([]db.Position, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT p.id, p.name, p.required_skills,
		       COALESCE(array_agg(e.person_id ORDER BY e.person_id) FILTER (WHERE e.person_id IS NOT NULL), '{}')
		FROM position p
		LEFT JOIN position_eligibility e ON e.position_id = p.id
		GROUP BY p.id
		ORDER BY p.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []db.Position
	for rows.Next() {
		var p db.Position
		var eligible []int32
		if err := rows.Scan(&p.ID, &p.Name, &p.RequiredSkills, &eligible); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		p.Eligible = toInts(eligible)
		positions = append(positions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}

// GetFixedRules retrieves every fixed position rule
func (d *DB) GetFixedRules(ctx context.Context) ([]db.FixedRule, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT person_id, position_ids, periods, enabled, description
		FROM fixed_rule
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query fixed rules: %w", err)
	}
	defer rows.Close()

	var rules []db.FixedRule
	for rows.Next() {
		var r db.FixedRule
		var positionIDs, periods []int32
		if err := rows.Scan(&r.PersonID, &positionIDs, &periods, &r.Enabled, &r.Description); err != nil {
			return nil, fmt.Errorf("failed to scan fixed rule: %w", err)
		}
		r.PositionIDs = toInts(positionIDs)
		r.Periods = toInts(periods)
		rules = append(rules, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fixed rules: %w", err)
	}

	return rules, nil
}

// GetManualAssignments retrieves the manual assignments dated within [from, to]
func (d *DB) GetManualAssignments(ctx context.Context, from, to time.Time) ([]db.ManualAssignment, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT shift_date, period, position_id, person_id
		FROM manual_assignment
		WHERE shift_date BETWEEN $1 AND $2
		ORDER BY shift_date, period, position_id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query manual assignments: %w", err)
	}
	defer rows.Close()

	var manual []db.ManualAssignment
	for rows.Next() {
		var m db.ManualAssignment
		var shiftDate time.Time
		if err := rows.Scan(&shiftDate, &m.Period, &m.PositionID, &m.PersonID); err != nil {
			return nil, fmt.Errorf("failed to scan manual assignment: %w", err)
		}
		m.Date = shiftDate.Format(model.DateLayout)
		manual = append(manual, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating manual assignments: %w", err)
	}

	return manual, nil
}

func toInts(values []int32) []int {
	if len(values) == 0 {
		return nil
	}
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = int(v)
	}
	return out
}

// ReplacePersonnel overwrites the personnel, positions and fixed rules in one transaction.
// Manual assignments and stored runs are left untouched.
func (d *DB) ReplacePersonnel(ctx context.Context, personnel []db.Person, positions []db.Position, rules []db.FixedRule) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM fixed_rule`); err != nil {
		return fmt.Errorf("failed to clear fixed rules: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM position_eligibility`); err != nil {
		return fmt.Errorf("failed to clear eligibility: %w", err)
	}

	for _, p := range personnel {
		_, err := tx.Exec(ctx, `
			INSERT INTO person (id, name, available, retired, skills)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, available = EXCLUDED.available,
			    retired = EXCLUDED.retired, skills = EXCLUDED.skills
		`, p.ID, p.Name, p.Available, p.Retired, nonNil(p.Skills))
		if err != nil {
			return fmt.Errorf("failed to upsert person %d: %w", p.ID, err)
		}
	}

	for _, p := range positions {
		_, err := tx.Exec(ctx, `
			INSERT INTO position (id, name, required_skills)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, required_skills = EXCLUDED.required_skills
		`, p.ID, p.Name, nonNil(p.RequiredSkills))
		if err != nil {
			return fmt.Errorf("failed to upsert position %d: %w", p.ID, err)
		}
		for _, personID := range p.Eligible {
			_, err := tx.Exec(ctx, `
				INSERT INTO position_eligibility (position_id, person_id) VALUES ($1, $2)
			`, p.ID, personID)
			if err != nil {
				return fmt.Errorf("failed to insert eligibility %d/%d: %w", p.ID, personID, err)
			}
		}
	}

	for _, r := range rules {
		_, err := tx.Exec(ctx, `
			INSERT INTO fixed_rule (person_id, position_ids, periods, enabled, description)
			VALUES ($1, $2, $3, $4, $5)
		`, r.PersonID, nonNil(r.PositionIDs), nonNil(r.Periods), r.Enabled, r.Description)
		if err != nil {
			return fmt.Errorf("failed to insert fixed rule for person %d: %w", r.PersonID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// nonNil keeps NOT NULL array columns from receiving SQL NULL
func nonNil[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}
