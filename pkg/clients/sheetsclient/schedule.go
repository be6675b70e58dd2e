package sheetsclient

import (
	"fmt"
	"time"

	"google.golang.org/api/sheets/v4"
)

const (
	tabDateLayout = "Mon Jan 02 2006"
	notesColumn   = "Notes"

	// Rows above the header are left blank for titles and formatting
	headerGap = 2
)

// ScheduleRow is one (date, period) line of a published schedule
type ScheduleRow struct {
	Date   string // Format: "Mon Jan 02 2006"
	Period string // Format: "06:00-08:00"
	Names  []string
}

// PublishedSchedule is a schedule laid out for a spreadsheet tab
type PublishedSchedule struct {
	Start     time.Time
	End       time.Time
	Positions []string
	Rows      []ScheduleRow
}

// TabTitle names the tab after the schedule's date range, e.g. "Sun Sep 01 2024 - Mon Sep 30 2024"
func (p *PublishedSchedule) TabTitle() string {
	return fmt.Sprintf("%s - %s", p.Start.Format(tabDateLayout), p.End.Format(tabDateLayout))
}

// Header returns the column titles: date, period, one column per position, then notes
func (p *PublishedSchedule) Header() []interface{} {
	header := make([]interface{}, 0, len(p.Positions)+3)
	header = append(header, "Date", "Period")
	for _, name := range p.Positions {
		header = append(header, name)
	}
	return append(header, notesColumn)
}

// Values lays out the tab contents. Notes already present in existing are kept against
// the same (date, period) row; pass nil for a fresh tab.
func (p *PublishedSchedule) Values(existing [][]interface{}) [][]interface{} {
	notes := existingNotes(existing)

	values := make([][]interface{}, 0, headerGap+1+len(p.Rows))
	for i := 0; i < headerGap; i++ {
		values = append(values, []interface{}{})
	}
	values = append(values, p.Header())

	for _, row := range p.Rows {
		line := make([]interface{}, 0, len(p.Positions)+3)
		line = append(line, row.Date, row.Period)
		for i := range p.Positions {
			name := ""
			if i < len(row.Names) {
				name = row.Names[i]
			}
			line = append(line, name)
		}
		note, ok := notes[rowKey(row.Date, row.Period)]
		if !ok {
			note = ""
		}
		line = append(line, note)
		values = append(values, line)
	}
	return values
}

// PublishSchedule writes the schedule to its tab, creating the tab if it does not exist.
// An existing tab is overwritten except for its notes column.
func (c *Client) PublishSchedule(spreadsheetID string, schedule *PublishedSchedule) error {
	tabTitle := schedule.TabTitle()

	spreadsheet, err := c.service.Spreadsheets.Get(spreadsheetID).Do()
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet metadata: %w", err)
	}

	exists := false
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties.Title == tabTitle {
			exists = true
			break
		}
	}

	var existing [][]interface{}
	if exists {
		existing, err = c.GetValues(spreadsheetID, fmt.Sprintf("%s!A1:ZZ", tabTitle))
		if err != nil {
			return fmt.Errorf("failed to read existing tab data: %w", err)
		}
		if _, err := c.service.Spreadsheets.Values.Clear(
			spreadsheetID,
			fmt.Sprintf("%s!A1:ZZ", tabTitle),
			&sheets.ClearValuesRequest{},
		).Do(); err != nil {
			return fmt.Errorf("failed to clear existing tab: %w", err)
		}
	} else if _, err := c.CreateSheet(spreadsheetID, tabTitle); err != nil {
		return fmt.Errorf("failed to create tab: %w", err)
	}

	_, err = c.service.Spreadsheets.Values.Update(
		spreadsheetID,
		fmt.Sprintf("%s!A1", tabTitle),
		&sheets.ValueRange{Values: schedule.Values(existing)},
	).ValueInputOption("RAW").Do()
	if err != nil {
		return fmt.Errorf("failed to write schedule to tab: %w", err)
	}

	return nil
}

// existingNotes maps "date|period" to the notes cell of a previously published tab
func existingNotes(existing [][]interface{}) map[string]interface{} {
	notes := make(map[string]interface{})
	if len(existing) <= headerGap {
		return notes
	}

	header := existing[headerGap]
	dateCol := findColumnIndex(header, "Date")
	periodCol := findColumnIndex(header, "Period")
	notesCol := findColumnIndex(header, notesColumn)
	if dateCol == -1 || periodCol == -1 || notesCol == -1 {
		return notes
	}

	for _, row := range existing[headerGap+1:] {
		if notesCol >= len(row) || dateCol >= len(row) || periodCol >= len(row) {
			continue
		}
		date, _ := row[dateCol].(string)
		period, _ := row[periodCol].(string)
		if row[notesCol] == "" {
			continue
		}
		notes[rowKey(date, period)] = row[notesCol]
	}
	return notes
}

func rowKey(date, period string) string {
	return date + "|" + period
}

// findColumnIndex finds the index of a column by its header name
func findColumnIndex(header []interface{}, columnName string) int {
	for i, cell := range header {
		if str, ok := cell.(string); ok && str == columnName {
			return i
		}
	}
	return -1
}
