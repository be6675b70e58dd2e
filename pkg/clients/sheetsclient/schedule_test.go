package sheetsclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSchedule() *PublishedSchedule {
	return &PublishedSchedule{
		Start:     time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC),
		Positions: []string{"Gate", "Tower"},
		Rows: []ScheduleRow{
			{Date: "Sun Sep 01 2024", Period: "00:00-02:00", Names: []string{"Alice", "Bob"}},
			{Date: "Sun Sep 01 2024", Period: "02:00-04:00", Names: []string{"Carol"}},
		},
	}
}

func TestPublishedSchedule_TabTitle(t *testing.T) {
	assert.Equal(t, "Sun Sep 01 2024 - Mon Sep 30 2024", sampleSchedule().TabTitle())
}

func TestPublishedSchedule_ValuesFreshTab(t *testing.T) {
	values := sampleSchedule().Values(nil)

	require.Len(t, values, 5)
	assert.Empty(t, values[0])
	assert.Empty(t, values[1])
	assert.Equal(t, []interface{}{"Date", "Period", "Gate", "Tower", "Notes"}, values[2])
	assert.Equal(t, []interface{}{"Sun Sep 01 2024", "00:00-02:00", "Alice", "Bob", ""}, values[3])
	// Missing names are padded so every row spans all position columns
	assert.Equal(t, []interface{}{"Sun Sep 01 2024", "02:00-04:00", "Carol", "", ""}, values[4])
}

func TestPublishedSchedule_ValuesKeepNotes(t *testing.T) {
	existing := [][]interface{}{
		{},
		{},
		{"Date", "Period", "Gate", "Notes"},
		{"Sun Sep 01 2024", "00:00-02:00", "Dave", "radio broken"},
		{"Sun Sep 01 2024", "02:00-04:00", "Eve"},
		{"Sat Aug 31 2024", "00:00-02:00", "Eve", "old note"},
	}

	values := sampleSchedule().Values(existing)

	require.Len(t, values, 5)
	assert.Equal(t, []interface{}{"Sun Sep 01 2024", "00:00-02:00", "Alice", "Bob", "radio broken"}, values[3])
	assert.Equal(t, []interface{}{"Sun Sep 01 2024", "02:00-04:00", "Carol", "", ""}, values[4])
}

func TestExistingNotes_UnrecognisedHeader(t *testing.T) {
	existing := [][]interface{}{
		{},
		{},
		{"Day", "Team lead"},
		{"Sun Sep 01 2024", "Alice"},
	}

	assert.Empty(t, existingNotes(existing))
	assert.Empty(t, existingNotes(nil))
}

func TestFindColumnIndex(t *testing.T) {
	header := []interface{}{"Date", 42, "Period"}

	assert.Equal(t, 0, findColumnIndex(header, "Date"))
	assert.Equal(t, 2, findColumnIndex(header, "Period"))
	assert.Equal(t, -1, findColumnIndex(header, "Notes"))
}
