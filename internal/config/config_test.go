package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/guard-rota/pkg/core/model"
)

func day(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := &Config{
		Database:        DatabaseConfig{Driver: "postgres", URL: "postgres://localhost/guard"},
		ScheduleSheetID: "sheet123",
		Holidays: HolidayConfig{
			Dates:  []string{"2024-12-25"},
			RRules: []string{"FREQ=WEEKLY;BYDAY=SA,SU"},
		},
		ManualOverrides: []ManualOverride{
			{RRule: "FREQ=WEEKLY;BYDAY=MO", Period: 3, PositionID: 1, PersonID: 7},
		},
		Genetic: GeneticConfig{PopulationSize: 20, MutationRate: 0.05},
	}

	err := Validate(cfg)
	assert.NoError(t, err)
}

func TestValidate_MinimalConfig(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Driver: "file", Path: "db.yaml"},
	}

	err := Validate(cfg)
	assert.NoError(t, err)
}

func TestValidate_DriverRequirements(t *testing.T) {
	tests := []struct {
		name string
		db   DatabaseConfig
	}{
		{name: "missing driver", db: DatabaseConfig{}},
		{name: "unknown driver", db: DatabaseConfig{Driver: "sqlite", Path: "x"}},
		{name: "file without path", db: DatabaseConfig{Driver: "file"}},
		{name: "postgres without url", db: DatabaseConfig{Driver: "postgres", Path: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&Config{Database: tt.db})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config validation failed")
		})
	}
}

func TestValidate_InvalidValues(t *testing.T) {
	base := func() *Config {
		return &Config{Database: DatabaseConfig{Driver: "file", Path: "db.yaml"}}
	}

	t.Run("holiday date", func(t *testing.T) {
		cfg := base()
		cfg.Holidays.Dates = []string{"25/12/2024"}
		assert.Error(t, Validate(cfg))
	})

	t.Run("override period", func(t *testing.T) {
		cfg := base()
		cfg.ManualOverrides = []ManualOverride{{RRule: "FREQ=DAILY", Period: 12}}
		assert.Error(t, Validate(cfg))
	})

	t.Run("mutation rate", func(t *testing.T) {
		cfg := base()
		cfg.Genetic.MutationRate = 1.5
		assert.Error(t, Validate(cfg))
	})

	t.Run("negative weight", func(t *testing.T) {
		cfg := base()
		weight := -0.5
		cfg.Scoring.PeriodWeight = &weight
		assert.Error(t, Validate(cfg))
	})

	t.Run("assign probability", func(t *testing.T) {
		cfg := base()
		cfg.Genetic.AssignProbability = 1.2
		assert.Error(t, Validate(cfg))
	})

	t.Run("negative hard penalty", func(t *testing.T) {
		cfg := base()
		cfg.Genetic.HardPenalty = -1
		assert.Error(t, Validate(cfg))
	})

	t.Run("holiday rrule", func(t *testing.T) {
		cfg := base()
		cfg.Holidays.RRules = []string{"FREQ=SOMETIMES"}
		err := Validate(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid rrule in holidays.rrules[0]")
	})

	t.Run("override rrule", func(t *testing.T) {
		cfg := base()
		cfg.ManualOverrides = []ManualOverride{
			{RRule: "FREQ=DAILY"},
			{RRule: "BYDAY=XX"},
		}
		err := Validate(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid rrule in manualOverrides[1]")
	})
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{
		Search:  SearchConfig{MaxDepth: 10},
		Genetic: GeneticConfig{MutationRate: 0.2},
	}
	cfg.ApplyDefaults()

	assert.Equal(t, 10, cfg.Search.MaxDepth)
	assert.Equal(t, 1000, cfg.Search.MaxBacktracksPerDate)
	assert.Equal(t, 100, cfg.Search.MemoryCheckInterval)
	assert.Equal(t, 1024, cfg.Search.MemoryThresholdMB)

	assert.Equal(t, 7, cfg.Scoring.MaxRestDays)
	assert.Equal(t, 1.2, cfg.Scoring.NeverAssignedScore)
	require.NotNil(t, cfg.Scoring.HolidayWeight)
	assert.Equal(t, 1.5, *cfg.Scoring.HolidayWeight)

	assert.Equal(t, 50, cfg.Genetic.PopulationSize)
	assert.Equal(t, 0.2, cfg.Genetic.MutationRate)
	assert.Equal(t, int64(1), cfg.Genetic.Seed)
	assert.Equal(t, 0.9, cfg.Genetic.AssignProbability)
	assert.Equal(t, 3, cfg.Genetic.TournamentSize)
	assert.Equal(t, 10000.0, cfg.Genetic.HardPenalty)
	assert.Equal(t, 1000.0, cfg.Genetic.UnassignedPenalty)
}

func TestApplyDefaults_KeepsZeroWeights(t *testing.T) {
	zero := 0.0
	cfg := &Config{Scoring: ScoringConfig{HolidayWeight: &zero}}
	cfg.ApplyDefaults()

	rest, holiday, period := cfg.Scoring.Weights()
	assert.Equal(t, 1.0, rest)
	assert.Equal(t, 0.0, holiday)
	assert.Equal(t, 1.0, period)
}

func TestScoringConfig_WeightsWithoutDefaults(t *testing.T) {
	rest, holiday, period := ScoringConfig{}.Weights()

	assert.Equal(t, DefaultRestWeight, rest)
	assert.Equal(t, DefaultHolidayWeight, holiday)
	assert.Equal(t, DefaultPeriodWeight, period)
}

func TestLoadFromPath_GeneticAndScoringTuning(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	tuningYAML := `database:
  driver: file
  path: guard.yaml
scoring:
  neverAssignedScore: 1.4
  restWeight: 0
  periodWeight: 2.5
genetic:
  assignProbability: 0.6
  tournamentSize: 5
  hardPenalty: 50000
  unassignedPenalty: 250
`
	require.NoError(t, os.WriteFile(configPath, []byte(tuningYAML), 0644))

	cfg, err := LoadFromPath(configPath)
	require.NoError(t, err)

	rest, holiday, period := cfg.Scoring.Weights()
	assert.Equal(t, 0.0, rest, "an explicit zero switches the criterion off")
	assert.Equal(t, 1.5, holiday)
	assert.Equal(t, 2.5, period)
	assert.Equal(t, 1.4, cfg.Scoring.NeverAssignedScore)

	assert.Equal(t, 0.6, cfg.Genetic.AssignProbability)
	assert.Equal(t, 5, cfg.Genetic.TournamentSize)
	assert.Equal(t, 50000.0, cfg.Genetic.HardPenalty)
	assert.Equal(t, 250.0, cfg.Genetic.UnassignedPenalty)
}

func TestLoadFromPath_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "guard_rota_config.test.yaml")

	validYAML := `database:
  driver: file
  path: data/guard.yaml
scheduleSheetID: "sheet123"
holidays:
  dates:
    - "2024-12-25"
manualOverrides:
  - rrule: "FREQ=WEEKLY;BYDAY=SU"
    period: 2
    positionID: 4
    personID: 9
search:
  maxDepth: 25
genetic:
  disabled: true
`

	err := os.WriteFile(configPath, []byte(validYAML), 0644)
	require.NoError(t, err)

	cfg, err := LoadFromPath(configPath)
	require.NoError(t, err)

	assert.Equal(t, "file", cfg.Database.Driver)
	assert.Equal(t, filepath.Join(tmpDir, "data", "guard.yaml"), cfg.Database.Path)
	assert.Equal(t, "sheet123", cfg.ScheduleSheetID)
	assert.Equal(t, []string{"2024-12-25"}, cfg.Holidays.Dates)
	require.Len(t, cfg.ManualOverrides, 1)
	assert.Equal(t, 9, cfg.ManualOverrides[0].PersonID)
	assert.Equal(t, 25, cfg.Search.MaxDepth)
	assert.Equal(t, 1000, cfg.Search.MaxBacktracksPerDate)
	assert.True(t, cfg.Genetic.Disabled)
}

func TestLoadFromPath_AbsoluteFilePathKept(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	dbPath := filepath.Join(t.TempDir(), "guard.yaml")

	err := os.WriteFile(configPath, []byte("database:\n  driver: file\n  path: "+dbPath+"\n"), 0644)
	require.NoError(t, err)

	cfg, err := LoadFromPath(configPath)
	require.NoError(t, err)
	assert.Equal(t, dbPath, cfg.Database.Path)
}

func TestLoadFromPath_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	err := os.WriteFile(configPath, []byte("database: [unclosed\n"), 0644)
	require.NoError(t, err)

	_, err = LoadFromPath(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadFromPath_FailsValidation(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte("database:\n  driver: postgres\n"), 0644)
	require.NoError(t, err)

	_, err = LoadFromPath(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestLoadFromPath_FileNotFound(t *testing.T) {
	_, err := LoadFromPath("/nonexistent/path/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadWithEnv_CurrentDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	err := os.WriteFile("guard_rota_config.staging.yaml", []byte("database:\n  driver: file\n  path: guard.yaml\n"), 0644)
	require.NoError(t, err)

	cfg, err := LoadWithEnv("staging")
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Database.Driver)

	_, err = LoadWithEnv("prod")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to find config file")
}

func TestConfigFileName(t *testing.T) {
	assert.Equal(t, "guard_rota_config.yaml", configFileName(""))
	assert.Equal(t, "guard_rota_config.prod.yaml", configFileName("prod"))
}

func TestHolidayCalendar(t *testing.T) {
	h := HolidayConfig{
		Dates:  []string{"2025-01-01"},
		RRules: []string{"FREQ=WEEKLY;BYDAY=SU"},
	}

	isHoliday, err := h.HolidayCalendar(day("2024-09-01"), day("2024-09-30"))
	require.NoError(t, err)

	assert.True(t, isHoliday(day("2025-01-01")))
	assert.True(t, isHoliday(day("2024-09-01")))
	assert.True(t, isHoliday(day("2024-09-08")))
	assert.True(t, isHoliday(day("2024-09-29")))
	assert.False(t, isHoliday(day("2024-09-02")))
	// Sundays outside the window are not expanded
	assert.False(t, isHoliday(day("2024-10-06")))
}

func TestHolidayCalendar_Empty(t *testing.T) {
	isHoliday, err := HolidayConfig{}.HolidayCalendar(day("2024-09-01"), day("2024-09-30"))
	require.NoError(t, err)
	assert.False(t, isHoliday(day("2024-09-01")))
}

func TestManualOverride_Occurrences(t *testing.T) {
	o := ManualOverride{RRule: "FREQ=WEEKLY;BYDAY=SU"}

	dates, err := o.Occurrences(day("2024-09-02"), day("2024-09-16"))
	require.NoError(t, err)

	assert.Equal(t, []time.Time{day("2024-09-08"), day("2024-09-15")}, dates)
}

func TestManualOverride_OccurrencesWithOwnStart(t *testing.T) {
	o := ManualOverride{RRule: "DTSTART=20240910T000000Z;FREQ=DAILY;INTERVAL=2"}

	dates, err := o.Occurrences(day("2024-09-01"), day("2024-09-15"))
	require.NoError(t, err)

	assert.Equal(t, []time.Time{
		day("2024-09-10"), day("2024-09-12"), day("2024-09-14"),
	}, dates)
}

func TestConfig_ManualAssignments(t *testing.T) {
	cfg := &Config{
		ManualOverrides: []ManualOverride{
			{RRule: "FREQ=WEEKLY;BYDAY=SA", Period: 5, PositionID: 2, PersonID: 11},
			{RRule: "FREQ=MONTHLY;BYMONTHDAY=1", Period: 0, PositionID: 3, PersonID: 12},
		},
	}

	manual, err := cfg.ManualAssignments(day("2024-09-01"), day("2024-09-14"))
	require.NoError(t, err)

	assert.Equal(t, []model.ManualAssignment{
		{Date: day("2024-09-07"), Period: 5, PositionID: 2, PersonID: 11},
		{Date: day("2024-09-14"), Period: 5, PositionID: 2, PersonID: 11},
		{Date: day("2024-09-01"), Period: 0, PositionID: 3, PersonID: 12},
	}, manual)
}
