package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/guard-rota/pkg/core/model"
)

const dateLayout = "2006-01-02"

// DatabaseConfig selects the store backing the CLI
type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"required,oneof=file postgres"`
	Path   string `yaml:"path,omitempty" validate:"required_if=Driver file"`
	URL    string `yaml:"url,omitempty" validate:"required_if=Driver postgres"`
}

// HolidayConfig lists holiday dates explicitly and as recurrence rules
type HolidayConfig struct {
	Dates  []string `yaml:"dates,omitempty" validate:"dive,datetime=2006-01-02"`
	RRules []string `yaml:"rrules,omitempty" validate:"dive,required"`
}

// ManualOverride pins a person to a slot on every date matching the rule
type ManualOverride struct {
	RRule      string `yaml:"rrule" validate:"required"`
	Period     int    `yaml:"period" validate:"min=0,max=11"`
	PositionID int    `yaml:"positionID" validate:"min=0"`
	PersonID   int    `yaml:"personID" validate:"min=0"`
}

// SearchConfig bounds the backtracking search
type SearchConfig struct {
	MaxDepth             int `yaml:"maxDepth,omitempty" validate:"omitempty,min=1"`
	MaxBacktracksPerDate int `yaml:"maxBacktracksPerDate,omitempty" validate:"omitempty,min=1"`
	MemoryCheckInterval  int `yaml:"memoryCheckInterval,omitempty" validate:"omitempty,min=1"`
	MemoryThresholdMB    int `yaml:"memoryThresholdMB,omitempty" validate:"omitempty,min=1"`
}

// ScoringConfig tunes the soft constraints.
// Weights are pointers so an explicit 0 switches a criterion off instead of selecting the default.
type ScoringConfig struct {
	MaxRestDays        int      `yaml:"maxRestDays,omitempty" validate:"omitempty,min=1"`
	NeverAssignedScore float64  `yaml:"neverAssignedScore,omitempty" validate:"omitempty,min=0"`
	RestWeight         *float64 `yaml:"restWeight,omitempty" validate:"omitempty,min=0"`
	HolidayWeight      *float64 `yaml:"holidayWeight,omitempty" validate:"omitempty,min=0"`
	PeriodWeight       *float64 `yaml:"periodWeight,omitempty" validate:"omitempty,min=0"`
}

// Default scoring values
const (
	DefaultNeverAssignedScore = 1.2
	DefaultRestWeight         = 1.0
	DefaultHolidayWeight      = 1.5
	DefaultPeriodWeight       = 1.0
)

// Weights returns the rest, holiday and period weights with defaults for unset ones
func (s ScoringConfig) Weights() (rest, holiday, period float64) {
	return valueOr(s.RestWeight, DefaultRestWeight),
		valueOr(s.HolidayWeight, DefaultHolidayWeight),
		valueOr(s.PeriodWeight, DefaultPeriodWeight)
}

// GeneticConfig tunes the genetic optimiser used when backtracking leaves slots open
type GeneticConfig struct {
	Disabled         bool    `yaml:"disabled,omitempty"`
	PopulationSize   int     `yaml:"populationSize,omitempty" validate:"omitempty,min=2"`
	Generations      int     `yaml:"generations,omitempty" validate:"omitempty,min=1"`
	EliteCount       int     `yaml:"eliteCount,omitempty" validate:"omitempty,min=0"`
	CrossoverRate    float64 `yaml:"crossoverRate,omitempty" validate:"omitempty,min=0,max=1"`
	MutationRate     float64 `yaml:"mutationRate,omitempty" validate:"omitempty,min=0,max=1"`
	StallGenerations int     `yaml:"stallGenerations,omitempty" validate:"omitempty,min=1"`
	Workers          int     `yaml:"workers,omitempty" validate:"omitempty,min=1"`
	Seed             int64   `yaml:"seed,omitempty"`

	// AssignProbability is the chance a random individual fills a slot
	AssignProbability float64 `yaml:"assignProbability,omitempty" validate:"omitempty,gt=0,max=1"`
	TournamentSize    int     `yaml:"tournamentSize,omitempty" validate:"omitempty,min=1"`

	// Fitness penalties per broken hard rule and per open slot
	HardPenalty       float64 `yaml:"hardPenalty,omitempty" validate:"omitempty,gt=0"`
	UnassignedPenalty float64 `yaml:"unassignedPenalty,omitempty" validate:"omitempty,gt=0"`
}

// Config represents the application configuration
type Config struct {
	Database        DatabaseConfig   `yaml:"database" validate:"required"`
	ScheduleSheetID string           `yaml:"scheduleSheetID,omitempty"`
	OAuthClientPath string           `yaml:"oauthClientPath,omitempty"`
	Holidays        HolidayConfig    `yaml:"holidays,omitempty"`
	ManualOverrides []ManualOverride `yaml:"manualOverrides,omitempty" validate:"dive"`
	Search          SearchConfig     `yaml:"search,omitempty"`
	Scoring         ScoringConfig    `yaml:"scoring,omitempty"`
	Genetic         GeneticConfig    `yaml:"genetic,omitempty"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LoadWithEnv loads guard_rota_config.<env>.yaml from the current directory or the home directory
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findFile(configFileName(env))
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads, validates and applies defaults to the configuration at path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	cfg.Database.Path = relativeTo(path, cfg.Database.Path)
	cfg.OAuthClientPath = relativeTo(path, cfg.OAuthClientPath)
	return &cfg, nil
}

// Validate validates the configuration struct and checks rrule syntax
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	for i, rule := range cfg.Holidays.RRules {
		if _, err := rrule.StrToRRule(rule); err != nil {
			return fmt.Errorf("invalid rrule in holidays.rrules[%d]: %w", i, err)
		}
	}
	for i, override := range cfg.ManualOverrides {
		if _, err := rrule.StrToRRule(override.RRule); err != nil {
			return fmt.Errorf("invalid rrule in manualOverrides[%d]: %w", i, err)
		}
	}

	return nil
}

// ApplyDefaults fills every unset tuning value
func (c *Config) ApplyDefaults() {
	setDefault(&c.Search.MaxDepth, 50)
	setDefault(&c.Search.MaxBacktracksPerDate, 1000)
	setDefault(&c.Search.MemoryCheckInterval, 100)
	setDefault(&c.Search.MemoryThresholdMB, 1024)

	setDefault(&c.Scoring.MaxRestDays, 7)
	setDefault(&c.Scoring.NeverAssignedScore, DefaultNeverAssignedScore)
	setDefaultRef(&c.Scoring.RestWeight, DefaultRestWeight)
	setDefaultRef(&c.Scoring.HolidayWeight, DefaultHolidayWeight)
	setDefaultRef(&c.Scoring.PeriodWeight, DefaultPeriodWeight)

	setDefault(&c.Genetic.PopulationSize, 50)
	setDefault(&c.Genetic.Generations, 100)
	setDefault(&c.Genetic.EliteCount, 2)
	setDefault(&c.Genetic.CrossoverRate, 0.8)
	setDefault(&c.Genetic.MutationRate, 0.01)
	setDefault(&c.Genetic.StallGenerations, 20)
	setDefault(&c.Genetic.Workers, 4)
	setDefault(&c.Genetic.Seed, 1)
	setDefault(&c.Genetic.AssignProbability, 0.9)
	setDefault(&c.Genetic.TournamentSize, 3)
	setDefault(&c.Genetic.HardPenalty, 10000)
	setDefault(&c.Genetic.UnassignedPenalty, 1000)
}

func setDefault[T int | int64 | float64](field *T, value T) {
	if *field == 0 {
		*field = value
	}
}

func setDefaultRef(field **float64, value float64) {
	if *field == nil {
		*field = &value
	}
}

func valueOr(field *float64, fallback float64) float64 {
	if field == nil {
		return fallback
	}
	return *field
}

// HolidayCalendar expands the holiday configuration into a predicate.
// Recurrence rules are only expanded over [from, to]; explicit dates always match.
func (h HolidayConfig) HolidayCalendar(from, to time.Time) (model.HolidayPredicate, error) {
	days := make(map[string]bool)
	for _, d := range h.Dates {
		if _, err := time.Parse(dateLayout, d); err != nil {
			return nil, fmt.Errorf("invalid holiday date %q: %w", d, err)
		}
		days[d] = true
	}
	for _, rule := range h.RRules {
		dates, err := occurrences(rule, from, to)
		if err != nil {
			return nil, err
		}
		for _, o := range dates {
			days[o.Format(dateLayout)] = true
		}
	}

	return func(date time.Time) bool {
		return days[date.Format(dateLayout)]
	}, nil
}

// Occurrences returns the dates in [from, to] the override applies to
func (o ManualOverride) Occurrences(from, to time.Time) ([]time.Time, error) {
	return occurrences(o.RRule, from, to)
}

// ManualAssignments expands every override over [from, to]
func (c *Config) ManualAssignments(from, to time.Time) ([]model.ManualAssignment, error) {
	var out []model.ManualAssignment
	for i, o := range c.ManualOverrides {
		dates, err := o.Occurrences(from, to)
		if err != nil {
			return nil, fmt.Errorf("manualOverrides[%d]: %w", i, err)
		}
		for _, d := range dates {
			out = append(out, model.ManualAssignment{
				Date:       d,
				Period:     model.Period(o.Period),
				PositionID: o.PositionID,
				PersonID:   o.PersonID,
			})
		}
	}
	return out, nil
}

// occurrences anchors the rule at from unless it carries its own DTSTART
func occurrences(rule string, from, to time.Time) ([]time.Time, error) {
	from = truncateDay(from)
	to = truncateDay(to)

	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return nil, fmt.Errorf("invalid rrule %q: %w", rule, err)
	}
	if r.OrigOptions.Dtstart.IsZero() {
		r.DTStart(from)
	}

	var dates []time.Time
	for _, o := range r.Between(from, to, true) {
		dates = append(dates, truncateDay(o))
	}
	return dates, nil
}

// relativeTo resolves a relative file named in the config against the config's directory
func relativeTo(configPath, name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(filepath.Dir(configPath), name)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func configFileName(env string) string {
	if env == "" {
		return "guard_rota_config.yaml"
	}
	return "guard_rota_config." + env + ".yaml"
}

// findFile searches for name in the current directory then the home directory
func findFile(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homePath := filepath.Join(homeDir, name)
	if _, err := os.Stat(homePath); err == nil {
		return homePath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", name)
}
