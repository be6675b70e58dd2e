package db

// Person represents a stored personnel record
type Person struct {
	ID        int      `yaml:"id" validate:"min=0"`
	Name      string   `yaml:"name" validate:"required"`
	Available bool     `yaml:"available"`
	Retired   bool     `yaml:"retired,omitempty"`
	Skills    []string `yaml:"skills,omitempty"`
}

// Position represents a stored guard post
type Position struct {
	ID             int      `yaml:"id" validate:"min=0"`
	Name           string   `yaml:"name" validate:"required"`
	RequiredSkills []string `yaml:"requiredSkills,omitempty"`
	Eligible       []int    `yaml:"eligible,omitempty" validate:"dive,min=0"`
}

// FixedRule restricts a person to a subset of positions and periods
type FixedRule struct {
	PersonID    int    `yaml:"personID" validate:"min=0"`
	PositionIDs []int  `yaml:"positionIDs,omitempty"`
	Periods     []int  `yaml:"periods,omitempty" validate:"dive,min=0,max=11"`
	Enabled     bool   `yaml:"enabled"`
	Description string `yaml:"description,omitempty"`
}

// ManualAssignment pins a person to a slot
type ManualAssignment struct {
	Date       string `yaml:"date" validate:"required,datetime=2006-01-02"`
	Period     int    `yaml:"period" validate:"min=0,max=11"`
	PositionID int    `yaml:"positionID" validate:"min=0"`
	PersonID   int    `yaml:"personID" validate:"min=0"`
}

// Run records one schedule generation
type Run struct {
	ID         string  `yaml:"id" validate:"required,uuid"`
	CreatedAt  string  `yaml:"createdAt" validate:"required"`
	Start      string  `yaml:"start" validate:"required,datetime=2006-01-02"`
	End        string  `yaml:"end" validate:"required,datetime=2006-01-02"`
	Source     string  `yaml:"source" validate:"required,oneof=backtracking genetic"`
	Assigned   int     `yaml:"assigned"`
	Unassigned int     `yaml:"unassigned"`
	Fitness    float64 `yaml:"fitness,omitempty"`
}

// Assignment is one filled slot of a stored run
type Assignment struct {
	ID         string `yaml:"id" validate:"required,uuid"`
	RunID      string `yaml:"runID" validate:"required,uuid"`
	Date       string `yaml:"date" validate:"required,datetime=2006-01-02"`
	Period     int    `yaml:"period" validate:"min=0,max=11"`
	PositionID int    `yaml:"positionID" validate:"min=0"`
	PersonID   int    `yaml:"personID" validate:"min=0"`
}
