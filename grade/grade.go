// Package grade maps a numeric score to a letter grade using a table of
// thresholds checked from highest to lowest.
package grade

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Step is one row of a Table: scores >= Min get Grade.
type Step struct {
	Min   float64 `yaml:"min"`
	Grade string  `yaml:"grade"`
}

// Table is an ordered list of thresholds. Steps must be sorted by Min,
// highest first, with no duplicate Min. Scores below the last step get Lowest.
type Table struct {
	Steps  []Step `yaml:"steps"`
	Lowest string `yaml:"lowest"`
}

var (
	// Seven is A+/A/B+/B/C/D/F
	Seven = &Table{
		Steps: []Step{
			{90, "A+"},
			{80, "A"},
			{70, "B+"},
			{60, "B"},
			{50, "C"},
			{40, "D"},
		},
		Lowest: "F",
	}

	// Five is A/B/C/D/F
	Five = &Table{
		Steps: []Step{
			{90, "A"},
			{80, "B"},
			{70, "C"},
			{60, "D"},
		},
		Lowest: "F",
	}
)

// Preset returns a built-in table by name ("five" or "seven")
func Preset(name string) (*Table, error) {
	switch strings.ToLower(name) {
	case "", "seven", "7":
		return Seven, nil
	case "five", "5":
		return Five, nil
	}
	return nil, fmt.Errorf("unknown grade preset '%s'", name)
}

// Validate checks that thresholds are strictly descending and grades non-empty
func (t *Table) Validate() error {
	if t == nil {
		return fmt.Errorf("grade table is nil")
	}
	if t.Lowest == "" {
		return fmt.Errorf("grade table has no lowest grade")
	}
	for i, s := range t.Steps {
		if s.Grade == "" {
			return fmt.Errorf("grade table step %d has empty grade", i)
		}
		if i > 0 && s.Min >= t.Steps[i-1].Min {
			return fmt.Errorf("grade table step %d: min %v is not below %v", i, s.Min, t.Steps[i-1].Min)
		}
	}
	return nil
}

// Compute returns the grade for score. A nil table uses Seven.
func (t *Table) Compute(score float64) string {
	if t == nil {
		t = Seven
	}
	for _, s := range t.Steps {
		if score >= s.Min {
			return s.Grade
		}
	}
	return t.Lowest
}

// Grades returns all grades from top to lowest
func (t *Table) Grades() []string {
	var res []string
	for _, s := range t.Steps {
		res = append(res, s.Grade)
	}
	return append(res, t.Lowest)
}

// ParseTable parses a table in YAML format:
//
//	steps:
//	  - {min: 90, grade: A}
//	  - {min: 80, grade: B}
//	lowest: F
func ParseTable(d []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(d, &t); err != nil {
		return nil, fmt.Errorf("grade table: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadTable reads a table from a YAML file
func LoadTable(path string) (*Table, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTable(d)
}
