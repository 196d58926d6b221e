package grade

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert"
)

func TestSevenBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		exp   string
	}{
		{100, "A+"},
		{90, "A+"},
		{89.999, "A"},
		{80, "A"},
		{79.999, "B+"},
		{70, "B+"},
		{69.999, "B"},
		{60, "B"},
		{59.999, "C"},
		{50, "C"},
		{49.999, "D"},
		{40, "D"},
		{39.999, "F"},
		{0, "F"},
	}
	for _, test := range tests {
		got := Seven.Compute(test.score)
		assert.Equal(t, test.exp, got, "score %v", test.score)
	}
}

func TestFiveBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		exp   string
	}{
		{90, "A"},
		{89.999, "B"},
		{80, "B"},
		{79.999, "C"},
		{70, "C"},
		{69.999, "D"},
		{60, "D"},
		{59.999, "F"},
		{0, "F"},
	}
	for _, test := range tests {
		got := Five.Compute(test.score)
		assert.Equal(t, test.exp, got, "score %v", test.score)
	}
}

func TestNilTableIsSeven(t *testing.T) {
	var tbl *Table
	assert.Equal(t, "A+", tbl.Compute(95))
	assert.Equal(t, "F", tbl.Compute(10))
}

func TestPreset(t *testing.T) {
	tbl, err := Preset("five")
	assert.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D", "F"}, tbl.Grades())
	tbl, err = Preset("")
	assert.NoError(t, err)
	assert.True(t, tbl == Seven)
	_, err = Preset("nine")
	assert.Error(t, err)
}

func TestParseTable(t *testing.T) {
	d := []byte(`steps:
  - {min: 85, grade: Distinction}
  - {min: 50, grade: Pass}
lowest: Fail
`)
	tbl, err := ParseTable(d)
	assert.NoError(t, err)
	assert.Equal(t, "Distinction", tbl.Compute(85))
	assert.Equal(t, "Pass", tbl.Compute(84.9))
	assert.Equal(t, "Fail", tbl.Compute(49.9))

	path := filepath.Join(t.TempDir(), "grades.yaml")
	err = os.WriteFile(path, d, 0644)
	assert.NoError(t, err)
	tbl2, err := LoadTable(path)
	assert.NoError(t, err)
	assert.Equal(t, tbl, tbl2)
}

func TestValidate(t *testing.T) {
	bad := []string{
		// not descending
		"steps:\n  - {min: 50, grade: B}\n  - {min: 80, grade: A}\nlowest: F\n",
		// duplicate threshold
		"steps:\n  - {min: 50, grade: B}\n  - {min: 50, grade: A}\nlowest: F\n",
		// no lowest
		"steps:\n  - {min: 50, grade: P}\n",
		// empty grade
		"steps:\n  - {min: 50, grade: \"\"}\nlowest: F\n",
	}
	for _, s := range bad {
		_, err := ParseTable([]byte(s))
		assert.Error(t, err, "%s", s)
	}
	assert.NoError(t, Seven.Validate())
	assert.NoError(t, Five.Validate())
}
