package store

import (
	"fmt"
	"math"
	"strings"

	"github.com/kjk/roster/grade"
)

// Record is one student. The id is fixed for the life of the record.
// The grade is derived from the score and can't be set directly.
type Record struct {
	id     int
	Name   string
	Email  string
	Course string
	score  float64
	grade  string

	// table used to derive grade, set by the store on Add / Load
	table *grade.Table
}

// Fields are the mutable values of a record
type Fields struct {
	Name   string
	Email  string
	Course string
	Score  float64
}

// NewRecord creates a record with the grade computed by grade.Seven.
// The store recomputes the grade with its own table when the record is added.
func NewRecord(id int, name, email, course string, score float64) *Record {
	r := &Record{
		id:     id,
		Name:   name,
		Email:  email,
		Course: course,
	}
	r.setScore(score)
	return r
}

func (r *Record) ID() int {
	return r.id
}

func (r *Record) Score() float64 {
	return r.score
}

func (r *Record) Grade() string {
	return r.grade
}

// Fields returns a copy of mutable values
func (r *Record) Fields() Fields {
	return Fields{
		Name:   r.Name,
		Email:  r.Email,
		Course: r.Course,
		Score:  r.score,
	}
}

func (f Fields) trimmed() Fields {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Course = strings.TrimSpace(f.Course)
	return f
}

func (r *Record) setScore(score float64) {
	r.score = score
	r.grade = r.table.Compute(score)
}

func (r *Record) setTable(t *grade.Table) {
	r.table = t
	r.grade = t.Compute(r.score)
}

func (r *Record) apply(f Fields) {
	r.Name = f.Name
	r.Email = f.Email
	r.Course = f.Course
	r.setScore(f.Score)
}

func (r *Record) String() string {
	return fmt.Sprintf("Record{id=%d, name='%s', email='%s', course='%s', score=%v, grade='%s'}",
		r.id, r.Name, r.Email, r.Course, r.score, r.grade)
}

func validateFields(id int, f Fields) error {
	if strings.TrimSpace(f.Name) == "" {
		return errInvalid(id, "name is empty")
	}
	if math.IsNaN(f.Score) || f.Score < 0 || f.Score > 100 {
		return errInvalid(id, fmt.Sprintf("score %v not in [0, 100]", f.Score))
	}
	return nil
}
