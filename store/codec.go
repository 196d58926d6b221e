package store

import (
	"fmt"
	"strconv"
	"strings"
)

// format of a line:
// <id>,<name>,<email>,<course>,<score>[,<grade>]
// there's no escaping so values can't contain ',' or newlines
const delim = ","

// Codec converts a record to / from one line of text
type Codec struct {
	// if true, lines have 5 fields (no grade column)
	NoGrade bool
}

// Fields returns the number of fields a well-formed line has
func (c Codec) Fields() int {
	if c.NoGrade {
		return 5
	}
	return 6
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

// FormatLine serializes r without the trailing newline
func (c Codec) FormatLine(r *Record) string {
	parts := []string{
		strconv.Itoa(r.id),
		r.Name,
		r.Email,
		r.Course,
		formatScore(r.score),
	}
	if !c.NoGrade {
		parts = append(parts, r.grade)
	}
	return strings.Join(parts, delim)
}

func malformed(msg string, args ...any) error {
	return &Error{Kind: KindMalformedRecord, Msg: fmt.Sprintf(msg, args...)}
}

// ParseLine parses a line created by FormatLine.
// Fields are trimmed of spaces. The grade column, if present, is not
// trusted: the grade is always recomputed from the score.
func (c Codec) ParseLine(line string, res *Record) error {
	parts := strings.Split(line, delim)
	if len(parts) != c.Fields() {
		return malformed("expected %d fields, got %d", c.Fields(), len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	id, err := strconv.Atoi(parts[0])
	if err != nil {
		return malformed("invalid id '%s'", parts[0])
	}
	score, err := strconv.ParseFloat(parts[4], 64)
	if err != nil {
		return malformed("invalid score '%s'", parts[4])
	}
	f := Fields{
		Name:   parts[1],
		Email:  parts[2],
		Course: parts[3],
		Score:  score,
	}
	if err = validateFields(id, f); err != nil {
		return malformed("%s", err.(*Error).Msg)
	}
	res.id = id
	res.apply(f)
	return nil
}
