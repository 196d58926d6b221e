package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert"
	"github.com/kjk/roster/grade"
)

func assertSameRecords(t *testing.T, exp, got *Store) {
	t.Helper()
	a := exp.Records()
	b := got.Records()
	assert.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].ID(), b[i].ID())
		assert.Equal(t, a[i].Fields(), b[i].Fields())
		assert.Equal(t, a[i].Grade(), b[i].Grade())
	}
}

func sampleStore(t *testing.T) *Store {
	s := New(nil)
	assert.NoError(t, s.Add(NewRecord(101, "Ann Lee", "ann@example.com", "Computer Science", 91.5)))
	assert.NoError(t, s.Add(NewRecord(7, "Bob", "bob@example.com", "Physics", 89.999)))
	assert.NoError(t, s.Add(NewRecord(33, "Cyd", "cyd@example.com", "Math", 0)))
	assert.NoError(t, s.Add(NewRecord(4, "Dee", "dee@example.com", "Math", 100)))
	return s
}

func TestFormatLine(t *testing.T) {
	r := NewRecord(1, "Ann", "ann@x.org", "CS", 95)
	assert.Equal(t, "1,Ann,ann@x.org,CS,95,A+", Codec{}.FormatLine(r))
	assert.Equal(t, "1,Ann,ann@x.org,CS,95", Codec{NoGrade: true}.FormatLine(r))
	r = NewRecord(2, "Bob", "b@x.org", "EE", 72.25)
	assert.Equal(t, "2,Bob,b@x.org,EE,72.25,B+", Codec{}.FormatLine(r))
}

func TestParseLine(t *testing.T) {
	var r Record
	err := Codec{}.ParseLine(" 12 , Ann , ann@x.org , CS , 88.5 , Z", &r)
	assert.NoError(t, err)
	assert.Equal(t, 12, r.ID())
	assert.Equal(t, Fields{Name: "Ann", Email: "ann@x.org", Course: "CS", Score: 88.5}, r.Fields())
	// grade column is recomputed, not trusted
	assert.Equal(t, "A", r.Grade())

	bad := []string{
		"12,Ann,ann@x.org,CS,88.5",
		"12,Ann,ann@x.org,CS,88.5,A,extra",
		"x,Ann,ann@x.org,CS,88.5,A",
		"12,Ann,ann@x.org,CS,lots,A",
		"12,Ann,ann@x.org,CS,101,A",
		"12,,ann@x.org,CS,50,C",
		"",
	}
	for _, line := range bad {
		err := Codec{}.ParseLine(line, &Record{})
		assert.True(t, IsMalformed(err), "%q: %v", line, err)
	}

	err = Codec{NoGrade: true}.ParseLine("12,Ann,ann@x.org,CS,88.5", &r)
	assert.NoError(t, err)
	err = Codec{NoGrade: true}.ParseLine("12,Ann,ann@x.org,CS,88.5,A", &r)
	assert.True(t, IsMalformed(err))
}

func TestSaveLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	s := sampleStore(t)
	for _, name := range []string{"students.txt", "students.txt.gz", "students.txt.zst", "students.txt.br"} {
		path := filepath.Join(dir, name)
		assert.NoError(t, s.Save(path))
		s2 := New(nil)
		assert.NoError(t, s2.Load(path))
		assertSameRecords(t, s, s2)
		checkInvariant(t, s2)
	}

	for _, c := range []Codec{{}, {NoGrade: true}} {
		path := filepath.Join(dir, fmt.Sprintf("students-%v.txt", c.NoGrade))
		s.Codec = c
		assert.NoError(t, s.Save(path))
		s2 := &Store{Codec: c}
		assert.NoError(t, s2.Load(path))
		assertSameRecords(t, s, s2)
	}

	// padded values are stored trimmed so they survive a round trip
	s = New(nil)
	assert.NoError(t, s.Add(NewRecord(1, " Ann ", "a@x ", "Computer Science ", 95)))
	assert.NoError(t, s.Add(NewRecord(2, "Bob", "b@x", "Math", 50)))
	assert.NoError(t, s.Update(2, Fields{Name: "  Bob Roy", Email: " b@x", Course: "Math\t", Score: 55}))
	path := filepath.Join(dir, "padded.txt")
	assert.NoError(t, s.Save(path))
	s2 := New(nil)
	assert.NoError(t, s2.Load(path))
	assertSameRecords(t, s, s2)
	r, _ := s2.FindByKey(1)
	assert.Equal(t, "Ann", r.Name)
	assert.Equal(t, "Computer Science", r.Course)
}

func TestSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "students.txt")
	err := os.WriteFile(path, []byte(strings.Repeat("9,Old,o@x,CS,50,C\n", 50)), 0644)
	assert.NoError(t, err)

	s := New(nil)
	assert.NoError(t, s.Add(NewRecord(1, "Ann", "ann@x.org", "CS", 95)))
	assert.NoError(t, s.Save(path))
	d, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "1,Ann,ann@x.org,CS,95,A+\n", string(d))

	// no temporary files left behind
	files, err := os.ReadDir(filepath.Dir(path))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(files))
}

func TestSaveFailure(t *testing.T) {
	s := sampleStore(t)
	err := s.Save(filepath.Join(t.TempDir(), "no", "such", "dir", "students.txt"))
	assert.True(t, errors.Is(err, ErrIO), "%v", err)
	assert.Equal(t, 4, s.Count())
}

func TestLoadReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "students.txt")
	err := os.WriteFile(path, []byte("1,Ann,ann@x.org,CS,95,A+\n\n2,Bob,b@x.org,CS,40,D\n"), 0644)
	assert.NoError(t, err)

	s := sampleStore(t)
	var progress []string
	s.Progress = func(op string, done, total int) {
		progress = append(progress, fmt.Sprintf("%s %d/%d", op, done, total))
	}
	assert.NoError(t, s.Load(path))
	assert.Equal(t, []int{1, 2}, ids(s))
	_, err = s.FindByKey(101)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, []string{"load 1/0", "load 2/0", "load 2/2"}, progress)
	checkInvariant(t, s)
}

func TestLoadMissingFile(t *testing.T) {
	s := sampleStore(t)
	err := s.Load(filepath.Join(t.TempDir(), "students.txt"))
	assert.NoError(t, err)
	assert.Equal(t, 0, s.Count())
	checkInvariant(t, s)
}

func TestLoadIOErrorKeepsStore(t *testing.T) {
	s := sampleStore(t)
	// a directory can be opened but not read
	err := s.Load(t.TempDir())
	assert.True(t, errors.Is(err, ErrIO), "%v", err)
	assert.Equal(t, []int{101, 7, 33, 4}, ids(s))

	path := filepath.Join(t.TempDir(), "students.txt.gz")
	assert.NoError(t, os.WriteFile(path, []byte("not gzip data"), 0644))
	err = s.Load(path)
	assert.True(t, errors.Is(err, ErrIO), "%v", err)
	assert.Equal(t, 4, s.Count())
	checkInvariant(t, s)
}

func TestLoadSkipsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "students.txt")
	lines := []string{
		"1,Ann,ann@x.org,CS,95,A+",
		"2,Bob,b@x.org,CS",
		"3,Cyd,c@x.org,Math,65,B",
	}
	err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644)
	assert.NoError(t, err)

	s := New(nil)
	var warnings []error
	s.OnMalformed = func(err error, line string) {
		warnings = append(warnings, err)
		assert.Equal(t, lines[1], line)
	}
	assert.NoError(t, s.Load(path))
	assert.Equal(t, 2, s.Count())
	assert.Equal(t, []int{1, 3}, ids(s))
	assert.Equal(t, 1, len(warnings))
	var e *Error
	assert.True(t, errors.As(warnings[0], &e))
	assert.Equal(t, KindMalformedRecord, e.Kind)
	assert.Equal(t, 2, e.Line)
}

func TestLoadSkipsOverlongLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "students.txt")
	lines := []string{
		"1,Ann,ann@x.org,CS,95,A+",
		strings.Repeat("x", 70*1024),
		"2,Bob,b@x.org,CS,40,D",
		"3,Cyd,c@x.org,Math,65,B",
	}
	err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644)
	assert.NoError(t, err)

	s := New(nil)
	var warnings []error
	s.OnMalformed = func(err error, line string) {
		warnings = append(warnings, err)
		assert.True(t, len(line) < 100, "%d", len(line))
	}
	assert.NoError(t, s.Load(path))
	assert.Equal(t, []int{1, 2, 3}, ids(s))
	assert.Equal(t, 1, len(warnings))
	var e *Error
	assert.True(t, errors.As(warnings[0], &e))
	assert.Equal(t, KindMalformedRecord, e.Kind)
	assert.Equal(t, 2, e.Line)
	checkInvariant(t, s)
}

func TestLoadLastLineWithoutNewline(t *testing.T) {
	s := New(nil)
	d := "1,Ann,ann@x.org,CS,95,A+\r\n2,Bob,b@x.org,CS,40,D"
	assert.NoError(t, s.LoadFrom(strings.NewReader(d)))
	assert.Equal(t, []int{1, 2}, ids(s))
	r, _ := s.FindByKey(1)
	assert.Equal(t, "A+", r.Grade())
}

func TestLoadDuplicateIDKeepsFirst(t *testing.T) {
	s := New(grade.Five)
	var warnings []error
	s.OnMalformed = func(err error, line string) {
		warnings = append(warnings, err)
	}
	d := "1,Ann,ann@x.org,CS,95,A\n1,Again,a@x.org,CS,10,F\n"
	assert.NoError(t, s.LoadFrom(strings.NewReader(d)))
	assert.Equal(t, 1, s.Count())
	r, _ := s.FindByKey(1)
	assert.Equal(t, "Ann", r.Name)
	assert.Equal(t, "A", r.Grade())
	assert.Equal(t, 1, len(warnings))
	assert.True(t, errors.Is(warnings[0], ErrDuplicateKey))
}

func TestStat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "students.txt")
	s := sampleStore(t)
	assert.NoError(t, s.Save(path))
	fi, err := Stat(path)
	assert.NoError(t, err)
	assert.Equal(t, "students.txt", fi.Name)
	assert.True(t, filepath.IsAbs(fi.AbsPath))
	assert.True(t, fi.Size > 0)
	assert.True(t, fi.Readable)
	assert.True(t, fi.Writable)
	assert.False(t, fi.Compressed)

	gzPath := path + ".gz"
	assert.NoError(t, s.Save(gzPath))
	fi, err = Stat(gzPath)
	assert.NoError(t, err)
	assert.True(t, fi.Compressed)

	_, err = Stat(path + ".missing")
	assert.True(t, errors.Is(err, ErrIO))
}
