package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert"
	"github.com/kjk/roster/journal"
)

func TestLogfWritesDailyFile(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	var hooked []string
	Out = &out
	defer func() { Out = os.Stdout }()

	Init(&Config{Dir: dir, OnLog: func(s string) { hooked = append(hooked, s) }})
	defer Close()

	Logf("loaded %d records\n", 3)
	Verbose = false
	Verbosef("not logged\n")
	Verbose = true
	Verbosef("logged\n")
	Verbose = false

	assert.Equal(t, "loaded 3 records\nlogged\n", out.String())
	assert.Equal(t, 2, len(hooked))

	d, err := os.ReadFile(filepath.Join(dir, "log", today()+".txt"))
	assert.NoError(t, err)
	assert.Equal(t, "loaded 3 records\nlogged\n", string(d))
}

func TestErrorfHasCallstack(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	Out = &out
	defer func() { Out = os.Stdout }()
	Init(&Config{Dir: dir})
	defer Close()

	Errorf("save failed: %s", "disk full")
	s := out.String()
	assert.True(t, strings.HasPrefix(s, "save failed: disk full\n"), "%s", s)
	assert.True(t, strings.Contains(s, "log_test.go"), "%s", s)

	d, err := os.ReadFile(filepath.Join(dir, "errors", today()+".txt"))
	assert.NoError(t, err)
	assert.Equal(t, s, string(d))
}

func TestDailyFileReopens(t *testing.T) {
	dir := t.TempDir()
	d := &dailyFile{dir: dir}
	assert.NoError(t, d.write([]byte("a\n")))
	// a file left open from a previous day gets replaced
	d.day = "2001-01-01"
	assert.NoError(t, d.write([]byte("b\n")))
	assert.Equal(t, today(), d.day)
	assert.NoError(t, d.close())
	assert.NoError(t, d.close())
	assert.NoError(t, d.write([]byte("c\n")))
	assert.NoError(t, d.close())

	got, err := os.ReadFile(filepath.Join(dir, today()+".txt"))
	assert.NoError(t, err)
	assert.Equal(t, "a\nb\nc\n", string(got))

	var nilFile *dailyFile
	assert.NoError(t, nilFile.write([]byte("x")))
	assert.NoError(t, nilFile.close())
}

func TestMarshalEvent(t *testing.T) {
	tm := time.UnixMilli(1700000000000)
	d, err := MarshalEvent("student.add", tm, "id", 7, "name", "Ann")
	assert.NoError(t, err)

	r := journal.NewReader(bytes.NewReader(d))
	assert.True(t, r.Next())
	assert.Equal(t, "student.add", r.Name)
	assert.Equal(t, tm.UnixMilli(), r.Timestamp.UnixMilli())
	assert.True(t, bytes.Contains(r.Data, []byte("Ann")))
	assert.False(t, r.Next())
	assert.NoError(t, r.Err())

	_, err = MarshalEvent("bad", tm, "id")
	assert.Error(t, err)
}

func TestEventWithoutInit(t *testing.T) {
	Close()
	// no events log: a no-op
	Event("student.delete", "id", 1)
}

func TestEventToFile(t *testing.T) {
	dir := t.TempDir()
	Init(&Config{Dir: dir})
	defer Close()
	EventWithDuration("roster.save", time.Millisecond, "path", "students.txt")
	recs := readEvents(t, filepath.Join(dir, "events"))
	assert.Equal(t, 1, recs)
}

func readEvents(t *testing.T, dir string) int {
	files, err := os.ReadDir(dir)
	assert.NoError(t, err)
	n := 0
	for _, fi := range files {
		f, err := os.Open(filepath.Join(dir, fi.Name()))
		assert.NoError(t, err)
		r := journal.NewReader(f)
		for r.Next() {
			n++
		}
		assert.NoError(t, r.Err())
		f.Close()
	}
	return n
}
