// Package journal writes and reads an append-only sequence of named,
// timestamped key/value records. It's used as an audit trail of roster
// changes and as framing for log events.
//
// A record on disk:
//
//	--- ${size} ${timestamp_in_unix_epoch_ms} ${name}\n
//	${data}
//
// The data of a key/value record is one "key: value\n" line per entry.
// Values that are empty, long or not printable ASCII are written as
// "key:+${len}\n${value}\n".
package journal

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"
)

var hdrPrefix = []byte("--- ")

type Entry struct {
	Key   string
	Value string
}

// Record is a named list of key/value pairs
type Record struct {
	Name string
	// when writing, zero time means current time
	Timestamp time.Time
	Entries   []Entry
}

// Append adds key/value pairs. Values are formatted with %v.
func (r *Record) Append(args ...any) error {
	n := len(args)
	if n == 0 || n%2 != 0 {
		return fmt.Errorf("invalid number of args: %d. Should be multiple of 2", n)
	}
	for i := 0; i < n; i += 2 {
		k := fmt.Sprintf("%v", args[i])
		if k == "" {
			return fmt.Errorf("empty key")
		}
		r.Entries = append(r.Entries, Entry{k, fmt.Sprintf("%v", args[i+1])})
	}
	return nil
}

// Get returns a value for a given key
func (r *Record) Get(key string) (string, bool) {
	for _, e := range r.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

func needsLongFormat(s string) bool {
	if len(s) == 0 || len(s) > 120 {
		return true
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 32 || s[i] > 127 {
			return true
		}
	}
	return false
}

// Marshal serializes entries (without the header)
func (r *Record) Marshal() []byte {
	var buf bytes.Buffer
	for _, e := range r.Entries {
		buf.WriteString(e.Key)
		if !needsLongFormat(e.Value) {
			buf.WriteString(": ")
			buf.WriteString(e.Value)
			buf.WriteByte('\n')
			continue
		}
		buf.WriteString(":+")
		buf.WriteString(strconv.Itoa(len(e.Value)))
		buf.WriteByte('\n')
		buf.WriteString(e.Value)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Unmarshal parses data created by Marshal into r.Entries
func (r *Record) Unmarshal(d []byte) error {
	r.Entries = r.Entries[:0]
	for len(d) > 0 {
		idx := bytes.IndexByte(d, '\n')
		if idx == -1 {
			return fmt.Errorf("missing '\\n' at the end of '%s'", d)
		}
		line := d[:idx]
		d = d[idx+1:]
		idx = bytes.IndexByte(line, ':')
		if idx == -1 || idx+1 >= len(line) {
			return fmt.Errorf("line in unrecognized format: '%s'", line)
		}
		key := string(line[:idx])
		kind, val := line[idx+1], line[idx+2:]
		switch kind {
		case ' ':
			r.Entries = append(r.Entries, Entry{key, string(val)})
		case '+':
			n, err := strconv.Atoi(string(val))
			if err != nil || n < 0 || n > len(d) {
				return fmt.Errorf("invalid length in '%s'", line)
			}
			r.Entries = append(r.Entries, Entry{key, string(d[:n])})
			d = d[n:]
			if len(d) > 0 && d[0] == '\n' {
				d = d[1:]
			}
		default:
			return fmt.Errorf("line in unrecognized format: '%s'", line)
		}
	}
	return nil
}

// MarshalLine frames d with a header. If t is zero, it's not written.
// wb, if given, is re-used as a buffer.
func MarshalLine(name string, t time.Time, d []byte, wb *bytes.Buffer) []byte {
	if wb == nil {
		wb = &bytes.Buffer{}
	} else {
		wb.Reset()
	}
	wb.Grow(len(hdrPrefix) + len(name) + len(d) + 32)
	wb.Write(hdrPrefix)
	wb.WriteString(strconv.Itoa(len(d)))
	if !t.IsZero() {
		wb.WriteByte(' ')
		wb.WriteString(strconv.FormatInt(t.UnixMilli(), 10))
	}
	if name != "" {
		wb.WriteByte(' ')
		wb.WriteString(name)
	}
	wb.WriteByte('\n')
	// for readability, data always ends with a newline
	if n := len(d); n > 0 {
		wb.Write(d)
		if d[n-1] != '\n' {
			wb.WriteByte('\n')
		}
	}
	return wb.Bytes()
}

// Writer writes records to an io.Writer
type Writer struct {
	w   io.Writer
	buf bytes.Buffer
	mu  sync.Mutex
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write writes r. Uses current time if r.Timestamp is zero.
func (w *Writer) Write(r *Record) error {
	t := r.Timestamp
	if t.IsZero() {
		t = time.Now()
	}
	d := r.Marshal()
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := w.w.Write(MarshalLine(r.Name, t, d, &w.buf))
	return err
}

// File is a journal appended to a file on disk
type File struct {
	*Writer
	f *os.File
}

// OpenFile opens (creating if needed) a journal file for appending
func OpenFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &File{
		Writer: NewWriter(f),
		f:      f,
	}, nil
}

// Close closes the file. It's safe to call on nil receiver.
func (f *File) Close() error {
	if f == nil || f.f == nil {
		return nil
	}
	err := f.f.Close()
	f.f = nil
	return err
}
