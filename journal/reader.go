package journal

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"
)

// MaxDataSize is the largest record Reader accepts
const MaxDataSize = 16 << 20

// Reader reads records written by Writer
type Reader struct {
	r *bufio.Reader

	// available after Next(), over-written by the next call
	Name      string
	Timestamp time.Time
	Data      []byte

	err  error
	done bool
}

func NewReader(r io.Reader) *Reader {
	return &Reader{
		r: bufio.NewReader(r),
	}
}

func (r *Reader) Done() bool {
	return r.err != nil || r.done
}

// Err returns error from last Next(). io.EOF is not an error.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) fail(format string, args ...any) bool {
	r.err = fmt.Errorf(format, args...)
	return false
}

// Next reads the next framed block. Returns false at the end or on error.
func (r *Reader) Next() bool {
	if r.Done() {
		return false
	}
	hdr, err := r.r.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(hdr) == 0 {
			r.done = true
			return false
		}
		if err == io.EOF {
			return r.fail("truncated header '%s'", hdr)
		}
		r.err = err
		return false
	}
	rest, ok := bytes.CutPrefix(hdr[:len(hdr)-1], hdrPrefix)
	if !ok {
		return r.fail("invalid header '%s'", hdr)
	}
	// ${size} [${timestamp}] [${name}]
	parts := bytes.SplitN(rest, []byte{' '}, 3)
	size, err := strconv.Atoi(string(parts[0]))
	if err != nil || size < 0 {
		return r.fail("invalid header '%s'", hdr)
	}
	if size > MaxDataSize {
		return r.fail("record size %d in header '%s' exceeds %d", size, bytes.TrimSpace(hdr), MaxDataSize)
	}
	r.Name = ""
	r.Timestamp = time.Time{}
	if len(parts) > 1 {
		ms, err := strconv.ParseInt(string(parts[1]), 10, 64)
		if err != nil {
			return r.fail("invalid timestamp in header '%s'", hdr)
		}
		r.Timestamp = time.UnixMilli(ms)
	}
	if len(parts) > 2 {
		r.Name = string(parts[2])
	}

	r.Data = make([]byte, size)
	if _, err = io.ReadFull(r.r, r.Data); err != nil {
		r.err = err
		return false
	}
	if size > 0 && r.Data[size-1] != '\n' {
		// padding newline added by MarshalLine
		if _, err = r.r.Discard(1); err != nil {
			r.err = err
			return false
		}
	}
	return true
}

// NextRecord reads the next key/value record
func (r *Reader) NextRecord(rec *Record) bool {
	if !r.Next() {
		return false
	}
	if err := rec.Unmarshal(r.Data); err != nil {
		r.err = err
		return false
	}
	rec.Name = r.Name
	rec.Timestamp = r.Timestamp
	return true
}

// ReadAll reads all key/value records
func ReadAll(rd io.Reader) ([]*Record, error) {
	r := NewReader(rd)
	var res []*Record
	for {
		rec := &Record{}
		if !r.NextRecord(rec) {
			break
		}
		res = append(res, rec)
	}
	return res, r.Err()
}
