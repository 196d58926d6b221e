package store

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kjk/roster/atomicfile"
	"github.com/kjk/roster/log"
	"github.com/kjk/roster/u"
)

func (s *Store) malformed(err error, line string) {
	if s.OnMalformed != nil {
		s.OnMalformed(err, line)
		return
	}
	log.Logf("skipping %s: '%s'\n", err, line)
}

// SaveTo writes all records in display order, one per line
func (s *Store) SaveTo(w io.Writer) error {
	bw := bufio.NewWriter(w)
	n := len(s.order)
	s.progress("save", 0, n)
	for i, slot := range s.order {
		line := s.Codec.FormatLine(s.arena[slot])
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return errIO("write", err)
		}
		s.progress("save", i+1, n)
	}
	if err := bw.Flush(); err != nil {
		return errIO("write", err)
	}
	return nil
}

// Save replaces the content of the file at path with all records.
// The file is written to a temporary file first and renamed over path
// so a failed save leaves the previous content intact.
// Files ending with .gz, .zst, .zstd or .br are compressed.
func (s *Store) Save(path string) error {
	f, err := atomicfile.New(path)
	if err != nil {
		return errIO("create "+path, err)
	}
	defer f.RemoveIfNotClosed()

	w, err := u.NewCompressedWriter(f, path)
	if err != nil {
		return errIO("compress "+path, err)
	}
	if err = s.SaveTo(w); err != nil {
		_ = w.Close()
		return err
	}
	if err = w.Close(); err != nil {
		return errIO("compress "+path, err)
	}
	if err = f.Close(); err != nil {
		return errIO("save "+path, err)
	}
	return nil
}

// lines longer than this are reported as malformed and skipped
const maxLineLen = 64 * 1024

// readLine returns the next line without the line ending. A line longer than
// maxLineLen is consumed fully but only its first maxLineLen bytes are
// returned, with tooLong set.
func readLine(br *bufio.Reader) (string, bool, error) {
	var buf []byte
	tooLong := false
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			return "", false, err
		}
		if !tooLong {
			if len(buf)+len(chunk) > maxLineLen {
				buf = append(buf, chunk[:maxLineLen-len(buf)]...)
				tooLong = true
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			return string(buf), tooLong, nil
		}
	}
}

// LoadFrom replaces content of the store with records read from r.
// Malformed lines (and lines repeating an id) are skipped and reported to
// OnMalformed. If reading fails, the store is not modified.
func (s *Store) LoadFrom(r io.Reader) error {
	tmp := &Store{}
	br := bufio.NewReader(r)
	lineNo := 0
	for {
		line, tooLong, err := readLine(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return errIO("read", err)
		}
		lineNo++
		if tooLong {
			err = &Error{Kind: KindMalformedRecord, Line: lineNo, Msg: fmt.Sprintf("line longer than %d bytes", maxLineLen)}
			s.malformed(err, line[:80]+"...")
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue // skip empty lines
		}
		rec := &Record{table: s.Grades}
		err = s.Codec.ParseLine(line, rec)
		if err == nil {
			if _, dup := tmp.byID[rec.id]; dup {
				err = &Error{Kind: KindDuplicateKey, ID: rec.id, Msg: fmt.Sprintf("id %d", rec.id)}
			}
		}
		if err != nil {
			if e, ok := err.(*Error); ok {
				e.Line = lineNo
			}
			s.malformed(err, line)
			continue
		}
		tmp.insert(rec)
		s.progress("load", tmp.Count(), 0)
	}
	s.arena = tmp.arena
	s.free = tmp.free
	s.order = tmp.order
	s.byID = tmp.byID
	n := len(s.order)
	s.progress("load", n, n)
	return nil
}

// Load replaces content of the store with records from the file at path.
// A missing file is not an error: the store ends up empty.
// Files ending with .gz, .zst, .zstd, .bz2 or .br are decompressed.
func (s *Store) Load(path string) error {
	f, err := u.OpenFileMaybeCompressed(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.Clear()
			return nil
		}
		return errIO("open "+path, err)
	}
	defer f.Close()
	return s.LoadFrom(f)
}

// FileInfo describes a roster file on disk
type FileInfo struct {
	Name       string
	AbsPath    string
	Size       int64
	// Compressed is true for .gz, .zst, .br files
	Compressed bool
	Readable   bool
	Writable   bool
}

// Stat returns information about the file at path
func Stat(path string) (*FileInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, errIO("stat "+path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errIO("stat "+path, err)
	}
	res := &FileInfo{
		Name:       st.Name(),
		AbsPath:    abs,
		Size:       st.Size(),
		Compressed: u.IsCompressedPath(path),
	}
	if f, err := os.Open(path); err == nil {
		res.Readable = true
		u.CloseNoError(f)
	}
	if f, err := os.OpenFile(path, os.O_WRONLY, 0); err == nil {
		res.Writable = true
		u.CloseNoError(f)
	}
	return res, nil
}
