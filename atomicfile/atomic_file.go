// Package atomicfile replaces a file in one step: data goes to a temporary
// file in the same directory which is renamed over the destination on Close.
// If anything fails, the destination keeps its previous content and the
// temporary file is removed.
package atomicfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

var (
	// ErrCancelled is returned by calls subsequent to RemoveIfNotClosed()
	ErrCancelled = errors.New("cancelled")

	_ io.WriteCloser = &File{}
)

// File is a pending replacement of dstPath
type File struct {
	dstPath string
	dir     string
	tmpFile *os.File
	tmpPath string
	// first error seen, sticky
	err error
}

// New creates a temporary file next to path. The directory must exist.
func New(path string) (*File, error) {
	dir, name := filepath.Split(path)
	if name == "" {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrInvalid}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return nil, err
	}
	return &File{
		dstPath: path,
		dir:     dir,
		tmpFile: tmp,
		tmpPath: tmp.Name(),
	}, nil
}

func (f *File) fail(err error) error {
	if err == nil {
		return nil
	}
	if f.err == nil {
		f.err = err
	}
	_ = f.Close()
	return err
}

func (f *File) Write(d []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.tmpFile.Write(d)
	return n, f.fail(err)
}

func (f *File) WriteString(s string) (int, error) {
	return f.Write([]byte(s))
}

func (f *File) closed() bool {
	return f.tmpFile == nil
}

// RemoveIfNotClosed abandons the write if Close wasn't called yet.
// Meant to be deferred right after New so that an early return or
// a panic doesn't leave a temporary file behind.
func (f *File) RemoveIfNotClosed() {
	if f == nil || f.closed() {
		return
	}
	f.err = ErrCancelled
	_ = f.Close()
}

// Close syncs the temporary file and renames it over the destination.
// Safe to call multiple times; returns the first error.
func (f *File) Close() error {
	if f.closed() {
		return f.err
	}
	tmp := f.tmpFile
	f.tmpFile = nil

	errSync := tmp.Sync()
	errClose := tmp.Close()

	renamed := false
	defer func() {
		if !renamed {
			_ = os.Remove(f.tmpPath)
		}
	}()

	if f.err != nil {
		return f.err
	}
	err := errSync
	if err == nil {
		err = errClose
	}
	if err == nil {
		err = os.Rename(f.tmpPath, f.dstPath)
		renamed = err == nil
		// sync the directory so that the rename survives a crash
		if d, _ := os.Open(f.dir); d != nil {
			_ = d.Sync()
			_ = d.Close()
		}
	}
	f.err = err
	return err
}
