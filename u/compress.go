package u

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// readerWrappedFile closes both the decompressor and the file
type readerWrappedFile struct {
	f *os.File
	r io.ReadCloser
}

func (rc *readerWrappedFile) Close() error {
	err := rc.r.Close()
	if err2 := rc.f.Close(); err == nil {
		err = err2
	}
	return err
}

func (rc *readerWrappedFile) Read(p []byte) (int, error) {
	return rc.r.Read(p)
}

// CompressionExt returns normalized compression extension of path:
// .gz, .bz2, .br, .zstd or "" if not compressed
func CompressionExt(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gz", ".bz2", ".br":
		return ext
	case ".zst", ".zstd":
		return ".zstd"
	}
	return ""
}

// IsCompressedPath returns true if path has an extension of a compressed file
func IsCompressedPath(path string) bool {
	return CompressionExt(path) != ""
}

// NewDecompressingReader wraps r in a decompressor picked by extension of path.
// For uncompressed paths it returns r with a no-op Close.
// Close releases the decompressor but doesn't close r.
func NewDecompressingReader(r io.Reader, path string) (io.ReadCloser, error) {
	switch CompressionExt(path) {
	case ".gz":
		return gzip.NewReader(r)
	case ".bz2":
		return io.NopCloser(bzip2.NewReader(r)), nil
	case ".zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	case ".br":
		return io.NopCloser(brotli.NewReader(r)), nil
	}
	return io.NopCloser(r), nil
}

// OpenFileMaybeCompressed opens a file that might be compressed with gzip
// or bzip2 or zstd or brotli
// TODO: could sniff file content instead of checking file extension
func OpenFileMaybeCompressed(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !IsCompressedPath(path) {
		return f, nil
	}
	r, err := NewDecompressingReader(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &readerWrappedFile{f: f, r: r}, nil
}

// Recode copies src, compressed as indicated by extension of srcPath,
// to dst, compressed as indicated by extension of dstPath
func Recode(dst io.Writer, dstPath string, src io.Reader, srcPath string) error {
	if CompressionExt(srcPath) == CompressionExt(dstPath) {
		_, err := io.Copy(dst, src)
		return err
	}
	r, err := NewDecompressingReader(src, srcPath)
	if err != nil {
		return err
	}
	defer r.Close()
	w, err := NewCompressedWriter(dst, dstPath)
	if err != nil {
		return err
	}
	if _, err = io.Copy(w, r); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// ReadFileMaybeCompressed reads file. Decompresses based on extension.
func ReadFileMaybeCompressed(path string) ([]byte, error) {
	r, err := OpenFileMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}

// NewCompressedWriter wraps w in a compressor picked by extension of path.
// For uncompressed paths it returns w with a no-op Close.
// Close flushes the compressor but doesn't close w.
func NewCompressedWriter(w io.Writer, path string) (io.WriteCloser, error) {
	switch CompressionExt(path) {
	case ".gz":
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	case ".zstd":
		// SpeedBestCompression is much slower and not much better
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	case ".br":
		return brotli.NewWriterLevel(w, brotli.DefaultCompression), nil
	case ".bz2":
		return nil, fmt.Errorf("bzip2 compression is not supported for writing")
	}
	return nopWriteCloser{w}, nil
}

// BrCompressFile returns content of a file at path compressed with brotli
func BrCompressFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.BestCompression)
	if _, err = io.Copy(w, f); err != nil {
		return nil, err
	}
	if err = w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
