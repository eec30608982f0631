// Package tripz reads and appends gzipped NDJSON files under an advisory file lock.
package tripz

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

type GZFileWriter struct {
	f      *os.File
	gzw    *gzip.Writer
	locked bool
	closed bool
}

type GZFileWriterConfig struct {
	CompressionLevel int
	Flag             int
	FilePerm         os.FileMode
	DirPerm          os.FileMode
}

func DefaultGZFileWriterConfig() *GZFileWriterConfig {
	return &GZFileWriterConfig{
		CompressionLevel: gzip.BestCompression,
		Flag:             os.O_WRONLY | os.O_APPEND | os.O_CREATE,
		FilePerm:         0660,
		DirPerm:          0770,
	}
}

// NewGZFileWriter opens path for writing, creating parent directories.
// With the default O_APPEND flag, every writer adds a new gzip member;
// readers see one continuous stream.
func NewGZFileWriter(path string, config *GZFileWriterConfig) (*GZFileWriter, error) {
	if config == nil {
		config = DefaultGZFileWriterConfig()
	}
	if err := os.MkdirAll(filepath.Dir(path), config.DirPerm); err != nil {
		return nil, err
	}
	fi, err := os.OpenFile(path, config.Flag, config.FilePerm)
	if err != nil {
		return nil, err
	}
	gzw, err := gzip.NewWriterLevel(fi, config.CompressionLevel)
	if err != nil {
		_ = fi.Close()
		return nil, err
	}
	return &GZFileWriter{f: fi, gzw: gzw}, nil
}

// Write takes an exclusive lock on the file on first use.
// The lock is released by Close.
func (g *GZFileWriter) Write(p []byte) (int, error) {
	if err := g.lock(); err != nil {
		return 0, err
	}
	return g.gzw.Write(p)
}

func (g *GZFileWriter) lock() error {
	if g.locked || g.closed {
		return nil
	}
	if err := syscall.Flock(int(g.f.Fd()), syscall.LOCK_EX); err != nil {
		return err
	}
	g.locked = true
	return nil
}

func (g *GZFileWriter) unlock() {
	if !g.locked {
		return
	}
	_ = syscall.Flock(int(g.f.Fd()), syscall.LOCK_UN)
	g.locked = false
}

func (g *GZFileWriter) Close() error {
	if g.closed {
		return nil
	}
	defer func() {
		g.closed = true
	}()
	defer g.unlock()
	if err := g.gzw.Close(); err != nil {
		_ = g.f.Close()
		return err
	}
	if err := g.f.Sync(); err != nil {
		_ = g.f.Close()
		return err
	}
	return g.f.Close()
}

func (g *GZFileWriter) Path() string {
	return g.f.Name()
}

type GZFileReader struct {
	f      *os.File
	gzr    *gzip.Reader
	locked bool
	closed bool
}

func NewGZFileReader(path string) (*GZFileReader, error) {
	fi, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	gzr, err := gzip.NewReader(fi)
	if err != nil {
		_ = fi.Close()
		return nil, err
	}
	return &GZFileReader{f: fi, gzr: gzr}, nil
}

// Read satisfies io.Reader, holding a shared lock until Close.
func (g *GZFileReader) Read(p []byte) (int, error) {
	if !g.locked && !g.closed {
		if err := syscall.Flock(int(g.f.Fd()), syscall.LOCK_SH); err != nil {
			return 0, err
		}
		g.locked = true
	}
	return g.gzr.Read(p)
}

func (g *GZFileReader) Close() error {
	if g.closed {
		return nil
	}
	defer func() {
		g.closed = true
	}()
	if g.locked {
		_ = syscall.Flock(int(g.f.Fd()), syscall.LOCK_UN)
		g.locked = false
	}
	if err := g.gzr.Close(); err != nil {
		_ = g.f.Close()
		return err
	}
	return g.f.Close()
}

func (g *GZFileReader) Path() string {
	return g.f.Name()
}

// LineCount reads the rest of the file, counting lines.
func (g *GZFileReader) LineCount() (int, error) {
	count := 0
	scanner := bufio.NewScanner(g)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}

// Open opens path for reading, decompressing it if it ends in .gz.
func Open(path string) (io.ReadCloser, error) {
	if strings.HasSuffix(path, ".gz") {
		return NewGZFileReader(path)
	}
	return os.Open(path)
}
