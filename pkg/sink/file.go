package sink

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultBufferSize is the write buffer placed in front of each file sink.
const DefaultBufferSize = 64 * 1024

// FileFactory creates buffered file sinks under a fixed directory.
type FileFactory struct {
	dir     string
	bufSize int
}

// NewFileFactory returns a factory rooted at dir. A bufSize <= 0 selects
// DefaultBufferSize.
func NewFileFactory(dir string, bufSize int) *FileFactory {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &FileFactory{dir: dir, bufSize: bufSize}
}

// Create opens <dir>/<name> for writing, truncating any previous file.
func (f *FileFactory) Create(ctx context.Context, name string) (Sink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return nil, fmt.Errorf("create sink directory: %w", err)
	}

	path := filepath.Join(f.dir, filepath.Base(name))
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create sink file: %w", err)
	}
	return &fileSink{file: file, buf: bufio.NewWriterSize(file, f.bufSize)}, nil
}

// fileSink buffers writes for throughput and flushes on Close.
type fileSink struct {
	file   *os.File
	buf    *bufio.Writer
	closed bool
}

func (s *fileSink) Write(p []byte) (int, error) {
	if s.closed {
		return 0, ErrWriteAfterClose
	}
	return s.buf.Write(p)
}

func (s *fileSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.buf.Flush(); err != nil {
		s.file.Close()
		return fmt.Errorf("flush sink: %w", err)
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close sink: %w", err)
	}
	return nil
}
