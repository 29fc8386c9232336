// Package output writes canonical events as newline-delimited JSON.
package output

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/cyra/ecsify/internal/ecs"
)

const (
	defaultBufSize = 64 * 1024 // 64KB
	maxBackups     = 10
)

// Sink is a destination for normalized events.
type Sink interface {
	Write(ctx context.Context, ev *ecs.Event) error
	Close() error
}

// Option configures a Writer.
type Option func(*Writer)

// WithMaxSize sets the file size (bytes) at which rotation triggers.
// 0 (default) disables rotation. Only plain files can rotate.
func WithMaxSize(bytes int64) Option {
	return func(w *Writer) { w.maxSize = bytes }
}

// Writer encodes one event per line. It is safe for concurrent use.
type Writer struct {
	mu      sync.Mutex
	path    string // empty when writing to a caller-supplied io.Writer
	maxSize int64

	f       *os.File
	comp    io.WriteCloser // compressor sitting between bw and f, if any
	bw      *bufio.Writer
	written int64
	count   int64

	line bytes.Buffer
	enc  *json.Encoder
}

// New returns a Writer on w. Close flushes but does not close w.
func New(w io.Writer, opts ...Option) *Writer {
	o := newWriter("", opts)
	o.bw = bufio.NewWriterSize(w, defaultBufSize)
	return o
}

// Open creates (truncating) the file at path and returns a Writer on it.
// "-" writes to stdout. A .gz or .zst suffix compresses the stream.
func Open(path string, opts ...Option) (*Writer, error) {
	if path == "-" || path == "" {
		o := New(os.Stdout, opts...)
		if o.maxSize > 0 {
			return nil, errors.New("output: rotation requires a file path")
		}
		return o, nil
	}

	o := newWriter(path, opts)
	if o.maxSize > 0 && compression(path) != "" {
		return nil, fmt.Errorf("output: rotation is not supported for compressed output %s", path)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("output: create dir %s: %w", dir, err)
		}
	}
	if err := o.openFile(); err != nil {
		return nil, err
	}
	return o, nil
}

func newWriter(path string, opts []Option) *Writer {
	o := &Writer{path: path}
	for _, opt := range opts {
		opt(o)
	}
	o.enc = json.NewEncoder(&o.line)
	o.enc.SetEscapeHTML(false)
	return o
}

func compression(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return "gzip"
	case ".zst":
		return "zstd"
	default:
		return ""
	}
}

// Write JSON-encodes the event and appends it as a line.
func (o *Writer) Write(_ context.Context, ev *ecs.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.line.Reset()
	if err := o.enc.Encode(ev); err != nil {
		return fmt.Errorf("output: marshal: %w", err)
	}

	if o.maxSize > 0 && o.written > 0 && o.written+int64(o.line.Len()) > o.maxSize {
		if err := o.rotate(); err != nil {
			return fmt.Errorf("output: rotate: %w", err)
		}
	}

	n, err := o.bw.Write(o.line.Bytes())
	o.written += int64(n)
	if err != nil {
		return fmt.Errorf("output: write: %w", err)
	}
	o.count++
	return nil
}

// Count returns the number of events written.
func (o *Writer) Count() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.count
}

// Close flushes buffers, finishes any compressed stream and closes the file.
func (o *Writer) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closeFile()
}

func (o *Writer) closeFile() error {
	if err := o.bw.Flush(); err != nil {
		if o.f != nil {
			o.f.Close()
		}
		return fmt.Errorf("output: flush: %w", err)
	}
	if o.comp != nil {
		if err := o.comp.Close(); err != nil {
			o.f.Close()
			return fmt.Errorf("output: finish %s: %w", compression(o.path), err)
		}
	}
	if o.f == nil {
		return nil
	}
	return o.f.Close()
}

// openFile creates the output file and wraps it in a compressor and a bufio.Writer.
func (o *Writer) openFile() error {
	f, err := os.OpenFile(o.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("output: open %s: %w", o.path, err)
	}

	var w io.Writer = f
	o.comp = nil
	switch compression(o.path) {
	case "gzip":
		o.comp = gzip.NewWriter(f)
	case "zstd":
		enc, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return fmt.Errorf("output: zstd: %w", err)
		}
		o.comp = enc
	}
	if o.comp != nil {
		w = o.comp
	}

	o.f = f
	o.bw = bufio.NewWriterSize(w, defaultBufSize)
	o.written = 0
	return nil
}

// rotate closes the current file, renames it to {path}.1 (shifting
// existing rotated files up to {path}.10), and opens a new file.
func (o *Writer) rotate() error {
	if err := o.closeFile(); err != nil {
		return err
	}

	for i := maxBackups - 1; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", o.path, i)
		to := fmt.Sprintf("%s.%d", o.path, i+1)
		if err := os.Rename(from, to); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	if err := os.Rename(o.path, o.path+".1"); err != nil {
		return err
	}
	return o.openFile()
}
