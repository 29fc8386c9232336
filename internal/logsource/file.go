package logsource

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/hpcloud/tail"
)

const readBufSize = 64 * 1024

// File reads a log file from disk. Plain files are read with tail in
// non-follow mode; files with a known compression suffix are decompressed.
type File struct {
	path string
	enc  Encoding
}

// NewFile creates a File source for path.
func NewFile(path string, enc Encoding) *File {
	return &File{path: path, enc: enc}
}

func (f *File) Name() string {
	return f.path
}

// Lines reads the file from the start. Trailing newlines are removed; other
// whitespace is left for the caller.
func (f *File) Lines(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		decode := f.enc.lineDecoder()
		if c, ok := codecFor(f.path); ok {
			f.readCompressed(ctx, c, decode, yield)
			return
		}
		f.readPlain(ctx, decode, yield)
	}
}

func (f *File) readPlain(ctx context.Context, decode func(string) string, yield func(string, error) bool) {
	cfg := tail.Config{
		Follow:    false,
		ReOpen:    false,
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	}

	tf, err := tail.TailFile(f.path, cfg)
	if err != nil {
		yield("", fmt.Errorf("open %s: %w", f.path, err))
		return
	}
	// Nothing is watched when Follow is off, so no Cleanup is needed.

	finished := false
	defer func() {
		if finished {
			return
		}
		// The reader goroutine blocks on an unbuffered send; drain it so Stop returns.
		go func() {
			for range tf.Lines {
			}
		}()
		_ = tf.Stop()
	}()

	for {
		if err := ctx.Err(); err != nil {
			yield("", err)
			return
		}
		select {
		case <-ctx.Done():
			yield("", ctx.Err())
			return
		case line, ok := <-tf.Lines:
			if !ok {
				finished = true
				if err := tf.Wait(); err != nil {
					yield("", fmt.Errorf("read %s: %w", f.path, err))
				}
				return
			}
			if line.Err != nil {
				yield("", fmt.Errorf("read %s: %w", f.path, line.Err))
				return
			}
			if !yield(decode(strings.TrimSuffix(line.Text, "\r")), nil) {
				return
			}
		}
	}
}

func (f *File) readCompressed(ctx context.Context, c codec, decode func(string) string, yield func(string, error) bool) {
	rc, err := c.open(f.path)
	if err != nil {
		yield("", fmt.Errorf("open %s: %w", f.path, err))
		return
	}
	defer rc.Close()

	br := bufio.NewReaderSize(rc, readBufSize)
	for {
		if err := ctx.Err(); err != nil {
			yield("", err)
			return
		}
		line, err := br.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
			if !yield(decode(line), nil) {
				return
			}
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			yield("", fmt.Errorf("read %s (%s): %w", f.path, c.name, err))
			return
		}
	}
}
