package logsource

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// codec opens a compressed file as a decompressed stream.
type codec struct {
	name string
	wrap func(io.Reader) (io.ReadCloser, error)
}

var codecs = map[string]codec{
	".gz": {name: "gzip", wrap: func(r io.Reader) (io.ReadCloser, error) {
		return gzip.NewReader(r)
	}},
	".zst": {name: "zstd", wrap: func(r io.Reader) (io.ReadCloser, error) {
		d, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	}},
	".lz4": {name: "lz4", wrap: func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(lz4.NewReader(r)), nil
	}},
	".sz": {name: "snappy", wrap: func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(snappy.NewReader(r)), nil
	}},
}

func codecFor(path string) (codec, bool) {
	c, ok := codecs[strings.ToLower(filepath.Ext(path))]
	return c, ok
}

// Compressed reports whether path will be decompressed when read.
func Compressed(path string) bool {
	_, ok := codecFor(path)
	return ok
}

func (c codec) open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := c.wrap(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &stackedCloser{Reader: r, closers: []io.Closer{r, f}}, nil
}

// stackedCloser closes the decompressor before the file beneath it.
type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
