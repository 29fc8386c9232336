package logsource

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, src Source) []string {
	t.Helper()
	var out []string
	for line, err := range src.Lines(context.Background()) {
		require.NoError(t, err)
		out = append(out, line)
	}
	return out
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestFilePlainLines(t *testing.T) {
	path := writeFile(t, t.TempDir(), "access.log", []byte("first\r\n\nsecond\nlast without newline"))

	src := NewFile(path, UTF8)
	assert.Equal(t, path, src.Name())
	assert.Equal(t, []string{"first", "", "second", "last without newline"}, collect(t, src))

	// Sources are re-readable.
	assert.Equal(t, []string{"first", "", "second", "last without newline"}, collect(t, src))
}

func TestFileEmpty(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.log", nil)
	assert.Empty(t, collect(t, NewFile(path, UTF8)))
}

func TestFileMissing(t *testing.T) {
	src := NewFile(filepath.Join(t.TempDir(), "gone.log"), UTF8)

	var errs []error
	for _, err := range src.Lines(context.Background()) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "gone.log")
}

func TestFileEarlyBreakDoesNotHang(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < 1000; i++ {
		buf.WriteString("line\n")
	}
	path := writeFile(t, t.TempDir(), "big.log", buf.Bytes())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range NewFile(path, UTF8).Lines(context.Background()) {
			break
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("early break did not release the reader")
	}
}

func TestFileCanceledContext(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.log", []byte("a\nb\n"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var gotErr error
	for _, err := range NewFile(path, UTF8).Lines(ctx) {
		if err != nil {
			gotErr = err
		}
	}
	assert.ErrorIs(t, gotErr, context.Canceled)
}

func TestFileDropsInvalidUTF8(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.log", []byte("ok\xff\xfe line\n"))
	assert.Equal(t, []string{"ok line"}, collect(t, NewFile(path, UTF8)))
}

func TestFileLatin1(t *testing.T) {
	enc, err := LookupEncoding("latin1")
	require.NoError(t, err)

	path := writeFile(t, t.TempDir(), "legacy.log", []byte("caf\xe9\n"))
	assert.Equal(t, []string{"café"}, collect(t, NewFile(path, enc)))
}

func compressWith(t *testing.T, wrap func(io.Writer) io.WriteCloser, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := wrap(&buf)
	_, err := io.WriteString(w, data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestFileCompressed(t *testing.T) {
	const content = "alpha\nbeta\ngamma\n"

	tests := []struct {
		name string
		wrap func(io.Writer) io.WriteCloser
	}{
		{"x.log.gz", func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) }},
		{"x.log.zst", func(w io.Writer) io.WriteCloser {
			enc, err := zstd.NewWriter(w)
			require.NoError(t, err)
			return enc
		}},
		{"x.log.lz4", func(w io.Writer) io.WriteCloser { return lz4.NewWriter(w) }},
		{"x.log.sz", func(w io.Writer) io.WriteCloser { return snappy.NewBufferedWriter(w) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.name, compressWith(t, tt.wrap, content))
			require.True(t, Compressed(path))
			assert.Equal(t, []string{"alpha", "beta", "gamma"}, collect(t, NewFile(path, UTF8)))
		})
	}
}

func TestFileCorruptCompressed(t *testing.T) {
	path := writeFile(t, t.TempDir(), "broken.gz", []byte("definitely not gzip"))

	var gotErr error
	for _, err := range NewFile(path, UTF8).Lines(context.Background()) {
		if err != nil {
			gotErr = err
		}
	}
	require.Error(t, gotErr)
	assert.Contains(t, gotErr.Error(), "broken.gz")
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.log", []byte("b"))
	writeFile(t, dir, "a.log", []byte("a"))
	writeFile(t, dir, "c.txt", []byte("c"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	writeFile(t, filepath.Join(dir, "nested"), "d.log", []byte("d"))

	all, err := Discover(dir, "", UTF8)
	require.NoError(t, err)
	var names []string
	for _, s := range all {
		names = append(names, filepath.Base(s.Name()))
	}
	assert.Equal(t, []string{"a.log", "b.log", "c.txt"}, names)

	logs, err := Discover(dir, "*.log", UTF8)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, filepath.Join(dir, "a.log"), logs[0].Name())

	_, err = Discover(filepath.Join(dir, "missing"), "", UTF8)
	assert.Error(t, err)
}

func TestLookupEncoding(t *testing.T) {
	for _, label := range []string{"", "utf-8", "UTF8", "unicode-1-1-utf-8"} {
		enc, err := LookupEncoding(label)
		require.NoError(t, err, label)
		assert.Equal(t, "utf-8", enc.String(), label)
	}

	enc, err := LookupEncoding("latin1")
	require.NoError(t, err)
	assert.Equal(t, "windows-1252", enc.String())

	_, err = LookupEncoding("klingon")
	assert.ErrorIs(t, err, ErrUnsupportedEncoding)
}

func TestMemorySource(t *testing.T) {
	src := NewMemory("mem", "one", "", "two")
	assert.Equal(t, "mem", src.Name())
	assert.Equal(t, []string{"one", "", "two"}, collect(t, src))
	assert.Empty(t, collect(t, NewMemory("empty")))

	raw := FromBytes("raw", []byte("x\xffy\r\nz"), UTF8)
	assert.Equal(t, []string{"xy", "z"}, collect(t, raw))
}
