package logsource

import (
	"context"
	"iter"
	"strings"
)

// Memory is an in-memory Source, used for tests and for piping already
// loaded content through the engine.
type Memory struct {
	name string
	data string
	enc  Encoding
}

// NewMemory builds a source from lines (joined with "\n").
func NewMemory(name string, lines ...string) *Memory {
	return &Memory{name: name, data: strings.Join(lines, "\n"), enc: UTF8}
}

// FromBytes builds a source from raw, possibly non-UTF-8, content.
func FromBytes(name string, data []byte, enc Encoding) *Memory {
	return &Memory{name: name, data: string(data), enc: enc}
}

func (m *Memory) Name() string {
	return m.name
}

func (m *Memory) Lines(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if m.data == "" {
			return
		}
		decode := m.enc.lineDecoder()
		for line := range strings.SplitSeq(m.data, "\n") {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			if !yield(decode(strings.TrimSuffix(line, "\r")), nil) {
				return
			}
		}
	}
}
