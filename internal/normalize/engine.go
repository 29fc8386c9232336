// Package normalize turns classified log files into a lazy stream of
// canonical events.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cyra/ecsify/internal/detect"
	"github.com/cyra/ecsify/internal/ecs"
	"github.com/cyra/ecsify/internal/logging"
	"github.com/cyra/ecsify/internal/logsource"
	"github.com/cyra/ecsify/internal/metrics"
	"github.com/cyra/ecsify/internal/parser"
)

// queueSize is the per-file event buffer used by the worker pool.
const queueSize = 256

// errStopped signals that the consumer stopped pulling events.
var errStopped = errors.New("consumer stopped")

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: a no-op logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records per-file and per-line counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithStrictTimestamps makes an invalid timestamp abort the run instead of
// skipping the line.
func WithStrictTimestamps(strict bool) Option {
	return func(e *Engine) { e.strict = strict }
}

// WithWorkers sets how many files are normalized concurrently. Output order
// does not depend on it.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// Summary counts what the engine has done so far.
type Summary struct {
	Files   int
	ByType  map[string]int
	Lines   int
	Records int
	Skipped int
}

// Engine binds a detector registry to a parser dispatch table. Both are
// shared read-only between workers.
type Engine struct {
	reg     *detect.Registry
	parsers parser.Set
	logger  *logging.Logger
	metrics *metrics.Metrics
	strict  bool
	workers int

	mu    sync.Mutex
	stats Summary
}

// New creates an Engine.
func New(reg *detect.Registry, parsers parser.Set, opts ...Option) *Engine {
	e := &Engine{
		reg:     reg,
		parsers: parsers,
		logger:  logging.NewNop(),
		workers: 1,
		stats:   Summary{ByType: make(map[string]int)},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = 1
	}
	return e
}

// Classify runs one detection pass over src and returns its type label,
// or detect.Unknown.
func (e *Engine) Classify(ctx context.Context, src logsource.Source) (string, error) {
	res, err := e.classify(ctx, src)
	if err != nil {
		return "", err
	}
	return res.Type, nil
}

func (e *Engine) classify(ctx context.Context, src logsource.Source) (detect.Result, error) {
	var readErr error
	lines := func(yield func(string) bool) {
		for line, err := range src.Lines(ctx) {
			if err != nil {
				readErr = err
				return
			}
			if !yield(line) {
				return
			}
		}
	}
	res := e.reg.Classify(lines)
	if readErr != nil {
		return detect.Result{}, readErr
	}
	return res, nil
}

// Records classifies each source in order and yields the events parsed from
// it, file by file and line by line. A non-nil error ends the sequence.
func (e *Engine) Records(ctx context.Context, srcs []logsource.Source) iter.Seq2[*ecs.Event, error] {
	return func(yield func(*ecs.Event, error) bool) {
		if e.workers > 1 && len(srcs) > 1 {
			e.recordsParallel(ctx, srcs, yield)
			return
		}
		for _, src := range srcs {
			err := e.normalizeFile(ctx, src, func(ev *ecs.Event) bool {
				return yield(ev, nil)
			})
			if errors.Is(err, errStopped) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

// recordsParallel normalizes up to e.workers files at once. Each file gets
// its own buffered channel, and the consumer drains them in file order.
func (e *Engine) recordsParallel(ctx context.Context, srcs []logsource.Source, yield func(*ecs.Event, error) bool) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	queues := make([]chan *ecs.Event, len(srcs))
	errs := make([]error, len(srcs))
	for i := range queues {
		queues[i] = make(chan *ecs.Event, queueSize)
	}

	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		for i, src := range srcs {
			if gctx.Err() != nil {
				// Unstarted files still need a closed queue.
				for _, q := range queues[i:] {
					close(q)
				}
				return
			}
			g.Go(func() error {
				defer close(queues[i])
				err := e.normalizeFile(gctx, src, func(ev *ecs.Event) bool {
					select {
					case queues[i] <- ev:
						return true
					case <-gctx.Done():
						return false
					}
				})
				if errors.Is(err, errStopped) {
					err = gctx.Err()
				}
				errs[i] = err
				return err
			})
		}
	}()

	finish := func() error {
		cancel()
		<-dispatched
		return g.Wait()
	}

	for i := range srcs {
		for ev := range queues[i] {
			if !yield(ev, nil) {
				_ = finish()
				return
			}
		}
		if errs[i] != nil {
			// g.Wait reports the error that caused the cancellation, which
			// may come from a later file than the one that saw it.
			err := finish()
			if err == nil {
				err = errs[i]
			}
			yield(nil, err)
			return
		}
	}
	if err := finish(); err != nil {
		yield(nil, err)
	}
}

// normalizeFile classifies src, then parses every non-blank line with the
// bound parser and hands the records to emit. It returns errStopped when
// emit asks to stop.
func (e *Engine) normalizeFile(ctx context.Context, src logsource.Source, emit func(*ecs.Event) bool) error {
	name := src.Name()

	res, err := e.classify(ctx, src)
	if err != nil {
		return err
	}
	if res.Type == detect.Unknown {
		e.countFile(detect.Unknown)
		e.logger.Infof("%s: no detector matched, skipping file", name)
		return nil
	}

	p, ok := e.parsers.Lookup(res.Type)
	if !ok {
		e.countFile(res.Type)
		e.countSkip(res.Type, metrics.ReasonNoParser)
		e.logger.Warnf("%s: detected as %s but no parser is registered for it, skipping file", name, res.Type)
		return nil
	}

	e.countFile(res.Type)
	e.logger.Debugf("%s: detected as %s (rule %s, line %d)", name, res.Type, res.Rule, res.Line)

	lineNo := 0
	for line, err := range src.Lines(ctx) {
		if err != nil {
			return err
		}
		lineNo++

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		e.countLine()

		ev, err := p.Parse(line)
		switch {
		case err == nil:
		case errors.Is(err, parser.ErrNoMatch):
			e.countSkip(res.Type, metrics.ReasonNoMatch)
			e.logger.Debugf("%s:%d: not a %s record", name, lineNo, res.Type)
			continue
		case errors.Is(err, parser.ErrTimestamp):
			if e.strict {
				return fmt.Errorf("%s:%d: %w", name, lineNo, err)
			}
			e.countSkip(res.Type, metrics.ReasonTimestamp)
			e.logger.Warnf("%s:%d: skipping line: %v", name, lineNo, err)
			continue
		default:
			return fmt.Errorf("%s:%d: %w", name, lineNo, err)
		}
		if ev == nil {
			continue
		}

		e.countRecord(res.Type)
		if !emit(ev) {
			return errStopped
		}
	}
	return nil
}

// Stats returns a snapshot of the counters.
func (e *Engine) Stats() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := e.stats
	out.ByType = make(map[string]int, len(e.stats.ByType))
	for k, v := range e.stats.ByType {
		out.ByType[k] = v
	}
	return out
}

func (e *Engine) countFile(typ string) {
	e.mu.Lock()
	e.stats.Files++
	e.stats.ByType[typ]++
	e.mu.Unlock()
	if e.metrics != nil {
		e.metrics.Files.WithLabelValues(typ).Inc()
	}
}

func (e *Engine) countLine() {
	e.mu.Lock()
	e.stats.Lines++
	e.mu.Unlock()
	if e.metrics != nil {
		e.metrics.Lines.Inc()
	}
}

func (e *Engine) countRecord(typ string) {
	e.mu.Lock()
	e.stats.Records++
	e.mu.Unlock()
	if e.metrics != nil {
		e.metrics.Records.WithLabelValues(typ).Inc()
	}
}

func (e *Engine) countSkip(typ, reason string) {
	e.mu.Lock()
	e.stats.Skipped++
	e.mu.Unlock()
	if e.metrics != nil {
		e.metrics.Skipped.WithLabelValues(typ, reason).Inc()
	}
}
