// Package pipeline wires config, line sources, the normalization engine
// and the output sink together.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cyra/ecsify/internal/config"
	"github.com/cyra/ecsify/internal/detect"
	"github.com/cyra/ecsify/internal/logging"
	"github.com/cyra/ecsify/internal/logsource"
	"github.com/cyra/ecsify/internal/metrics"
	"github.com/cyra/ecsify/internal/normalize"
	"github.com/cyra/ecsify/internal/output"
	"github.com/cyra/ecsify/internal/parser"
)

// Option adjusts a run beyond what the config file holds.
type Option func(*runOptions)

type runOptions struct {
	reference time.Time
	out       io.Writer
}

// WithReferenceTime pins the instant used to infer syslog years.
func WithReferenceTime(t time.Time) Option {
	return func(o *runOptions) { o.reference = t }
}

// WithOutput sends records to w instead of cfg.Output.Path.
func WithOutput(w io.Writer) Option {
	return func(o *runOptions) { o.out = w }
}

// Result describes a finished run.
type Result struct {
	normalize.Summary
	Written  int64
	Duration time.Duration
}

// Classification is the detected type of one input file.
type Classification struct {
	File string
	Type string
}

// Run normalizes every file of cfg.Input.Dir into cfg.Output.Path.
func Run(ctx context.Context, cfg *config.Config, logger *logging.Logger, opts ...Option) (Result, error) {
	o := runOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	start := time.Now()

	srcs, reg, err := prepare(cfg)
	if err != nil {
		return Result{}, err
	}

	var m *metrics.Metrics
	if cfg.MetricsFile != "" {
		m = metrics.New()
	}

	var parserOpts []parser.Option
	if !o.reference.IsZero() {
		parserOpts = append(parserOpts, parser.WithReferenceTime(o.reference))
	}
	parsers := parser.NewSet(parserOpts...)
	for _, typ := range reg.Types() {
		if _, ok := parsers.Lookup(typ); !ok {
			logger.Warnf("detector type %q has no parser; files of that type will be skipped", typ)
		}
	}

	engine := normalize.New(reg, parsers,
		normalize.WithLogger(logger),
		normalize.WithMetrics(m),
		normalize.WithStrictTimestamps(cfg.StrictTimestamps),
		normalize.WithWorkers(cfg.Workers),
	)

	var sink *output.Writer
	if o.out != nil {
		sink = output.New(o.out)
	} else {
		sink, err = output.Open(cfg.Output.Path, output.WithMaxSize(cfg.Output.MaxSize))
		if err != nil {
			return Result{}, err
		}
	}

	logger.Infof("normalizing %d file(s) from %s", len(srcs), cfg.Input.Dir)

	runErr := drain(ctx, engine, srcs, sink)
	if err := sink.Close(); err != nil && runErr == nil {
		runErr = err
	}

	res := Result{
		Summary:  engine.Stats(),
		Written:  sink.Count(),
		Duration: time.Since(start),
	}

	if m != nil {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Errorf("%v", err)
		}
	}
	if runErr != nil {
		return res, runErr
	}

	logger.Infof("wrote %d record(s) from %d file(s) (%d line(s), %d skipped) in %s",
		res.Written, res.Files, res.Lines, res.Skipped, res.Duration.Round(time.Millisecond))
	return res, nil
}

func drain(ctx context.Context, engine *normalize.Engine, srcs []logsource.Source, sink output.Sink) error {
	for ev, err := range engine.Records(ctx, srcs) {
		if err != nil {
			return err
		}
		if err := sink.Write(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// Classify reports the detected type of every input file without parsing.
func Classify(ctx context.Context, cfg *config.Config) ([]Classification, error) {
	srcs, reg, err := prepare(cfg)
	if err != nil {
		return nil, err
	}
	engine := normalize.New(reg, nil)

	out := make([]Classification, 0, len(srcs))
	for _, src := range srcs {
		typ, err := engine.Classify(ctx, src)
		if err != nil {
			return out, err
		}
		out = append(out, Classification{File: src.Name(), Type: typ})
	}
	return out, nil
}

func prepare(cfg *config.Config) ([]logsource.Source, *detect.Registry, error) {
	if cfg.Input.Dir == "" {
		return nil, nil, errors.New("input dir is required")
	}
	enc, err := logsource.LookupEncoding(cfg.Input.Encoding)
	if err != nil {
		return nil, nil, err
	}
	reg, err := detect.NewRegistry(cfg.Detectors)
	if err != nil {
		return nil, nil, fmt.Errorf("build detectors: %w", err)
	}
	srcs, err := logsource.Discover(cfg.Input.Dir, cfg.Input.Include, enc)
	if err != nil {
		return nil, nil, err
	}
	return srcs, reg, nil
}
