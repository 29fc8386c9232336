package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cyra/ecsify/internal/config"
	"github.com/cyra/ecsify/internal/logging"
)

const debounce = 500 * time.Millisecond

// Watch runs once, then runs again whenever the rules file at configPath or
// a file in the input directory changes. A changed rules file is reloaded
// through reload (config.FileLoader(configPath) when nil), so overrides the
// caller applied to cfg survive reloads. Every run rewrites the output.
// It returns when ctx is canceled. A failed run is logged and does not stop
// the watch.
func Watch(ctx context.Context, cfg *config.Config, configPath string, reload config.Loader, logger *logging.Logger, opts ...Option) error {
	store := config.NewStore(cfg)
	trigger := make(chan struct{}, 1)
	poke := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	if configPath != "" {
		stop, err := config.WatchFile(configPath, reload, store, logger, func(*config.Config) { poke() })
		if err != nil {
			logger.Errorf("config watcher disabled: %v", err)
		} else {
			defer stop()
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := cfg.Input.Dir
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch input dir: %w", err)
	}

	runs := 0
	runOnce := func() {
		runs++
		cur := store.Current()
		if cur.Input.Dir != dir {
			if err := watcher.Add(cur.Input.Dir); err != nil {
				logger.Errorf("watch input dir %s: %v", cur.Input.Dir, err)
			} else {
				_ = watcher.Remove(dir)
				dir = cur.Input.Dir
			}
		}
		if _, err := Run(ctx, cur, logger.With("run", runs), opts...); err != nil && ctx.Err() == nil {
			logger.Errorf("run failed: %v", err)
		}
	}

	runOnce()

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-trigger:
			runOnce()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ignoreEvent(ev, store.Current()) {
				continue
			}
			logger.Debugf("input change detected: %s", ev)
			timer.Reset(debounce)
		case <-timer.C:
			runOnce()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Errorf("input watcher error: %v", err)
		}
	}
}

// ignoreEvent drops events the run itself causes: writes to the output
// file (or its rotations) and the metrics textfile.
func ignoreEvent(ev fsnotify.Event, cfg *config.Config) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return true
	}
	name, err := filepath.Abs(ev.Name)
	if err != nil {
		return false
	}
	for _, own := range []string{cfg.Output.Path, cfg.MetricsFile} {
		if own == "" || own == "-" {
			continue
		}
		abs, err := filepath.Abs(own)
		if err != nil {
			continue
		}
		// Rotated outputs and the textfile's temp file share the base name prefix.
		if filepath.Dir(name) == filepath.Dir(abs) && strings.HasPrefix(filepath.Base(name), filepath.Base(abs)) {
			return true
		}
	}
	return false
}
