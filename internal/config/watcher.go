package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Logger defines the logging interface needed by the config watcher.
type Logger interface {
	Infof(string, ...any)
	Errorf(string, ...any)
}

const debounce = 500 * time.Millisecond

// Loader produces a complete config. It lets callers layer their own
// overrides on top of the file every time it is reloaded.
type Loader func() (*Config, error)

// FileLoader loads path with no overrides.
func FileLoader(path string) Loader {
	return func() (*Config, error) { return Load(path) }
}

// WatchFile watches a config file for changes and reloads it into the Store
// through load (FileLoader(path) when nil). On a successful reload the store
// is updated and onReload (if non-nil) is
// called with the new config; on error the old config is kept.
// The parent directory is watched so editors that replace the file by rename
// keep triggering reloads. Returns a stop function.
func WatchFile(path string, load Loader, store *Store, logger Logger, onReload func(*Config)) (stop func(), err error) {
	if load == nil {
		load = FileLoader(path)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch config dir: %w", err)
	}

	done := make(chan struct{})

	go func() {
		defer watcher.Close()

		// Reload once events have been quiet for the debounce period, so a
		// truncate followed by a write is read as one complete file.
		timer := time.NewTimer(debounce)
		timer.Stop()
		defer timer.Stop()

		for {
			select {
			case <-done:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				logger.Infof("config file change detected: %s", ev.Name)
				timer.Reset(debounce)
			case <-timer.C:
				cfg, err := load()
				if err != nil {
					logger.Errorf("failed to reload config: %v", err)
					continue
				}
				store.Update(cfg)
				logger.Infof("config reloaded successfully")
				if onReload != nil {
					onReload(cfg)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Errorf("config watcher error: %v", err)
			}
		}
	}()

	return func() { close(done) }, nil
}
