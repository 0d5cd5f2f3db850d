package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// debouncer drops events for a path seen less than interval ago.
type debouncer struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[string]time.Time
	now      func() time.Time
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval, last: map[string]time.Time{}, now: time.Now}
}

func (d *debouncer) allow(path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if prev, ok := d.last[path]; ok && now.Sub(prev) < d.interval {
		return false
	}
	d.last[path] = now
	return true
}

// watchDirs returns the directories to watch for pattern: its static base
// and the parent of every current match.
func watchDirs(pattern string) ([]string, error) {
	if !doublestar.ValidatePathPattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}
	seen := map[string]bool{}
	var dirs []string
	add := func(dir string) {
		dir = filepath.Clean(dir)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
	add(filepath.FromSlash(base))

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, err
	}
	for _, match := range matches {
		add(filepath.Dir(match))
	}
	return dirs, nil
}

func matchesPattern(pattern, path string) bool {
	ok, _ := doublestar.PathMatch(filepath.Clean(pattern), filepath.Clean(path))
	return ok
}

func (a *app) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	dirs, err := watchDirs(a.opts.Input)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			a.logger.Warn("failed to watch directory", "dir", dir, "error", err)
			continue
		}
		a.logger.Debug("watching directory", "dir", dir)
	}
	if len(watcher.WatchList()) == 0 {
		return fmt.Errorf("no directories found to watch for pattern %q", a.opts.Input)
	}

	debounce := newDebouncer(a.opts.Debounce)
	a.logger.Info("watching transcripts", "pattern", a.opts.Input)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !matchesPattern(a.opts.Input, event.Name) || !debounce.allow(event.Name) {
				continue
			}
			if err := a.compactFile(ctx, event.Name); err != nil {
				a.logger.Error("compaction failed", "path", event.Name, "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Error("file watcher error", "error", err)
		}
	}
}
