package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/deckscan/deckscan/constants"
)

// WatchConfig controls directory watching for new decks.
type WatchConfig struct {
	Roots       []string            // directories to watch, recursive
	AllowedExts map[string]struct{} // lowercase, no dot; defaults to allowed uploads
	InitialScan bool                // emit files already present before watching
	Debounce    time.Duration       // coalesce rapid write bursts per path
}

// Watch emits the paths of decks created or rewritten under the roots.
// Both channels close when ctx ends. Hidden directories are not watched.
func Watch(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no watch roots provided")
	}
	if cfg.AllowedExts == nil {
		cfg.AllowedExts = extSet(nil)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("watch.init_failed", "error", err)
		return nil, nil, err
	}

	var initial []string
	addRoot := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if isHidden(path) && path != root {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && watchable(path, cfg.AllowedExts) {
				initial = append(initial, path)
			}
			return nil
		})
	}
	for _, root := range cfg.Roots {
		if err := addRoot(root); err != nil {
			logger.Error("watch.add_root_failed", "root", root, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}

	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() { _ = w.Close() }()

		for _, path := range initial {
			select {
			case evCh <- path:
			case <-ctx.Done():
				return
			}
		}

		// Debounced paths wait in pending until the timer fires; the timer
		// channel is drained in this loop only, so pending needs no lock.
		pending := map[string]struct{}{}
		var timer *time.Timer
		var timerC <-chan time.Time

		flush := func() bool {
			for p := range pending {
				select {
				case evCh <- p:
				case <-ctx.Done():
					return false
				}
				delete(pending, p)
			}
			return true
		}

		for {
			select {
			case <-ctx.Done():
				return

			case <-timerC:
				timerC = nil
				if !flush() {
					return
				}

			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Op.Has(fsnotify.Create) && !isHidden(e.Name) {
					if fi, err := os.Stat(e.Name); err == nil && fi.IsDir() {
						if err := w.Add(e.Name); err != nil {
							logger.Warn("watch.add_dir_failed", "path", e.Name, "error", err)
						}
						continue
					}
				}
				if !watchable(e.Name, cfg.AllowedExts) {
					continue
				}
				if e.Op.Has(fsnotify.Create) || e.Op.Has(fsnotify.Write) || e.Op.Has(fsnotify.Rename) {
					pending[e.Name] = struct{}{}
					if cfg.Debounce > 0 {
						if timer == nil {
							timer = time.NewTimer(cfg.Debounce)
						} else {
							if !timer.Stop() {
								select {
								case <-timer.C:
								default:
								}
							}
							timer.Reset(cfg.Debounce)
						}
						timerC = timer.C
					} else if !flush() {
						return
					}
				}

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

func watchable(path string, exts map[string]struct{}) bool {
	if isHidden(path) {
		return false
	}
	ext := constants.NormalizeExt(filepath.Ext(path))
	if ext == "" {
		return false
	}
	_, ok := exts[ext]
	return ok
}
