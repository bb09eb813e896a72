package config

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"tgadmin/pkg/logx"
)

// Watch reloads the config file on change and hands every valid new
// snapshot to onChange. Invalid candidates are logged and skipped, so a
// half-saved file never disturbs the running process.
//
// It watches the directory, not the file, because editors commonly
// replace the file via rename. Blocks until ctx is done.
func Watch(ctx context.Context, path string, log logx.Logger, onChange func(*Config)) {
	dir := filepath.Dir(path)
	file := filepath.Base(path)

	// debounce to avoid partial writes
	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(250*time.Millisecond, func() {
			cfg, err := Parse(path)
			if err != nil {
				log.Warn("config reload parse failed", logx.String("path", path), logx.Err(err))
				return
			}
			cfg.ApplyEnv()
			if err := cfg.Validate(); err != nil {
				log.Warn("config reload rejected", logx.String("path", path), logx.Err(err))
				return
			}
			log.Info("config reloaded", logx.String("path", path))
			onChange(cfg)
		})
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("config watch init failed", logx.Err(err), logx.String("dir", dir))
		return
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		log.Warn("config watch add failed", logx.Err(err), logx.String("dir", dir))
		return
	}
	log.Debug("config watcher started", logx.String("dir", dir), logx.String("file", file))

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			// Compare by basename (robust across absolute/relative paths).
			if strings.EqualFold(filepath.Base(ev.Name), file) {
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove|fsnotify.Chmod) != 0 {
					debounce()
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			if err != nil {
				log.Warn("config watch error", logx.Err(err), logx.String("dir", dir))
			}
		}
	}
}
