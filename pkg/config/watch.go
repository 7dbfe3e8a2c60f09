package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events editors emit for a single save.
const reloadDelay = 50 * time.Millisecond

// Watch calls onChange with the reloaded config every time configPath is written,
// until ctx is done. Files that fail to load or validate are logged and skipped.
//
// The parent directory is watched rather than the file so that editors replacing the
// file by rename keep triggering reloads.
func Watch(ctx context.Context, configPath string, onChange func(*Config)) error {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(absPath); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(absPath)); err != nil {
		w.Close()
		return err
	}

	go func() {
		defer w.Close()
		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != absPath {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					pending = time.After(reloadDelay)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warnf("Config watcher error: %v", err)
			case <-pending:
				pending = nil
				cfg, err := LoadConfig(absPath)
				if err != nil {
					log.Warnf("Ignoring config change in %s: %v", absPath, err)
					continue
				}
				log.Debugf("Reloaded config from %s", absPath)
				onChange(cfg)
			}
		}
	}()
	return nil
}
