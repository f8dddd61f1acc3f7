// Package watcher reloads the agent when its config file changes on disk.
package watcher

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pitwall-io/pitwall/pkg/log"
)

// debounce batches the write bursts editors and provisioning tools
// produce when they rewrite a file.
const debounce = 200 * time.Millisecond

// ConfigWatcher invokes onChange after the watched file settles. The
// parent directory is watched rather than the file itself, because most
// tools replace the file instead of writing it in place.
type ConfigWatcher struct {
	path     string
	onChange func(ctx context.Context)
	logger   log.Logger
}

func New(path string, onChange func(ctx context.Context)) *ConfigWatcher {
	return &ConfigWatcher{
		path:     path,
		onChange: onChange,
		logger:   log.WithName("watcher"),
	}
}

// Start watches until ctx is canceled.
func (w *ConfigWatcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.logger.Info("watching config file", "path", w.path)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				fire = timer.C
			} else {
				timer.Reset(debounce)
			}

		case <-fire:
			timer, fire = nil, nil
			w.logger.Info("config file changed, reloading", "path", w.path)
			w.onChange(ctx)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error(err, "config watch error")

		case <-ctx.Done():
			return nil
		}
	}
}
