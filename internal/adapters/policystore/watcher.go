package policystore

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/applylens/inbox-policy/internal/core"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period after the last change before reloading
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads a policy file when it changes and hands the new set to
// apply. A file that fails to load leaves the active set untouched.
type Watcher struct {
	watcher  *fsnotify.Watcher
	source   *FileSource
	apply    func([]core.Policy)
	logger   *zap.Logger
	debounce time.Duration
}

// NewWatcher watches the directory holding the source file so that
// rename-and-replace saves are seen too
func NewWatcher(source *FileSource, apply func([]core.Policy), logger *zap.Logger, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	dir := filepath.Dir(source.Path())
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	return &Watcher{
		watcher:  w,
		source:   source,
		apply:    apply,
		logger:   logger,
		debounce: debounce,
	}, nil
}

// Run watches for changes until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	target := filepath.Clean(w.source.Path())

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() { w.reload(ctx) })
			mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Policy file watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	policies, err := w.source.Load(ctx)
	if err != nil {
		w.logger.Error("Policy hot-reload failed, keeping current policies",
			zap.String("path", w.source.Path()),
			zap.Error(err))
		return
	}
	w.apply(policies)
	w.logger.Info("Policy hot-reload complete",
		zap.String("path", w.source.Path()),
		zap.Int("policies", len(policies)))
}
