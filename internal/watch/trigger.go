package watch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Trigger watches a workspace directory and wakes a poll loop when new
// markdown files land in it, so approved actions execute promptly instead
// of waiting out the poll interval. Events are debounced; a missed event
// costs latency, not correctness, because polling still covers the
// directory.
type Trigger struct {
	watcher  *fsnotify.Watcher
	wake     chan struct{}
	debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewTrigger starts watching dir. Close the trigger when the loop stops.
func NewTrigger(dir string, debounce time.Duration) (*Trigger, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating directory watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Trigger{watcher: w, wake: make(chan struct{}, 1), debounce: debounce}, nil
}

// Wake is the channel to plug into Driver.Wake.
func (t *Trigger) Wake() <-chan struct{} { return t.wake }

// Run consumes filesystem events until the context is cancelled.
func (t *Trigger) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(ev.Name, ".md") {
				continue
			}
			if ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename) || ev.Op.Has(fsnotify.Write) {
				t.scheduleWake()
			}
		case _, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are tolerable; polling covers the gap.
		}
	}
}

func (t *Trigger) scheduleWake() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.debounce, func() {
		select {
		case t.wake <- struct{}{}:
		default:
		}
	})
}

// Close stops the underlying watcher.
func (t *Trigger) Close() error {
	return t.watcher.Close()
}
