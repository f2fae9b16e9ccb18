// Package watch reports changes to individual files.
//
// A Watcher observes the parent directory of every watched file with
// fsnotify, so editors that save by rename are still seen. Bursts of
// changes to one file are coalesced and delivered once the file has been
// quiet for the debounce interval. Each change is published on an
// event.Emitter under the type of its operation:
//
//	file.create, file.write, file.remove, file.rename
//
// with the Change as event data. An emit reaches handlers registered on its
// own type or below it, never above, so subscribers register on the
// operation types they care about (see Op.Topic), not on "file".
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nsevent/nsevent/internal/event"
	"github.com/nsevent/nsevent/internal/event/topic"
	"github.com/nsevent/nsevent/internal/logging"
)

// Namespace is the parent of every operation type.
const Namespace topic.Topic = "file"

// Errors returned by the watcher.
var (
	ErrWatcherClosed   = errors.New("watcher is closed")
	ErrAlreadyWatching = errors.New("path is already being watched")
)

// Op is the kind of change.
type Op int

const (
	// OpWrite indicates the file was modified.
	OpWrite Op = iota

	// OpCreate indicates the file was created.
	OpCreate

	// OpRemove indicates the file was deleted.
	OpRemove

	// OpRename indicates the file was renamed away.
	OpRename
)

// String returns the operation name.
func (op Op) String() string {
	switch op {
	case OpWrite:
		return "write"
	case OpCreate:
		return "create"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Topic returns the event type a change of this kind is published under.
func (op Op) Topic() topic.Topic {
	return Namespace.Child(op.String())
}

// Change describes one debounced file change.
type Change struct {
	// Path is the absolute path of the changed file.
	Path string

	// Op is the coalesced operation.
	Op Op

	// Time is when the last raw event in the burst arrived.
	Time time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long a file must be quiet before its change is
// published. Zero publishes every raw event immediately.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger for dispatch failures.
func WithLogger(l event.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// Watcher publishes file changes on an emitter.
type Watcher struct {
	mu sync.Mutex

	fsw     *fsnotify.Watcher
	emitter *event.Emitter
	logger  event.Logger

	// files maps watched absolute paths to true; dirs counts watched files
	// per parent directory.
	files map[string]bool
	dirs  map[string]int

	debounce  time.Duration
	pendingMu sync.Mutex
	pending   map[string]Change

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// New creates a watcher that publishes on em.
func New(em *event.Emitter, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		emitter:  em,
		logger:   logging.NewNop(),
		files:    make(map[string]bool),
		dirs:     make(map[string]int),
		debounce: 100 * time.Millisecond,
		pending:  make(map[string]Change),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(1)
	go w.processLoop()

	if w.debounce > 0 {
		w.wg.Add(1)
		go w.debounceLoop()
	}

	return w, nil
}

// Watch adds a file. The file does not have to exist yet, but its parent
// directory does.
func (w *Watcher) Watch(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if w.files[absPath] {
		return ErrAlreadyWatching
	}

	dir := filepath.Dir(absPath)
	if w.dirs[dir] == 0 {
		if _, err := os.Stat(dir); err != nil {
			return err
		}
		if err := w.fsw.Add(dir); err != nil {
			return err
		}
	}

	w.dirs[dir]++
	w.files[absPath] = true
	return nil
}

// Watched returns the watched absolute paths.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths := make([]string, 0, len(w.files))
	for p := range w.files {
		paths = append(paths, p)
	}
	return paths
}

// Close stops the watcher. Pending changes are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) isWatched(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[path]
}

// processLoop converts fsnotify events for watched files into changes.
func (w *Watcher) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			path, err := filepath.Abs(ev.Name)
			if err != nil || !w.isWatched(path) {
				continue
			}
			change := Change{Path: path, Op: convertOp(ev.Op), Time: time.Now()}
			if w.debounce > 0 {
				w.queue(change)
			} else {
				w.publish(change)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

// convertOp maps fsnotify operations, preferring the most destructive one
// when several bits are set.
func convertOp(op fsnotify.Op) Op {
	switch {
	case op&fsnotify.Remove != 0:
		return OpRemove
	case op&fsnotify.Rename != 0:
		return OpRename
	case op&fsnotify.Create != 0:
		return OpCreate
	default:
		return OpWrite
	}
}

// queue coalesces a change into the pending set:
//   - create followed by write stays create
//   - remove wins over anything queued before it
//   - a create after a remove or rename becomes a write, the file is back
func (w *Watcher) queue(c Change) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	existing, ok := w.pending[c.Path]
	if !ok {
		w.pending[c.Path] = c
		return
	}

	switch c.Op {
	case OpWrite:
		if existing.Op == OpCreate {
			c.Op = OpCreate
		}
	case OpCreate:
		if existing.Op == OpRemove || existing.Op == OpRename {
			c.Op = OpWrite
		}
	}
	w.pending[c.Path] = c
}

func (w *Watcher) debounceLoop() {
	defer w.wg.Done()

	interval := w.debounce / 2
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.closeCh:
			return
		case <-ticker.C:
			w.flush(time.Now())
		}
	}
}

// flush publishes the pending changes that have been quiet for the
// debounce interval as of now.
func (w *Watcher) flush(now time.Time) {
	threshold := now.Add(-w.debounce)

	w.pendingMu.Lock()
	var ready []Change
	for path, c := range w.pending {
		if !c.Time.After(threshold) {
			ready = append(ready, c)
			delete(w.pending, path)
		}
	}
	w.pendingMu.Unlock()

	for _, c := range ready {
		w.publish(c)
	}
}

func (w *Watcher) publish(c Change) {
	err := w.emitter.Emit(context.Background(), c.Op.Topic(), c, event.WithSource("watch"))
	if err != nil {
		w.logger.Warn("file change handler failed", "path", c.Path, "op", c.Op.String(), "error", err)
	}
}
