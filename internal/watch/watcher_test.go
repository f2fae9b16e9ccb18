package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nsevent/nsevent/internal/event"
)

func collect(t *testing.T, em *event.Emitter) <-chan Change {
	t.Helper()
	ch := make(chan Change, 16)
	for _, op := range []Op{OpWrite, OpCreate, OpRemove, OpRename} {
		_, err := em.OnFunc(op.Topic(), func(ctx context.Context, e event.Event) error {
			ch <- e.Data.(Change)
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	return ch
}

func TestOp_Topic(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{OpWrite, "file.write"},
		{OpCreate, "file.create"},
		{OpRemove, "file.remove"},
		{OpRename, "file.rename"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := string(tt.op.Topic()); got != tt.want {
				t.Errorf("Topic() = %q, want %q", got, tt.want)
			}
		})
	}
	if Op(42).String() != "unknown" {
		t.Error("expected unknown op name")
	}
}

func TestWatcher_WatchErrors(t *testing.T) {
	w, err := New(event.New())
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	path := filepath.Join(t.TempDir(), "script.lua")
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch of missing file in existing dir: %v", err)
	}
	if err := w.Watch(path); !errors.Is(err, ErrAlreadyWatching) {
		t.Errorf("second Watch error = %v, want ErrAlreadyWatching", err)
	}
	if err := w.Watch(filepath.Join(t.TempDir(), "missing", "x.lua")); err == nil {
		t.Error("expected error for missing directory")
	}
	abs, _ := filepath.Abs(path)
	if got := w.Watched(); len(got) != 1 || got[0] != abs {
		t.Errorf("Watched() = %v, want [%s]", got, abs)
	}

	_ = w.Close()
	if err := w.Watch(path); !errors.Is(err, ErrWatcherClosed) {
		t.Errorf("Watch after Close error = %v, want ErrWatcherClosed", err)
	}
}

func TestWatcher_Queue(t *testing.T) {
	tests := []struct {
		name string
		ops  []Op
		want Op
	}{
		{"single write", []Op{OpWrite}, OpWrite},
		{"create then write", []Op{OpCreate, OpWrite}, OpCreate},
		{"write then remove", []Op{OpWrite, OpRemove}, OpRemove},
		{"remove then create", []Op{OpRemove, OpCreate}, OpWrite},
		{"rename then create", []Op{OpRename, OpCreate}, OpWrite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			em := event.New()
			changes := collect(t, em)

			w, err := New(em, WithDebounce(time.Hour))
			if err != nil {
				t.Fatal(err)
			}
			defer w.Close()

			base := time.Now()
			for i, op := range tt.ops {
				w.queue(Change{Path: "/x", Op: op, Time: base.Add(time.Duration(i) * time.Millisecond)})
			}

			w.flush(base)
			if len(changes) != 0 {
				t.Fatal("expected nothing before the quiet period")
			}

			w.flush(base.Add(2 * time.Hour))
			select {
			case c := <-changes:
				if c.Op != tt.want {
					t.Errorf("coalesced op = %v, want %v", c.Op, tt.want)
				}
			default:
				t.Fatal("expected a change after the quiet period")
			}
		})
	}
}

func TestWatcher_PublishesWrites(t *testing.T) {
	em := event.New()
	changes := collect(t, em)

	dir := t.TempDir()
	path := filepath.Join(dir, "script.lua")
	other := filepath.Join(dir, "other.lua")
	if err := os.WriteFile(path, []byte("-- v1"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := New(em, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(other, []byte("ignored"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("-- v2"), 0644); err != nil {
		t.Fatal(err)
	}

	abs, _ := filepath.Abs(path)
	select {
	case c := <-changes:
		if c.Path != abs {
			t.Errorf("change path = %q, want %q", c.Path, abs)
		}
		if c.Op != OpWrite {
			t.Errorf("change op = %v, want write", c.Op)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change")
	}
}

func TestWatcher_PublishOnOpTopic(t *testing.T) {
	em := event.New()

	var parent, writes, creates int
	if _, err := em.OnFunc(Namespace, func(context.Context, event.Event) error {
		parent++
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := em.OnFunc(OpWrite.Topic(), func(ctx context.Context, e event.Event) error {
		if e.Topic != OpWrite.Topic() {
			t.Errorf("topic = %q, want %q", e.Topic, OpWrite.Topic())
		}
		writes++
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := em.OnFunc(OpCreate.Topic(), func(context.Context, event.Event) error {
		creates++
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	w, err := New(em, WithDebounce(0))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	w.publish(Change{Path: "/x", Op: OpWrite, Time: time.Now()})

	if writes != 1 {
		t.Errorf("write handler called %d times, want 1", writes)
	}
	if creates != 0 {
		t.Errorf("create handler called %d times, want 0", creates)
	}
	if parent != 0 {
		t.Errorf("handler on %q called %d times, want 0", Namespace, parent)
	}
}
