package tree

import (
	"context"
	"sync"

	"go-freelance-backend/internal/domain"
	"go-freelance-backend/pkg/logger"
)

// ReadFunc reads a snapshot, normally the owning store's Get.
type ReadFunc func(ctx context.Context, path string) (domain.Snapshot, error)

type watch struct {
	path string
	fn   domain.SnapshotFunc
}

// Watchers is the subscription registry of a store. Callbacks run on the
// goroutine that reports the change, never while the registry is locked.
type Watchers struct {
	mu   sync.Mutex
	next int
	subs map[int]watch
}

func NewWatchers() *Watchers {
	return &Watchers{subs: make(map[int]watch)}
}

// Subscribe registers fn for path, delivers the current snapshot and
// arranges removal when ctx ends.
func (w *Watchers) Subscribe(ctx context.Context, path string, fn domain.SnapshotFunc, read ReadFunc) (domain.Unsubscribe, error) {
	w.mu.Lock()
	id := w.next
	w.next++
	w.subs[id] = watch{path: path, fn: fn}
	w.mu.Unlock()

	var once sync.Once
	stop := make(chan struct{})
	unsubscribe := func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.subs, id)
			w.mu.Unlock()
			close(stop)
		})
	}

	snap, err := read(ctx, path)
	if err != nil {
		unsubscribe()
		return nil, err
	}
	fn(snap)

	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-stop:
		}
	}()

	return unsubscribe, nil
}

// Len returns the number of live subscriptions.
func (w *Watchers) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}

// Notify re-reads and delivers the snapshot of every subscription whose path
// overlaps changed.
func (w *Watchers) Notify(ctx context.Context, changed string, read ReadFunc) {
	w.mu.Lock()
	matched := make([]watch, 0, len(w.subs))
	for _, s := range w.subs {
		if Overlaps(s.path, changed) {
			matched = append(matched, s)
		}
	}
	w.mu.Unlock()

	for _, s := range matched {
		snap, err := read(ctx, s.path)
		if err != nil {
			logger.Log.Error("Failed to refresh subscription", "path", s.path, "changed", changed, "error", err)
			continue
		}
		s.fn(snap)
	}
}

// Notifier carries change events between store instances.
type Notifier interface {
	Publish(ctx context.Context, path string) error
	// Listen calls fn for every published path until ctx ends.
	Listen(ctx context.Context, fn func(path string)) error
}

// LocalNotifier delivers changes to listeners in the same process.
type LocalNotifier struct {
	mu        sync.RWMutex
	next      int
	listeners map[int]func(string)
}

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{listeners: make(map[int]func(string))}
}

func (n *LocalNotifier) Publish(_ context.Context, path string) error {
	n.mu.RLock()
	fns := make([]func(string), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.RUnlock()

	for _, fn := range fns {
		fn(path)
	}
	return nil
}

func (n *LocalNotifier) Listen(ctx context.Context, fn func(path string)) error {
	n.mu.Lock()
	id := n.next
	n.next++
	n.listeners[id] = fn
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		n.mu.Lock()
		delete(n.listeners, id)
		n.mu.Unlock()
	}()
	return nil
}
