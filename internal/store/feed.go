package store

import (
	"context"
	"sync"
)

// feed broadcasts post-commit change sets to all registered watchers.
// Publishing never blocks: each watcher holds a pending set that change
// sets are merged into, and a single-slot wakeup channel. A slow consumer
// therefore sees one coalesced change set instead of a backlog.
type feed struct {
	mu       sync.Mutex
	watchers map[*feedWatcher]struct{}
}

type feedWatcher struct {
	mu      sync.Mutex
	pending Changes
	wakeup  chan struct{}
}

func newFeed() *feed {
	return &feed{watchers: make(map[*feedWatcher]struct{})}
}

// publish merges the change set into every watcher's pending set.
func (f *feed) publish(c Changes) {
	if len(c) == 0 {
		return
	}
	f.mu.Lock()
	watchers := make([]*feedWatcher, 0, len(f.watchers))
	for w := range f.watchers {
		watchers = append(watchers, w)
	}
	f.mu.Unlock()

	for _, w := range watchers {
		w.mu.Lock()
		w.pending.merge(c)
		w.mu.Unlock()
		select {
		case w.wakeup <- struct{}{}:
		default:
		}
	}
}

// subscribe registers a watcher and returns a channel delivering coalesced
// change sets until ctx is cancelled.
func (f *feed) subscribe(ctx context.Context) <-chan Changes {
	w := &feedWatcher{
		pending: Changes{},
		wakeup:  make(chan struct{}, 1),
	}
	f.mu.Lock()
	f.watchers[w] = struct{}{}
	f.mu.Unlock()

	out := make(chan Changes)
	go func() {
		defer func() {
			f.mu.Lock()
			delete(f.watchers, w)
			f.mu.Unlock()
			close(out)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.wakeup:
				w.mu.Lock()
				c := w.pending
				w.pending = Changes{}
				w.mu.Unlock()
				if len(c) == 0 {
					continue
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
