package mqttengine

import (
	"sync"

	"github.com/nerrad567/gray-logic-lwm2m/internal/lwm2m"
)

// changeQueue is an unbounded FIFO of changed paths. push never blocks;
// ready is signalled whenever the queue goes from empty to non-empty.
type changeQueue struct {
	mu    sync.Mutex
	items []lwm2m.Path
	ready chan struct{}
}

func newChangeQueue() *changeQueue {
	return &changeQueue{ready: make(chan struct{}, 1)}
}

func (q *changeQueue) push(p lwm2m.Path) {
	q.mu.Lock()
	q.items = append(q.items, p)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// drain removes and returns the queued paths in order of first occurrence,
// each path once. Notifications carry the current value, so repeats within
// one batch add nothing.
func (q *changeQueue) drain() []lwm2m.Path {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()

	if len(items) < 2 {
		return items
	}
	seen := make(map[lwm2m.Path]struct{}, len(items))
	out := items[:0]
	for _, p := range items {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func (q *changeQueue) reset() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()

	select {
	case <-q.ready:
	default:
	}
}

func (q *changeQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
