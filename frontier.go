package transitiso

import (
	"container/heap"
)

type frontierItem struct {
	id       int32
	priority float64
}

type frontierHeap []frontierItem

func (h frontierHeap) Len() int           { return len(h) }
func (h frontierHeap) Less(i, j int) bool { return h[i].priority < h[j].priority }
func (h frontierHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *frontierHeap) Push(x interface{}) {
	*h = append(*h, x.(frontierItem))
}

func (h *frontierHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// PriorityFrontier is a binary min-heap keyed by arrival time. The
// shortest-path algorithms rely on lazy deletion: an id may be pushed
// multiple times with different priorities, and the caller discards a popped
// entry whose priority exceeds the best-known distance for that id. This
// avoids needing a decrease-key operation.
type PriorityFrontier struct {
	items frontierHeap
}

// NewPriorityFrontier returns an empty frontier.
func NewPriorityFrontier() *PriorityFrontier {
	f := &PriorityFrontier{items: make(frontierHeap, 0, 64)}
	heap.Init(&f.items)
	return f
}

// Push inserts an id with the given priority.
func (f *PriorityFrontier) Push(id int32, priority float64) {
	heap.Push(&f.items, frontierItem{id: id, priority: priority})
}

// Pop removes and returns the entry with the globally minimal priority.
// The third return value is false when the frontier is empty.
func (f *PriorityFrontier) Pop() (int32, float64, bool) {
	if len(f.items) == 0 {
		return 0, 0, false
	}
	item := heap.Pop(&f.items).(frontierItem)
	return item.id, item.priority, true
}

// Len returns the number of entries currently held, including stale ones.
func (f *PriorityFrontier) Len() int {
	return len(f.items)
}
