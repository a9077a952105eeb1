package scheduler

import (
	"container/heap"
	"context"
)

// item is a job waiting in the pending queue.
type item struct {
	ctx      context.Context
	job      Job
	priority int
	seq      uint64
	future   *Future
}

// jobHeap orders items by descending priority, then by insertion sequence.
type jobHeap []*item

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].priority == h[j].priority {
		return h[i].seq < h[j].seq
	}
	return h[i].priority > h[j].priority
}

func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x interface{}) {
	*h = append(*h, x.(*item))
}

func (h *jobHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// pendingQueue is the priority-ordered waiting list. It is not safe for
// concurrent use; the scheduler guards it with its own mutex.
type pendingQueue struct {
	heap jobHeap
	seq  uint64
}

func (q *pendingQueue) push(ctx context.Context, job Job, priority int, future *Future) {
	q.seq++
	heap.Push(&q.heap, &item{
		ctx:      ctx,
		job:      job,
		priority: priority,
		seq:      q.seq,
		future:   future,
	})
}

func (q *pendingQueue) pop() *item {
	if q.heap.Len() == 0 {
		return nil
	}
	return heap.Pop(&q.heap).(*item)
}

func (q *pendingQueue) len() int {
	return q.heap.Len()
}
