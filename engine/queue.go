package engine

import (
	"math/bits"
	"sync"

	"github.com/gammazero/deque"
)

// BurstQueue is the bounded pool of live bursts. Insertion order is
// compositing order; the capacity bound keeps the worst-case per-tick
// cost fixed. Admission into a full queue is silently refused.
type BurstQueue struct {
	mu       sync.Mutex
	bursts   deque.Deque[*Burst]
	capacity int
}

func NewBurstQueue(capacity int) *BurstQueue {
	if capacity < 1 {
		capacity = 1
	}
	q := &BurstQueue{capacity: capacity}
	q.bursts.SetMinCapacity(uint(bits.Len(uint(capacity - 1))))
	return q
}

// Admit appends a burst. It reports false when the queue is at
// capacity; dropped admissions are best-effort, not an error.
func (q *BurstQueue) Admit(b *Burst) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.bursts.Len() >= q.capacity {
		return false
	}
	q.bursts.PushBack(b)
	return true
}

// Len returns the number of live bursts (pending or active).
func (q *BurstQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.bursts.Len()
}

// Clear drops all bursts, the effect of a stop request. Observed on the
// next tick, never mid-tick.
func (q *BurstQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.bursts.Clear()
}

// advanceDue applies one state-machine transition to every burst whose
// deadline has been reached.
func (q *BurstQueue) advanceDue(now uint32) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := 0; i < q.bursts.Len(); i++ {
		b := q.bursts.At(i)
		if b.state != BurstFinished && Due(now, b.nextStepAt) {
			b.advance(now)
		}
	}
}

// sweepFinished removes all finished bursts, preserving the insertion
// order of the remainder.
func (q *BurstQueue) sweepFinished() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := 0; i < q.bursts.Len(); {
		if q.bursts.At(i).state == BurstFinished {
			q.bursts.Remove(i)
		} else {
			i++
		}
	}
}

// forEach visits the live bursts in insertion order under the queue
// lock.
func (q *BurstQueue) forEach(f func(*Burst)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := 0; i < q.bursts.Len(); i++ {
		f(q.bursts.At(i))
	}
}
