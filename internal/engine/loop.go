// Package engine provides the single-threaded cooperative event loop
// shared by backtest and live trading: one FIFO dispatch queue plus a
// min-heap of timers, reused from the teacher's container/heap idiom
// (previously heap-ordered domain.Event records, now heap-ordered
// timer deadlines).
package engine

import (
	"github.com/automatedalgo/apex/internal/domain"
)

// EventLoop is the single contract strategies and core components
// dispatch through, whether driven by a virtual clock (backtest) or
// the OS timer facility (live). Strategies never observe which
// implementation they are running against.
type EventLoop interface {
	// Dispatch enqueues fn to run in FIFO order at the next
	// opportunity.
	Dispatch(fn func())
	// DispatchAfter enqueues timerFn to run at now+delay. Its return
	// value is the next delay; zero means "do not reschedule".
	DispatchAfter(delay domain.Time, timerFn func() domain.Time)
	// ThisThreadIsEv asserts single-writer discipline: true only when
	// called from inside a Dispatch/DispatchAfter callback.
	ThisThreadIsEv() bool
	// Now returns the loop's current notion of time.
	Now() domain.Time
}

// timer is one scheduled timer callback, ordered by Deadline then
// SeqNo (insertion order) for deterministic FIFO-per-deadline firing.
type timer struct {
	Deadline domain.Time
	SeqNo    uint64
	Fn       func() domain.Time
}

// timerHeap is a min-heap of timers ordered by (Deadline, SeqNo).
type timerHeap []*timer

func (h timerHeap) Len() int      { return len(h) }
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h timerHeap) Less(i, j int) bool {
	if h[i].Deadline != h[j].Deadline {
		return h[i].Deadline < h[j].Deadline
	}
	return h[i].SeqNo < h[j].SeqNo
}

func (h *timerHeap) Push(x interface{}) {
	*h = append(*h, x.(*timer))
}

func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
