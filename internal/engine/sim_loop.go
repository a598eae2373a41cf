package engine

import (
	"container/heap"

	"github.com/automatedalgo/apex/internal/domain"
)

// SimEventLoop is the virtual-clock EventLoop implementation: it has
// no idle wait and no goroutine of its own. Its clock is advanced
// exclusively by the owning ReplayScheduler via AdvanceTo, which fires
// any due timers in (deadline, insertion-order) order before the
// scheduler dispatches the next tick event.
type SimEventLoop struct {
	now      domain.Time
	fifo     []func()
	timers   timerHeap
	timerSeq uint64
	inLoop   bool
}

// NewSimEventLoop builds a SimEventLoop with its clock at zero; the
// owning ReplayScheduler sets the real starting time via AdvanceTo
// before replay begins.
func NewSimEventLoop() *SimEventLoop {
	el := &SimEventLoop{}
	heap.Init(&el.timers)
	return el
}

func (el *SimEventLoop) Dispatch(fn func()) {
	el.fifo = append(el.fifo, fn)
}

func (el *SimEventLoop) DispatchAfter(delay domain.Time, timerFn func() domain.Time) {
	el.timerSeq++
	heap.Push(&el.timers, &timer{Deadline: el.now + delay, SeqNo: el.timerSeq, Fn: timerFn})
}

func (el *SimEventLoop) ThisThreadIsEv() bool {
	return el.inLoop
}

func (el *SimEventLoop) Now() domain.Time {
	return el.now
}

// AdvanceTo moves the virtual clock forward to now, firing every timer
// whose deadline has passed, in FIFO order per deadline, then draining
// the FIFO dispatch queue. Called by ReplayScheduler once per
// scheduler iteration, strictly before the tick event is dispatched to
// MarketData.
func (el *SimEventLoop) AdvanceTo(now domain.Time) {
	if now < el.now {
		panic("engine: virtual clock must be non-decreasing")
	}
	el.now = now
	el.inLoop = true
	defer func() { el.inLoop = false }()

	for el.timers.Len() > 0 && el.timers[0].Deadline <= el.now {
		t := heap.Pop(&el.timers).(*timer)
		if next := t.Fn(); next != 0 {
			el.timerSeq++
			heap.Push(&el.timers, &timer{Deadline: el.now + next, SeqNo: el.timerSeq, Fn: t.Fn})
		}
	}
	el.drainFIFO()
}

// RunFIFO drains any closures dispatched outside of AdvanceTo (e.g.
// from BacktestService setup, before replay starts).
func (el *SimEventLoop) RunFIFO() {
	el.inLoop = true
	defer func() { el.inLoop = false }()
	el.drainFIFO()
}

func (el *SimEventLoop) drainFIFO() {
	for len(el.fifo) > 0 {
		fn := el.fifo[0]
		el.fifo = el.fifo[1:]
		fn()
	}
}

// PendingTimers reports how many timers are still scheduled.
func (el *SimEventLoop) PendingTimers() int {
	return el.timers.Len()
}

// NextTimerDeadline returns the deadline of the earliest pending timer
// and true, or the zero Time and false if none are pending.
func (el *SimEventLoop) NextTimerDeadline() (domain.Time, bool) {
	if el.timers.Len() == 0 {
		return 0, false
	}
	return el.timers[0].Deadline, true
}
