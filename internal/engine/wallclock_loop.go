package engine

import (
	"sync"
	"time"

	"github.com/automatedalgo/apex/internal/domain"
)

// WallClockEventLoop is the real-time EventLoop implementation backed
// by a single goroutine and OS timers. It exists to give the
// EventLoop interface its second implementation per the "one
// interface, two implementations" design note; this module does not
// wire it to a live gateway, since that sits outside the backtest
// core's scope.
type WallClockEventLoop struct {
	mu      sync.Mutex
	fifo    []func()
	wake    chan struct{}
	started time.Time

	loopGoroutine uint64 // not written by Run; ThisThreadIsEv reads evMarker
	evMarker      bool
}

// NewWallClockEventLoop builds a loop anchored at the current wall
// clock time; call Run in its own goroutine to start draining it.
func NewWallClockEventLoop() *WallClockEventLoop {
	return &WallClockEventLoop{
		wake:    make(chan struct{}, 1),
		started: time.Now(),
	}
}

func (el *WallClockEventLoop) Dispatch(fn func()) {
	el.mu.Lock()
	el.fifo = append(el.fifo, fn)
	el.mu.Unlock()
	el.nudge()
}

func (el *WallClockEventLoop) DispatchAfter(delay domain.Time, timerFn func() domain.Time) {
	d := time.Duration(delay) * time.Microsecond
	time.AfterFunc(d, func() {
		el.Dispatch(func() {
			next := timerFn()
			if next != 0 {
				el.DispatchAfter(next, timerFn)
			}
		})
	})
}

// ThisThreadIsEv reports true for the whole time Run is executing,
// whichever goroutine asks; it does not tell the loop goroutine apart
// from other callers.
func (el *WallClockEventLoop) ThisThreadIsEv() bool {
	return el.evMarker
}

func (el *WallClockEventLoop) Now() domain.Time {
	return domain.NewTimeFromStd(time.Now())
}

func (el *WallClockEventLoop) nudge() {
	select {
	case el.wake <- struct{}{}:
	default:
	}
}

// Run drains the FIFO queue until stop is closed. Intended to be the
// body of the process's single event-loop goroutine.
func (el *WallClockEventLoop) Run(stop <-chan struct{}) {
	el.evMarker = true
	defer func() { el.evMarker = false }()

	for {
		el.mu.Lock()
		fns := el.fifo
		el.fifo = nil
		el.mu.Unlock()

		for _, fn := range fns {
			fn()
		}

		select {
		case <-stop:
			return
		case <-el.wake:
		}
	}
}
