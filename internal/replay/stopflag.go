package replay

import "sync/atomic"

// StopFlag is a monotonic one-shot "requested" bit plus a completion
// signal, checked by the scheduler between events. Implemented with a
// closed channel instead of a promise/future, since that is the
// idiomatic Go equivalent of a shared completion future.
type StopFlag struct {
	requested atomic.Bool
	done      chan struct{}
}

// NewStopFlag builds an unset StopFlag.
func NewStopFlag() *StopFlag {
	return &StopFlag{done: make(chan struct{})}
}

// Request sets the flag. Idempotent: a second call is a no-op.
func (f *StopFlag) Request() {
	f.requested.Store(true)
}

// IsRequested reports whether Request has been called.
func (f *StopFlag) IsRequested() bool {
	return f.requested.Load()
}

// Signal marks the flag's work as drained; Done unblocks.
func (f *StopFlag) Signal() {
	select {
	case <-f.done:
	default:
		close(f.done)
	}
}

// Done returns a channel closed once Signal has been called.
func (f *StopFlag) Done() <-chan struct{} {
	return f.done
}
