package replay

import (
	"container/heap"
	"errors"
	"log/slog"

	"github.com/automatedalgo/apex/internal/apexerr"
	"github.com/automatedalgo/apex/internal/domain"
	"github.com/automatedalgo/apex/internal/engine"
)

// TickSink receives each dispatched tick event and, separately, a
// per-instrument notification so the matching engine can re-evaluate
// resting orders against the new top-of-book; the refresh is sent only
// for top-of-book ticks. Kept as two callbacks rather than one
// because MarketData and SimExchange are
// independent subscribers with different responsibilities (§4.3
// steps 3-4).
type TickSink interface {
	OnTick(domain.TickEvent)
	OnTopOfBookRefresh(domain.Instrument)
}

// replayerHandle is one entry in the scheduler's priority queue,
// ordered by (peek timestamp, instrument identity, stream kind) so
// ties are resolved deterministically per spec.md §4.3.
type replayerHandle struct {
	replayer *TickReplayer
	instKey  string
	stream   domain.MdStream
	peekTime domain.Time
}

type schedulerHeap []*replayerHandle

func (h schedulerHeap) Len() int      { return len(h) }
func (h schedulerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h schedulerHeap) Less(i, j int) bool {
	if h[i].peekTime != h[j].peekTime {
		return h[i].peekTime < h[j].peekTime
	}
	if h[i].instKey != h[j].instKey {
		return h[i].instKey < h[j].instKey
	}
	return h[i].stream < h[j].stream
}
func (h *schedulerHeap) Push(x interface{}) { *h = append(*h, x.(*replayerHandle)) }
func (h *schedulerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Scheduler owns all replayers and a priority queue keyed by peek
// timestamp, driving the virtual clock one tick event at a time. This
// is the teacher's container/heap idiom (previously heap-ordered
// domain.Event by (Timestamp, SeqNo)) generalized to heap-order by
// (Time, instrument, stream) over TickReplayer sources.
type Scheduler struct {
	heap   schedulerHeap
	loop   *engine.SimEventLoop
	sink   TickSink
	logger *slog.Logger
	stop   *StopFlag
	upto   domain.Time
}

// NewScheduler builds a scheduler over replayers, all driving loop and
// feeding sink. upto is the inclusive replay_upto deadline: a tick
// strictly after it is excluded.
func NewScheduler(loop *engine.SimEventLoop, sink TickSink, logger *slog.Logger, upto domain.Time) *Scheduler {
	s := &Scheduler{loop: loop, sink: sink, logger: logger, stop: NewStopFlag(), upto: upto}
	heap.Init(&s.heap)
	return s
}

// AddReplayer registers one replayer with the scheduler. Must be
// called before Run.
func (s *Scheduler) AddReplayer(r *TickReplayer) {
	if t, ok := r.Peek(); ok {
		heap.Push(&s.heap, &replayerHandle{
			replayer: r,
			instKey:  r.instrument.String(),
			stream:   r.stream,
			peekTime: t,
		})
	}
}

// StopFlag returns the scheduler's cooperative stop flag.
func (s *Scheduler) StopFlag() *StopFlag {
	return s.stop
}

// Run drives the outer loop from spec.md §4.3 until every replayer is
// exhausted, replay_upto is reached, or the stop flag is set.
func (s *Scheduler) Run() error {
	defer s.stop.Signal()

	for s.heap.Len() > 0 {
		if s.stop.IsRequested() {
			return nil
		}

		head := s.heap[0]
		if head.peekTime > s.upto {
			return nil
		}

		s.loop.AdvanceTo(head.peekTime)

		heap.Pop(&s.heap)
		evt, err := head.replayer.Pop()
		if err != nil {
			var corrupt *apexerr.CorruptRecordError
			if errors.As(err, &corrupt) {
				s.logger.Warn("replay: dropping stream after corrupt record", "instrument", head.instKey, "stream", head.stream, "err", err)
				continue
			}
			return err
		}

		s.sink.OnTick(evt)
		if evt.Kind == domain.TickTopOfBook {
			s.sink.OnTopOfBookRefresh(head.replayer.instrument)
		}

		if t, ok := head.replayer.Peek(); ok {
			head.peekTime = t
			heap.Push(&s.heap, head)
		}
	}
	return nil
}
