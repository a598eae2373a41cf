// Package replay implements TickReplayer (one per (instrument,
// stream), lazily concatenating bucket files across a date range) and
// ReplayScheduler (the k-way merge that drives the virtual clock).
package replay

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/automatedalgo/apex/internal/domain"
	"github.com/automatedalgo/apex/internal/tickfile"
)

const dateLayout = "2006-01-02"

// TickReplayer is a single timestamped source of tick events for one
// (Instrument, MdStream) pair across [from, upto]. Exch timestamp is
// authoritative for ordering; recv timestamp is surfaced but unused
// for ordering.
type TickReplayer struct {
	root       string
	instrument domain.Instrument
	stream     domain.MdStream
	dates      []string
	dateIdx    int
	logger     *slog.Logger

	reader  *tickfile.Reader
	pending *domain.TickEvent
	done    bool
}

// NewTickReplayer builds a replayer over [from, upto] inclusive, both
// YYYY-MM-DD.
func NewTickReplayer(root string, instrument domain.Instrument, stream domain.MdStream, from, upto string, logger *slog.Logger) (*TickReplayer, error) {
	dates, err := dateRange(from, upto)
	if err != nil {
		return nil, err
	}
	r := &TickReplayer{
		root:       root,
		instrument: instrument,
		stream:     stream,
		dates:      dates,
		logger:     logger,
	}
	if err := r.advance(); err != nil {
		return nil, err
	}
	return r, nil
}

func dateRange(from, upto string) ([]string, error) {
	fromT, err := time.Parse(dateLayout, from)
	if err != nil {
		return nil, err
	}
	uptoT, err := time.Parse(dateLayout, upto)
	if err != nil {
		return nil, err
	}
	var dates []string
	for d := fromT; !d.After(uptoT); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(dateLayout))
	}
	return dates, nil
}

// advance opens the next non-empty bucket file, skipping missing dates
// with a single log line each, until it finds one, exhausts the date
// list, or hits a real I/O error.
func (r *TickReplayer) advance() error {
	for {
		if r.reader != nil {
			r.reader.Close()
			r.reader = nil
		}
		if r.dateIdx >= len(r.dates) {
			r.done = true
			return nil
		}
		date := r.dates[r.dateIdx]
		r.dateIdx++

		id := domain.TickFileBucketID{Instrument: r.instrument, Stream: r.stream, Date: date}
		path := tickfile.BucketPath(r.root, id)
		if _, err := os.Stat(path); err != nil {
			gzPath := tickfile.BucketPathGz(r.root, id)
			if _, err := os.Stat(gzPath); err != nil {
				if r.logger != nil {
					r.logger.Info("replay: no data for date, skipping", "instrument", r.instrument.String(), "stream", r.stream.String(), "date", date)
				}
				continue
			}
			path = gzPath
		}

		reader, err := tickfile.Open(path)
		if err != nil {
			return err
		}
		r.reader = reader
		if err := r.fillPending(); err != nil {
			return err
		}
		if r.pending != nil {
			return nil
		}
	}
}

func (r *TickReplayer) fillPending() error {
	evt, err := r.reader.Next(r.instrument, r.stream)
	if err == io.EOF {
		r.pending = nil
		return nil
	}
	if err != nil {
		return err
	}
	r.pending = evt
	return nil
}

// Peek returns the timestamp of the head event, and false when the
// replayer is exhausted.
func (r *TickReplayer) Peek() (domain.Time, bool) {
	if r.pending == nil {
		return 0, false
	}
	return r.pending.ExchTime, true
}

// Pop consumes and returns the head event, advancing to the next
// bucket file as needed.
func (r *TickReplayer) Pop() (domain.TickEvent, error) {
	evt := *r.pending
	if err := r.fillPending(); err != nil {
		return domain.TickEvent{}, err
	}
	if r.pending == nil {
		if err := r.advance(); err != nil {
			return domain.TickEvent{}, err
		}
	}
	return evt, nil
}

// Close releases the currently open bucket file, if any.
func (r *TickReplayer) Close() error {
	if r.reader != nil {
		return r.reader.Close()
	}
	return nil
}
