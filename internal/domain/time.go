package domain

import "time"

// Time is a point on the virtual UTC timeline at microsecond
// resolution. It is produced exclusively by the ReplayScheduler; no
// core package reads the wall clock directly.
type Time int64

// NewTimeFromUnixMicro builds a Time from a microseconds-since-epoch
// value, as stored in a tick file record.
func NewTimeFromUnixMicro(us int64) Time {
	return Time(us)
}

// NewTimeFromStd converts a standard library time.Time, used only at
// the tick-file-write boundary (collection, not replay).
func NewTimeFromStd(t time.Time) Time {
	return Time(t.UnixMicro())
}

// NewTimeFromStdDate parses a YYYY-MM-DD civil date and returns the
// Time at the end of that day (23:59:59.999999 UTC), used to turn a
// replay_upto config date into an inclusive deadline.
func NewTimeFromStdDate(date string) (Time, error) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, err
	}
	endOfDay := d.Add(24*time.Hour - time.Microsecond)
	return NewTimeFromStd(endOfDay), nil
}

// UnixMicro returns the raw microseconds-since-epoch value.
func (t Time) UnixMicro() int64 {
	return int64(t)
}

// Std converts back to a standard library time.Time, for display and
// log formatting only.
func (t Time) Std() time.Time {
	return time.UnixMicro(int64(t)).UTC()
}

// Before reports whether t precedes other.
func (t Time) Before(other Time) bool {
	return t < other
}

// Sub returns t - other as a time.Duration.
func (t Time) Sub(other Time) time.Duration {
	return time.Duration(t-other) * time.Microsecond
}

// Add returns t advanced by d.
func (t Time) Add(d time.Duration) Time {
	return t + Time(d.Microseconds())
}
