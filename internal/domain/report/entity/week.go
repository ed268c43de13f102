package entity

import (
	"iter"
	"time"
)

// DefaultWeekEnd is the weekday a reporting week ends on. The provider's
// native reporting week runs Saturday through Friday, so weeks are keyed
// by their Friday week-ending date.
const DefaultWeekEnd = time.Friday

// WeekBucket is one 7-day reporting interval. Start and End are both
// inclusive, normalized to midnight UTC, and End is always Start+6 days.
type WeekBucket struct {
	Start time.Time `json:"week_start"`
	End   time.Time `json:"week_end"`
}

// Key returns the ISO date of the week-ending day, used to identify the
// bucket across fetch, aggregation and reconciliation.
func (w WeekBucket) Key() string {
	return w.End.Format("2006-01-02")
}

// Bucketer maps date ranges onto week buckets aligned to a fixed weekday.
type Bucketer struct {
	weekEnd time.Weekday
}

// NewBucketer creates a Bucketer whose weeks end on the given weekday.
func NewBucketer(weekEnd time.Weekday) Bucketer {
	return Bucketer{weekEnd: weekEnd}
}

// Weeks returns the ordered sequence of buckets covering [start, end].
// The first bucket ends on the first occurrence of the boundary weekday at
// or after start; the last bucket ends on the first occurrence at or after
// end. Buckets are contiguous and non-overlapping. The sequence is
// restartable: ranging over it twice yields the same buckets.
func (b Bucketer) Weeks(start, end time.Time) (iter.Seq[WeekBucket], error) {
	start = midnightUTC(start)
	end = midnightUTC(end)
	if start.After(end) {
		return nil, ErrInvalidRange
	}

	first := nextWeekday(start, b.weekEnd)
	last := nextWeekday(end, b.weekEnd)

	return func(yield func(WeekBucket) bool) {
		for e := first; !e.After(last); e = e.AddDate(0, 0, 7) {
			if !yield(WeekBucket{Start: e.AddDate(0, 0, -6), End: e}) {
				return
			}
		}
	}, nil
}

// Slice materializes Weeks into a slice.
func (b Bucketer) Slice(start, end time.Time) ([]WeekBucket, error) {
	seq, err := b.Weeks(start, end)
	if err != nil {
		return nil, err
	}
	var out []WeekBucket
	for w := range seq {
		out = append(out, w)
	}
	return out, nil
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// nextWeekday returns the first occurrence of wd at or after t.
func nextWeekday(t time.Time, wd time.Weekday) time.Time {
	days := (int(wd) - int(t.Weekday()) + 7) % 7
	return t.AddDate(0, 0, days)
}
