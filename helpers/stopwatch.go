package helpers

import "time"

// Stopwatch keeps last-fired timestamp of a periodic task.
// Fire reports true when at least Period passed since last fire
// and remembers now as the new last fire time.
// First fire happens one Period after Reset.
type Stopwatch struct {
	Period time.Duration
	last   time.Time
}

func NewStopwatch(period time.Duration, now time.Time) *Stopwatch {
	return &Stopwatch{Period: period, last: now}
}

func (sw *Stopwatch) Reset(now time.Time) { sw.last = now }

func (sw *Stopwatch) Last() time.Time { return sw.last }

func (sw *Stopwatch) Elapsed(now time.Time) time.Duration { return now.Sub(sw.last) }

func (sw *Stopwatch) Fire(now time.Time) bool {
	if now.Sub(sw.last) < sw.Period {
		return false
	}
	sw.last = now
	return true
}
