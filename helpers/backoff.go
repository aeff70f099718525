package helpers

import (
	"math"
	"time"
)

// Limited exponential backoff for retry delays.
// Unlike wall clock based implementations, it only computes delays
// and leaves sleeping to the caller, so it works with any Clock.
// K<=1 gives constant Min delay.
//
// Use scenario:
//
//	for attempt := 1; attempt <= n; attempt++ {
//	  if err := op(); err == nil { backoff.Reset(); break }
//	  clock.Sleep(ctx, backoff.Next())
//	}
type Backoff struct {
	Min time.Duration
	Max time.Duration
	K   float32
	Res time.Duration // delay resolution for nice logs, default=1ms

	next time.Duration
}

// Next returns delay before next attempt and increases following one by K.
func (b *Backoff) Next() time.Duration {
	if b.next == 0 {
		b.next = b.Min
	}
	d := b.limit(b.next)
	if b.K > 1 {
		f := float64(b.next) * float64(b.K)
		if f >= math.MaxInt64 {
			b.next = b.limit(math.MaxInt64)
		} else {
			b.next = b.limit(time.Duration(f))
		}
	}
	return d
}

func (b *Backoff) Reset() { b.next = 0 }

func (b *Backoff) limit(d time.Duration) time.Duration {
	if d < b.Min {
		d = b.Min
	}
	if b.Max != 0 && d > b.Max {
		d = b.Max
	}
	return b.round(d)
}

func (b *Backoff) round(d time.Duration) time.Duration {
	res := b.Res
	if res == 0 {
		res = 1 * time.Millisecond
	}
	return d / res * res
}
