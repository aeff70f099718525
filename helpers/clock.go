package helpers

import (
	"context"
	"time"

	"github.com/temoto/sensorlink/helpers/atomic_clock"
)

// Clock is the time source of periodic tasks.
// Sleep returns ctx.Err() when ctx is done before d elapsed.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type SystemClock struct{}

var _ Clock = SystemClock{} // compile-time interface test

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	tmr := time.NewTimer(d)
	defer tmr.Stop()
	select {
	case <-tmr.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ManualClock only moves on Advance or Sleep.
// Sleep advances time instantly, so code under test runs in simulated time.
type ManualClock struct {
	c atomic_clock.Clock
}

var _ Clock = &ManualClock{}

func NewManualClock(start time.Time) *ManualClock {
	m := &ManualClock{}
	m.c.SetTime(start)
	return m
}

func (m *ManualClock) Now() time.Time { return m.c.Time() }

func (m *ManualClock) Advance(d time.Duration) { m.c.Add(d) }

func (m *ManualClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d > 0 {
		m.Advance(d)
	}
	return nil
}
