package sampler

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/sensorlink/helpers"
	"github.com/temoto/sensorlink/internal/config"
	"github.com/temoto/sensorlink/internal/sensor"
	"github.com/temoto/sensorlink/log2"
)

func counter(n int) (float64, error) { return float64(n), nil }

func push(b *Buffer, values ...float64) {
	for _, v := range values {
		b.Push(Sample{Value: v})
	}
}

func values(ss []Sample) []float64 {
	vs := make([]float64, len(ss))
	for i, s := range ss {
		vs[i] = s.Value
	}
	return vs
}

func TestBufferOverflow(t *testing.T) {
	t.Parallel()
	cases := []struct {
		policy  OverflowPolicy
		expect  []float64
		head    uint64
		dropped uint64
	}{
		{DropNewest, []float64{1, 2, 3}, 0, 2},
		{DropOldest, []float64{3, 4, 5}, 2, 2},
	}
	for _, c := range cases {
		c := c
		t.Run(c.policy.String(), func(t *testing.T) {
			b := NewBuffer(3, c.policy)
			push(b, 1, 2, 3, 4, 5)
			assert.Equal(t, 3, b.Len())
			assert.True(t, b.Full())
			assert.Equal(t, c.expect, values(b.Peek(0)))
			assert.Equal(t, c.head, b.Head())
			assert.Equal(t, c.dropped, b.Dropped())
		})
	}
}

func TestBufferDiscard(t *testing.T) {
	t.Parallel()
	b := NewBuffer(4, DropNewest)
	push(b, 1, 2, 3)
	assert.Equal(t, []float64{1, 2}, values(b.Peek(2)))
	b.Discard(2)
	assert.Equal(t, uint64(2), b.Head())
	push(b, 4, 5, 6)
	assert.Equal(t, []float64{3, 4, 5, 6}, values(b.Peek(10)))
	b.Discard(100)
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, uint64(6), b.Head())
	assert.Len(t, b.Peek(0), 0)
}

func TestBufferDiscardUntil(t *testing.T) {
	t.Parallel()
	b := NewBuffer(3, DropOldest)
	push(b, 1, 2, 3)
	start := b.Head()
	snapshot := b.Peek(2)
	// oldest sample overwritten while snapshot was in flight
	push(b, 4)
	b.DiscardUntil(start + uint64(len(snapshot)))
	assert.Equal(t, []float64{3, 4}, values(b.Peek(0)))
	b.DiscardUntil(0)
	assert.Equal(t, 2, b.Len())
}

func TestParseOverflow(t *testing.T) {
	t.Parallel()
	p, err := ParseOverflow("")
	require.NoError(t, err)
	assert.Equal(t, DropNewest, p)
	p, err = ParseOverflow("drop_oldest")
	require.NoError(t, err)
	assert.Equal(t, DropOldest, p)
	_, err = ParseOverflow("ring")
	assert.Error(t, err)
}

func newTestSampler(t testing.TB, rate, sendSec int, f sensor.ReadFunc) (*Sampler, *helpers.ManualClock) {
	c := &config.Config{}
	c.Sampling.MaxRateHz = rate
	c.Upload.SendPeriodSec = sendSec
	require.NoError(t, c.Validate())
	clock := helpers.NewManualClock(time.Unix(1600000000, 0))
	s, err := New(c, sensor.NewMock("test", f), clock.Now(), log2.NewTest(t, log2.LDebug))
	require.NoError(t, err)
	return s, clock
}

func TestTicksKeepArrivalOrder(t *testing.T) {
	t.Parallel()
	s, clock := newTestSampler(t, 10, 60, counter)
	const N = 100
	require.LessOrEqual(t, N, s.Buffer.Cap())
	for i := 0; i < N; i++ {
		clock.Advance(100 * time.Millisecond)
		assert.True(t, s.Tick(clock.Now()))
		// polled again before interval elapsed
		clock.Advance(time.Millisecond)
		assert.False(t, s.Tick(clock.Now()))
	}
	ss := s.Buffer.Peek(0)
	require.Len(t, ss, N)
	for i, x := range ss {
		assert.Equal(t, float64(i), x.Value)
		if i > 0 {
			assert.True(t, x.Time.After(ss[i-1].Time))
		}
	}
	assert.Equal(t, int64(N), s.Stat.Samples.Value())
}

func TestTickRateBound(t *testing.T) {
	t.Parallel()
	s, clock := newTestSampler(t, 10, 60, counter)
	// poll every 10ms for 10 seconds
	for i := 0; i < 1000; i++ {
		clock.Advance(10 * time.Millisecond)
		s.Tick(clock.Now())
	}
	assert.Equal(t, 100, s.Buffer.Len())
}

func TestSensorError(t *testing.T) {
	t.Parallel()
	s, clock := newTestSampler(t, 10, 60, func(n int) (float64, error) {
		if n%2 == 1 {
			return 0, fmt.Errorf("sensor glitch")
		}
		return float64(n), nil
	})
	for i := 0; i < 4; i++ {
		clock.Advance(100 * time.Millisecond)
		s.Tick(clock.Now())
	}
	assert.Equal(t, []float64{0, 2}, values(s.Buffer.Peek(0)))
	assert.Equal(t, int64(2), s.Stat.Errors.Value())
}

func TestSamplerOverflowCounted(t *testing.T) {
	t.Parallel()
	s, clock := newTestSampler(t, 1, 2, counter)
	capacity := s.Buffer.Cap()
	assert.Equal(t, 2+config.DefaultHeadroom, capacity)
	for i := 0; i < capacity+5; i++ {
		clock.Advance(time.Second)
		s.Tick(clock.Now())
	}
	assert.Equal(t, capacity, s.Buffer.Len())
	assert.Equal(t, int64(5), s.Stat.Dropped.Value())
	assert.Equal(t, float64(0), s.Buffer.Peek(1)[0].Value)
}
