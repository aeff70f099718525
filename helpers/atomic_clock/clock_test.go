package atomic_clock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApi(t *testing.T) {
	t.Parallel()
	c := Now()
	tim := time.Now()
	const delta = 100 * time.Millisecond

	assert.InDelta(t, tim.UnixNano(), c.UnixNano(), float64(delta))
	assert.InDelta(t, tim.Unix(), c.Unix(), 1)

	c.SetTime(tim)
	assert.Equal(t, tim.UnixNano(), c.UnixNano())
	assert.True(t, tim.Equal(c.Time()))

	c.SetNow()
	assert.True(t, Since(c) < delta)
}

func TestZero(t *testing.T) {
	t.Parallel()
	var c Clock
	assert.True(t, c.IsZero())
	assert.True(t, c.Time().IsZero())
	c.SetIfZero(42)
	c.SetIfZero(7)
	assert.Equal(t, int64(42), c.UnixNano())
	c.Reset()
	assert.True(t, c.IsZero())
}

func TestAddConcurrent(t *testing.T) {
	t.Parallel()
	start := time.Unix(1600000000, 0)
	c := New(start.UnixNano())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Add(time.Millisecond)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, start.Add(800*time.Millisecond), c.Time())
	assert.Equal(t, 800*time.Millisecond, c.Sub(New(start.UnixNano())))
}
