package sampler

import (
	"time"

	"github.com/juju/errors"
	"github.com/temoto/sensorlink/internal/config"
)

type Sample struct {
	Time  time.Time
	Value float64
}

type OverflowPolicy int

const (
	// DropNewest rejects new samples when full, unsent samples are never overwritten.
	DropNewest OverflowPolicy = iota
	// DropOldest overwrites the oldest sample.
	DropOldest
)

func ParseOverflow(s string) (OverflowPolicy, error) {
	switch s {
	case "", config.OverflowDropNewest:
		return DropNewest, nil
	case config.OverflowDropOldest:
		return DropOldest, nil
	}
	return DropNewest, errors.NotValidf("overflow policy=%s", s)
}

func (p OverflowPolicy) String() string {
	if p == DropOldest {
		return config.OverflowDropOldest
	}
	return config.OverflowDropNewest
}

// Buffer is fixed capacity FIFO ring of samples.
// Each pushed sample gets absolute index; Head is index of the oldest one.
// Not safe for concurrent use.
type Buffer struct {
	items   []Sample
	start   int    // ring position of oldest
	n       int    // length
	head    uint64 // absolute index of oldest
	dropped uint64
	policy  OverflowPolicy
}

func NewBuffer(capacity int, policy OverflowPolicy) *Buffer {
	if capacity <= 0 {
		panic("code error sampler.NewBuffer capacity must be positive")
	}
	return &Buffer{items: make([]Sample, capacity), policy: policy}
}

func (b *Buffer) Len() int               { return b.n }
func (b *Buffer) Cap() int               { return len(b.items) }
func (b *Buffer) Full() bool             { return b.n == len(b.items) }
func (b *Buffer) Dropped() uint64        { return b.dropped }
func (b *Buffer) Head() uint64           { return b.head }
func (b *Buffer) Policy() OverflowPolicy { return b.policy }

// Push returns false when s was dropped.
// With DropOldest s is always stored and the oldest sample is dropped instead.
func (b *Buffer) Push(s Sample) bool {
	if b.Full() {
		b.dropped++
		if b.policy == DropNewest {
			return false
		}
		b.items[b.start] = s
		b.start = (b.start + 1) % len(b.items)
		b.head++
		return true
	}
	b.items[(b.start+b.n)%len(b.items)] = s
	b.n++
	return true
}

// Peek copies up to max oldest samples, max<=0 means all.
func (b *Buffer) Peek(max int) []Sample {
	n := b.n
	if max > 0 && max < n {
		n = max
	}
	out := make([]Sample, n)
	for i := 0; i < n; i++ {
		out[i] = b.items[(b.start+i)%len(b.items)]
	}
	return out
}

// Discard removes up to n oldest samples.
func (b *Buffer) Discard(n int) {
	if n > b.n {
		n = b.n
	}
	if n <= 0 {
		return
	}
	b.start = (b.start + n) % len(b.items)
	b.n -= n
	b.head += uint64(n)
}

// DiscardUntil removes samples with absolute index below end.
// Samples already overwritten by DropOldest are accounted for.
func (b *Buffer) DiscardUntil(end uint64) {
	if end > b.head {
		b.Discard(int(end - b.head))
	}
}
