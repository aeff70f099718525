// Package uploader periodically flushes buffered samples to collector.
package uploader

import (
	"context"
	"expvar"
	"net"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/sensorlink/helpers"
	"github.com/temoto/sensorlink/internal/sampler"
	"github.com/temoto/sensorlink/log2"
	"github.com/temoto/sensorlink/wire"
)

// Linker is the part of link.Manager used here.
type Linker interface {
	EnsureConnected(ctx context.Context) (net.Conn, error)
	Drop(err error)
}

type Options struct {
	DeviceID string
	Sensor   string
	Period   time.Duration
	MaxBatch int
	Boot     uint64 // random when zero
	Buffer   *sampler.Buffer
	Link     Linker
	Tx       Transmitter
	Log      *log2.Log
}

type Stat struct {
	Cycles  expvar.Int
	Batches expvar.Int
	Samples expvar.Int
	Errors  expvar.Int
}

type Uploader struct {
	Stat Stat

	opt Options
	sw  *helpers.Stopwatch
	seq uint32

	// unacknowledged batch is retransmitted unchanged,
	// so collector can recognise duplicates
	pending    *wire.Batch
	pendingEnd uint64
}

func New(opt Options, now time.Time) *Uploader {
	if opt.Boot == 0 {
		opt.Boot = helpers.RandUnix().Uint64() | 1
	}
	if max := wire.MaxBatchSamples(wire.MaxLength); opt.MaxBatch <= 0 || opt.MaxBatch > max {
		opt.MaxBatch = max
	}
	return &Uploader{
		opt: opt,
		sw:  helpers.NewStopwatch(opt.Period, now),
	}
}

func (u *Uploader) Boot() uint64 { return u.opt.Boot }
func (u *Uploader) Seq() uint32  { return u.seq }

// Tick flushes buffer when send period elapsed.
// Returns true if send cycle happened, error is informational.
func (u *Uploader) Tick(ctx context.Context, now time.Time) (bool, error) {
	if !u.sw.Fire(now) {
		return false, nil
	}
	return true, u.Flush(ctx, now)
}

// Flush transmits samples buffered at call time, oldest first.
// Empty buffer means no connection and no transmission.
// On failure unacknowledged samples stay in buffer.
func (u *Uploader) Flush(ctx context.Context, now time.Time) error {
	buf := u.opt.Buffer
	if u.pending == nil && buf.Len() == 0 {
		u.opt.Log.Debugf("uploader buffer empty, skip")
		return nil
	}
	u.Stat.Cycles.Add(1)
	conn, err := u.opt.Link.EnsureConnected(ctx)
	if err != nil {
		u.Stat.Errors.Add(1)
		return errors.Annotatef(err, "uploader buffered=%d", buf.Len())
	}

	end := buf.Head() + uint64(buf.Len())
	for u.pending != nil || buf.Head() < end {
		if u.pending == nil {
			u.prepare(now, end)
		}
		if err = u.opt.Tx.Send(ctx, conn, u.pending); err != nil {
			u.Stat.Errors.Add(1)
			if errors.Cause(err) == wire.ErrFrameLenOverflow && u.shrink() {
				// nothing was written, same seq is safe to reuse
				u.opt.Log.Errorf("uploader batch=%d too large, max_batch reduced to %d", u.pending.Seq, u.opt.MaxBatch)
				continue
			}
			u.opt.Link.Drop(err)
			return errors.Annotatef(err, "uploader batch=%d", u.pending.Seq)
		}
		buf.DiscardUntil(u.pendingEnd)
		u.seq = u.pending.Seq
		u.Stat.Batches.Add(1)
		u.Stat.Samples.Add(int64(len(u.pending.Samples)))
		u.pending = nil
	}
	return nil
}

// shrink halves pending batch, returned samples stay in buffer for next batch.
func (u *Uploader) shrink() bool {
	n := len(u.pending.Samples)
	if n <= 1 {
		return false
	}
	half := n / 2
	u.pending.Samples = u.pending.Samples[:half]
	u.pendingEnd -= uint64(n - half)
	u.opt.MaxBatch = half
	return true
}

func (u *Uploader) prepare(now time.Time, end uint64) {
	buf := u.opt.Buffer
	max := int(end - buf.Head())
	if u.opt.MaxBatch < max {
		max = u.opt.MaxBatch
	}
	start := buf.Head()
	ss := buf.Peek(max)
	b := &wire.Batch{
		Version:  wire.Version,
		DeviceId: u.opt.DeviceID,
		Boot:     u.opt.Boot,
		Seq:      u.seq + 1,
		Sensor:   u.opt.Sensor,
		SentMs:   wire.TimeMs(now),
		Dropped:  buf.Dropped(),
		Samples:  make([]*wire.Sample, len(ss)),
	}
	for i, s := range ss {
		b.Samples[i] = &wire.Sample{TimeMs: wire.TimeMs(s.Time), Value: s.Value}
	}
	u.pending = b
	u.pendingEnd = start + uint64(len(ss))
}
