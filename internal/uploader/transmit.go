package uploader

import (
	"bufio"
	"context"
	"net"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/juju/errors"
	"github.com/temoto/sensorlink/helpers"
	"github.com/temoto/sensorlink/internal/config"
	"github.com/temoto/sensorlink/log2"
	"github.com/temoto/sensorlink/wire"
)

// Transmitter returns nil only when batch is delivered
// as far as protocol can tell.
type Transmitter interface {
	Send(ctx context.Context, conn net.Conn, batch *wire.Batch) error
}

func NewTransmitter(c *config.Config, log *log2.Log) Transmitter {
	if c.Network.Protocol == config.ProtocolLines {
		return &LineTransmitter{Timeout: c.NetworkTimeout(), Log: log}
	}
	return &FrameTransmitter{Timeout: c.NetworkTimeout(), Log: log}
}

func deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if cd, ok := ctx.Deadline(); ok && cd.Before(d) {
		d = cd
	}
	return d
}

// FrameTransmitter sends framed protobuf batch and waits for Ack with same seq.
type FrameTransmitter struct {
	Timeout time.Duration
	Log     *log2.Log

	conn net.Conn
	dec  wire.Decoder
	seq  uint16
}

func (t *FrameTransmitter) Send(ctx context.Context, conn net.Conn, batch *wire.Batch) error {
	if conn != t.conn {
		t.conn = conn
		t.dec.Attach(bufio.NewReader(conn), wire.MaxLength)
	}
	payload, err := proto.Marshal(batch)
	if err != nil {
		return errors.Annotate(err, "batch marshal")
	}
	t.seq++
	if t.seq == 0 {
		t.seq = 1
	}
	f := wire.Frame{Seq: t.seq, Payload: payload}
	b, err := f.Marshal()
	if err != nil {
		return errors.Annotatef(err, "frame marshal samples=%d", len(batch.Samples))
	}
	if err = conn.SetDeadline(deadline(ctx, t.Timeout)); err != nil {
		return errors.Annotate(err, "SetDeadline")
	}
	t.Log.Debugf("uploader send seq=%d batch=%d samples=%d size=%d", f.Seq, batch.Seq, len(batch.Samples), len(b))
	if err = helpers.WriteAll(conn, b); err != nil {
		return errors.Annotate(err, "send")
	}

	for {
		rf, err := t.dec.Read()
		if err != nil {
			return errors.Annotatef(err, "wait ack seq=%d", f.Seq)
		}
		if !rf.CheckFlag(wire.FlagAck) || rf.AckSeq != f.Seq {
			t.Log.Debugf("uploader ignore frame=%s", rf)
			continue
		}
		var ack wire.Ack
		if err = proto.Unmarshal(rf.Payload, &ack); err != nil {
			return errors.Annotate(err, "ack unmarshal")
		}
		if ack.Error != "" {
			return errors.Errorf("collector rejected batch=%d error=%s", batch.Seq, ack.Error)
		}
		if ack.Seq != batch.Seq {
			return errors.Errorf("ack batch=%d expected=%d", ack.Seq, batch.Seq)
		}
		if ack.Duplicate {
			t.Log.Debugf("uploader batch=%d already received", batch.Seq)
		}
		return nil
	}
}

// LineTransmitter writes legacy key/value records, no acknowledgement.
type LineTransmitter struct {
	Timeout time.Duration
	Log     *log2.Log
}

func (t *LineTransmitter) Send(ctx context.Context, conn net.Conn, batch *wire.Batch) error {
	b := wire.AppendLines(make([]byte, 0, len(batch.Samples)*64), batch)
	if err := conn.SetWriteDeadline(deadline(ctx, t.Timeout)); err != nil {
		return errors.Annotate(err, "SetWriteDeadline")
	}
	t.Log.Debugf("uploader send lines samples=%d size=%d", len(batch.Samples), len(b))
	return errors.Annotate(helpers.WriteAll(conn, b), "send lines")
}
