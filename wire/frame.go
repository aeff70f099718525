package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/juju/errors"
)

var (
	ErrFrameInvalid     = fmt.Errorf("frame is invalid")
	ErrFrameLenOverflow = fmt.Errorf("frame is too large")
)

const (
	Magic       = uint16(0x7331)
	HeaderFixed = 2 /*magic*/ + 2 /*total length*/ + 2 /*seq*/ + 1 /*flag*/
	MaxLength   = math.MaxUint16

	FlagAck = byte(1 << 0)
)

// Frame binary representation: field:size in bytes
// magic:2 length:2 seq:2 flags:1 [ackseq:2] payload:var
// Payload length is calculated from total length and optional fields.
type Frame struct {
	Payload []byte
	Seq     uint16
	AckSeq  uint16
	Flags   byte

	length uint16
}

func (f *Frame) CheckFlag(x byte) bool { return f.Flags&x != 0 }
func (f *Frame) SetFlag(x byte)        { f.Flags |= x }
func (f *Frame) Reset()                { *f = Frame{} }

func (f *Frame) Marshal() ([]byte, error) {
	f.ImplyFlags()
	length := f.Size()
	if length > MaxLength {
		return nil, ErrFrameLenOverflow
	}
	buf := make([]byte, length)
	binary.BigEndian.PutUint16(buf[0:2], Magic)
	binary.BigEndian.PutUint16(buf[2:4], uint16(length))
	binary.BigEndian.PutUint16(buf[4:6], f.Seq)
	buf[6] = f.Flags
	pos := HeaderFixed
	if f.CheckFlag(FlagAck) {
		binary.BigEndian.PutUint16(buf[pos:], f.AckSeq)
		pos += 2
	}
	copy(buf[pos:], f.Payload)
	return buf, nil
}

func (f *Frame) DecodeFixedHeader(b []byte) error {
	if len(b) < HeaderFixed {
		return errors.Annotate(io.ErrUnexpectedEOF, "header fixed")
	}
	magic := binary.BigEndian.Uint16(b[0:2])
	if magic != Magic {
		return errors.Annotatef(ErrFrameInvalid, "wrong magic=%04x", magic)
	}
	f.length = binary.BigEndian.Uint16(b[2:4])
	f.Seq = binary.BigEndian.Uint16(b[4:6])
	f.Flags = b[6]
	if int(f.length) < f.headerSize() {
		return errors.Annotatef(ErrFrameInvalid, "length=%d", f.length)
	}
	return nil
}

// If error != nil, frame is likely in broken state.
// Payload references buf memory.
func (f *Frame) Unmarshal(buf []byte) error {
	if f.length == 0 {
		if err := f.DecodeFixedHeader(buf); err != nil {
			return err
		}
	}
	if int(f.length) > len(buf) {
		return errors.Annotatef(io.ErrUnexpectedEOF, "length=%d", f.length)
	}
	b := buf[HeaderFixed:f.length]
	if f.CheckFlag(FlagAck) {
		f.AckSeq = binary.BigEndian.Uint16(b)
		b = b[2:]
	}
	f.Payload = b
	return nil
}

func (f *Frame) Size() int { return f.headerSize() + len(f.Payload) }

func (f *Frame) String() string {
	b := strings.Builder{}
	b.WriteString(fmt.Sprintf("(seq=%d flags=", f.Seq))
	if f.CheckFlag(FlagAck) {
		b.WriteByte('a')
		b.WriteString(fmt.Sprintf(" ackseq=%d", f.AckSeq))
	}
	b.WriteString(fmt.Sprintf(" payload=(%d)%x)", len(f.Payload), f.Payload))
	return b.String()
}

func (f *Frame) ImplyFlags() {
	if f.AckSeq != 0 {
		f.SetFlag(FlagAck)
	}
}

func (f *Frame) headerSize() int {
	s := HeaderFixed
	if f.CheckFlag(FlagAck) {
		s += 2
	}
	return s
}

// IsFrameStart reports whether b begins with frame magic.
// Used by collector to tell framed connections from legacy line protocol.
func IsFrameStart(b []byte) bool {
	return len(b) >= 2 && binary.BigEndian.Uint16(b) == Magic
}
