package wire

import (
	"bufio"
	"bytes"
	"io"

	"github.com/juju/errors"
)

// Decoder reads frames from stream, rejecting frames longer than max.
type Decoder struct {
	buf bytes.Buffer
	r   *bufio.Reader
	max uint16
}

func NewDecoder(r *bufio.Reader, max uint16) *Decoder {
	d := &Decoder{}
	d.Attach(r, max)
	return d
}

func (d *Decoder) Attach(r *bufio.Reader, max uint16) {
	if max == 0 {
		max = MaxLength
	}
	d.max = max
	d.r = r
}

// Read returns io.EOF only on clean stream end between frames.
// Returned frame payload is valid until next Read.
func (d *Decoder) Read() (*Frame, error) {
	header, err := d.r.Peek(HeaderFixed)
	switch err {
	case nil:
	case io.EOF:
		if len(header) == 0 {
			return nil, err
		}
		return nil, errors.Annotate(io.ErrUnexpectedEOF, "header")
	default:
		return nil, errors.Annotate(err, "header")
	}

	frame := &Frame{}
	if err = frame.DecodeFixedHeader(header); err != nil {
		return nil, err
	}
	if frame.length > d.max {
		return nil, errors.Annotatef(ErrFrameLenOverflow, "length=%d max=%d", frame.length, d.max)
	}
	d.buf.Reset()
	d.buf.Grow(int(frame.length))
	buf := d.buf.Bytes()[:frame.length]
	copy(buf, header)
	if _, err = d.r.Discard(HeaderFixed); err != nil {
		return nil, errors.Annotate(err, "header discard")
	}
	_, err = io.ReadFull(d.r, buf[HeaderFixed:])
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		return nil, errors.Annotate(err, "frame body")
	}
	if err = frame.Unmarshal(buf); err != nil {
		return nil, err
	}
	return frame, nil
}
