package sensor

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/sensorlink/internal/config"
	"github.com/temoto/sensorlink/log2"
	"go.bug.st/serial"
)

const (
	serialDefaultBaud    = 115200
	serialDefaultTimeout = 20 * time.Millisecond
	serialBufferMax      = 4 << 10
)

var ErrNoData = fmt.Errorf("no data")

type ParseFunc func(line string) (float64, error)

// LineSensor reads newline terminated text from peripheral (UART)
// and returns value parsed from the latest complete line.
// Older unread lines are skipped so sampling always sees fresh data.
type LineSensor struct {
	name  string
	r     io.ReadCloser
	parse ParseFunc
	buf   []byte
	chunk [256]byte
}

func NewLineSensor(name string, r io.ReadCloser, parse ParseFunc) *LineSensor {
	return &LineSensor{name: name, r: r, parse: parse}
}

func (s *LineSensor) Name() string { return s.name }
func (s *LineSensor) Close() error { return s.r.Close() }

func (s *LineSensor) Read() (float64, error) {
	for {
		n, err := s.r.Read(s.chunk[:])
		if n > 0 {
			s.buf = append(s.buf, s.chunk[:n]...)
			if over := len(s.buf) - serialBufferMax; over > 0 {
				s.buf = s.buf[over:]
			}
		}
		if err == io.EOF || (err == nil && n == 0) {
			// read timeout or nothing buffered
			break
		}
		if err != nil {
			return 0, errors.Annotatef(err, "serial read sensor=%s", s.name)
		}
		if n < len(s.chunk) && bytes.IndexByte(s.chunk[:n], '\n') != -1 {
			break
		}
	}

	end := bytes.LastIndexByte(s.buf, '\n')
	if end == -1 {
		return 0, ErrNoData
	}
	lines := s.buf[:end]
	start := bytes.LastIndexByte(lines, '\n') + 1
	line := strings.TrimSpace(string(lines[start:]))
	s.buf = append(s.buf[:0], s.buf[end+1:]...)
	if line == "" {
		return 0, ErrNoData
	}
	v, err := s.parse(line)
	if err != nil {
		return 0, errors.Annotatef(err, "serial parse sensor=%s line='%s'", s.name, line)
	}
	return v, nil
}

func ParseNumber(line string) (float64, error) {
	// accept `key<TAB>value` like legacy protocol lines too
	if idx := strings.LastIndexAny(line, "\t "); idx != -1 {
		line = line[idx+1:]
	}
	return strconv.ParseFloat(line, 64)
}

func openSerialPort(c *config.Sensor) (serial.Port, error) {
	if c.Port == "" {
		return nil, errors.NotValidf("sensor port empty")
	}
	baud := c.Baud
	if baud == 0 {
		baud = serialDefaultBaud
	}
	port, err := serial.Open(c.Port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, errors.Annotatef(err, "serial open port=%s", c.Port)
	}
	timeout := serialDefaultTimeout
	if c.ReadTimeMs > 0 {
		timeout = time.Duration(c.ReadTimeMs) * time.Millisecond
	}
	if err = port.SetReadTimeout(timeout); err != nil {
		_ = port.Close()
		return nil, errors.Annotate(err, "serial SetReadTimeout")
	}
	return port, nil
}

func openSerial(c *config.Sensor, log *log2.Log) (Sensor, error) {
	port, err := openSerialPort(c)
	if err != nil {
		return nil, err
	}
	return NewLineSensor(c.Name, port, ParseNumber), nil
}
