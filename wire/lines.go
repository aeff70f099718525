package wire

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// Legacy line protocol keys.
const (
	LineKeyDevice   = "mac address"
	LineKeyTime     = "time_ms"
	LineKeyReceived = "received_timestamp"
	LineEnd         = "end"
	LineMax         = 4 << 10
)

var lineKeyClean = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")

// AppendLines encodes every batch sample as separate record:
// device, sensor value, time, end.
func AppendLines(b []byte, batch *Batch) []byte {
	device := lineKeyClean.Replace(batch.DeviceId)
	sensor := lineKeyClean.Replace(batch.Sensor)
	if sensor == "" {
		sensor = "value"
	}
	for _, s := range batch.Samples {
		b = append(b, LineKeyDevice...)
		b = append(b, '\t')
		b = append(b, device...)
		b = append(b, '\n')
		b = append(b, sensor...)
		b = append(b, '\t')
		b = strconv.AppendFloat(b, s.Value, 'g', -1, 64)
		b = append(b, '\n')
		b = append(b, LineKeyTime...)
		b = append(b, '\t')
		b = strconv.AppendInt(b, s.TimeMs, 10)
		b = append(b, '\n', 'e', 'n', 'd', '\n')
	}
	return b
}

// Record is one legacy key/value reading.
type Record map[string]interface{}

func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return ""
}

// ParseValue tries integer, then float, falls back to string.
// Non-finite floats stay strings so records remain JSON encodable.
func ParseValue(s string) interface{} {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return s
}

// ParseLine splits `key<TAB>value`, both sides trimmed.
func ParseLine(line string) (key string, value interface{}, ok bool) {
	idx := strings.IndexByte(line, '\t')
	if idx == -1 {
		return "", nil, false
	}
	key = strings.TrimSpace(line[:idx])
	value = ParseValue(strings.TrimSpace(line[idx+1:]))
	return key, value, true
}

type LineReader struct {
	OnBadLine func(line string)

	s *bufio.Scanner
}

func NewLineReader(r io.Reader) *LineReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 256), LineMax)
	return &LineReader{s: s}
}

// Next returns next record closed by `end` line.
// Blank line or stream end returns io.EOF, unfinished record is discarded.
func (lr *LineReader) Next() (Record, error) {
	rec := Record{}
	for lr.s.Scan() {
		line := strings.TrimSpace(lr.s.Text())
		if line == "" {
			return nil, io.EOF
		}
		if line == LineEnd {
			return rec, nil
		}
		key, value, ok := ParseLine(line)
		if !ok {
			if lr.OnBadLine != nil {
				lr.OnBadLine(line)
			}
			continue
		}
		rec[key] = value
	}
	if err := lr.s.Err(); err != nil {
		return nil, errors.Annotate(err, "line reader")
	}
	return nil, io.EOF
}
