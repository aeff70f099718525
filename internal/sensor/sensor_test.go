package sensor

import (
	"fmt"
	"io"
	"io/ioutil"
	"math"
	"strings"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gpio "github.com/temoto/gpio-cdev-go"
	gpio_mock "github.com/temoto/gpio-cdev-go/mock"
	"github.com/temoto/sensorlink/internal/config"
	"github.com/temoto/sensorlink/log2"
)

func TestOpen(t *testing.T) {
	t.Parallel()
	log := log2.NewTest(t, log2.LDebug)

	s, err := Open(&config.Sensor{Kind: "mock", Name: "vibration"}, log)
	require.NoError(t, err)
	assert.Equal(t, "vibration", s.Name())
	_, err = s.Read()
	assert.NoError(t, err)
	assert.NoError(t, s.Close())

	_, err = Open(&config.Sensor{Kind: "thermocouple"}, log)
	assert.True(t, errors.IsNotSupported(err), errors.ErrorStack(err))

	_, err = Open(&config.Sensor{Kind: "gpio", Name: "sw420"}, log)
	assert.True(t, errors.IsNotValid(errors.Cause(err)), errors.ErrorStack(err))

	assert.Len(t, Kinds(), 5)
}

func TestSineDeterministic(t *testing.T) {
	t.Parallel()
	a := NewSine("a", 2, 4, 0.1, 42)
	b := NewSine("b", 2, 4, 0.1, 42)
	for i := 0; i < 8; i++ {
		va, err := a.Read()
		require.NoError(t, err)
		vb, _ := b.Read()
		assert.Equal(t, va, vb)
		assert.LessOrEqual(t, math.Abs(va), 2.1)
	}
	assert.Equal(t, 8, a.Reads())

	clean := NewSine("c", 2, 4, 0, 1)
	v0, _ := clean.Read()
	v1, _ := clean.Read()
	assert.InDelta(t, 0, v0, 1e-9)
	assert.InDelta(t, 2, v1, 1e-9)
}

func TestMCP3008(t *testing.T) {
	t.Parallel()
	var sent []byte
	tx := func(send, recv []byte) error {
		sent = append([]byte(nil), send...)
		recv[0], recv[1], recv[2] = 0xff, 0xfe, 0x00 // 0b10_0000_0000 = 512
		return nil
	}
	m, err := NewMCP3008("soil", 2, tx)
	require.NoError(t, err)
	v, err := m.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0xa0, 0x00}, sent)
	assert.InDelta(t, 512.0/1023, v, 1e-9)
	assert.NoError(t, m.Close())

	_, err = NewMCP3008("bad", 8, tx)
	assert.True(t, errors.IsNotValid(err))

	failing, _ := NewMCP3008("fail", 0, func(send, recv []byte) error { return fmt.Errorf("bus") })
	_, err = failing.Read()
	assert.EqualError(t, err, "mcp3008 tx: bus")
}

func TestGpioLevel(t *testing.T) {
	t.Parallel()
	lines := &gpio_mock.MockLines{}
	high := gpio.HandleData{}
	high.Values[0] = 1
	lines.On("Read").Return(high, nil).Once()
	lines.On("Read").Return(gpio.HandleData{}, nil).Once()
	lines.On("Read").Return(gpio.HandleData{}, gpio.ErrClosed).Once()
	lines.On("Close").Return(nil)
	chip := &gpio_mock.MockChip{}
	chip.On("Close").Return(nil)

	g := NewGpioLevel("sw420", chip, lines)
	v, err := g.Read()
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
	v, err = g.Read()
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
	_, err = g.Read()
	assert.Equal(t, gpio.ErrClosed, errors.Cause(err))

	assert.NoError(t, g.Close())
	lines.AssertExpectations(t)
	chip.AssertExpectations(t)
}

func TestLineSensor(t *testing.T) {
	t.Parallel()
	r := ioutil.NopCloser(strings.NewReader("1.5\n2.5\n3"))
	s := NewLineSensor("uart", r, ParseNumber)
	v, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)
	_, err = s.Read()
	assert.Equal(t, ErrNoData, err)
}

type chunkReader struct {
	chunks []string
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, nil // serial read timeout
	}
	n := copy(p, c.chunks[0])
	c.chunks = c.chunks[1:]
	return n, nil
}
func (c *chunkReader) Close() error { return nil }

func TestLineSensorPartial(t *testing.T) {
	t.Parallel()
	r := &chunkReader{chunks: []string{"0.1,0", ".2,0"}}
	s := NewLineSensor("accel", r, ParseAccel)
	_, err := s.Read()
	assert.Equal(t, ErrNoData, err)

	r.chunks = []string{".2\n3,4,"}
	v, err := s.Read()
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(0.01+0.04+0.04), v, 1e-6)

	r.chunks = []string{"12\n"}
	v, err = s.Read()
	require.NoError(t, err)
	assert.InDelta(t, 13, v, 1e-6)

	r.chunks = []string{"x,y\n"}
	_, err = s.Read()
	assert.True(t, errors.IsNotValid(errors.Cause(err)), errors.ErrorStack(err))
}

func TestParseNumber(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input  string
		expect float64
		err    bool
	}{
		{"42", 42, false},
		{"-0.5", -0.5, false},
		{"soil capacitance\t0.25", 0.25, false},
		{"temp 21", 21, false},
		{"abc", 0, true},
	}
	for _, c := range cases {
		c := c
		t.Run(c.input, func(t *testing.T) {
			v, err := ParseNumber(c.input)
			if c.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.expect, v)
		})
	}
}

func TestMagnitude(t *testing.T) {
	t.Parallel()
	assert.Equal(t, float32(5), Magnitude(3, 4, 0))
	assert.Equal(t, float32(13), Magnitude(3, 4, 12))
}

var _ io.ReadCloser = &chunkReader{}
