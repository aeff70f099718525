package sensor

import (
	"math"
	"math/rand"

	"github.com/temoto/sensorlink/internal/config"
	"github.com/temoto/sensorlink/log2"
)

type ReadFunc func(n int) (float64, error)

// Mock calls F with sequential read number starting at 0.
type Mock struct {
	F      ReadFunc
	name   string
	n      int
	closed bool
}

func NewMock(name string, f ReadFunc) *Mock { return &Mock{name: name, F: f} }

// NewSine produces amplitude*sin(2*pi*n/period) plus uniform noise.
// Same seed yields same sequence.
func NewSine(name string, amplitude float64, period int, noise float64, seed int64) *Mock {
	if period <= 0 {
		period = 1
	}
	rnd := rand.New(rand.NewSource(seed))
	return NewMock(name, func(n int) (float64, error) {
		v := amplitude * math.Sin(2*math.Pi*float64(n)/float64(period))
		if noise != 0 {
			v += (rnd.Float64()*2 - 1) * noise
		}
		return v, nil
	})
}

func (m *Mock) Name() string { return m.name }
func (m *Mock) Reads() int   { return m.n }
func (m *Mock) Closed() bool { return m.closed }

func (m *Mock) Read() (float64, error) {
	n := m.n
	m.n++
	return m.F(n)
}

func (m *Mock) Close() error {
	m.closed = true
	return nil
}

func openMock(c *config.Sensor, log *log2.Log) (Sensor, error) {
	amp := c.Amplitude
	if amp == 0 {
		amp = 1
	}
	period := c.PeriodSec
	if period == 0 {
		period = 60
	}
	// period in samples assuming default 10Hz, only shape matters
	return NewSine(c.Name, amp, period*10, c.Noise, 1), nil
}
