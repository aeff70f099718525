// Package sampler reads sensor at bounded rate into ring buffer.
package sampler

import (
	"expvar"
	"time"

	"github.com/temoto/sensorlink/helpers"
	"github.com/temoto/sensorlink/internal/config"
	"github.com/temoto/sensorlink/internal/sensor"
	"github.com/temoto/sensorlink/log2"
)

type Stat struct {
	Samples expvar.Int
	Dropped expvar.Int
	Errors  expvar.Int
}

type Sampler struct {
	Buffer *Buffer
	Stat   Stat

	log    *log2.Log
	sensor sensor.Sensor
	sw     *helpers.Stopwatch
}

func New(c *config.Config, s sensor.Sensor, now time.Time, log *log2.Log) (*Sampler, error) {
	policy, err := ParseOverflow(c.Sampling.Overflow)
	if err != nil {
		return nil, err
	}
	return &Sampler{
		Buffer: NewBuffer(c.BufferCapacity(), policy),
		log:    log,
		sensor: s,
		sw:     helpers.NewStopwatch(c.SampleInterval(), now),
	}, nil
}

// Tick samples once when sampling interval elapsed since previous sample.
func (s *Sampler) Tick(now time.Time) bool {
	if !s.sw.Fire(now) {
		return false
	}
	return s.Sample(now)
}

// Sample reads sensor unconditionally, returns true if sample was stored.
func (s *Sampler) Sample(now time.Time) bool {
	v, err := s.sensor.Read()
	if err != nil {
		s.Stat.Errors.Add(1)
		s.log.Errorf("sampler read sensor=%s err=%v", s.sensor.Name(), err)
		return false
	}
	s.Stat.Samples.Add(1)
	before := s.Buffer.Dropped()
	stored := s.Buffer.Push(Sample{Time: now, Value: v})
	if d := s.Buffer.Dropped() - before; d != 0 {
		s.Stat.Dropped.Add(int64(d))
		if s.Buffer.Dropped() == 1 {
			s.log.Infof("sampler buffer full cap=%d policy=%s", s.Buffer.Cap(), s.Buffer.Policy())
		}
	}
	return stored
}

func (s *Sampler) SensorName() string { return s.sensor.Name() }
