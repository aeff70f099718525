// Package sensor provides sample sources for the device sampler.
package sensor

import (
	"github.com/juju/errors"
	"github.com/temoto/sensorlink/internal/config"
	"github.com/temoto/sensorlink/log2"
)

// Sensor returns one reading per Read call.
// Read must not block longer than a sampling interval.
type Sensor interface {
	Name() string
	Read() (float64, error)
	Close() error
}

type OpenFunc func(c *config.Sensor, log *log2.Log) (Sensor, error)

var drivers = map[string]OpenFunc{
	"mock":    openMock,
	"mcp3008": openMCP3008,
	"gpio":    openGpio,
	"serial":  openSerial,
	"accel":   openAccel,
}

func Kinds() []string {
	ks := make([]string, 0, len(drivers))
	for k := range drivers {
		ks = append(ks, k)
	}
	return ks
}

func Open(c *config.Sensor, log *log2.Log) (Sensor, error) {
	open, ok := drivers[c.Kind]
	if !ok {
		return nil, errors.NotSupportedf("sensor kind=%s", c.Kind)
	}
	s, err := open(c, log)
	if err != nil {
		return nil, errors.Annotatef(err, "sensor open kind=%s name=%s", c.Kind, c.Name)
	}
	log.Debugf("sensor open kind=%s name=%s", c.Kind, s.Name())
	return s, nil
}
