package sensor

import (
	"github.com/juju/errors"
	gpio "github.com/temoto/gpio-cdev-go"
	"github.com/temoto/sensorlink/helpers"
	"github.com/temoto/sensorlink/internal/config"
	"github.com/temoto/sensorlink/log2"
)

// GpioLevel reads digital input, e.g. SW-420 vibration switch. Value is 0 or 1.
type GpioLevel struct {
	name  string
	lines gpio.Lineser
	chip  gpio.Chiper // only for resource cleanup
}

func NewGpioLevel(name string, chip gpio.Chiper, lines gpio.Lineser) *GpioLevel {
	return &GpioLevel{name: name, chip: chip, lines: lines}
}

func (g *GpioLevel) Name() string { return g.name }

func (g *GpioLevel) Read() (float64, error) {
	data, err := g.lines.Read()
	if err != nil {
		return 0, errors.Annotate(err, "gpio read")
	}
	if data.Values[0] != 0 {
		return 1, nil
	}
	return 0, nil
}

func (g *GpioLevel) Close() error {
	errs := []error{g.lines.Close()}
	if g.chip != nil {
		errs = append(errs, g.chip.Close())
	}
	return helpers.FoldErrors(errs)
}

func openGpio(c *config.Sensor, log *log2.Log) (Sensor, error) {
	if c.GpioChip == "" {
		return nil, errors.NotValidf("sensor gpio_chip empty")
	}
	chip, lines, err := helpers.OpenGpioLine(c.GpioChip, "sensorlink-"+c.Name, uint32(c.GpioLine), gpio.GPIOHANDLE_REQUEST_INPUT)
	if err != nil {
		return nil, err
	}
	return NewGpioLevel(c.Name, chip, lines), nil
}
