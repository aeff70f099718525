// Package indicator blinks device status output at fixed period,
// independent of network and sampling state.
package indicator

import (
	"time"

	"github.com/juju/errors"
	gpio "github.com/temoto/gpio-cdev-go"
	"github.com/temoto/sensorlink/helpers"
	"github.com/temoto/sensorlink/internal/config"
	"github.com/temoto/sensorlink/log2"
)

// Output is binary status light.
type Output interface {
	Set(on bool) error
	Close() error
}

type Indicator struct {
	out    Output
	sw     *helpers.Stopwatch
	on     bool
	toggle int
	log    *log2.Log
}

func New(out Output, period time.Duration, now time.Time, log *log2.Log) *Indicator {
	return &Indicator{
		out: out,
		sw:  helpers.NewStopwatch(period, now),
		log: log,
	}
}

// Tick toggles output when blink period elapsed, output errors are only logged.
func (ind *Indicator) Tick(now time.Time) bool {
	if !ind.sw.Fire(now) {
		return false
	}
	ind.on = !ind.on
	ind.toggle++
	if err := ind.out.Set(ind.on); err != nil {
		ind.log.Errorf("indicator set=%t err=%v", ind.on, err)
	}
	return true
}

func (ind *Indicator) On() bool     { return ind.on }
func (ind *Indicator) Toggles() int { return ind.toggle }
func (ind *Indicator) Close() error { return ind.out.Close() }

func Open(c *config.Config, log *log2.Log) (Output, error) {
	switch c.Indicator.Output {
	case config.OutputGPIO:
		chip, lines, err := helpers.OpenGpioLine(c.Indicator.GpioChip, "sensorlink-led", uint32(c.Indicator.GpioLine), gpio.GPIOHANDLE_REQUEST_OUTPUT)
		if err != nil {
			return nil, errors.Annotate(err, "indicator")
		}
		return NewGpioOutput(chip, lines, uint32(c.Indicator.GpioLine)), nil
	case config.OutputLog:
		return &LogOutput{Log: log}, nil
	case config.OutputNone, "":
		return NopOutput{}, nil
	}
	return nil, errors.NotSupportedf("indicator output=%s", c.Indicator.Output)
}

type GpioOutput struct {
	chip  gpio.Chiper // only for resource cleanup
	lines gpio.Lineser
	set   gpio.LineSetFunc
}

func NewGpioOutput(chip gpio.Chiper, lines gpio.Lineser, line uint32) *GpioOutput {
	return &GpioOutput{chip: chip, lines: lines, set: lines.SetFunc(line)}
}

func (g *GpioOutput) Set(on bool) error {
	var v byte
	if on {
		v = 1
	}
	g.set(v)
	return errors.Annotate(g.lines.Flush(), "gpio flush")
}

func (g *GpioOutput) Close() error {
	g.set(0)
	errs := []error{g.lines.Flush(), g.lines.Close()}
	if g.chip != nil {
		errs = append(errs, g.chip.Close())
	}
	return helpers.FoldErrors(errs)
}

type LogOutput struct{ Log *log2.Log }

func (l *LogOutput) Set(on bool) error {
	l.Log.Debugf("indicator on=%t", on)
	return nil
}
func (l *LogOutput) Close() error { return nil }

type NopOutput struct{}

func (NopOutput) Set(bool) error { return nil }
func (NopOutput) Close() error   { return nil }
