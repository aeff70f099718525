package helpers

import (
	"path/filepath"
	"strings"

	"github.com/juju/errors"
	gpio "github.com/temoto/gpio-cdev-go"
)

// GpioChipPath accepts `gpiochip0` or full `/dev/gpiochip0`.
func GpioChipPath(name string) string {
	if filepath.IsAbs(name) || strings.HasPrefix(name, ".") {
		return name
	}
	return filepath.Join("/dev", name)
}

// OpenGpioLine opens single line, caller must close both chip and lines.
func OpenGpioLine(chipName, label string, line uint32, flag gpio.RequestFlag) (gpio.Chiper, gpio.Lineser, error) {
	chip, err := gpio.Open(GpioChipPath(chipName), label)
	if err != nil {
		return nil, nil, errors.Annotatef(err, "gpio open chip=%s", chipName)
	}
	lines, err := chip.OpenLines(flag, label, line)
	if err != nil {
		_ = chip.Close()
		return nil, nil, errors.Annotatef(err, "gpio open chip=%s line=%d", chipName, line)
	}
	return chip, lines, nil
}
