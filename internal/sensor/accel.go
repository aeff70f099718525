package sensor

import (
	"strconv"
	"strings"

	"github.com/chewxy/math32"
	"github.com/juju/errors"
	"github.com/temoto/sensorlink/internal/config"
	"github.com/temoto/sensorlink/log2"
)

// ParseAccel reads `x,y,z` acceleration line and returns vector magnitude.
func ParseAccel(line string) (float64, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 3 {
		return 0, errors.NotValidf("accel line fields=%d", len(parts))
	}
	var v [3]float32
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return 0, errors.Annotatef(err, "accel axis=%d", i)
		}
		v[i] = float32(f)
	}
	return float64(Magnitude(v[0], v[1], v[2])), nil
}

func Magnitude(x, y, z float32) float32 {
	return math32.Sqrt(x*x + y*y + z*z)
}

func openAccel(c *config.Sensor, log *log2.Log) (Sensor, error) {
	port, err := openSerialPort(c)
	if err != nil {
		return nil, err
	}
	return NewLineSensor(c.Name, port, ParseAccel), nil
}
