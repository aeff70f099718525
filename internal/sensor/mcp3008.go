package sensor

import (
	"github.com/juju/errors"
	"github.com/temoto/sensorlink/internal/config"
	"github.com/temoto/sensorlink/log2"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"
)

const (
	mcp3008Speed = 1 * physic.MegaHertz
	mcp3008Max   = 1023
)

type SpiTxFunc func(send, recv []byte) error

// MCP3008 reads single-ended channel of 10 bit ADC, value normalised to 0..1.
type MCP3008 struct {
	name    string
	channel byte
	tx      SpiTxFunc
	port    spi.PortCloser // only for resource cleanup
}

func NewMCP3008(name string, channel int, tx SpiTxFunc) (*MCP3008, error) {
	if channel < 0 || channel > 7 {
		return nil, errors.NotValidf("mcp3008 channel=%d", channel)
	}
	return &MCP3008{name: name, channel: byte(channel), tx: tx}, nil
}

func (m *MCP3008) Name() string { return m.name }

func (m *MCP3008) Read() (float64, error) {
	send := [3]byte{0x01, (0x08 | m.channel) << 4, 0x00}
	var recv [3]byte
	if err := m.tx(send[:], recv[:]); err != nil {
		return 0, errors.Annotate(err, "mcp3008 tx")
	}
	raw := uint16(recv[1]&0x03)<<8 | uint16(recv[2])
	return float64(raw) / mcp3008Max, nil
}

func (m *MCP3008) Close() error {
	if m.port == nil {
		return nil
	}
	return m.port.Close()
}

func openMCP3008(c *config.Sensor, log *log2.Log) (Sensor, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Annotate(err, "periph/init")
	}
	port, err := spireg.Open(c.Spi)
	if err != nil {
		return nil, errors.Annotatef(err, "SPI Open bus=%s", c.Spi)
	}
	conn, err := port.Connect(mcp3008Speed, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, errors.Annotate(err, "SPI Connect")
	}
	m, err := NewMCP3008(c.Name, c.Channel, conn.Tx)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	m.port = port
	return m, nil
}
