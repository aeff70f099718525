// Package config reads HCL configuration shared by device client and collector.
package config

import (
	"math"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
	"github.com/temoto/sensorlink/helpers"
	"github.com/temoto/sensorlink/log2"
	"github.com/temoto/sensorlink/wire"
)

const (
	OverflowDropNewest = "drop_newest"
	OverflowDropOldest = "drop_oldest"

	ProtocolFrame = "frame"
	ProtocolLines = "lines"

	OutputGPIO = "gpio"
	OutputLog  = "log"
	OutputNone = "none"
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []Source `hcl:"include" yaml:"-"`

	Debug  bool `hcl:"debug" yaml:"debug"`
	Device struct {
		ID        string `hcl:"id" yaml:"id"`
		Interface string `hcl:"interface" yaml:"interface"`
	} `hcl:"device" yaml:"device"`
	Network   Network   `hcl:"network" yaml:"network"`
	Sampling  Sampling  `hcl:"sampling" yaml:"sampling"`
	Upload    Upload    `hcl:"upload" yaml:"upload"`
	Indicator Indicator `hcl:"indicator" yaml:"indicator"`
	Sensor    Sensor    `hcl:"sensor" yaml:"sensor"`
	Collector Collector `hcl:"collector" yaml:"collector"`

	_copy_guard sync.Mutex //nolint:unused
}

type Network struct {
	SSID             string  `hcl:"ssid" yaml:"ssid"`
	Passphrase       string  `hcl:"passphrase" yaml:"passphrase"`
	Server           string  `hcl:"server" yaml:"server"`
	ConnectAttempts  int     `hcl:"connect_attempts" yaml:"connect_attempts"`
	ConnectWaitMs    int     `hcl:"connect_wait_ms" yaml:"connect_wait_ms"`
	ConnectBackoff   float32 `hcl:"connect_backoff" yaml:"connect_backoff"`
	ConnectWaitMaxMs int     `hcl:"connect_wait_max_ms" yaml:"connect_wait_max_ms"`
	NetworkTimeoutMs int     `hcl:"network_timeout_ms" yaml:"network_timeout_ms"`
	Protocol         string  `hcl:"protocol" yaml:"protocol"`
}

type Sampling struct {
	MaxRateHz int    `hcl:"max_rate_hz" yaml:"max_rate_hz"`
	Headroom  int    `hcl:"headroom" yaml:"headroom"`
	Overflow  string `hcl:"overflow" yaml:"overflow"`
	PollMs    int    `hcl:"poll_ms" yaml:"poll_ms"`
}

type Upload struct {
	SendPeriodMin int `hcl:"send_period_min" yaml:"send_period_min"`
	// overrides send_period_min, useful for bench runs
	SendPeriodSec int `hcl:"send_period_sec" yaml:"send_period_sec,omitempty"`
	// Batch frame must fit collector.read_limit, see Validate.
	MaxBatch int `hcl:"max_batch" yaml:"max_batch"`
}

type Indicator struct {
	BlinkPeriodMs int    `hcl:"blink_period_ms" yaml:"blink_period_ms"`
	Output        string `hcl:"output" yaml:"output"`
	GpioChip      string `hcl:"gpio_chip" yaml:"gpio_chip"`
	GpioLine      int    `hcl:"gpio_line" yaml:"gpio_line"`
}

type Sensor struct {
	Kind string `hcl:"kind" yaml:"kind"`
	Name string `hcl:"name" yaml:"name"`

	// mock
	Amplitude float64 `hcl:"amplitude" yaml:"amplitude,omitempty"`
	PeriodSec int     `hcl:"period_sec" yaml:"period_sec,omitempty"`
	Noise     float64 `hcl:"noise" yaml:"noise,omitempty"`
	// mcp3008
	Spi     string `hcl:"spi" yaml:"spi,omitempty"`
	Channel int    `hcl:"channel" yaml:"channel,omitempty"`
	// gpio
	GpioChip string `hcl:"gpio_chip" yaml:"gpio_chip,omitempty"`
	GpioLine int    `hcl:"gpio_line" yaml:"gpio_line,omitempty"`
	// serial, accel
	Port       string `hcl:"port" yaml:"port,omitempty"`
	Baud       int    `hcl:"baud" yaml:"baud,omitempty"`
	ReadTimeMs int    `hcl:"read_timeout_ms" yaml:"read_timeout_ms,omitempty"`
}

type Collector struct {
	Listen            []string `hcl:"listen" yaml:"listen"`
	DBPath            string   `hcl:"db_path" yaml:"db_path"`
	RegistryPath      string   `hcl:"registry_path" yaml:"registry_path"`
	NetworkTimeoutSec int      `hcl:"network_timeout_sec" yaml:"network_timeout_sec"`
	ReadLimit         int      `hcl:"read_limit" yaml:"read_limit"`
	MQTT              struct {
		Broker      string `hcl:"broker" yaml:"broker"`
		TopicPrefix string `hcl:"topic_prefix" yaml:"topic_prefix"`
		ClientID    string `hcl:"client_id" yaml:"client_id"`
		OutboxPath  string `hcl:"outbox_path" yaml:"outbox_path"`
		QoS         int    `hcl:"qos" yaml:"qos"`
	} `hcl:"mqtt" yaml:"mqtt"`
}

type Source struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

// Defaults match the vibration sensor deployment.
const (
	DefaultServer          = "192.168.12.123:2000"
	DefaultConnectAttempts = 5
	DefaultConnectWait     = 3 * time.Second
	DefaultConnectWaitMax  = 30 * time.Second
	DefaultNetworkTimeout  = 10 * time.Second
	DefaultMaxRateHz       = 10
	DefaultHeadroom        = 128
	DefaultPoll            = 10 * time.Millisecond
	DefaultSendPeriod      = 3 * time.Minute
	DefaultMaxBatch        = 1024
	DefaultBlinkPeriod     = 1 * time.Second
	DefaultSensorKind      = "mock"
	DefaultCollectorListen = "tcp://0.0.0.0:2000"
	DefaultCollectorTmo    = 30 * time.Second
	DefaultReadLimit       = 32 << 10
	DefaultTopicPrefix     = "sensorlink"
)

func (c *Config) SampleInterval() time.Duration {
	return time.Second / time.Duration(c.Sampling.MaxRateHz)
}

func (c *Config) SendPeriod() time.Duration {
	if c.Upload.SendPeriodSec > 0 {
		return time.Duration(c.Upload.SendPeriodSec) * time.Second
	}
	if c.Upload.SendPeriodMin > 0 {
		return time.Duration(c.Upload.SendPeriodMin) * time.Minute
	}
	return DefaultSendPeriod
}

// BufferCapacity = ceil(rate * send period) + headroom.
func (c *Config) BufferCapacity() int {
	n := math.Ceil(float64(c.Sampling.MaxRateHz) * c.SendPeriod().Seconds())
	return int(n) + c.Sampling.Headroom
}

func (c *Config) BlinkPeriod() time.Duration {
	return helpers.IntMillisecondDefault(c.Indicator.BlinkPeriodMs, DefaultBlinkPeriod)
}
func (c *Config) ConnectWait() time.Duration {
	return helpers.IntMillisecondDefault(c.Network.ConnectWaitMs, DefaultConnectWait)
}
func (c *Config) ConnectWaitMax() time.Duration {
	return helpers.IntMillisecondDefault(c.Network.ConnectWaitMaxMs, DefaultConnectWaitMax)
}
func (c *Config) NetworkTimeout() time.Duration {
	return helpers.IntMillisecondDefault(c.Network.NetworkTimeoutMs, DefaultNetworkTimeout)
}
func (c *Config) PollInterval() time.Duration {
	return helpers.IntMillisecondDefault(c.Sampling.PollMs, DefaultPoll)
}
func (c *Config) CollectorTimeout() time.Duration {
	return helpers.IntSecondDefault(c.Collector.NetworkTimeoutSec, DefaultCollectorTmo)
}

// Validate fills defaults and checks ranges.
func (c *Config) Validate() error {
	errs := make([]error, 0, 4)
	n := &c.Network
	if n.Server == "" {
		n.Server = DefaultServer
	}
	if n.ConnectAttempts == 0 {
		n.ConnectAttempts = DefaultConnectAttempts
	}
	if n.ConnectAttempts < 0 {
		errs = append(errs, errors.NotValidf("network.connect_attempts=%d", n.ConnectAttempts))
	}
	if n.ConnectWaitMs < 0 {
		errs = append(errs, errors.NotValidf("network.connect_wait_ms=%d", n.ConnectWaitMs))
	}
	if n.ConnectWaitMaxMs < 0 || (n.ConnectWaitMaxMs != 0 && n.ConnectWaitMaxMs < n.ConnectWaitMs) {
		errs = append(errs, errors.NotValidf("network.connect_wait_max_ms=%d must be >= connect_wait_ms", n.ConnectWaitMaxMs))
	}
	if n.ConnectBackoff == 0 {
		n.ConnectBackoff = 1
	}
	if n.ConnectBackoff < 1 {
		errs = append(errs, errors.NotValidf("network.connect_backoff=%f must be >= 1", n.ConnectBackoff))
	}
	switch n.Protocol {
	case "":
		n.Protocol = ProtocolFrame
	case ProtocolFrame, ProtocolLines:
	default:
		errs = append(errs, errors.NotValidf("network.protocol=%s", n.Protocol))
	}

	s := &c.Sampling
	if s.MaxRateHz == 0 {
		s.MaxRateHz = DefaultMaxRateHz
	}
	if s.MaxRateHz < 0 || s.MaxRateHz > 1000 {
		errs = append(errs, errors.NotValidf("sampling.max_rate_hz=%d expected 1..1000", s.MaxRateHz))
	}
	if s.Headroom == 0 {
		s.Headroom = DefaultHeadroom
	}
	if s.Headroom < 0 {
		errs = append(errs, errors.NotValidf("sampling.headroom=%d", s.Headroom))
	}
	switch s.Overflow {
	case "":
		s.Overflow = OverflowDropNewest
	case OverflowDropNewest, OverflowDropOldest:
	default:
		errs = append(errs, errors.NotValidf("sampling.overflow=%s", s.Overflow))
	}

	u := &c.Upload
	if u.SendPeriodMin < 0 || u.SendPeriodSec < 0 {
		errs = append(errs, errors.NotValidf("upload.send_period negative"))
	}
	if u.MaxBatch == 0 {
		u.MaxBatch = DefaultMaxBatch
	}

	ind := &c.Indicator
	switch ind.Output {
	case "":
		ind.Output = OutputLog
	case OutputLog, OutputNone:
	case OutputGPIO:
		if ind.GpioChip == "" {
			errs = append(errs, errors.NotValidf("indicator.gpio_chip empty"))
		}
	default:
		errs = append(errs, errors.NotValidf("indicator.output=%s", ind.Output))
	}

	if c.Sensor.Kind == "" {
		c.Sensor.Kind = DefaultSensorKind
	}
	if c.Sensor.Name == "" {
		c.Sensor.Name = c.Sensor.Kind
	}
	if len(c.Sensor.Name) > wire.StringMax {
		errs = append(errs, errors.NotValidf("sensor.name length=%d max=%d", len(c.Sensor.Name), wire.StringMax))
	}
	if len(c.Device.ID) > wire.StringMax {
		errs = append(errs, errors.NotValidf("device.id length=%d max=%d", len(c.Device.ID), wire.StringMax))
	}

	col := &c.Collector
	if len(col.Listen) == 0 {
		col.Listen = []string{DefaultCollectorListen}
	}
	if col.ReadLimit == 0 {
		col.ReadLimit = DefaultReadLimit
	}
	if col.ReadLimit < 0 || col.ReadLimit > math.MaxUint16 {
		errs = append(errs, errors.NotValidf("collector.read_limit=%d expected 1..%d", col.ReadLimit, math.MaxUint16))
	} else if max := wire.MaxBatchSamples(col.ReadLimit); u.MaxBatch < 0 || u.MaxBatch > max {
		// device and collector must agree on read_limit, worst case batch frame is checked
		errs = append(errs, errors.NotValidf("upload.max_batch=%d expected 1..%d for read_limit=%d", u.MaxBatch, max, col.ReadLimit))
	}
	if col.MQTT.TopicPrefix == "" {
		col.MQTT.TopicPrefix = DefaultTopicPrefix
	}
	if col.MQTT.ClientID == "" {
		col.MQTT.ClientID = "sensorlink-collector"
	}
	if col.MQTT.QoS < 0 || col.MQTT.QoS > 2 {
		errs = append(errs, errors.NotValidf("collector.mqtt.qos=%d", col.MQTT.QoS))
	}
	return errors.Annotate(helpers.FoldErrors(errs), "config")
}

func (c *Config) read(log *log2.Log, fs FullReader, source Source, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		*errs = append(*errs, errors.Errorf("config duplicate source=%s", source.Name))
		return
	}
	log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
		}
		return
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config unmarshal source=%s", source.Name))
		return
	}

	var includes []Source
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

// ReadConfig merges named sources in order, then validates.
func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		return nil, errors.NotValidf("code error ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		osfs.SetBase(dir)
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, Source{Name: name}, &errs)
	}
	if err := helpers.FoldErrors(errs); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}

// Default returns validated configuration without any source.
func Default() *Config {
	c := &Config{}
	if err := c.Validate(); err != nil {
		panic("code error default config: " + err.Error())
	}
	return c
}
