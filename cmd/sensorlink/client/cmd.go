// Package client runs device side: sample sensor, upload batches, blink status.
package client

import (
	"context"
	"os"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/temoto/sensorlink/cmd/sensorlink/subcmd"
	"github.com/temoto/sensorlink/internal/config"
	"github.com/temoto/sensorlink/internal/indicator"
	"github.com/temoto/sensorlink/internal/link"
	"github.com/temoto/sensorlink/internal/node"
	"github.com/temoto/sensorlink/internal/sensor"
	"github.com/temoto/sensorlink/log2"
)

var Mod = subcmd.Mod{Name: "client", Usage: "sample sensor and upload to collector", Main: Main}

func Main(ctx context.Context, c *config.Config, log *log2.Log) error {
	// components log only with debug=true
	nlog := log2.NewDebug(os.Stderr, c.Debug)

	deviceID, err := DeviceID(c)
	if err != nil {
		return err
	}
	sens, err := sensor.Open(&c.Sensor, nlog)
	if err != nil {
		return errors.Annotate(err, "sensor")
	}
	out, err := indicator.Open(c, nlog)
	if err != nil {
		_ = sens.Close()
		return errors.Annotate(err, "indicator")
	}
	n, err := node.New(node.Options{
		Config:   c,
		DeviceID: deviceID,
		Sensor:   sens,
		Output:   out,
		Log:      nlog,
	})
	if err != nil {
		_ = sens.Close()
		_ = out.Close()
		return errors.Annotate(err, "node")
	}

	subcmd.SdNotify(daemon.SdNotifyReady)
	log.Infof("client device=%s server=%s sensor=%s", deviceID, c.Network.Server, c.Sensor.Kind)
	err = n.Run(ctx)
	closeErr := n.Close()
	log.Infof("client stop stat=%s", n.Stat.String())
	if errors.Cause(err) == context.Canceled {
		err = nil
	}
	if err != nil {
		return errors.Annotate(err, "client run")
	}
	return errors.Annotate(closeErr, "client close")
}

// DeviceID is device.id from config, else MAC address of device.interface, else hostname.
func DeviceID(c *config.Config) (string, error) {
	if c.Device.ID != "" {
		return c.Device.ID, nil
	}
	if c.Device.Interface != "" {
		if id, err := link.HardwareID(c.Device.Interface); err == nil {
			return id, nil
		}
	}
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "", errors.NotFoundf("device id: set device.id in config")
	}
	return h, nil
}
