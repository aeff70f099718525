// Package collector runs server side: accept device connections, store readings.
package collector

import (
	"context"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/temoto/sensorlink/cmd/sensorlink/subcmd"
	"github.com/temoto/sensorlink/helpers"
	"github.com/temoto/sensorlink/internal/collector"
	"github.com/temoto/sensorlink/internal/config"
	"github.com/temoto/sensorlink/log2"
)

var Mod = subcmd.Mod{Name: "collector", Usage: "receive telemetry from devices", Main: Main}

func Main(ctx context.Context, c *config.Config, log *log2.Log) error {
	col, err := collector.Open(c, log)
	if err != nil {
		return errors.Annotate(err, "collector open")
	}
	srv := collector.NewServer(collector.ServerOptions{
		Collector:      col,
		Log:            log,
		NetworkTimeout: c.CollectorTimeout(),
		ReadLimit:      uint16(c.Collector.ReadLimit),
	})
	if err = srv.Listen(ctx, c.Collector.Listen); err != nil {
		_ = srv.Close()
		_ = col.Close()
		return errors.Annotate(err, "collector listen")
	}
	subcmd.SdNotify(daemon.SdNotifyReady)
	log.Infof("collector listen=%v db=%s mqtt=%s", srv.Addrs(), c.Collector.DBPath, c.Collector.MQTT.Broker)

	<-ctx.Done()
	log.Infof("collector stop stat=%s", col.Stat.String())
	return helpers.FoldErrors([]error{srv.Close(), col.Close()})
}
