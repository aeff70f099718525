// Package node runs device main loop: single-threaded cooperative scheduler
// polling sampler, uploader and status indicator once per iteration.
package node

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/sensorlink/helpers"
	"github.com/temoto/sensorlink/internal/config"
	"github.com/temoto/sensorlink/internal/indicator"
	"github.com/temoto/sensorlink/internal/link"
	"github.com/temoto/sensorlink/internal/sampler"
	"github.com/temoto/sensorlink/internal/sensor"
	"github.com/temoto/sensorlink/internal/uploader"
	"github.com/temoto/sensorlink/log2"
)

var ErrStopping = fmt.Errorf("node is stopping")

type Node struct {
	Stat      Stat
	Link      *link.Manager
	Sampler   *sampler.Sampler
	Uploader  *uploader.Uploader
	Indicator *indicator.Indicator

	alive  *alive.Alive
	clock  helpers.Clock
	poll   time.Duration
	sensor sensor.Sensor
	log    *log2.Log
}

type Options struct {
	Config   *config.Config
	DeviceID string
	Sensor   sensor.Sensor
	Output   indicator.Output
	Clock    helpers.Clock
	Dial     link.DialFunc        // tests
	Tx       uploader.Transmitter // default from config protocol
	Log      *log2.Log
}

// New wires device components from configuration.
// Sensor and Output are owned by Node and closed by Close.
func New(opt Options) (*Node, error) {
	c := opt.Config
	if opt.Clock == nil {
		opt.Clock = helpers.SystemClock{}
	}
	if opt.DeviceID == "" {
		return nil, errors.NotValidf("device id empty")
	}
	now := opt.Clock.Now()

	lopt := link.OptionsFromConfig(c, opt.Log)
	lopt.Clock = opt.Clock
	lopt.Dial = opt.Dial
	lm := link.NewManager(lopt)

	smp, err := sampler.New(c, opt.Sensor, now, opt.Log)
	if err != nil {
		return nil, errors.Annotate(err, "sampler")
	}
	tx := opt.Tx
	if tx == nil {
		tx = uploader.NewTransmitter(c, opt.Log)
	}
	up := uploader.New(uploader.Options{
		DeviceID: opt.DeviceID,
		Sensor:   opt.Sensor.Name(),
		Period:   c.SendPeriod(),
		MaxBatch: c.Upload.MaxBatch,
		Buffer:   smp.Buffer,
		Link:     lm,
		Tx:       tx,
		Log:      opt.Log,
	}, now)

	n := &Node{
		Link:      lm,
		Sampler:   smp,
		Uploader:  up,
		Indicator: indicator.New(opt.Output, c.BlinkPeriod(), now, opt.Log),
		alive:     alive.NewAlive(),
		clock:     opt.Clock,
		poll:      c.PollInterval(),
		sensor:    opt.Sensor,
		log:       opt.Log,
	}
	n.log.Infof("node device=%s sensor=%s buffer=%d sample=%s send=%s blink=%s boot=%x",
		opt.DeviceID, opt.Sensor.Name(), smp.Buffer.Cap(), c.SampleInterval(), c.SendPeriod(), c.BlinkPeriod(), up.Boot())
	return n, nil
}

// Run blocks until Stop or ctx cancel.
// Initial connection failure is not fatal, uploader retries every send cycle.
func (n *Node) Run(ctx context.Context) error {
	if !n.alive.Add(1) {
		return ErrStopping
	}
	defer n.alive.Done()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-n.alive.StopChan():
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := n.Link.Connect(ctx); err != nil {
		n.log.Errorf("node initial connect err=%v", err)
	}
	for {
		n.Step(ctx)
		if err := n.clock.Sleep(ctx, n.poll); err != nil {
			if !n.alive.IsRunning() {
				return nil
			}
			return err
		}
	}
}

// Step runs one loop iteration, tasks never overlap.
func (n *Node) Step(ctx context.Context) {
	now := n.clock.Now()
	n.Sampler.Tick(now)
	if fired, err := n.Uploader.Tick(ctx, now); fired {
		if err != nil {
			n.log.Errorf("node send err=%v", err)
		}
		n.updateStat()
		n.log.Debugf("node stat=%s buffered=%d link=%s", n.Stat.String(), n.Sampler.Buffer.Len(), n.Link.State())
	}
	n.Indicator.Tick(now)
}

func (n *Node) updateStat() {
	s := &n.Stat
	s.Samples.Set(n.Sampler.Stat.Samples.Value())
	s.Dropped.Set(n.Sampler.Stat.Dropped.Value())
	s.SensorErrors.Set(n.Sampler.Stat.Errors.Value())
	s.Batches.Set(n.Uploader.Stat.Batches.Value())
	s.SendErrors.Set(n.Uploader.Stat.Errors.Value())
	s.ConnectFailures.Set(n.Link.Stat.Failures.Value())
}

func (n *Node) Stop() {
	n.alive.Stop()
	n.alive.Wait()
}

func (n *Node) Close() error {
	n.Stop()
	n.updateStat()
	errs := []error{
		n.Link.Close(),
		n.Indicator.Close(),
		n.sensor.Close(),
	}
	return helpers.FoldErrors(errs)
}
