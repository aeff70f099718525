// Package collector receives device telemetry over framed batch protocol
// and legacy line protocol, stores readings and optionally republishes them to MQTT.
package collector

import (
	"sync"

	"github.com/juju/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/temoto/sensorlink/helpers"
	"github.com/temoto/sensorlink/internal/config"
	"github.com/temoto/sensorlink/log2"
	"github.com/temoto/sensorlink/wire"
)

type Options struct {
	Store    *Store
	Registry *Registry
	Forward  *Forwarder // optional
	Clock    helpers.Clock
	Log      *log2.Log
}

type Collector struct {
	Stat Stat

	mu       sync.Mutex
	clock    helpers.Clock
	forward  *Forwarder
	log      *log2.Log
	registry *Registry
	store    *Store
}

func New(opt Options) *Collector {
	c := &Collector{
		clock:    opt.Clock,
		forward:  opt.Forward,
		log:      opt.Log,
		registry: opt.Registry,
		store:    opt.Store,
	}
	if c.clock == nil {
		c.clock = helpers.SystemClock{}
	}
	if c.registry == nil {
		c.registry = NewRegistry("", c.log)
	}
	return c
}

// Open builds collector from config: store, registry, forwarder.
// Empty db_path keeps readings in memory.
func Open(c *config.Config, log *log2.Log) (*Collector, error) {
	var store *Store
	if c.Collector.DBPath == "" {
		log.Infof("collector store in memory, set collector.db_path to keep readings")
		db, err := leveldb.Open(storage.NewMemStorage(), nil)
		if err != nil {
			return nil, errors.Annotate(err, "store memory")
		}
		store = NewStore(db)
	} else {
		var err error
		if store, err = OpenStore(c.Collector.DBPath); err != nil {
			return nil, err
		}
	}

	registry := NewRegistry(c.Collector.RegistryPath, log)
	if err := registry.Load(); err != nil {
		_ = store.Close()
		return nil, err
	}

	forward, err := OpenForwarder(c, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if forward != nil {
		if err = forward.Start(); err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	return New(Options{
		Store:    store,
		Registry: registry,
		Forward:  forward,
		Log:      log,
	}), nil
}

func (c *Collector) Store() *Store         { return c.store }
func (c *Collector) Registry() *Registry   { return c.registry }
func (c *Collector) Forwarder() *Forwarder { return c.forward }

// Ingest stores batch unless it is a retransmission of already accepted one.
// Returned Ack always carries batch seq.
func (c *Collector) Ingest(b *wire.Batch) *wire.Ack {
	ack := &wire.Ack{Seq: b.Seq}
	if err := b.Validate(); err != nil {
		c.Stat.Errors.Add(1)
		ack.Error = err.Error()
		return ack
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registry.IsDuplicate(b.DeviceId, b.Boot, b.Seq) {
		c.Stat.Duplicates.Add(1)
		c.log.Debugf("collector duplicate device=%s boot=%x seq=%d", b.DeviceId, b.Boot, b.Seq)
		ack.Duplicate = true
		return ack
	}

	now := c.clock.Now()
	rs := ReadingsFromBatch(b, now)
	if err := c.save(rs); err != nil {
		c.Stat.Errors.Add(1)
		c.log.Error(errors.Annotatef(err, "collector device=%s seq=%d", b.DeviceId, b.Seq))
		ack.Error = errors.Cause(err).Error()
		return ack
	}
	if err := c.registry.Commit(b.DeviceId, b.Boot, b.Seq, now); err != nil {
		// readings are stored, only retransmit detection suffers
		c.log.Error(err)
	}
	c.Stat.Batches.Add(1)
	if b.Dropped != 0 {
		c.log.Infof("collector device=%s reports dropped=%d", b.DeviceId, b.Dropped)
	}
	ack.Accepted = uint32(len(rs))
	return ack
}

// IngestRecord stores one legacy line protocol record.
func (c *Collector) IngestRecord(rec wire.Record) error {
	now := c.clock.Now()
	rec[wire.LineKeyReceived] = float64(now.UnixNano()) / 1e9
	r, err := ReadingFromRecord(rec, now)
	if err != nil {
		c.Stat.Errors.Add(1)
		return errors.Annotate(err, "collector record")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err = c.save([]Reading{r}); err != nil {
		c.Stat.Errors.Add(1)
		return errors.Annotatef(err, "collector record device=%s", r.Device)
	}
	c.Stat.Records.Add(1)
	return nil
}

func (c *Collector) Close() error {
	errs := make([]error, 0, 2)
	if c.forward != nil {
		errs = append(errs, c.forward.Close())
	}
	if c.store != nil {
		errs = append(errs, c.store.Close())
	}
	return helpers.FoldErrors(errs)
}

// c.mu must be held
func (c *Collector) save(rs []Reading) error {
	if len(rs) == 0 {
		return nil
	}
	if err := c.store.Put(rs...); err != nil {
		return err
	}
	c.Stat.Readings.Add(int64(len(rs)))
	if c.forward != nil {
		if err := c.forward.Enqueue(rs...); err != nil {
			// stored already, forward is best effort
			c.log.Error(err)
		}
	}
	return nil
}
