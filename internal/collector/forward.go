package collector

import (
	"encoding/json"
	"expvar"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/sensorlink/internal/config"
	"github.com/temoto/sensorlink/log2"
	"github.com/temoto/spq"
)

const defaultRetryInterval = 5 * time.Second

type Publisher interface {
	Publish(topic string, payload []byte) error
	Close()
}

// Forwarder republishes ingested readings from durable outbox.
type Forwarder struct {
	Published expvar.Int
	Failed    expvar.Int

	alive  *alive.Alive
	log    *log2.Log
	pub    Publisher
	q      *spq.Queue
	prefix string
	retry  time.Duration
}

// NewForwarder takes ownership of q and pub. Call Start to run the queue worker.
func NewForwarder(q *spq.Queue, pub Publisher, prefix string, log *log2.Log) *Forwarder {
	return &Forwarder{
		alive:  alive.NewAlive(),
		log:    log,
		pub:    pub,
		q:      q,
		prefix: prefix,
		retry:  defaultRetryInterval,
	}
}

// OpenForwarder returns nil without error when MQTT broker is not configured.
func OpenForwarder(c *config.Config, log *log2.Log) (*Forwarder, error) {
	mc := &c.Collector.MQTT
	if mc.Broker == "" {
		return nil, nil
	}
	path := mc.OutboxPath
	if path == "" {
		path = spq.OnlyForTesting
		log.Infof("forward outbox in memory, set collector.mqtt.outbox_path to keep it across restarts")
	}
	q, err := spq.Open(path)
	if err != nil {
		return nil, errors.Annotatef(err, "forward outbox path=%s", path)
	}
	pub, err := NewMQTTPublisher(c, log)
	if err != nil {
		_ = q.Close()
		return nil, errors.Trace(err)
	}
	return NewForwarder(q, pub, mc.TopicPrefix, log), nil
}

func (f *Forwarder) Start() error {
	if !f.alive.Add(1) {
		return errors.Errorf("forward Start after Close")
	}
	go f.qworker()
	return nil
}

func (f *Forwarder) Enqueue(rs ...Reading) error {
	for i := range rs {
		b, err := json.Marshal(&rs[i])
		if err != nil {
			return errors.Annotate(err, "forward marshal")
		}
		if err = f.q.Push(b); err != nil {
			return errors.Annotate(err, "forward push")
		}
	}
	return nil
}

func (f *Forwarder) Topic(device string) string { return fmt.Sprintf("%s/%s", f.prefix, device) }

func (f *Forwarder) Close() error {
	f.alive.Stop()
	err := f.q.Close()
	f.alive.Wait()
	f.pub.Close()
	return errors.Annotate(err, "forward close")
}

func (f *Forwarder) qworker() {
	defer f.alive.Done()
	for {
		box, err := f.q.Peek()
		switch err {
		case nil:
			// success path
			b := box.Bytes()
			if err = f.publish(b); err == nil {
				f.Published.Add(1)
				if err = f.q.Delete(box); err != nil {
					f.log.Errorf("forward Delete b=%s err=%v", b, err)
				}
				continue
			}
			f.Failed.Add(1)
			f.log.Errorf("forward publish err=%v", err)
			if errors.IsNotValid(err) {
				// never publishable, drop
				_ = f.q.Delete(box)
				continue
			}
			if err = f.q.DeletePush(box); err != nil {
				f.log.Errorf("forward DeletePush b=%s err=%v", b, err)
			}
			select {
			case <-time.After(f.retry):
			case <-f.alive.StopChan():
				return
			}

		case spq.ErrClosed:
			return

		default:
			f.log.Errorf("forward Peek err=%v", err)
			if spq.IsCorrupted(err) || !f.alive.IsRunning() {
				return
			}
		}
	}
}

func (f *Forwarder) publish(b []byte) error {
	var head struct {
		Device string `json:"device"`
	}
	if err := json.Unmarshal(b, &head); err != nil || head.Device == "" {
		return errors.NotValidf("outbox item=%q", b)
	}
	return f.pub.Publish(f.Topic(head.Device), b)
}

// MQTTPublisher is Publisher over paho client.
type MQTTPublisher struct {
	log     *log2.Log
	m       mqtt.Client
	mopt    *mqtt.ClientOptions
	qos     byte
	timeout time.Duration
}

func NewMQTTPublisher(c *config.Config, log *log2.Log) (*MQTTPublisher, error) {
	mqttLog := log.Clone(log2.LError)
	mqtt.CRITICAL = mqttLog
	mqtt.ERROR = mqttLog
	mqtt.WARN = mqttLog
	if c.Debug {
		mqtt.DEBUG = log.Clone(log2.LDebug)
	}

	mc := &c.Collector.MQTT
	networkTimeout := c.CollectorTimeout()
	p := &MQTTPublisher{
		log:     log,
		qos:     byte(mc.QoS),
		timeout: networkTimeout,
	}
	p.mopt = mqtt.NewClientOptions().
		AddBroker(mc.Broker).
		SetAutoReconnect(true).
		SetCleanSession(false).
		SetClientID(mc.ClientID).
		SetConnectTimeout(networkTimeout).
		SetKeepAlive(networkTimeout / 2).
		SetMaxReconnectInterval(networkTimeout).
		SetOrderMatters(false).
		SetPingTimeout(networkTimeout).
		SetWriteTimeout(networkTimeout)
	p.m = mqtt.NewClient(p.mopt)
	if err := p.tokenWait(p.m.Connect(), "connect"); err != nil {
		return nil, errors.Annotatef(err, "mqtt broker=%s", mc.Broker)
	}
	return p, nil
}

func (p *MQTTPublisher) Publish(topic string, payload []byte) error {
	t := p.m.Publish(topic, p.qos, false, payload)
	return p.tokenWait(t, "publish "+topic)
}

func (p *MQTTPublisher) Close() {
	p.m.Disconnect(uint(p.timeout / time.Millisecond))
}

func (p *MQTTPublisher) tokenWait(t mqtt.Token, tag string) error {
	if !t.WaitTimeout(p.timeout) {
		return errors.Errorf("mqtt %s timeout", tag)
	}
	if err := t.Error(); err != nil {
		return errors.Annotatef(err, "mqtt %s", tag)
	}
	return nil
}
