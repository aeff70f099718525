// Package link establishes and supervises device network link:
// association, then stream connection to the collector.
//
// Connect makes bounded number of attempts and never blocks forever.
// Exhaustion is reported to caller as ErrConnectFailed, next send cycle
// starts over from scratch.
package link

import (
	"context"
	"expvar"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/sensorlink/helpers"
	"github.com/temoto/sensorlink/helpers/atomic_clock"
	"github.com/temoto/sensorlink/internal/config"
	"github.com/temoto/sensorlink/log2"
)

var (
	ErrConnectFailed = fmt.Errorf("connect failed")
	ErrClosed        = fmt.Errorf("link closed")
)

type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

type Options struct {
	Server     string
	Attempts   int
	Wait       time.Duration
	Backoff    float32 // wait multiplier, <=1 means fixed wait
	MaxWait    time.Duration
	Timeout    time.Duration
	Associator Associator
	Dial       DialFunc
	Clock      helpers.Clock
	Log        *log2.Log
}

func OptionsFromConfig(c *config.Config, log *log2.Log) Options {
	return Options{
		Server:     c.Network.Server,
		Attempts:   c.Network.ConnectAttempts,
		Wait:       c.ConnectWait(),
		Backoff:    c.Network.ConnectBackoff,
		MaxWait:    c.ConnectWaitMax(),
		Timeout:    c.NetworkTimeout(),
		Associator: NewAssociator(c, log),
		Log:        log,
	}
}

type Stat struct {
	Connects expvar.Int
	Attempts expvar.Int
	Failures expvar.Int
	Drops    expvar.Int
}

type Manager struct {
	Stat Stat

	mu        sync.Mutex
	opt       Options
	conn      net.Conn
	state     int32 // State
	attempts  int
	connected atomic_clock.Clock
	closed    bool
}

func NewManager(opt Options) *Manager {
	if opt.Attempts <= 0 {
		opt.Attempts = config.DefaultConnectAttempts
	}
	if opt.MaxWait == 0 {
		opt.MaxWait = config.DefaultConnectWaitMax
	}
	if opt.MaxWait < opt.Wait {
		opt.MaxWait = opt.Wait
	}
	if opt.Associator == nil {
		opt.Associator = NopAssociator{}
	}
	if opt.Dial == nil {
		d := &net.Dialer{}
		opt.Dial = d.DialContext
	}
	if opt.Clock == nil {
		opt.Clock = helpers.SystemClock{}
	}
	return &Manager{opt: opt}
}

func (m *Manager) State() State { return State(atomic.LoadInt32(&m.state)) }

func (m *Manager) setState(s State) {
	old := State(atomic.SwapInt32(&m.state, int32(s)))
	if old != s {
		m.opt.Log.Debugf("link state %s -> %s", old, s)
	}
}

// Attempts made by the last connect sequence.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// SinceConnected is zero when not connected.
func (m *Manager) SinceConnected() time.Duration {
	if m.State() != Connected || m.connected.IsZero() {
		return 0
	}
	return time.Duration(m.opt.Clock.Now().UnixNano() - m.connected.UnixNano())
}

// Connect runs bounded connect sequence: up to Attempts of associate+dial,
// waiting between attempts but not after the last one.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connect(ctx)
}

func (m *Manager) connect(ctx context.Context) error {
	if m.closed {
		return ErrClosed
	}
	m.closeConn()
	m.setState(Connecting)
	m.attempts = 0
	backoff := helpers.Backoff{Min: m.opt.Wait, Max: m.opt.MaxWait, K: m.opt.Backoff}
	var lastErr error
	for attempt := 1; attempt <= m.opt.Attempts; attempt++ {
		m.attempts = attempt
		m.Stat.Attempts.Add(1)
		conn, err := m.attempt(ctx)
		if err == nil {
			m.conn = conn
			m.connected.Set(m.opt.Clock.Now().UnixNano())
			m.Stat.Connects.Add(1)
			m.setState(Connected)
			m.opt.Log.Infof("link connected server=%s attempt=%d", m.opt.Server, attempt)
			return nil
		}
		lastErr = err
		m.opt.Log.Infof("link connect attempt=%d/%d server=%s err=%v", attempt, m.opt.Attempts, m.opt.Server, err)
		if attempt == m.opt.Attempts {
			break
		}
		if err = m.opt.Clock.Sleep(ctx, backoff.Next()); err != nil {
			m.setState(Disconnected)
			return errors.Annotate(err, "link connect")
		}
	}
	m.Stat.Failures.Add(1)
	m.setState(Failed)
	return errors.Wrapf(lastErr, ErrConnectFailed, "link attempts=%d last=%v", m.attempts, lastErr)
}

func (m *Manager) attempt(ctx context.Context) (net.Conn, error) {
	if m.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opt.Timeout)
		defer cancel()
	}
	if err := m.opt.Associator.Associate(ctx); err != nil {
		return nil, errors.Annotate(err, "associate")
	}
	conn, err := m.opt.Dial(ctx, "tcp", m.opt.Server)
	if err != nil {
		return nil, errors.Annotate(err, "dial")
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
		_ = tcp.SetLinger(0)
	}
	return conn, nil
}

// EnsureConnected returns current connection or runs connect sequence.
func (m *Manager) EnsureConnected(ctx context.Context) (net.Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.State() == Connected && m.conn != nil {
		return m.conn, nil
	}
	if err := m.connect(ctx); err != nil {
		return nil, err
	}
	return m.conn, nil
}

// Drop closes connection after transmission error.
func (m *Manager) Drop(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return
	}
	m.Stat.Drops.Add(1)
	m.opt.Log.Infof("link drop server=%s err=%v", m.opt.Server, err)
	m.closeConn()
	m.setState(Disconnected)
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	err := m.closeConn()
	m.setState(Disconnected)
	return err
}

func (m *Manager) closeConn() error {
	if m.conn == nil {
		return nil
	}
	err := m.conn.Close()
	m.conn = nil
	m.connected.Set(0)
	return err
}
