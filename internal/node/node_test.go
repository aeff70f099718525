package node

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/sensorlink/helpers"
	"github.com/temoto/sensorlink/internal/config"
	"github.com/temoto/sensorlink/internal/indicator"
	"github.com/temoto/sensorlink/internal/sensor"
	"github.com/temoto/sensorlink/log2"
	"github.com/temoto/sensorlink/wire"
)

type okTx struct {
	sync.Mutex
	batches []*wire.Batch
}

func (t *okTx) Send(ctx context.Context, conn net.Conn, b *wire.Batch) error {
	t.Lock()
	t.batches = append(t.batches, b)
	t.Unlock()
	return nil
}

func pipeDial(ctx context.Context, network, address string) (net.Conn, error) {
	local, _ := net.Pipe()
	return local, nil
}

func failDial(ctx context.Context, network, address string) (net.Conn, error) {
	return nil, fmt.Errorf("no route to host")
}

func testConfig() *config.Config {
	c := config.Default()
	c.Sampling.MaxRateHz = 10
	c.Upload.SendPeriodSec = 2
	c.Indicator.BlinkPeriodMs = 500
	c.Network.ConnectAttempts = 2
	c.Network.ConnectWaitMs = 1
	return c
}

func newTestNode(t testing.TB, dial func(context.Context, string, string) (net.Conn, error), tx *okTx) (*Node, *helpers.ManualClock) {
	clock := helpers.NewManualClock(time.Unix(1600000000, 0))
	opt := Options{
		Config:   testConfig(),
		DeviceID: "dev1",
		Sensor:   sensor.NewMock("vibration", func(n int) (float64, error) { return float64(n), nil }),
		Output:   indicator.NopOutput{},
		Clock:    clock,
		Dial:     dial,
		Log:      log2.NewTest(t, log2.LDebug),
	}
	if tx != nil {
		opt.Tx = tx
	}
	n, err := New(opt)
	require.NoError(t, err)
	return n, clock
}

func runSteps(n *Node, clock *helpers.ManualClock, d time.Duration) {
	ctx := context.Background()
	for elapsed := time.Duration(0); elapsed < d; elapsed += 10 * time.Millisecond {
		clock.Advance(10 * time.Millisecond)
		n.Step(ctx)
	}
}

func TestStepOnline(t *testing.T) {
	t.Parallel()
	tx := &okTx{}
	n, clock := newTestNode(t, pipeDial, tx)
	runSteps(n, clock, 5*time.Second)

	require.Len(t, tx.batches, 2)
	assert.Len(t, tx.batches[0].Samples, 20)
	assert.Len(t, tx.batches[1].Samples, 20)
	assert.Equal(t, float64(20), tx.batches[1].Samples[0].Value)
	assert.Equal(t, 10, n.Sampler.Buffer.Len())
	assert.Equal(t, int64(50), n.Sampler.Stat.Samples.Value())
	assert.Equal(t, 10, n.Indicator.Toggles())
	assert.Equal(t, int64(2), n.Stat.Batches.Value())
	assert.Equal(t, int64(40), n.Stat.Samples.Value())
	assert.NoError(t, n.Close())
}

func TestStepOffline(t *testing.T) {
	t.Parallel()
	n, clock := newTestNode(t, failDial, nil)
	runSteps(n, clock, 5*time.Second)

	// sampling and blinking go on, nothing is lost
	assert.InDelta(t, 50, n.Sampler.Buffer.Len(), 1)
	assert.Equal(t, int64(0), n.Sampler.Stat.Dropped.Value())
	assert.InDelta(t, 10, n.Indicator.Toggles(), 1)
	assert.Equal(t, 2, n.Link.Attempts())
	assert.Equal(t, int64(2), n.Stat.ConnectFailures.Value())
	assert.Equal(t, int64(2), n.Stat.SendErrors.Value())
	assert.Contains(t, n.Stat.String(), `"connect_failures":2`)
	assert.NoError(t, n.Close())
}

func TestRunStop(t *testing.T) {
	t.Parallel()
	tx := &okTx{}
	n, _ := newTestNode(t, pipeDial, tx)
	done := make(chan error, 1)
	go func() { done <- n.Run(context.Background()) }()
	require.Eventually(t, func() bool {
		tx.Lock()
		defer tx.Unlock()
		return len(tx.batches) >= 2
	}, 5*time.Second, time.Millisecond)
	n.Stop()
	assert.NoError(t, <-done)
	assert.Equal(t, ErrStopping, n.Run(context.Background()))
	assert.NoError(t, n.Close())
}

func TestRunContextCancel(t *testing.T) {
	t.Parallel()
	n, _ := newTestNode(t, failDial, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()
	require.Eventually(t, func() bool { return n.Sampler.Stat.Samples.Value() > 0 }, 5*time.Second, time.Millisecond)
	cancel()
	assert.Equal(t, context.Canceled, <-done)
	assert.NoError(t, n.Close())
}

func TestNewValidate(t *testing.T) {
	t.Parallel()
	_, err := New(Options{Config: testConfig(), Sensor: sensor.NewMock("x", nil), Output: indicator.NopOutput{}})
	assert.Error(t, err)
}
