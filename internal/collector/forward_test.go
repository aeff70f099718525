package collector

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/sensorlink/log2"
	"github.com/temoto/spq"
)

type published struct {
	topic   string
	payload []byte
}

type fakePublisher struct {
	sync.Mutex
	fail   int
	ch     chan published
	closed bool
}

func (p *fakePublisher) Publish(topic string, payload []byte) error {
	p.Lock()
	defer p.Unlock()
	if p.fail > 0 {
		p.fail--
		return fmt.Errorf("broker unavailable")
	}
	p.ch <- published{topic, append([]byte(nil), payload...)}
	return nil
}

func (p *fakePublisher) Close() {
	p.Lock()
	p.closed = true
	p.Unlock()
}

func newTestForwarder(t testing.TB, pub Publisher) *Forwarder {
	q, err := spq.Open(spq.OnlyForTesting)
	require.NoError(t, err)
	f := NewForwarder(q, pub, "sensorlink", log2.NewTest(t, log2.LDebug))
	f.retry = time.Millisecond
	return f
}

func TestForwarder(t *testing.T) {
	t.Parallel()
	pub := &fakePublisher{fail: 2, ch: make(chan published, 16)}
	f := newTestForwarder(t, pub)
	require.NoError(t, f.Start())

	require.NoError(t, f.Enqueue(
		Reading{Device: "dev1", Sensor: "vibration", Time: t0, Value: 0.5, Received: t0},
		Reading{Device: "dev2", Sensor: "vibration", Time: t0, Value: 0.7, Received: t0},
	))
	got := make(map[string]Reading)
	for i := 0; i < 2; i++ {
		select {
		case p := <-pub.ch:
			var r Reading
			require.NoError(t, json.Unmarshal(p.payload, &r))
			got[p.topic] = r
		case <-time.After(5 * time.Second):
			t.Fatal("publish timeout")
		}
	}
	assert.Equal(t, 0.5, got["sensorlink/dev1"].Value)
	assert.Equal(t, 0.7, got["sensorlink/dev2"].Value)
	require.Eventually(t, func() bool { return f.Published.Value() == 2 }, 5*time.Second, time.Millisecond)
	assert.Equal(t, int64(2), f.Failed.Value())

	require.NoError(t, f.Close())
	assert.True(t, pub.closed)
	assert.Error(t, f.Start())
}

func TestForwarderDropsInvalid(t *testing.T) {
	t.Parallel()
	pub := &fakePublisher{ch: make(chan published, 16)}
	f := newTestForwarder(t, pub)
	require.NoError(t, f.q.Push([]byte("not json")))
	require.NoError(t, f.Enqueue(Reading{Device: "dev1", Value: 1}))
	require.NoError(t, f.Start())
	defer f.Close()

	select {
	case p := <-pub.ch:
		assert.Equal(t, "sensorlink/dev1", p.topic)
	case <-time.After(5 * time.Second):
		t.Fatal("publish timeout")
	}
	require.Eventually(t, func() bool { return f.Failed.Value() == 1 }, 5*time.Second, time.Millisecond)
}

func TestCollectorForwards(t *testing.T) {
	t.Parallel()
	pub := &fakePublisher{ch: make(chan published, 16)}
	f := newTestForwarder(t, pub)
	require.NoError(t, f.Start())
	c := newTestCollector(t)
	c.forward = f
	defer c.Close()

	ack := c.Ingest(testBatch("dev9", 1, 1, 0.25))
	assert.Equal(t, uint32(1), ack.Accepted)
	select {
	case p := <-pub.ch:
		assert.Equal(t, "sensorlink/dev9", p.topic)
	case <-time.After(5 * time.Second):
		t.Fatal("publish timeout")
	}
}
