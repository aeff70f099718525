package collector

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/temoto/sensorlink/helpers"
	"github.com/temoto/sensorlink/internal/config"
	"github.com/temoto/sensorlink/log2"
	"github.com/temoto/sensorlink/wire"
)

var t0 = time.Date(2020, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t testing.TB) *Store {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	require.NoError(t, err)
	s := NewStore(db)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestCollector(t testing.TB) *Collector {
	log := log2.NewTest(t, log2.LDebug)
	return New(Options{
		Store:    newTestStore(t),
		Registry: NewRegistry("", log),
		Clock:    helpers.NewManualClock(t0),
		Log:      log,
	})
}

func testBatch(device string, boot uint64, seq uint32, values ...float64) *wire.Batch {
	b := &wire.Batch{
		Version:  wire.Version,
		DeviceId: device,
		Boot:     boot,
		Seq:      seq,
		Sensor:   "vibration",
	}
	for i, v := range values {
		b.Samples = append(b.Samples, &wire.Sample{TimeMs: wire.TimeMs(t0) + int64(i)*100, Value: v})
	}
	return b
}

func TestIngest(t *testing.T) {
	t.Parallel()
	c := newTestCollector(t)

	ack := c.Ingest(testBatch("dev1", 7, 1, 0.1, 0.2))
	assert.Equal(t, &wire.Ack{Seq: 1, Accepted: 2}, ack)

	// retransmit after lost ack
	ack = c.Ingest(testBatch("dev1", 7, 1, 0.1, 0.2))
	assert.Equal(t, &wire.Ack{Seq: 1, Duplicate: true}, ack)

	ack = c.Ingest(testBatch("dev1", 7, 2, 0.3))
	assert.Equal(t, &wire.Ack{Seq: 2, Accepted: 1}, ack)

	// device rebooted, seq starts over
	ack = c.Ingest(testBatch("dev1", 9, 1, 0.4))
	assert.Equal(t, &wire.Ack{Seq: 1, Accepted: 1}, ack)

	bad := testBatch("dev1", 9, 2, 0.5)
	bad.Version = 2
	ack = c.Ingest(bad)
	assert.Equal(t, uint32(2), ack.Seq)
	assert.Contains(t, ack.Error, "not supported")

	rs, err := c.Store().Last("dev1", 10)
	require.NoError(t, err)
	values := make([]float64, len(rs))
	for i, r := range rs {
		values[i] = r.Value
		assert.Equal(t, "vibration", r.Sensor)
		assert.Equal(t, t0, r.Received.UTC())
	}
	assert.Equal(t, []float64{0.1, 0.3, 0.4, 0.2}, values, "ordered by reading time")
	assert.Equal(t, int64(3), c.Stat.Batches.Value())
	assert.Equal(t, int64(1), c.Stat.Duplicates.Value())
	assert.Equal(t, int64(1), c.Stat.Errors.Value())

	st, ok := c.Registry().Get("dev1")
	require.True(t, ok)
	assert.Equal(t, uint64(9), st.Boot)
	assert.Equal(t, uint32(1), st.Seq)
	assert.Equal(t, uint64(3), st.Batches)
	assert.Equal(t, t0, c.Registry().LastSeen().UTC())
}

func TestIngestRecord(t *testing.T) {
	t.Parallel()
	c := newTestCollector(t)
	require.NoError(t, c.IngestRecord(wire.Record{
		wire.LineKeyDevice: "aa:bb",
		"vibration":        0.25,
		wire.LineKeyTime:   wire.TimeMs(t0.Add(-time.Second)),
	}))
	err := c.IngestRecord(wire.Record{"vibration": int64(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid")

	rs, err := c.Store().Last("aa:bb", 5)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, 0.25, rs[0].Value)
	assert.Equal(t, t0.Add(-time.Second), rs[0].Time.UTC())
	assert.Equal(t, int64(1), c.Stat.Records.Value())
}

func TestReadingFromRecord(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		rec    wire.Record
		expect Reading
		err    string
	}{
		{"no-device", wire.Record{"x": int64(1)}, Reading{}, "not valid"},
		{"received-time", wire.Record{wire.LineKeyDevice: "d", "vibration": 0.5},
			Reading{Device: "d", Sensor: "vibration", Time: t0, Value: 0.5, Received: t0}, ""},
		{"int-value", wire.Record{wire.LineKeyDevice: "d", "count": int64(3), wire.LineKeyTime: int64(1000)},
			Reading{Device: "d", Sensor: "count", Time: time.Unix(1, 0), Value: 3, Received: t0}, ""},
		{"extra", wire.Record{wire.LineKeyDevice: "d", "a": "text", "b": 1.5, "c": 2.5, wire.LineKeyReceived: 1.0},
			Reading{Device: "d", Sensor: "b", Time: t0, Value: 1.5, Received: t0,
				Extra: map[string]interface{}{"a": "text", "c": 2.5}}, ""},
		{"no-numeric", wire.Record{wire.LineKeyDevice: "d", "status": "ok"},
			Reading{Device: "d", Time: t0, Received: t0, Extra: map[string]interface{}{"status": "ok"}}, ""},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			r, err := ReadingFromRecord(c.rec, t0)
			if c.err != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), c.err)
				return
			}
			require.NoError(t, err)
			assert.True(t, c.expect.Time.Equal(r.Time), "time expected=%v actual=%v", c.expect.Time, r.Time)
			r.Time = c.expect.Time
			assert.Equal(t, c.expect, r)
		})
	}
}

func TestReadingsFromBatchNonFinite(t *testing.T) {
	t.Parallel()
	rs := ReadingsFromBatch(testBatch("d", 1, 1, 1.5, math.NaN(), math.Inf(-1)), t0)
	require.Len(t, rs, 3)
	assert.Nil(t, rs[0].Extra)
	assert.Equal(t, map[string]interface{}{"raw": "NaN"}, rs[1].Extra)
	assert.Equal(t, map[string]interface{}{"raw": "-Inf"}, rs[2].Extra)

	s := newTestStore(t)
	require.NoError(t, s.Put(rs...))
}

func TestStore(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	put := func(dev string, sec int, v float64) {
		require.NoError(t, s.Put(Reading{Device: dev, Sensor: "x", Time: t0.Add(time.Duration(sec) * time.Second), Value: v, Received: t0}))
	}
	put("dev2", 1, 21)
	put("dev1", 3, 13)
	put("dev1", 1, 11)
	put("dev10", 1, 101)
	put("dev1", 2, 12)
	put("dev1", 2, 12.5)

	ds, err := s.Devices()
	require.NoError(t, err)
	assert.Equal(t, []string{"dev1", "dev10", "dev2"}, ds)

	rs, err := s.Last("dev1", 3)
	require.NoError(t, err)
	require.Len(t, rs, 3)
	assert.Equal(t, []float64{12, 12.5, 13}, []float64{rs[0].Value, rs[1].Value, rs[2].Value})

	rs, err = s.Last("dev1", 100)
	require.NoError(t, err)
	assert.Len(t, rs, 4)
	rs, err = s.Last("nope", 5)
	require.NoError(t, err)
	assert.Len(t, rs, 0)

	assert.Error(t, s.Put(Reading{Device: "a/b"}))
	_, err = s.Last("", 1)
	assert.Error(t, err)
}

func TestRegistryPersist(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	log := log2.NewTest(t, log2.LDebug)

	r := NewRegistry(dir, log)
	require.NoError(t, r.Load())
	assert.Len(t, r.Devices(), 0)
	assert.True(t, r.LastSeen().IsZero())
	require.NoError(t, r.Commit("dev1", 5, 3, t0))
	require.NoError(t, r.Commit("dev0", 1, 1, t0))

	r2 := NewRegistry(dir, log)
	require.NoError(t, r2.Load())
	assert.Equal(t, []string{"dev0", "dev1"}, r2.Devices())
	assert.True(t, r2.IsDuplicate("dev1", 5, 3))
	assert.True(t, r2.IsDuplicate("dev1", 5, 2))
	assert.False(t, r2.IsDuplicate("dev1", 5, 4))
	assert.False(t, r2.IsDuplicate("dev1", 6, 1))
	assert.False(t, r2.IsDuplicate("dev2", 5, 1))
}

func TestCollectorStatString(t *testing.T) {
	t.Parallel()
	var s Stat
	s.Batches.Add(2)
	s.BadLines.Add(1)
	assert.Equal(t, `{"conn":0,"batches":2,"duplicates":0,"records":0,"readings":0,"bad_lines":1,"errors":0,"recv_bytes":0,"sent_bytes":0}`, s.String())
}

func TestOpenPersistent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	log := log2.NewTest(t, log2.LDebug)
	cfg := config.Default()
	cfg.Collector.DBPath = filepath.Join(dir, "db")
	cfg.Collector.RegistryPath = filepath.Join(dir, "registry")

	c, err := Open(cfg, log)
	require.NoError(t, err)
	assert.Nil(t, c.Forwarder())
	assert.Equal(t, uint32(2), c.Ingest(testBatch("dev1", 9, 1, 0.5, 0.6)).Accepted)
	require.NoError(t, c.Close())

	// readings and retransmit detection survive restart
	c, err = Open(cfg, log)
	require.NoError(t, err)
	defer c.Close()
	assert.True(t, c.Ingest(testBatch("dev1", 9, 1, 0.5, 0.6)).Duplicate)
	rs, err := c.Store().Last("dev1", 10)
	require.NoError(t, err)
	assert.Len(t, rs, 2)
	st, ok := c.Registry().Get("dev1")
	require.True(t, ok)
	assert.Equal(t, uint64(1), st.Batches)
}
