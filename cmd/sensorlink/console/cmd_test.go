package console

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/temoto/sensorlink/helpers/cli"
	"github.com/temoto/sensorlink/internal/collector"
	"github.com/temoto/sensorlink/log2"
)

func TestConsole(t *testing.T) {
	t.Parallel()
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	require.NoError(t, err)
	store := collector.NewStore(db)
	defer store.Close()
	registry := collector.NewRegistry("", log2.NewTest(t, log2.LDebug))

	t0 := time.Date(2020, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Put(collector.Reading{
			Device: "dev1", Sensor: "vibration", Time: t0.Add(time.Duration(i) * time.Second), Value: float64(i) / 2,
		}))
	}
	require.NoError(t, store.Put(collector.Reading{Device: "dev2", Sensor: "level", Time: t0, Value: 1}))
	require.NoError(t, registry.Commit("dev1", 0xab, 4, t0))

	cases := []struct {
		name   string
		input  string
		expect string
	}{
		{"devices", "devices", "dev1\tboot=ab seq=4 batches=1 last_seen=2020-03-01T12:00:00Z\ndev2\n"},
		{"last", "last dev1 2",
			"2020-03-01T12:00:01Z\tdev1\tvibration\t0.5\n2020-03-01T12:00:02Z\tdev1\tvibration\t1\n"},
		{"last-default", "last dev2", "2020-03-01T12:00:00Z\tdev2\tlevel\t1\n"},
		{"last-syntax", "last", "error: syntax: last DEVICE [N] not valid\n"},
		{"last-n", "last dev1 x", "error: N=x not valid\n"},
		{"unknown", "drop", "error: command=drop, try help not supported\n"},
		{"help", "help", usage},
		{"script", "\n  \nlast dev2 1\n", "2020-03-01T12:00:00Z\tdev2\tlevel\t1\n"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			buf := bytes.NewBuffer(nil)
			con := &Console{Store: store, Registry: registry, W: buf}
			cli.ExecReader(strings.NewReader(c.input), con.Exec)
			assert.Equal(t, c.expect, buf.String())
		})
	}
}
