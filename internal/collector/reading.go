package collector

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/sensorlink/wire"
)

// Reading is one stored sensor value, from either protocol.
type Reading struct {
	Device   string                 `json:"device"`
	Sensor   string                 `json:"sensor"`
	Time     time.Time              `json:"time"`
	Value    float64                `json:"value"`
	Received time.Time              `json:"received"`
	Extra    map[string]interface{} `json:"extra,omitempty"`
}

// ReadingsFromBatch expands batch samples. JSON has no NaN or Inf,
// such values are kept as string in Extra["raw"] with Value=0.
func ReadingsFromBatch(b *wire.Batch, received time.Time) []Reading {
	rs := make([]Reading, 0, len(b.Samples))
	for _, s := range b.Samples {
		if s == nil {
			continue
		}
		r := Reading{
			Device:   b.DeviceId,
			Sensor:   b.Sensor,
			Time:     s.Time(),
			Value:    s.Value,
			Received: received,
		}
		if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
			r.Value = 0
			r.Extra = map[string]interface{}{"raw": strconv.FormatFloat(s.Value, 'g', -1, 64)}
		}
		rs = append(rs, r)
	}
	return rs
}

// ReadingFromRecord maps legacy line record.
// First numeric key in sorted order becomes sensor/value, other keys go to Extra.
func ReadingFromRecord(rec wire.Record, received time.Time) (Reading, error) {
	r := Reading{
		Device:   rec.String(wire.LineKeyDevice),
		Time:     received,
		Received: received,
	}
	if r.Device == "" {
		return r, errors.NotValidf("record without %q", wire.LineKeyDevice)
	}
	if ms, ok := rec[wire.LineKeyTime].(int64); ok {
		r.Time = time.Unix(0, ms*int64(time.Millisecond))
	}

	keys := make([]string, 0, len(rec))
	for k := range rec {
		switch k {
		case wire.LineKeyDevice, wire.LineKeyTime, wire.LineKeyReceived:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := rec[k]
		if r.Sensor == "" {
			switch x := v.(type) {
			case int64:
				r.Sensor, r.Value = k, float64(x)
				continue
			case float64:
				r.Sensor, r.Value = k, x
				continue
			}
		}
		if r.Extra == nil {
			r.Extra = make(map[string]interface{})
		}
		r.Extra[k] = v
	}
	return r, nil
}
