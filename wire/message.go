package wire

import (
	"time"

	"github.com/juju/errors"
)

//go:generate protoc --go_out=paths=source_relative:./ telemetry.proto

// Version of Batch payload format.
const Version uint32 = 1

// Worst case encoded sizes, used to bound batch length so a Batch frame
// never exceeds MaxLength or collector read_limit.
const (
	// StringMax is the longest device id or sensor name carried in Batch.
	StringMax = 128
	// SampleSizeMax is one Batch.samples element: tag, length, time_ms (negative varint), value.
	SampleSizeMax = 1 + 1 + (1 + 10) + (1 + 8)
	// BatchHeaderMax is all Batch fields except samples.
	BatchHeaderMax   = (1 + 5) + 2*(1+2+StringMax) + (1 + 10) + (1 + 5) + (1 + 10) + (1 + 10)
	frameOverheadMax = HeaderFixed + 2
)

// MaxBatchSamples returns largest number of samples per Batch
// which always fits into frame of frameLimit bytes.
func MaxBatchSamples(frameLimit int) int {
	n := (frameLimit - frameOverheadMax - BatchHeaderMax) / SampleSizeMax
	if n < 0 {
		return 0
	}
	return n
}

func (m *Sample) Time() time.Time { return time.Unix(0, m.TimeMs*int64(time.Millisecond)) }

func (m *Batch) Validate() error {
	if m.Version != Version {
		return errors.NotSupportedf("batch version=%d", m.Version)
	}
	if m.DeviceId == "" {
		return errors.NotValidf("batch device_id=empty")
	}
	return nil
}

func TimeMs(t time.Time) int64 { return t.UnixNano() / int64(time.Millisecond) }
