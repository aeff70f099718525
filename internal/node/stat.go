package node

import (
	"expvar"
	"fmt"
)

// Stat is node summary, safe to publish with expvar.Publish.
type Stat struct {
	Samples         expvar.Int
	Dropped         expvar.Int
	SensorErrors    expvar.Int
	Batches         expvar.Int
	SendErrors      expvar.Int
	ConnectFailures expvar.Int
}

var _ expvar.Var = &Stat{}

func (s *Stat) String() string {
	return fmt.Sprintf(`{"samples":%d,"dropped":%d,"sensor_errors":%d,"batches":%d,"send_errors":%d,"connect_failures":%d}`,
		s.Samples.Value(), s.Dropped.Value(), s.SensorErrors.Value(),
		s.Batches.Value(), s.SendErrors.Value(), s.ConnectFailures.Value())
}
