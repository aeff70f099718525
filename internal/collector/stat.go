package collector

// Values are read and modified atomically, but not consistently.

import (
	"expvar"
	"fmt"
)

type Stat struct {
	Conn       expvar.Int
	Batches    expvar.Int
	Duplicates expvar.Int
	Records    expvar.Int
	Readings   expvar.Int
	BadLines   expvar.Int
	Errors     expvar.Int
	RecvBytes  expvar.Int
	SentBytes  expvar.Int
}

var _ expvar.Var = &Stat{} // compile-time interface test

func (s *Stat) String() string {
	return fmt.Sprintf(`{"conn":%d,"batches":%d,"duplicates":%d,"records":%d,"readings":%d,"bad_lines":%d,"errors":%d,"recv_bytes":%d,"sent_bytes":%d}`,
		s.Conn.Value(), s.Batches.Value(), s.Duplicates.Value(), s.Records.Value(),
		s.Readings.Value(), s.BadLines.Value(), s.Errors.Value(), s.RecvBytes.Value(), s.SentBytes.Value())
}
