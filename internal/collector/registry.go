package collector

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/extremofile"
	"github.com/temoto/sensorlink/helpers"
	"github.com/temoto/sensorlink/helpers/atomic_clock"
	"github.com/temoto/sensorlink/log2"
)

// DeviceState is the last accepted batch position of a device.
type DeviceState struct {
	Boot     uint64    `json:"boot"`
	Seq      uint32    `json:"seq"`
	LastSeen time.Time `json:"last_seen"`
	Batches  uint64    `json:"batches"`
}

type registryStorage interface {
	Read() ([]byte, error)
	io.Writer
}

// Registry tracks devices to drop retransmitted batches.
// With empty path it lives in memory only.
type Registry struct {
	sync.Mutex
	log     *log2.Log
	m       map[string]DeviceState
	seen    atomic_clock.Clock
	storage registryStorage
	size    int
}

func NewRegistry(path string, log *log2.Log) *Registry {
	r := &Registry{
		log: log,
		m:   make(map[string]DeviceState),
	}
	if path != "" {
		r.storage = extremofile.New(extremofile.Config{
			Dir:      path,
			DirPerm:  0755,
			FilePerm: 0644,
		})
	}
	return r
}

func (r *Registry) Load() error {
	if r.storage == nil {
		return nil
	}
	r.Lock()
	defer r.Unlock()
	b, err := r.storage.Read()
	if b != nil {
		if err != nil {
			r.log.Errorf("registry ignore non-critical storage err=%v", err)
		}
		r.size = len(b)
		m := make(map[string]DeviceState)
		if err = json.Unmarshal(b, &m); err == nil {
			r.m = m
		}
	}
	return errors.Annotate(err, "registry load")
}

// IsDuplicate reports batch already accepted from the same device boot.
func (r *Registry) IsDuplicate(device string, boot uint64, seq uint32) bool {
	r.Lock()
	defer r.Unlock()
	st, ok := r.m[device]
	return ok && st.Boot == boot && seq <= st.Seq
}

// Commit records accepted batch and persists the table.
func (r *Registry) Commit(device string, boot uint64, seq uint32, now time.Time) error {
	r.seen.SetTime(now)
	return helpers.WithLockError(r, func() error {
		st := r.m[device]
		st.Boot = boot
		st.Seq = seq
		st.LastSeen = now
		st.Batches++
		r.m[device] = st
		return r.store()
	})
}

func (r *Registry) Get(device string) (DeviceState, bool) {
	r.Lock()
	defer r.Unlock()
	st, ok := r.m[device]
	return st, ok
}

func (r *Registry) Devices() []string {
	r.Lock()
	defer r.Unlock()
	ds := make([]string, 0, len(r.m))
	for d := range r.m {
		ds = append(ds, d)
	}
	sort.Strings(ds)
	return ds
}

// LastSeen is the time of last committed batch from any device.
func (r *Registry) LastSeen() time.Time {
	return r.seen.Time()
}

// r.Mutex must be held
func (r *Registry) store() error {
	if r.storage == nil {
		return nil
	}
	b, err := json.Marshal(r.m)
	if err != nil {
		return errors.Annotate(err, "registry marshal")
	}
	// storage file is overwritten in place without truncate, JSON allows trailing space
	if len(b) < r.size {
		b = append(b, bytes.Repeat([]byte{' '}, r.size-len(b))...)
	}
	r.size = len(b)
	if _, err = r.storage.Write(b); err != nil {
		if !extremofile.IsCritical(err) {
			r.log.Errorf("registry ignore non-critical storage err=%v", err)
			return nil
		}
		return errors.Annotate(err, "registry store")
	}
	return nil
}
