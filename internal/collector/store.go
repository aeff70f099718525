package collector

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/temoto/sensorlink/wire"
)

const storePrefix = "r/"

// Store keeps readings in LevelDB under keys r/<device>/<unix-ms hex>/<n>.
// Keys of one device sort by reading time.
type Store struct {
	db   *leveldb.DB
	next uint64
}

func OpenStore(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, errors.Annotatef(err, "store open path=%s", path)
	}
	return NewStore(db), nil
}

// NewStore takes ownership of db.
func NewStore(db *leveldb.DB) *Store {
	return &Store{db: db, next: uint64(time.Now().UnixNano())}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Put(rs ...Reading) error {
	batch := new(leveldb.Batch)
	for i := range rs {
		r := &rs[i]
		if err := checkDevice(r.Device); err != nil {
			return err
		}
		v, err := json.Marshal(r)
		if err != nil {
			return errors.Annotatef(err, "store marshal device=%s", r.Device)
		}
		batch.Put(s.key(r), v)
	}
	return errors.Annotate(s.db.Write(batch, nil), "store write")
}

// Devices returns sorted list of devices with at least one reading.
func (s *Store) Devices() ([]string, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(storePrefix)), nil)
	defer iter.Release()
	ds := make([]string, 0, 8)
	for ok := iter.First(); ok; {
		rest := string(iter.Key()[len(storePrefix):])
		idx := strings.IndexByte(rest, '/')
		if idx <= 0 {
			ok = iter.Next()
			continue
		}
		dev := rest[:idx]
		ds = append(ds, dev)
		// '0' follows '/', seek past every key of this device
		ok = iter.Seek([]byte(storePrefix + dev + "0"))
	}
	return ds, errors.Annotate(iter.Error(), "store devices")
}

// Last returns up to n latest readings of device, oldest first.
func (s *Store) Last(device string, n int) ([]Reading, error) {
	if err := checkDevice(device); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}
	iter := s.db.NewIterator(util.BytesPrefix([]byte(storePrefix+device+"/")), nil)
	defer iter.Release()
	rs := make([]Reading, 0, n)
	for ok := iter.Last(); ok && len(rs) < n; ok = iter.Prev() {
		var r Reading
		if err := json.Unmarshal(iter.Value(), &r); err != nil {
			return nil, errors.Annotatef(err, "store key=%s", iter.Key())
		}
		rs = append(rs, r)
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Annotate(err, "store last")
	}
	for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
		rs[i], rs[j] = rs[j], rs[i]
	}
	return rs, nil
}

func (s *Store) key(r *Reading) []byte {
	n := atomic.AddUint64(&s.next, 1)
	return []byte(fmt.Sprintf("%s%s/%016x/%016x", storePrefix, r.Device, uint64(wire.TimeMs(r.Time)), n))
}

func checkDevice(d string) error {
	if d == "" || strings.ContainsAny(d, "/\x00") {
		return errors.NotValidf("device=%q", d)
	}
	return nil
}
