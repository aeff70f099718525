package collector

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/sensorlink/helpers"
	"github.com/temoto/sensorlink/log2"
	"github.com/temoto/sensorlink/wire"
)

const DefaultNetworkTimeout = 30 * time.Second

type ServerOptions struct {
	Collector      *Collector
	Log            *log2.Log
	NetworkTimeout time.Duration
	ReadLimit      uint16
}

// Server accepts both protocols on each listener, telling them apart by first bytes.
type Server struct {
	alive     *alive.Alive
	acceptErr helpers.AtomicError
	c         *Collector
	listens   struct {
		sync.RWMutex
		m map[string]net.Listener
	}
	log       *log2.Log
	readLimit uint16
	timeout   time.Duration
}

func NewServer(opt ServerOptions) *Server {
	s := &Server{
		alive:     alive.NewAlive(),
		c:         opt.Collector,
		log:       opt.Log,
		readLimit: opt.ReadLimit,
		timeout:   opt.NetworkTimeout,
	}
	if s.timeout == 0 {
		s.timeout = DefaultNetworkTimeout
	}
	s.listens.m = make(map[string]net.Listener)
	return s
}

func (s *Server) Addrs() []string {
	s.listens.RLock()
	defer s.listens.RUnlock()
	addrs := make([]string, 0, len(s.listens.m))
	for _, l := range s.listens.m {
		addrs = append(addrs, l.Addr().String())
	}
	return addrs
}

// Listen accepts tcp://host:port and unix:///path URLs.
func (s *Server) Listen(ctx context.Context, urls []string) error {
	s.listens.Lock()
	defer s.listens.Unlock()

	if !s.alive.Add(len(urls)) {
		return errors.Errorf("Listen after Close")
	}
	errs := make([]error, 0)
	for _, u := range urls {
		s.log.Debugf("listen url=%s timeout=%v", u, s.timeout)
		if err := s.listenStream(ctx, u); err != nil {
			s.alive.Done()
			errs = append(errs, errors.Annotatef(err, "listenStream %s", u))
		}
	}
	return helpers.FoldErrors(errs)
}

// Close returns listener close errors and first accept error, if any.
func (s *Server) Close() error {
	s.alive.Stop()
	errs := make([]error, 0)
	helpers.WithLock(&s.listens, func() {
		for _, ll := range s.listens.m {
			if err := ll.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	s.alive.Wait()
	if err, ok := s.acceptErr.Load(); ok {
		errs = append(errs, err)
	}
	return helpers.FoldErrors(errs)
}

func (s *Server) listenStream(ctx context.Context, u string) error {
	scheme, address, err := parseURI(u)
	if err != nil {
		return errors.Annotate(err, "parse url")
	}
	var ll net.Listener
	switch scheme {
	case "tcp", "unix":
		var lc net.ListenConfig
		if ll, err = lc.Listen(ctx, scheme, address); err != nil {
			return errors.Annotatef(err, "net.Listen network=%s address=%s", scheme, address)
		}
	default:
		return errors.NotSupportedf("listen url=%s", u)
	}
	s.listens.m[u] = ll
	go s.acceptLoop(ll)
	return nil
}

func (s *Server) acceptLoop(ll net.Listener) {
	defer s.alive.Done() // one alive subtask for each listener
	for {
		netConn, err := ll.Accept()
		if !s.alive.IsRunning() {
			if netConn != nil {
				_ = netConn.Close()
			}
			return
		}
		if err != nil {
			err = errors.Annotatef(err, "accept listen=%s", addrString(ll.Addr()))
			s.log.Error(err)
			s.acceptErr.StoreOnce(err)
			s.alive.Stop()
			return
		}
		if !s.alive.Add(1) { // and one alive subtask for each connection
			_ = netConn.Close()
			return
		}
		go s.processConn(netConn)
	}
}

func (s *Server) processConn(conn net.Conn) {
	defer s.alive.Done()
	s.c.Stat.Conn.Add(1)
	defer s.c.Stat.Conn.Add(-1)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.alive.StopChan():
			_ = conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	remote := addrString(conn.RemoteAddr())
	r := bufio.NewReader(helpers.NewStatReader(conn, &s.c.Stat.RecvBytes, 0))
	_ = conn.SetReadDeadline(time.Now().Add(s.timeout))
	head, err := r.Peek(2)
	if err != nil {
		s.log.Debugf("collector remote=%s closed before data err=%v", remote, err)
		return
	}
	if wire.IsFrameStart(head) {
		err = s.serveFrames(conn, r)
	} else {
		err = s.serveLines(conn, r)
	}
	if err != nil && s.alive.IsRunning() {
		s.log.Errorf("collector remote=%s err=%v", remote, err)
	}
}

func (s *Server) serveFrames(conn net.Conn, r *bufio.Reader) error {
	dec := wire.NewDecoder(r, s.readLimit)
	w := helpers.NewStatWriter(conn, &s.c.Stat.SentBytes, 0)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.timeout))
		f, err := dec.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Annotate(err, "frame read")
		}
		if f.CheckFlag(wire.FlagAck) && len(f.Payload) == 0 {
			continue
		}

		var ack *wire.Ack
		batch := &wire.Batch{}
		if err = proto.Unmarshal(f.Payload, batch); err != nil {
			s.c.Stat.Errors.Add(1)
			ack = &wire.Ack{Error: errors.NotValidf("batch payload (%v)", err).Error()}
		} else {
			ack = s.c.Ingest(batch)
		}
		payload, err := proto.Marshal(ack)
		if err != nil {
			return errors.Annotate(err, "ack marshal")
		}
		out := wire.Frame{Seq: f.Seq, AckSeq: f.Seq, Payload: payload}
		out.SetFlag(wire.FlagAck)
		b, err := out.Marshal()
		if err != nil {
			return errors.Annotate(err, "ack frame")
		}
		_ = conn.SetWriteDeadline(time.Now().Add(s.timeout))
		if err = helpers.WriteAll(w, b); err != nil {
			return errors.Annotate(err, "ack write")
		}
	}
}

func (s *Server) serveLines(conn net.Conn, r *bufio.Reader) error {
	lr := wire.NewLineReader(r)
	lr.OnBadLine = func(line string) {
		s.c.Stat.BadLines.Add(1)
		s.log.Errorf("collector skip bad line=%q", line)
	}
	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.timeout))
		rec, err := lr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err = s.c.IngestRecord(rec); err != nil {
			s.log.Error(err)
		}
	}
}

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}

func parseURI(s string) (scheme, address string, err error) {
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return "", "", err
	}
	if u.Scheme == "unix" {
		return u.Scheme, u.Path, nil
	}
	return u.Scheme, u.Host, nil
}
