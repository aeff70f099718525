// Package log2 is a small leveled wrapper around stdlib *log.Logger.
//
// Nil *Log is valid and discards everything. This is how the device
// `debug = false` switch is implemented: components receive nil and every
// log call becomes a cheap no-op without conditional code at call sites.
package log2

import (
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"math"
	"os"
	"sync/atomic"
	"testing"
)

const (
	// type specified here helped against accidentally passing flags as level
	Lmicroseconds     int = log.Lmicroseconds
	Lshortfile        int = log.Lshortfile
	LStdFlags         int = log.Ltime | Lshortfile
	LInteractiveFlags int = log.Ltime | Lshortfile | Lmicroseconds
	LServiceFlags     int = Lshortfile
	LTestFlags        int = Lshortfile | Lmicroseconds
)

type Level int32

const (
	LError Level = iota
	LInfo
	LDebug
	LAll Level = math.MaxInt32
)

type FmtFunc func(format string, args ...interface{})
type ErrorFunc func(error)

type Log struct {
	l      *log.Logger
	level  Level
	w      io.Writer
	fatalf FmtFunc
	errfun atomic.Value // ErrorFunc
}

func NewStderr(level Level) *Log { return NewWriter(os.Stderr, level) }

func NewWriter(w io.Writer, level Level) *Log {
	if w == ioutil.Discard {
		return nil
	}
	return &Log{
		l:     log.New(w, "", LStdFlags),
		level: level,
		w:     w,
	}
}

// NewDebug maps the `debug` config switch to a logger.
// Disabled returns nil, which is a valid no-op logger.
func NewDebug(w io.Writer, enabled bool) *Log {
	if !enabled {
		return nil
	}
	return NewWriter(w, LDebug)
}

type FuncWriter struct{ FmtFunc }

func NewFunc(f FmtFunc, level Level) *Log { return NewWriter(FuncWriter{f}, level) }
func (fw FuncWriter) Write(b []byte) (int, error) {
	fw.FmtFunc("%s", string(b))
	return len(b), nil
}

func NewTest(t testing.TB, level Level) *Log {
	l := NewFunc(t.Logf, level)
	l.SetFlags(LTestFlags)
	l.fatalf = t.Fatalf
	return l
}

func (lg *Log) Clone(level Level) *Log {
	if lg == nil {
		return nil
	}
	l := NewWriter(lg.w, level)
	l.SetFlags(lg.l.Flags())
	l.SetPrefix(lg.l.Prefix())
	l.fatalf = lg.fatalf
	if f, ok := lg.errfun.Load().(ErrorFunc); ok {
		l.errfun.Store(f)
	}
	return l
}

func (lg *Log) SetLevel(level Level) {
	if lg == nil {
		return
	}
	atomic.StoreInt32((*int32)(&lg.level), int32(level))
}

func (lg *Log) SetFlags(f int) {
	if lg == nil {
		return
	}
	lg.l.SetFlags(f)
}

func (lg *Log) SetPrefix(prefix string) {
	if lg == nil {
		return
	}
	lg.l.SetPrefix(prefix)
}

// SetErrorFunc installs hook called on each Error/Errorf, e.g. to count errors.
func (lg *Log) SetErrorFunc(f ErrorFunc) {
	if lg == nil {
		return
	}
	lg.errfun.Store(f)
}

func (lg *Log) Enabled(level Level) bool {
	if lg == nil {
		return false
	}
	return atomic.LoadInt32((*int32)(&lg.level)) >= int32(level)
}

func (lg *Log) Log(level Level, s string) {
	if lg.Enabled(level) {
		_ = lg.l.Output(3, s)
	}
}

func (lg *Log) Logf(level Level, format string, args ...interface{}) {
	if lg.Enabled(level) {
		_ = lg.l.Output(3, fmt.Sprintf(format, args...))
	}
}

// Printf and Println make *Log usable as MQTT library logger.
func (lg *Log) Printf(format string, args ...interface{}) { lg.Logf(LInfo, format, args...) }
func (lg *Log) Println(args ...interface{})               { lg.Log(LInfo, fmt.Sprint(args...)) }

func (lg *Log) Error(args ...interface{}) {
	if lg == nil {
		return
	}
	lg.Log(LError, "error: "+fmt.Sprint(args...))
	if len(args) == 1 {
		if e, ok := args[0].(error); ok {
			lg.hookError(e)
			return
		}
	}
	lg.hookError(fmt.Errorf("%s", fmt.Sprint(args...)))
}

func (lg *Log) Errorf(format string, args ...interface{}) {
	if lg == nil {
		return
	}
	lg.Logf(LError, "error: "+format, args...)
	lg.hookError(fmt.Errorf(format, args...))
}

func (lg *Log) Info(args ...interface{}) {
	lg.Log(LInfo, fmt.Sprint(args...))
}

func (lg *Log) Infof(format string, args ...interface{}) {
	lg.Logf(LInfo, format, args...)
}

func (lg *Log) Debug(args ...interface{}) {
	lg.Log(LDebug, "debug: "+fmt.Sprint(args...))
}

func (lg *Log) Debugf(format string, args ...interface{}) {
	lg.Logf(LDebug, "debug: "+format, args...)
}

func (lg *Log) Fatalf(format string, args ...interface{}) {
	if lg != nil && lg.fatalf != nil {
		lg.fatalf(format, args...)
		return
	}
	if lg != nil {
		lg.Logf(LError, "fatal: "+format, args...)
	} else {
		log.Printf("fatal: "+format, args...)
	}
	os.Exit(1)
}

func (lg *Log) Fatal(args ...interface{}) {
	lg.Fatalf("%s", fmt.Sprint(args...))
}

func (lg *Log) hookError(e error) {
	if f, ok := lg.errfun.Load().(ErrorFunc); ok && f != nil {
		f(e)
	}
}
