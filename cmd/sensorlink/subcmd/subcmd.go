// Support sub-commands in sensorlink application.
// It's simple but fine so far.
package subcmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/temoto/sensorlink/internal/config"
	"github.com/temoto/sensorlink/log2"
)

type Mod struct {
	Name  string
	Usage string
	Main  func(context.Context, *config.Config, *log2.Log) error
}

func Parse(command string, modules []Mod) (*Mod, error) {
	if command == "" {
		return nil, fmt.Errorf("empty command, expected one of: %s", Names(modules))
	}

	var found *Mod
	for i := range modules {
		m := &modules[i]
		if m.Name == "" {
			panic(fmt.Sprintf("code error Name='' module=%#v", m))
		}
		if command == m.Name {
			found = m
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("unknown command='%s', expected one of: %s", command, Names(modules))
	}
	return found, nil
}

func Names(modules []Mod) string {
	ns := make([]string, len(modules))
	for i, m := range modules {
		ns[i] = m.Name
	}
	return strings.Join(ns, " ")
}

// SdNotify reports whether systemd notification socket is available.
func SdNotify(s string) bool {
	ok, err := daemon.SdNotify(false, s)
	if err != nil {
		log2.NewStderr(log2.LError).Fatal("sdnotify: ", errors.ErrorStack(err))
	}
	return ok
}
