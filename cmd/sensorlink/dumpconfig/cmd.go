// Package dumpconfig prints effective configuration after includes and defaults.
package dumpconfig

import (
	"context"
	"io"
	"os"

	"github.com/juju/errors"
	"github.com/temoto/sensorlink/cmd/sensorlink/subcmd"
	"github.com/temoto/sensorlink/internal/config"
	"github.com/temoto/sensorlink/log2"
	"gopkg.in/yaml.v3"
)

var Mod = subcmd.Mod{Name: "config", Usage: "print effective configuration as YAML", Main: Main}

func Main(ctx context.Context, c *config.Config, log *log2.Log) error {
	return Dump(os.Stdout, c)
}

// Dump masks secrets in c.
func Dump(w io.Writer, c *config.Config) error {
	if c.Network.Passphrase != "" {
		c.Network.Passphrase = "***"
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return errors.Annotate(err, "config yaml")
	}
	return errors.Annotate(enc.Close(), "config yaml")
}
