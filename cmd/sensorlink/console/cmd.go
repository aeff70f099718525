// Package console is interactive query tool over collector database.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/c-bata/go-prompt"
	"github.com/juju/errors"
	"github.com/temoto/sensorlink/cmd/sensorlink/subcmd"
	"github.com/temoto/sensorlink/helpers/cli"
	"github.com/temoto/sensorlink/internal/collector"
	"github.com/temoto/sensorlink/internal/config"
	"github.com/temoto/sensorlink/log2"
)

const modName = "console"

const usage = `commands:
- devices            list devices with stored readings
- last DEVICE [N]    show N latest readings of DEVICE, default 10
- help               show this text
`

const defaultLast = 10

var Mod = subcmd.Mod{Name: modName, Usage: "query collector database", Main: Main}

func Main(ctx context.Context, c *config.Config, log *log2.Log) error {
	if c.Collector.DBPath == "" {
		return errors.NotValidf("console requires collector.db_path")
	}
	store, err := collector.OpenStore(c.Collector.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	registry := collector.NewRegistry(c.Collector.RegistryPath, log)
	if err = registry.Load(); err != nil {
		log.Error(err)
	}

	con := &Console{Store: store, Registry: registry, W: os.Stdout}
	cli.MainLoop(modName, con.Exec, newCompleter())
	return nil
}

type Console struct {
	Store    *collector.Store
	Registry *collector.Registry
	W        io.Writer
}

func (con *Console) Exec(line string) {
	if err := con.exec(line); err != nil {
		fmt.Fprintf(con.W, "error: %v\n", err)
	}
}

func (con *Console) exec(line string) error {
	words := strings.Fields(line)
	if len(words) == 0 {
		return nil
	}
	switch words[0] {
	case "devices":
		ds, err := con.Store.Devices()
		if err != nil {
			return err
		}
		for _, d := range ds {
			if st, ok := con.Registry.Get(d); ok {
				fmt.Fprintf(con.W, "%s\tboot=%x seq=%d batches=%d last_seen=%s\n",
					d, st.Boot, st.Seq, st.Batches, st.LastSeen.Format(time.RFC3339))
			} else {
				fmt.Fprintf(con.W, "%s\n", d)
			}
		}
		return nil

	case "last":
		if len(words) < 2 || len(words) > 3 {
			return errors.NotValidf("syntax: last DEVICE [N]")
		}
		n := defaultLast
		if len(words) == 3 {
			var err error
			if n, err = strconv.Atoi(words[2]); err != nil || n <= 0 {
				return errors.NotValidf("N=%s", words[2])
			}
		}
		rs, err := con.Store.Last(words[1], n)
		if err != nil {
			return err
		}
		for _, r := range rs {
			fmt.Fprintf(con.W, "%s\t%s\t%s\t%g", r.Time.UTC().Format(time.RFC3339Nano), r.Device, r.Sensor, r.Value)
			for k, v := range r.Extra {
				fmt.Fprintf(con.W, "\t%s=%v", k, v)
			}
			fmt.Fprintln(con.W)
		}
		return nil

	case "help":
		fmt.Fprint(con.W, usage)
		return nil
	}
	return errors.NotSupportedf("command=%s, try help", words[0])
}

func newCompleter() cli.CompleteFunc {
	commands := []prompt.Suggest{
		{Text: "devices", Description: "list devices"},
		{Text: "last", Description: "latest readings of device"},
		{Text: "help"},
	}
	return func(d prompt.Document) []prompt.Suggest {
		return cli.FilterCommands(d, commands)
	}
}
