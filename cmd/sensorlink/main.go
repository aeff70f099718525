package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/juju/errors"
	"github.com/mattn/go-isatty"
	"github.com/temoto/sensorlink/cmd/sensorlink/client"
	"github.com/temoto/sensorlink/cmd/sensorlink/collector"
	"github.com/temoto/sensorlink/cmd/sensorlink/console"
	"github.com/temoto/sensorlink/cmd/sensorlink/dumpconfig"
	"github.com/temoto/sensorlink/cmd/sensorlink/subcmd"
	"github.com/temoto/sensorlink/internal/config"
	"github.com/temoto/sensorlink/log2"
)

var log = log2.NewStderr(log2.LDebug)

var modules = []subcmd.Mod{
	client.Mod,
	collector.Mod,
	console.Mod,
	dumpconfig.Mod,
}

func main() {
	cmdline := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	flagConfig := cmdline.String("config", "sensorlink.hcl", "path to HCL configuration")
	cmdline.Usage = func() {
		fmt.Fprintf(cmdline.Output(), "usage: %s [-config path] COMMAND\n\ncommands:\n", os.Args[0])
		for _, m := range modules {
			fmt.Fprintf(cmdline.Output(), "  %-10s %s\n", m.Name, m.Usage)
		}
		fmt.Fprintln(cmdline.Output(), "\nflags:")
		cmdline.PrintDefaults()
	}
	_ = cmdline.Parse(os.Args[1:])

	if subcmd.SdNotify("start") {
		// we're under systemd, assume systemd journal logging, remove timestamp
		log.SetFlags(log2.LServiceFlags)
	} else if isatty.IsTerminal(os.Stderr.Fd()) {
		log.SetFlags(log2.LInteractiveFlags)
	}

	mod, err := subcmd.Parse(cmdline.Arg(0), modules)
	if err != nil {
		cmdline.Usage()
		log.Fatal(err)
	}

	c := config.MustReadConfig(log, config.NewOsFullReader(), *flagConfig)
	if !c.Debug {
		log.SetLevel(log2.LInfo)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigch
		log.Infof("signal=%v stopping", sig)
		cancel()
	}()

	if err := mod.Main(ctx, c, log); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
}
