// Package cli runs interactive line oriented tools.
package cli

import (
	"bufio"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/c-bata/go-prompt"
	"github.com/mattn/go-isatty"
)

type ExecFunc func(line string)
type CompleteFunc func(d prompt.Document) []prompt.Suggest

// MainLoop reads commands with go-prompt when stdin is a terminal,
// otherwise executes every line of stdin, which allows scripting:
// `echo devices | sensorlink console`.
func MainLoop(tag string, exec ExecFunc, complete CompleteFunc) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	go func() {
		for range signalCh {
			os.Exit(1)
		}
	}()

	if isatty.IsTerminal(os.Stdin.Fd()) {
		prompt.New(prompt.Executor(exec), prompt.Completer(complete),
			prompt.OptionPrefix(tag+"> "),
			prompt.OptionTitle(tag),
		).Run()
		return
	}
	ExecReader(os.Stdin, exec)
}

func ExecReader(r io.Reader, exec ExecFunc) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		exec(line)
	}
}

// FilterCommands suggests command names matching word before cursor.
func FilterCommands(d prompt.Document, commands []prompt.Suggest) []prompt.Suggest {
	if strings.Contains(d.TextBeforeCursor(), " ") {
		return nil
	}
	return prompt.FilterHasPrefix(commands, d.GetWordBeforeCursor(), true)
}
