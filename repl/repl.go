// Package repl is the interactive shell over one diff store.
package repl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ergochat/readline"

	orchestra "github.com/jeffdeville/penn-orchestra-sub006"
)

// REPL per se.
type REPL struct {
	Store *orchestra.DiffStore
	Out   io.Writer
	rl    *readline.Instance
}

var ErrUnknownCommand = errors.New("command unknown")

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),

	readline.PcItem("insert"),
	readline.PcItem("update"),
	readline.PcItem("delete"),
	readline.PcItem("get"),
	readline.PcItem("scan"),

	readline.PcItem("advance"),
	readline.PcItem("clear"),
	readline.PcItem("recno"),
	readline.PcItem("reset"),
	readline.PcItem("decisions"),

	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func New(store *orchestra.DiffStore) *REPL {
	return &REPL{Store: store, Out: os.Stdout}
}

func (repl *REPL) Open(historyFile string) (err error) {
	repl.rl, err = readline.NewEx(&readline.Config{
		Prompt:          "⇄ ",
		HistoryFile:     historyFile,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return
	}
	repl.rl.CaptureExitSignal()
	return
}

func (repl *REPL) Close() error {
	if repl.rl != nil {
		_ = repl.rl.Close()
		repl.rl = nil
	}
	return nil
}

// REPL reads and runs one line. io.EOF means the user is done.
func (repl *REPL) REPL() error {
	line, err := repl.rl.Readline()
	if err == readline.ErrInterrupt && len(line) != 0 {
		return nil
	}
	if err != nil {
		return err
	}
	return repl.Execute(line)
}

// Run loops until exit, printing command errors as it goes.
func (repl *REPL) Run() error {
	for {
		err := repl.REPL()
		if err == io.EOF || err == readline.ErrInterrupt {
			return nil
		}
		if err != nil {
			repl.printf("%s\n", err.Error())
		}
	}
}

func (repl *REPL) Execute(line string) (err error) {
	line = strings.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	// ----- tuples -----
	case "insert":
		err = repl.CommandInsert(arg)
	case "update":
		err = repl.CommandUpdate(arg)
	case "delete":
		err = repl.CommandDelete(arg)
	case "get":
		err = repl.CommandGet(arg)
	case "scan", "ls", "list":
		err = repl.CommandScan(arg)
	// ----- rounds -----
	case "advance":
		err = repl.CommandAdvance(arg)
	case "clear":
		err = repl.CommandClear(arg)
	case "recno":
		err = repl.CommandRecno(arg)
	case "reset":
		err = repl.CommandReset(arg)
	case "decisions":
		err = repl.CommandDecisions(arg)
	case "help":
		repl.printf("%s\n", help)
	case "exit", "quit":
		err = io.EOF
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
	return
}

func (repl *REPL) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(repl.Out, format, args...)
}
