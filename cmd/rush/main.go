// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// rush is a POSIX-ish interactive shell built on top of the parser, expand
// and interp packages.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/rushshell/rush/editor"
	"github.com/rushshell/rush/expand"
	"github.com/rushshell/rush/highlight"
	"github.com/rushshell/rush/history"
	"github.com/rushshell/rush/interp"
	"github.com/rushshell/rush/job"
	"github.com/rushshell/rush/parser"
)

// config holds the environment-tunable knobs rush reads at startup, e.g.
// RUSH_HISTFILE=/path/to/file or RUSH_DEBUG=1.
type config struct {
	HistFile string `envconfig:"HISTFILE"`
	Debug    bool   `envconfig:"DEBUG"`
}

var commandFlag = flag.String("c", "", "command to be executed")

func main() { os.Exit(mainRun()) }

// mainRun is the testable body of main: it never calls os.Exit itself, so
// testscript can run it in-process via TestMain.
func mainRun() int {
	flag.Parse()
	err := run()
	var es interp.ExitStatus
	if errors.As(err, &es) {
		return int(es)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("rush: %v", err))
		return 1
	}
	return 0
}

func run() error {
	var cfg config
	if err := envconfig.Process("rush", &cfg); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}

	logger := zap.NewNop()
	if cfg.Debug {
		l, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		logger = l
		defer logger.Sync()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobs := job.NewTable()
	ttyFd := -1
	if term.IsTerminal(int(os.Stdin.Fd())) {
		ttyFd = int(os.Stdin.Fd())
	}

	hist := history.New(historyPath(cfg.HistFile))
	if err := hist.Load(); err != nil {
		logger.Warn("failed to load history", zap.Error(err))
	}

	runner, err := interp.New(
		interp.Env(expand.ListEnviron(os.Environ()...)),
		interp.StdIO(os.Stdin, os.Stdout, os.Stderr),
		interp.Interactive(*commandFlag == "" && flag.NArg() == 0),
		interp.JobControl(newJobController(jobs, ttyFd)),
		interp.WithJobTable(jobs),
		interp.WithHistory(hist),
	)
	if err != nil {
		return fmt.Errorf("initializing shell: %w", err)
	}
	runner.DeclareGoCommand("rush-version", goVersionCmd)
	runner.Reset()
	runner.TerminalFD = ttyFd

	if *commandFlag != "" {
		return runSource(ctx, runner, *commandFlag)
	}
	if flag.NArg() > 0 {
		for _, path := range flag.Args() {
			if err := runFile(ctx, runner, path); err != nil {
				return err
			}
		}
		return nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		return runSource(ctx, runner, string(data))
	}
	sourceRC(ctx, runner, logger)
	return runInteractive(ctx, runner, jobs, hist, logger)
}

// sourceRC reads and runs ~/.rushrc once, on interactive launch only.
// Errors are logged, never fatal: a broken rc file shouldn't keep the user
// out of their own shell.
func sourceRC(ctx context.Context, r *interp.Runner, logger *zap.Logger) {
	home, err := homedir.Dir()
	if err != nil {
		return
	}
	path := filepath.Join(home, ".rushrc")
	data, err := os.ReadFile(path)
	if err != nil {
		return // missing rc file is not an error
	}
	if err := r.Run(ctx, string(data)); err != nil {
		var es interp.ExitStatus
		if !errors.As(err, &es) {
			logger.Warn("error sourcing ~/.rushrc", zap.Error(err))
		}
	}
}

func historyPath(override string) string {
	if override != "" {
		return override
	}
	home, err := homedir.Dir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".rush_history")
}

func runSource(ctx context.Context, r *interp.Runner, src string) error {
	if err := r.Run(ctx, src); err != nil {
		return err
	}
	if r.ExitCode() != 0 {
		return interp.ExitStatus(r.ExitCode())
	}
	return nil
}

func runFile(ctx context.Context, r *interp.Runner, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return runSource(ctx, r, string(data))
}

// incompleteInput reports whether text, parsed as-is, only fails because it
// isn't finished yet (a trailing "&&", an unclosed quote, an open compound
// construct awaiting its terminator) rather than because it's a genuine
// syntax error: the REPL should read another line and retry in that case.
func incompleteInput(text string) bool {
	if openCompoundPending(text) {
		return true
	}
	_, err := parser.Parse(text, parser.Params{})
	var perr *parser.ParseError
	if errors.As(err, &perr) {
		return perr.Recoverable()
	}
	return false
}

// openCompoundPending does a shallow keyword-depth scan for an if/for/
// while/until/case or "name() {" block whose terminator hasn't appeared
// yet, mirroring the depth tracking interp's compound-construct replay
// uses once the block is complete.
func openCompoundPending(text string) bool {
	depth := 0
	braces := 0
	for _, stmt := range strings.FieldsFunc(text, func(r rune) bool { return r == ';' || r == '\n' }) {
		w := strings.Fields(stmt)
		if len(w) == 0 {
			continue
		}
		switch w[0] {
		case "if", "for", "while", "until", "case":
			depth++
		case "fi", "done", "esac":
			if depth > 0 {
				depth--
			}
		}
		braces += strings.Count(stmt, "{") - strings.Count(stmt, "}")
	}
	return depth > 0 || braces > 0
}

func runInteractive(ctx context.Context, r *interp.Runner, jobs *job.Table, hist *history.History, logger *zap.Logger) error {
	cache := highlight.NewPathCache()
	ed := editor.New(os.Stdin, os.Stdout, hist, cache, interp.IsBuiltinName, builtinNames)

	var pending strings.Builder
	for {
		jobs.NotifyAndClean(func(line string) { fmt.Fprintln(os.Stderr, line) })

		prompt := primaryPrompt
		if pending.Len() > 0 {
			prompt = continuationPrompt
		}
		line, err := ed.ReadLine(prompt)
		if err != nil {
			if errors.Is(err, editor.ErrInterrupted) {
				pending.Reset()
				fmt.Fprintln(os.Stdout)
				continue
			}
			fmt.Fprintln(os.Stdout)
			return nil
		}

		if pending.Len() > 0 {
			pending.WriteByte('\n')
		}
		pending.WriteString(line)

		full := pending.String()
		if strings.TrimSpace(full) == "" {
			pending.Reset()
			continue
		}
		if incompleteInput(full) {
			continue
		}
		pending.Reset()
		hist.Add(full)

		if err := r.Run(ctx, full); err != nil {
			var perr *parser.ParseError
			if errors.As(err, &perr) {
				fmt.Fprintln(os.Stderr, color.RedString("rush: %v", perr))
			} else {
				var es interp.ExitStatus
				if !errors.As(err, &es) {
					fmt.Fprintln(os.Stderr, color.RedString("rush: %v", err))
				}
			}
		}
		if r.Exited() {
			return nil
		}
	}
}

const (
	primaryPrompt      = "$ "
	continuationPrompt = "> "
)

// builtinNames lists every name interp.IsBuiltinName recognizes, for the
// line editor's command-name completion.
var builtinNames = []string{
	":", "true", "false", "exit", "set", "shift", "unset",
	"echo", "printf", "break", "continue", "pwd", "cd",
	"wait", "builtin", "trap", "type", "source", ".", "command",
	"dirs", "pushd", "popd", "alias", "unalias",
	"fg", "bg", "jobs", "history", "test", "[", "exec",
	"return", "read", "local", "export",
}

// goVersionCmd is a native Go command exposed as "rush-version", showing
// that DeclareGoCommand works alongside builtins and external programs.
func goVersionCmd(args []string, _ io.Reader, stdout, _ io.Writer) int {
	fmt.Fprintln(stdout, "rush (built on github.com/rushshell/rush)")
	return 0
}
