// Package interp implements rush's executor: it walks the ast.CommandList
// the parser package produces, resolving aliases, functions, builtins and
// external programs, and drives job control over spawned pipelines.
package interp

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rushshell/rush/expand"
	"github.com/rushshell/rush/job"
)

// Options are the three shell flags the design names: errexit, nounset,
// pipefail. Toggled by "set -e/-u/-o pipefail" and their "+" counterparts.
type Options struct {
	ErrExit  bool
	NoUnset  bool
	PipeFail bool
}

// JobSummary is one line of "jobs" output.
type JobSummary struct {
	ID      int
	Status  string
	Command string
}

// JobController backs the "jobs", "fg" and "bg" builtins. Implementations
// own the process-group bookkeeping; the executor only needs to list jobs
// and ask to resume one.
type JobController interface {
	List() []JobSummary
	Resume(id int, foreground bool) (exitCode int, err error)
}

// HistoryLister backs the "history" builtin.
type HistoryLister interface {
	Entries() []string
}

// Runner is the shell: it can be reused across many input lines, carrying
// variables, functions, aliases, traps, job control and open io streams.
// It is not safe for concurrent use.
type Runner struct {
	Env      expand.Environ
	writeEnv expand.WriteEnviron

	Jobs    JobController
	History HistoryLister

	// jobs is the real job table background/stopped pipelines register
	// into; Jobs above is only the builtin-facing adapter over it (it may
	// be nil in tests that don't need job control).
	jobs *job.Table

	Dir string

	// LastStatus is last_status in the design: the exit code of the most
	// recently completed pipeline.
	LastStatus int
	// LastBgPid backs $!.
	LastBgPid int

	ShouldExit   bool
	shouldReturn bool
	exitCode     int

	SourceDepth int
	LoopDepth   int
	breakLevel  int
	contnLevel  int

	Positional []string

	Aliases   map[string]string
	Functions map[string]string

	DirStack []string

	Traps map[string]string

	Opts Options

	// noErrExit suspends errexit, e.g. while evaluating an if/while/until
	// condition, per the design's "condition contexts suspend errexit".
	noErrExit bool

	ShellPGID  int
	TerminalFD int

	// allowExec, if set, restricts the spawn path to argv slices it
	// approves (the full argv, not just argv[0], so a caller can reject an
	// otherwise-whitelisted program invoked with a side-effecting flag
	// like "sed -i" or used to exec another program, like "env rm -rf /");
	// denyFileRedirect, if true, makes every file-opening redirect fail.
	// Both back Restricted, used by the shell package's side-effect-free
	// "pure" sourcing runner.
	allowExec        func(argv []string) bool
	denyFileRedirect bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	goCommands map[string]GoCmdFunc

	random func() int
	start  time.Time

	usedNew bool
}

// GoCmdFunc is a native Go command declared via DeclareGoCommand: it behaves
// like a builtin but is supplied by the embedder rather than the shell
// itself.
type GoCmdFunc func(args []string, stdin io.Reader, stdout, stderr io.Writer) int

// RunnerOption configures a Runner passed to New.
type RunnerOption func(*Runner) error

// New builds a Runner, applying options in order.
func New(opts ...RunnerOption) (*Runner, error) {
	r := &Runner{usedNew: true, start: time.Now()}
	for _, o := range opts {
		if err := o(r); err != nil {
			return nil, err
		}
	}
	if r.Env == nil {
		Env(nil)(r)
	}
	if r.Dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("could not get current dir: %w", err)
		}
		r.Dir = wd
	}
	if r.stdout == nil {
		r.stdout = io.Discard
	}
	if r.stderr == nil {
		r.stderr = io.Discard
	}
	return r, nil
}

// Env sets the interpreter's environment. If nil, the current process
// environment is used.
func Env(env expand.Environ) RunnerOption {
	return func(r *Runner) error {
		if env == nil {
			env = expand.ListEnviron(os.Environ()...)
		}
		r.Env = env
		return nil
	}
}

// StdIO sets the three standard streams.
func StdIO(in io.Reader, out, err io.Writer) RunnerOption {
	return func(r *Runner) error {
		r.stdin = in
		r.stdout = out
		r.stderr = err
		return nil
	}
}

// Interactive is accepted for symmetry with the teacher's option set but
// only affects alias expansion eagerness; aliases are always active in
// rush, so this is currently a no-op kept for call-site compatibility.
func Interactive(bool) RunnerOption {
	return func(r *Runner) error { return nil }
}

// JobControl installs a job controller, enabling real "jobs"/"fg"/"bg".
func JobControl(j JobController) RunnerOption {
	return func(r *Runner) error {
		r.Jobs = j
		return nil
	}
}

// WithJobTable installs the job table the executor registers
// backgrounded/stopped pipelines into directly.
func WithJobTable(t *job.Table) RunnerOption {
	return func(r *Runner) error {
		r.jobs = t
		return nil
	}
}

// Restricted limits the runner to side-effect-free execution: only argv
// slices allow approves may run, and every file-opening redirect fails,
// matching the shell package's "pure" sourcing runner.
func Restricted(allow func(argv []string) bool) RunnerOption {
	return func(r *Runner) error {
		r.allowExec = allow
		r.denyFileRedirect = true
		return nil
	}
}

// WithHistory installs the command history shown by the "history" builtin.
func WithHistory(h HistoryLister) RunnerOption {
	return func(r *Runner) error {
		r.History = h
		return nil
	}
}

// ExitStatus is a non-zero status code resulting from running a shell
// command list.
type ExitStatus uint8

func (s ExitStatus) Error() string { return fmt.Sprintf("exit status %d", s) }

// Reset returns a runner to its initial variable/alias/function state while
// keeping its environment, streams and job table. Call it between
// independently-run programs that shouldn't see each other's shell state.
func (r *Runner) Reset() {
	if !r.usedNew {
		panic("use interp.New to construct a Runner")
	}
	r.writeEnv = newOverlayEnviron(r.Env)
	r.Aliases = map[string]string{}
	r.Functions = map[string]string{}
	r.Traps = map[string]string{}
	r.LastStatus = 0
	r.LastBgPid = 0
	r.ShouldExit = false
	r.shouldReturn = false
	r.SourceDepth = 0
	r.LoopDepth = 0
	r.breakLevel = 0
	r.contnLevel = 0
	r.Positional = nil
	r.DirStack = []string{r.Dir}
	r.ShellPGID = os.Getpid()

	if !r.writeEnv.Get("HOME").IsSet() {
		home, _ := os.UserHomeDir()
		r.SetVar("HOME", home)
	}
	r.SetVar("PWD", r.Dir)
	r.SetVar("IFS", " \t\n")
	r.SetVar("RUSH_LAST_BG_PID", "")
}

// Exited reports whether the shell should terminate entirely, e.g. due to
// the "exit" builtin.
func (r *Runner) Exited() bool { return r.ShouldExit }

// ExitCode returns the process exit code recorded by "exit N", or
// LastStatus if exit was never called explicitly.
func (r *Runner) ExitCode() int {
	if r.ShouldExit {
		return r.exitCode
	}
	return r.LastStatus
}

// DeclareGoCommand registers a native Go command under name, callable like a
// builtin but defined by the embedder (e.g. "rush-version").
func (r *Runner) DeclareGoCommand(name string, fn GoCmdFunc) {
	if r.goCommands == nil {
		r.goCommands = map[string]GoCmdFunc{}
	}
	r.goCommands[name] = fn
}

// Pid returns the shell process's own pid, for $$.
func (r *Runner) Pid() int { return os.Getpid() }

// Random implements $RANDOM: a pseudo-random non-negative int, reseeded
// lazily on first use.
func (r *Runner) Random() int {
	if r.random == nil {
		seed := time.Now().UnixNano() ^ int64(os.Getpid())
		state := uint64(seed)
		r.random = func() int {
			// xorshift64*, grounded on the design's "bare int" contract;
			// not cryptographic, just decorrelated across calls.
			state ^= state << 13
			state ^= state >> 7
			state ^= state << 17
			return int((state * 2685821657736338717) >> 33 & 0x7fff)
		}
	}
	return r.random()
}

// Seconds implements $SECONDS: whole seconds since the runner was created.
func (r *Runner) Seconds() int {
	return int(time.Since(r.start).Seconds())
}

func (r *Runner) outf(format string, args ...any) {
	fmt.Fprintf(r.stdout, format, args...)
}

func (r *Runner) errf(format string, args ...any) {
	fmt.Fprintf(r.stderr, format, args...)
}

// SetVar writes a plain string variable, exported like every variable the
// design's flat environment model uses.
func (r *Runner) SetVar(name, value string) {
	r.writeEnv.Set(name, expand.Variable{Set: true, Exported: true, Kind: expand.String, Str: value})
}

// GetVar reads a variable's string value and whether it is set.
func (r *Runner) GetVar(name string) (string, bool) {
	v := r.writeEnv.Get(name)
	return v.String(), v.IsSet()
}

// UnsetVar removes a variable.
func (r *Runner) UnsetVar(name string) {
	r.writeEnv.Set(name, expand.Variable{})
}

// EachVar iterates every set variable.
func (r *Runner) EachVar(fn func(name, value string) bool) {
	r.writeEnv.Each(func(name string, v expand.Variable) bool {
		if !v.IsSet() {
			return true
		}
		return fn(name, v.String())
	})
}

// environForExec renders the process environment new children inherit: every
// exported variable as "NAME=VALUE".
func (r *Runner) environForExec() []string {
	var out []string
	r.writeEnv.Each(func(name string, v expand.Variable) bool {
		if v.IsSet() && v.Exported {
			out = append(out, name+"="+v.String())
		}
		return true
	})
	return out
}

func itoa(n int) string { return strconv.Itoa(n) }
