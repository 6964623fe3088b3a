package interp

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/rushshell/rush/ast"
	"github.com/rushshell/rush/parser"
)

// Run parses one line of input against the runner's current state and
// executes it, updating LastStatus. A blank line (whitespace only) is a
// no-op. This is the executor half of the design's parser-to-CommandList-
// to-executor pipeline: Run never touches syntax it doesn't own, it only
// walks the ast.CommandList the parser package hands back.
func (r *Runner) Run(ctx context.Context, line string) error {
	line = r.expandAlias(line)

	if handled, err := r.runCompound(ctx, line); handled {
		return err
	}

	cl, err := parser.Parse(line, r.parseParams())
	if err != nil {
		return err
	}
	if cl == nil {
		return nil
	}
	return r.runList(ctx, cl)
}

func (r *Runner) parseParams() parser.Params {
	return parser.Params{
		Env:        shellEnviron{r},
		LastStatus: r.LastStatus,
		Positional: r.Positional,
		Pid:        r.Pid(),
		LastBgPid:  r.LastBgPid,
		ShellName:  "rush",
		Nounset:    r.Opts.NoUnset,
		Random:     r.Random,
		Seconds:    r.Seconds,
	}
}

// runList walks the CommandList's items left to right, gating each on the
// connector joining it to the previous one: "&&" only runs on a zero
// status, "||" only on a non-zero status, ";" (Seq) always runs. Completed
// background jobs are reaped before each pipeline, matching the design's
// "reap before prompting" contract extended to run between statements too.
func (r *Runner) runList(ctx context.Context, cl *ast.CommandList) error {
	for i, item := range cl.Items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.jobs != nil {
			r.jobs.ReapJobs()
		}
		if r.ShouldExit || r.shouldReturn || r.breakLevel > 0 || r.contnLevel > 0 {
			return nil
		}
		if i > 0 {
			switch item.Connector {
			case ast.And:
				if r.LastStatus != 0 {
					continue
				}
			case ast.Or:
				if r.LastStatus == 0 {
					continue
				}
			}
		}
		status, err := r.runPipeline(ctx, item.Pipeline)
		if err != nil {
			return err
		}
		r.LastStatus = status
		if r.Opts.ErrExit && !r.noErrExit && status != 0 && !r.ShouldExit {
			r.ShouldExit = true
			r.exitCode = status
			return nil
		}
	}
	return nil
}

// runPipeline implements the design's 3-case dispatch: a single command
// with only inline assignments and no argv is the assignment-only fast
// path; a single command whose argv[0] is a builtin or function runs in
// process; anything else (including every multi-command pipeline) goes
// through the spawn path.
func (r *Runner) runPipeline(ctx context.Context, p *ast.Pipeline) (int, error) {
	if len(p.Commands) == 1 {
		cmd := p.Commands[0]
		if len(cmd.Args) == 0 && len(cmd.Assigns) > 0 && len(cmd.Redirects) == 0 {
			return r.runAssignOnly(cmd)
		}
		if len(cmd.Args) > 0 {
			if body, ok := r.Functions[firstArgLiteral(cmd)]; ok {
				return r.runFunction(ctx, body, cmd)
			}
			if r.isBuiltinName(firstArgLiteral(cmd)) && len(cmd.Redirects) == 0 {
				argv, err := r.expandWords(ctx, cmd.Args)
				if err != nil {
					return 1, err
				}
				if len(cmd.Assigns) > 0 {
					restore := r.applyAssigns(cmd.Assigns)
					defer restore()
				}
				return r.runBuiltin(ctx, argv), nil
			}
		}
	}
	return r.runSpawnPipeline(ctx, p)
}

// runAssignOnly applies NAME=VALUE assignments directly to the shell's own
// variable table (no subshell), per the design: a command with no argv is
// just a set of persistent assignments.
func (r *Runner) runAssignOnly(cmd *ast.Command) (int, error) {
	for _, a := range cmd.Assigns {
		val, err := r.resolveCmdSubst(context.Background(), a.Value)
		if err != nil {
			return 1, err
		}
		r.SetVar(a.Name, r.expandTilde(val))
	}
	return 0, nil
}

// applyAssigns sets NAME=VALUE pairs for the duration of one builtin or
// function call and returns a func that restores the prior values, per the
// design's per-component assignment scoping.
func (r *Runner) applyAssigns(assigns []ast.Assign) func() {
	type saved struct {
		name    string
		value   string
		wasSet  bool
		restore bool
	}
	var snaps []saved
	for _, a := range assigns {
		old, ok := r.GetVar(a.Name)
		snaps = append(snaps, saved{a.Name, old, ok, true})
		val, err := r.resolveCmdSubst(context.Background(), a.Value)
		if err != nil {
			val = ""
		}
		r.SetVar(a.Name, r.expandTilde(val))
	}
	return func() {
		for _, s := range snaps {
			if s.wasSet {
				r.SetVar(s.name, s.value)
			} else {
				r.UnsetVar(s.name)
			}
		}
	}
}

func firstArgLiteral(cmd *ast.Command) string {
	if len(cmd.Args) == 0 {
		return ""
	}
	return cmd.Args[0].Literal()
}

// captureCommand runs source (the body of a $(...) or `...` substitution)
// to completion and returns everything it wrote to stdout, for splicing
// back into the word that deferred it. The child shares this runner's
// variable and job tables (variable writes inside $(...) are visible to the
// caller, a deliberate simplification of true subshell isolation) but gets
// its own captured stdout.
func (r *Runner) captureCommand(ctx context.Context, source string) (string, error) {
	var buf bytes.Buffer
	child := *r
	child.stdout = &buf
	child.noErrExit = true
	if err := child.Run(ctx, source); err != nil {
		return buf.String(), err
	}
	r.LastStatus = child.LastStatus
	return buf.String(), nil
}

// runFunction replays a function's stored body against the call's
// arguments as new positional parameters, per the design's "raw text
// replay, not a sub-AST" contract for compound constructs.
func (r *Runner) runFunction(ctx context.Context, body string, cmd *ast.Command) (int, error) {
	argv, err := r.expandWords(ctx, cmd.Args)
	if err != nil {
		return 1, err
	}
	savedPositional := r.Positional
	r.Positional = argv[1:]
	r.SourceDepth++
	defer func() {
		r.Positional = savedPositional
		r.SourceDepth--
	}()
	if runErr := r.Run(ctx, body); runErr != nil {
		fmt.Fprintln(r.stderr, runErr)
		return 1, nil
	}
	if r.shouldReturn {
		r.shouldReturn = false
		return r.LastStatus, nil
	}
	return r.LastStatus, nil
}

// openRedirect opens the file or pipe end a single Redirect names, return
// the *os.File to wire into the child process (or the runner itself for
// in-process builtins).
func (r *Runner) openRedirect(rd ast.Redirect) (*os.File, error) {
	if r.denyFileRedirect {
		switch rd.Kind {
		case ast.RedirOutput, ast.RedirAppend, ast.RedirInput, ast.RedirStderr, ast.RedirStderrAppend:
			return nil, fmt.Errorf("file redirects are not permitted here: %s", rd.Target.Literal())
		}
	}
	switch rd.Kind {
	case ast.RedirOutput:
		return os.OpenFile(rd.Target.Literal(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	case ast.RedirAppend, ast.RedirStderrAppend:
		return os.OpenFile(rd.Target.Literal(), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	case ast.RedirInput:
		return os.Open(rd.Target.Literal())
	case ast.RedirStderr:
		return os.OpenFile(rd.Target.Literal(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	case ast.RedirHereDoc, ast.RedirHereString:
		return nil, nil // handled separately: body is piped in, not a real file
	}
	return nil, fmt.Errorf("unsupported redirect")
}
