//go:build unix

package interp

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/rushshell/rush/ast"
	"github.com/rushshell/rush/job"
	"github.com/rushshell/rush/spawn"
)

// runSpawnPipeline implements the design's spawn path: N-1 pipes wired
// between N commands, per-command redirects opened and applied, inline
// assignments exported into each child's own environment (not the shell's),
// a single new process group for the whole pipeline, and foreground/
// background handling with the job table.
func (r *Runner) runSpawnPipeline(ctx context.Context, p *ast.Pipeline) (int, error) {
	n := len(p.Commands)
	readers := make([]*os.File, n)
	writers := make([]*os.File, n)
	for i := 0; i < n-1; i++ {
		pr, pw, err := os.Pipe()
		if err != nil {
			return 1, err
		}
		readers[i+1] = pr
		writers[i] = pw
	}

	results := make([]*spawn.Result, n)
	pids := make([]int, 0, n)
	var pgid int
	var spawnErr error
	var closeAfterStart []*os.File

	for i, cmd := range p.Commands {
		argv, err := r.expandWords(ctx, cmd.Args)
		if err != nil {
			spawnErr = err
			break
		}
		if len(argv) == 0 {
			// An assignment-only stage of a multi-command pipeline: apply
			// to the shell's own table like runAssignOnly, contributing no
			// process. Rare, but the grammar allows it.
			for _, a := range cmd.Assigns {
				val, _ := r.resolveCmdSubst(ctx, a.Value)
				r.SetVar(a.Name, r.expandTilde(val))
			}
			continue
		}
		if r.allowExec != nil && !r.allowExec(argv) {
			spawnErr = fmt.Errorf("program not permitted: %s", argv[0])
			break
		}

		env := r.environForExec()
		for _, a := range cmd.Assigns {
			val, _ := r.resolveCmdSubst(ctx, a.Value)
			env = append(env, a.Name+"="+r.expandTilde(val))
		}

		stdin, stdout, stderr, extra, herePipes, err := r.resolveStdio(cmd, readers, writers, i, n)
		closeAfterStart = append(closeAfterStart, herePipes...)
		if err != nil {
			spawnErr = err
			break
		}

		req := spawn.Request{
			Argv:       argv,
			Env:        env,
			Dir:        r.Dir,
			Stdin:      stdin,
			Stdout:     stdout,
			Stderr:     stderr,
			ExtraFiles: extra,
			PGID:       pgid,
			Foreground: i == 0 && !p.Background && r.TerminalFD >= 0,
			TTYFd:      r.TerminalFD,
		}
		res, err := spawn.Spawn(req)
		closeIfOpen(stdin, i > 0)
		closeIfOpen(stdout, i < n-1)
		if err != nil {
			spawnErr = err
			break
		}
		if i == 0 {
			pgid = res.PID
		}
		results[i] = res
		pids = append(pids, res.PID)
	}
	for _, f := range closeAfterStart {
		f.Close()
	}

	if spawnErr != nil {
		for _, f := range readers {
			if f != nil {
				f.Close()
			}
		}
		for _, f := range writers {
			if f != nil {
				f.Close()
			}
		}
		return spawn.ClassifyError(spawnErr), spawnErr
	}

	cmdText := pipelineText(p)
	if p.Background {
		var id int
		if r.jobs != nil {
			id = r.jobs.Insert(pgid, cmdText, pids)
		}
		r.LastBgPid = pids[len(pids)-1]
		r.SetVar("RUSH_LAST_BG_PID", itoa(r.LastBgPid))
		if id > 0 {
			r.outf("[%d] %d\n", id, pgid)
		}
		return 0, nil
	}

	return r.waitForeground(ctx, pgid, cmdText, pids, results)
}

// waitForeground hands the terminal to pgid (if this runner owns one),
// waits for every process to finish or stop, and registers a Job if the
// pipeline stops rather than completing, per the design's foreground wait
// loop (wait -pgid WUNTRACED deriving Done/148-Stopped/Running). If ctx is
// canceled before the pipeline finishes, the whole process group is killed
// so the wait loop can return instead of blocking forever.
func (r *Runner) waitForeground(ctx context.Context, pgid int, cmdText string, pids []int, results []*spawn.Result) (int, error) {
	if r.TerminalFD >= 0 {
		_ = unix.IoctlSetPointerInt(r.TerminalFD, unix.TIOCSPGRP, pgid)
	}
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			unix.Kill(-pgid, unix.SIGKILL)
		case <-done:
		}
	}()
	remaining := map[int]bool{}
	for _, pid := range pids {
		remaining[pid] = true
	}
	lastPid := pids[len(pids)-1]
	lastStatus := 0
	statuses := map[int]int{}
	stopped := false
	var stoppedPid int
	var stoppedStatus unix.WaitStatus
	for len(remaining) > 0 {
		var status unix.WaitStatus
		pid, err := unix.Wait4(-pgid, &status, unix.WUNTRACED, nil)
		if err != nil {
			break
		}
		if status.Stopped() {
			stopped = true
			stoppedPid = pid
			stoppedStatus = status
			break
		}
		delete(remaining, pid)
		statuses[pid] = job.Process{RawStatus: status}.ExitCode()
		if pid == lastPid {
			lastStatus = statuses[pid]
		}
	}
	if r.Opts.PipeFail {
		// Under pipefail the leftmost failing stage decides the status.
		for _, pid := range pids {
			if s := statuses[pid]; s != 0 {
				lastStatus = s
				break
			}
		}
	}
	if r.TerminalFD >= 0 {
		_ = unix.IoctlSetPointerInt(r.TerminalFD, unix.TIOCSPGRP, unix.Getpgrp())
	}
	if stopped {
		var id int
		if r.jobs != nil {
			id = r.jobs.Insert(pgid, cmdText, pids)
			r.jobs.MarkPID(stoppedPid, stoppedStatus)
		}
		r.outf("\n[%d]+ Stopped\t%s\n", id, cmdText)
		return 148, nil
	}
	if err := ctx.Err(); err != nil {
		return 130, err
	}
	return lastStatus, nil
}

// resolveStdio picks the stdin/stdout for command i of a pipeline (the
// previous/next pipe ends, or a redirect target), applies any explicit
// redirects on top, and returns any temporary files (e.g. herestring pipes)
// that must be closed once Spawn has forked.
func (r *Runner) resolveStdio(cmd *ast.Command, readers, writers []*os.File, i, n int) (stdin, stdout, stderr *os.File, extra []*os.File, cleanup []*os.File, err error) {
	stdin, stdout, stderr = os.Stdin, os.Stdout, os.Stderr
	if i > 0 {
		stdin = readers[i]
	}
	if i < n-1 {
		stdout = writers[i]
	}
	for _, rd := range cmd.Redirects {
		switch rd.Kind {
		case ast.RedirOutput, ast.RedirAppend:
			f, oerr := r.openRedirect(rd)
			if oerr != nil {
				return nil, nil, nil, nil, cleanup, oerr
			}
			stdout = f
			cleanup = append(cleanup, f)
		case ast.RedirStderr, ast.RedirStderrAppend:
			f, oerr := r.openRedirect(rd)
			if oerr != nil {
				return nil, nil, nil, nil, cleanup, oerr
			}
			stderr = f
			cleanup = append(cleanup, f)
		case ast.RedirInput:
			f, oerr := r.openRedirect(rd)
			if oerr != nil {
				return nil, nil, nil, nil, cleanup, oerr
			}
			stdin = f
			cleanup = append(cleanup, f)
		case ast.RedirHereDoc:
			pr, pw, perr := os.Pipe()
			if perr != nil {
				return nil, nil, nil, nil, cleanup, perr
			}
			go func(body string) { pw.WriteString(body); pw.Close() }(rd.Body)
			stdin = pr
			cleanup = append(cleanup, pr)
		case ast.RedirHereString:
			pr, pw, perr := os.Pipe()
			if perr != nil {
				return nil, nil, nil, nil, cleanup, perr
			}
			text, _ := r.resolveCmdSubst(context.Background(), rd.Target)
			go func(body string) { pw.WriteString(body + "\n"); pw.Close() }(text)
			stdin = pr
			cleanup = append(cleanup, pr)
		case ast.RedirFdDup:
			switch rd.DstFd {
			case 1:
				stderr = stdout
			case 2:
				stdout = stderr
			}
		}
	}
	return stdin, stdout, stderr, nil, cleanup, nil
}

func closeIfOpen(f *os.File, shouldClose bool) {
	if f == nil || !shouldClose {
		return
	}
	switch f {
	case os.Stdin, os.Stdout, os.Stderr:
		return
	}
	f.Close()
}

func pipelineText(p *ast.Pipeline) string {
	parts := make([]string, len(p.Commands))
	for i, c := range p.Commands {
		words := make([]string, len(c.Args))
		for j, w := range c.Args {
			words[j] = w.Literal()
		}
		parts[i] = strings.Join(words, " ")
	}
	return strings.Join(parts, " | ")
}
