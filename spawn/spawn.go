//go:build unix

// Package spawn launches child processes with the fd remapping, process
// group assignment, and terminal handoff a job-control shell needs, wrapping
// os/exec rather than calling fork+exec directly.
package spawn

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// Request describes one process to launch as part of a pipeline.
type Request struct {
	Argv []string
	Env  []string
	Dir  string

	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	// ExtraFiles are inherited at fd 3, 4, ... in order, mirroring
	// exec.Cmd.ExtraFiles; used for redirect targets beyond the standard
	// three streams (e.g. N>&M constructs that need another fd alive).
	ExtraFiles []*os.File

	// PGID is the target process group. Zero means "become the group
	// leader" (the first process of a new pipeline); a positive value
	// joins an already-created group (every later process in the same
	// pipeline).
	PGID int

	// Foreground, when true, hands the controlling terminal to the new
	// process group atomically with its creation via TIOCSPGRP on TTYFd.
	// Only the first process of a foregrounded pipeline should set this.
	Foreground bool
	TTYFd      int
}

// Result is what the caller needs to track the child afterwards.
type Result struct {
	PID     int
	process *os.Process
}

// Wait blocks until the process exits and returns its exit status in the
// encoding job.Process.RawStatus expects (via the process's ProcessState).
func (r *Result) Wait() (*os.ProcessState, error) {
	return r.process.Wait()
}

// Process exposes the underlying *os.Process, e.g. to send it a signal.
func (r *Result) Process() *os.Process { return r.process }

// Spawn starts one child process according to req. It does not change any
// signal disposition itself: across execve the kernel resets signals the
// shell catches (e.g. via os/signal.Notify) to their default, while signals
// set to SIG_IGN stay ignored in the child.
//
// Errors are the raw error from exec.Cmd.Start (a failed PATH lookup is not
// returned; the bare argv[0] is tried instead), which ClassifyError maps to
// 127, 126 or 1.
func Spawn(req Request) (*Result, error) {
	if len(req.Argv) == 0 {
		return nil, fmt.Errorf("spawn: empty argv")
	}
	path, err := exec.LookPath(req.Argv[0])
	if err != nil {
		// Preserve relative/absolute paths that LookPath would reject
		// outright but the kernel can still exec directly.
		path = req.Argv[0]
	}

	cmd := exec.Cmd{
		Path:       path,
		Args:       req.Argv,
		Env:        req.Env,
		Dir:        req.Dir,
		Stdin:      req.Stdin,
		Stdout:     req.Stdout,
		Stderr:     req.Stderr,
		ExtraFiles: req.ExtraFiles,
		SysProcAttr: &syscall.SysProcAttr{
			Setpgid:    true,
			Pgid:       req.PGID,
			Foreground: req.Foreground,
			Ctty:       req.TTYFd,
		},
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	// Defeat the race where the parent waits on the child before the
	// child (or the parent itself, via Setpgid above) has installed its
	// process group: redundantly setpgid from here too. ESRCH/EACCES
	// here just mean the child already exited or already set its own
	// group; both are fine to ignore.
	pgid := req.PGID
	if pgid == 0 {
		pgid = cmd.Process.Pid
	}
	_ = syscall.Setpgid(cmd.Process.Pid, pgid)

	return &Result{PID: cmd.Process.Pid, process: cmd.Process}, nil
}

// ClassifyError maps a spawn failure to the shell's documented exit codes:
// 127 for command-not-found, 126 for permission-denied, 1 otherwise.
func ClassifyError(err error) int {
	if os.IsNotExist(err) {
		return 127
	}
	if os.IsPermission(err) {
		return 126
	}
	if perr, ok := err.(*exec.Error); ok {
		if os.IsNotExist(perr.Err) {
			return 127
		}
		if os.IsPermission(perr.Err) {
			return 126
		}
	}
	return 1
}
