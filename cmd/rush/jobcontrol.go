// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package main

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/rushshell/rush/interp"
	"github.com/rushshell/rush/job"
)

// jobController adapts a job.Table to the interp.JobController interface the
// runner uses to back the "jobs", "fg" and "bg" builtins.
type jobController struct {
	table *job.Table
	tty   int // fd of the controlling terminal, or -1 if there isn't one
}

func newJobController(table *job.Table, ttyFd int) *jobController {
	return &jobController{table: table, tty: ttyFd}
}

func (c *jobController) List() []interp.JobSummary {
	jobs := c.table.List()
	out := make([]interp.JobSummary, len(jobs))
	for i, j := range jobs {
		out[i] = interp.JobSummary{
			ID:      j.ID,
			Status:  j.Status().String(),
			Command: j.Command,
		}
	}
	return out
}

func (c *jobController) Resume(id int, foreground bool) (exitCode int, err error) {
	if id == 0 {
		id = c.table.CurrentJobID()
	}
	j, ok := c.table.Get(id)
	if !ok {
		return 0, fmt.Errorf("no such job: %d", id)
	}
	if err := unix.Kill(-j.PGID, unix.SIGCONT); err != nil {
		return 0, fmt.Errorf("resuming job %d: %w", id, err)
	}
	if !foreground {
		return 0, nil
	}
	if c.tty >= 0 {
		_ = unix.IoctlSetPointerInt(c.tty, unix.TIOCSPGRP, j.PGID)
		defer unix.IoctlSetPointerInt(c.tty, unix.TIOCSPGRP, unix.Getpgrp())
	}
	for j.Status() == job.Running || j.Status() == job.Stopped {
		var status unix.WaitStatus
		pid, err := unix.Wait4(-j.PGID, &status, unix.WUNTRACED, nil)
		if err != nil {
			break
		}
		c.table.MarkPID(pid, status)
		if status.Stopped() {
			break
		}
	}
	code := j.ExitCode()
	if j.Status() == job.Done {
		c.table.Remove(id)
	}
	return code, nil
}
