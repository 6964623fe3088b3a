// Package job tracks pipelines that outlive their foreground moment: a
// backgrounded command, or a foreground command stopped by a terminal
// signal. It mirrors the state a shell reconstructs from waitpid results,
// not a scheduler of its own.
package job

import (
	"fmt"
	"sort"

	"golang.org/x/sys/unix"
)

// Status is the derived state of a Job from its process set.
type Status int

const (
	Running Status = iota
	Stopped
	Done
)

func (s Status) String() string {
	switch s {
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

// Process is one member of a job's process group.
type Process struct {
	PID       int
	Completed bool
	Stopped   bool
	RawStatus unix.WaitStatus
}

// ExitCode derives a POSIX exit code from a raw wait status: a normal exit
// keeps its code, a signal death maps to 128+signal.
func (p Process) ExitCode() int {
	switch {
	case p.RawStatus.Exited():
		return p.RawStatus.ExitStatus()
	case p.RawStatus.Signaled():
		return 128 + int(p.RawStatus.Signal())
	default:
		return 0
	}
}

// Job is a pipeline the shell is tracking past the moment it was launched.
type Job struct {
	ID        int
	PGID      int
	Command   string
	Processes []*Process
	Notified  bool
}

// Status derives the job's overall status from its processes: any stopped
// process makes the whole job Stopped; all-completed makes it Done with the
// last process's exit code; otherwise it's Running.
func (j *Job) Status() Status {
	anyStopped := false
	allDone := true
	for _, p := range j.Processes {
		if p.Stopped && !p.Completed {
			anyStopped = true
		}
		if !p.Completed {
			allDone = false
		}
	}
	switch {
	case anyStopped:
		return Stopped
	case allDone:
		return Done
	default:
		return Running
	}
}

// ExitCode returns the derived exit code of the job's last process. Only
// meaningful once Status is Done.
func (j *Job) ExitCode() int {
	if len(j.Processes) == 0 {
		return 0
	}
	return j.Processes[len(j.Processes)-1].ExitCode()
}

// Table is the shell's collection of tracked jobs, keyed by the smallest
// unused positive id.
type Table struct {
	jobs map[int]*Job
}

// NewTable returns an empty job table.
func NewTable() *Table {
	return &Table{jobs: make(map[int]*Job)}
}

// Insert registers a new job and returns its assigned id.
func (t *Table) Insert(pgid int, command string, pids []int) int {
	id := t.nextID()
	procs := make([]*Process, len(pids))
	for i, pid := range pids {
		procs[i] = &Process{PID: pid}
	}
	t.jobs[id] = &Job{ID: id, PGID: pgid, Command: command, Processes: procs}
	return id
}

func (t *Table) nextID() int {
	id := 1
	for {
		if _, ok := t.jobs[id]; !ok {
			return id
		}
		id++
	}
}

// Get returns the job with the given id, if any.
func (t *Table) Get(id int) (*Job, bool) {
	j, ok := t.jobs[id]
	return j, ok
}

// JobForPID finds the job owning pid, if any.
func (t *Table) JobForPID(pid int) (*Job, *Process, bool) {
	for _, j := range t.jobs {
		for _, p := range j.Processes {
			if p.PID == pid {
				return j, p, true
			}
		}
	}
	return nil, nil, false
}

// MarkPID applies a wait status to the process with the given pid, marking
// it stopped or completed as appropriate. Reports whether a process was
// found.
func (t *Table) MarkPID(pid int, status unix.WaitStatus) bool {
	_, p, ok := t.JobForPID(pid)
	if !ok {
		return false
	}
	p.RawStatus = status
	if status.Stopped() {
		p.Stopped = true
	} else {
		p.Completed = true
		p.Stopped = false
	}
	return true
}

// CurrentJobID returns the highest id among jobs that aren't Done, used as
// the bare "%+"/"fg" target. Insert reuses the smallest free id, so this is
// not always the most recently inserted job. Returns 0 if there is none.
func (t *Table) CurrentJobID() int {
	best := 0
	for id, j := range t.jobs {
		if j.Status() == Done {
			continue
		}
		if id > best {
			best = id
		}
	}
	return best
}

// RemoveDone drops jobs that are Done and have already been notified once.
func (t *Table) RemoveDone() {
	for id, j := range t.jobs {
		if j.Status() == Done && j.Notified {
			delete(t.jobs, id)
		}
	}
}

// Remove drops a job unconditionally, e.g. after "fg" has waited for it to
// finish.
func (t *Table) Remove(id int) {
	delete(t.jobs, id)
}

// List returns all tracked jobs ordered by id, for the "jobs" builtin.
func (t *Table) List() []*Job {
	ids := make([]int, 0, len(t.jobs))
	for id := range t.jobs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]*Job, len(ids))
	for i, id := range ids {
		out[i] = t.jobs[id]
	}
	return out
}

// ReapJobs performs a non-blocking waitpid(-1, WNOHANG|WUNTRACED) loop,
// feeding every result into MarkPID, until no more children report a status
// change. It never blocks and never errors on ECHILD (no children left).
func (t *Table) ReapJobs() {
	for {
		var status unix.WaitStatus
		pid, err := unix.Wait4(-1, &status, unix.WNOHANG|unix.WUNTRACED, nil)
		if err != nil || pid <= 0 {
			return
		}
		t.MarkPID(pid, status)
	}
}

// NotifyAndClean writes a "[id] Done  command" style line for every newly
// completed job via print, marks it notified, and removes it. print is
// called once per newly-done job; the caller decides where that goes
// (normally the shell's stderr).
func (t *Table) NotifyAndClean(print func(line string)) {
	for _, j := range t.List() {
		if j.Status() == Done && !j.Notified {
			print(fmt.Sprintf("[%d]+  Done                    %s", j.ID, j.Command))
			j.Notified = true
		}
	}
	t.RemoveDone()
}
