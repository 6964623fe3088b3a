package job

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sys/unix"
)

func TestInsertAssignsSmallestUnusedID(t *testing.T) {
	t.Parallel()
	tbl := NewTable()
	id1 := tbl.Insert(100, "sleep 1", []int{100})
	id2 := tbl.Insert(200, "sleep 2", []int{200})
	if id1 != 1 || id2 != 2 {
		t.Fatalf("got ids %d, %d, want 1, 2", id1, id2)
	}

	tbl.Remove(id1)
	id3 := tbl.Insert(300, "sleep 3", []int{300})
	if id3 != 1 {
		t.Fatalf("expected reused id 1, got %d", id3)
	}
}

func TestStatusDerivation(t *testing.T) {
	t.Parallel()
	tbl := NewTable()
	id := tbl.Insert(50, "sleep 1 | cat", []int{50, 51})
	j, _ := tbl.Get(id)
	if got := j.Status(); got != Running {
		t.Fatalf("fresh job status = %v, want Running", got)
	}

	tbl.jobs[id].Processes[0].Completed = true
	if got := j.Status(); got != Running {
		t.Fatalf("partially done job status = %v, want Running", got)
	}

	tbl.jobs[id].Processes[1].Completed = true
	if got := j.Status(); got != Done {
		t.Fatalf("fully done job status = %v, want Done", got)
	}
}

func TestStoppedTakesPriority(t *testing.T) {
	t.Parallel()
	tbl := NewTable()
	id := tbl.Insert(1, "cmd", []int{1, 2})
	j, _ := tbl.Get(id)
	j.Processes[0].Completed = true
	j.Processes[1].Stopped = true
	if got := j.Status(); got != Stopped {
		t.Fatalf("status = %v, want Stopped", got)
	}
}

func TestMarkPIDNotFound(t *testing.T) {
	t.Parallel()
	tbl := NewTable()
	tbl.Insert(1, "cmd", []int{1})
	if tbl.MarkPID(999, unix.WaitStatus(0)) {
		t.Fatal("expected MarkPID for unknown pid to report false")
	}
}

func TestNotifyAndCleanRemovesOnlyNotified(t *testing.T) {
	t.Parallel()
	tbl := NewTable()
	id := tbl.Insert(1, "sleep 1", []int{1})
	j, _ := tbl.Get(id)
	j.Processes[0].Completed = true

	var lines []string
	tbl.NotifyAndClean(func(line string) { lines = append(lines, line) })
	if len(lines) != 1 {
		t.Fatalf("expected one notification, got %v", lines)
	}
	if _, ok := tbl.Get(id); ok {
		t.Fatal("expected job to be removed after notification")
	}

	// A second pass over an already-empty table notifies nothing.
	tbl.NotifyAndClean(func(line string) { t.Fatalf("unexpected notification: %s", line) })
}

func TestListOrderedByID(t *testing.T) {
	t.Parallel()
	tbl := NewTable()
	tbl.Insert(30, "c", []int{30})
	tbl.Insert(10, "a", []int{10})
	tbl.Insert(20, "b", []int{20})

	var gotIDs []int
	for _, j := range tbl.List() {
		gotIDs = append(gotIDs, j.ID)
	}
	wantIDs := []int{1, 2, 3}
	if diff := cmp.Diff(wantIDs, gotIDs); diff != "" {
		t.Fatalf("List() ids mismatch (-want +got):\n%s", diff)
	}
}

func TestCurrentJobIDIgnoresDone(t *testing.T) {
	t.Parallel()
	tbl := NewTable()
	id1 := tbl.Insert(1, "a", []int{1})
	id2 := tbl.Insert(2, "b", []int{2})
	j2, _ := tbl.Get(id2)
	j2.Processes[0].Completed = true

	if got := tbl.CurrentJobID(); got != id1 {
		t.Fatalf("CurrentJobID = %d, want %d", got, id1)
	}
}
