package history

import (
	"path/filepath"
	"testing"
)

func TestAddSkipsEmptyAndDuplicates(t *testing.T) {
	t.Parallel()
	h := New("")
	h.Add("echo a")
	h.Add("")
	h.Add("   ")
	h.Add("echo a")
	h.Add("echo b")
	if got := h.Entries(); len(got) != 2 || got[0] != "echo a" || got[1] != "echo b" {
		t.Fatalf("entries = %v", got)
	}
}

func TestAddTrimsToMax(t *testing.T) {
	t.Parallel()
	h := New("")
	for i := 0; i < MaxEntries+50; i++ {
		h.Add("cmd")
		// consecutive-duplicate skip would defeat the trim test, so vary it
		h.entries[len(h.entries)-1] = h.entries[len(h.entries)-1] + string(rune('a'+i%26))
	}
	if h.Len() != MaxEntries {
		t.Fatalf("Len() = %d, want %d", h.Len(), MaxEntries)
	}
}

func TestNavigation(t *testing.T) {
	t.Parallel()
	h := New("")
	h.Add("one")
	h.Add("two")
	h.Add("three")

	h.SaveCurrent("typing...")
	line, ok := h.Prev()
	if !ok || line != "three" {
		t.Fatalf("first Prev = %q, %v", line, ok)
	}
	line, ok = h.Prev()
	if !ok || line != "two" {
		t.Fatalf("second Prev = %q, %v", line, ok)
	}
	line, ok = h.Prev()
	if !ok || line != "one" {
		t.Fatalf("third Prev = %q, %v", line, ok)
	}
	if _, ok := h.Prev(); ok {
		t.Fatal("Prev past the oldest entry should fail")
	}

	line, ok = h.Next()
	if !ok || line != "two" {
		t.Fatalf("first Next = %q, %v", line, ok)
	}
	h.Next() // "three"
	line, ok = h.Next()
	if !ok || line != "typing..." {
		t.Fatalf("Next past newest = %q, %v, want saved buffer", line, ok)
	}
	if !h.AtEnd() {
		t.Fatal("expected navigation to be back at the live buffer")
	}
}

func TestLoadAndPersist(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "hist")

	h := New(path)
	h.Add("first")
	h.Add("second")

	h2 := New(path)
	if err := h2.Load(); err != nil {
		t.Fatal(err)
	}
	if got := h2.Entries(); len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Fatalf("reloaded entries = %v", got)
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	t.Parallel()
	h := New(filepath.Join(t.TempDir(), "does-not-exist"))
	if err := h.Load(); err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if h.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", h.Len())
	}
}

func TestSearchBackward(t *testing.T) {
	t.Parallel()
	h := New("")
	h.Add("cd /tmp")
	h.Add("echo hi")
	h.Add("cd /home")

	idx, line, ok := h.SearchBackward("cd", -1)
	if !ok || line != "cd /home" || idx != 2 {
		t.Fatalf("SearchBackward = %d, %q, %v", idx, line, ok)
	}
	idx, line, ok = h.SearchBackward("cd", idx-1)
	if !ok || line != "cd /tmp" || idx != 0 {
		t.Fatalf("second SearchBackward = %d, %q, %v", idx, line, ok)
	}
	// A negative fromIndex restarts the search at the newest entry.
	idx, line, ok = h.SearchBackward("cd", idx-1)
	if !ok || line != "cd /home" || idx != 2 {
		t.Fatalf("wrapped SearchBackward = %d, %q, %v", idx, line, ok)
	}
}
