// Package history implements the line editor's bounded command history and
// its up/down navigation cursor.
package history

import (
	"bufio"
	"os"
	"strings"

	"github.com/google/renameio/v2"
)

// MaxEntries bounds how many lines history keeps, trimming the oldest when
// exceeded.
const MaxEntries = 1000

// History is a bounded, ordered list of previously entered lines plus a
// navigation cursor used while the user walks it with the arrow keys.
type History struct {
	entries []string
	path    string

	// navIndex is an index into entries; len(entries) means "not
	// navigating, showing the live buffer".
	navIndex int
	// savedBuf holds whatever the user had typed before the first press
	// of the up arrow, restored when navigation runs off the end.
	savedBuf string
}

// New returns an empty history that persists to path (empty disables
// persistence).
func New(path string) *History {
	return &History{path: path, navIndex: 0}
}

// Load reads up to MaxEntries trailing lines from the history file. Missing
// files are not an error; the history just starts empty.
func (h *History) Load() error {
	if h.path == "" {
		return nil
	}
	f, err := os.Open(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) > MaxEntries {
		lines = lines[len(lines)-MaxEntries:]
	}
	h.entries = lines
	h.resetNav()
	return sc.Err()
}

// Add appends line to history, skipping empty lines and immediate
// duplicates, and trims to MaxEntries. It also persists the new entry if a
// path was configured.
func (h *History) Add(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == line {
		h.resetNav()
		return
	}
	h.entries = append(h.entries, line)
	if len(h.entries) > MaxEntries {
		h.entries = h.entries[len(h.entries)-MaxEntries:]
		h.rewriteFile()
		return
	}
	h.resetNav()
	h.appendFile(line)
}

func (h *History) appendFile(line string) {
	if h.path == "" {
		return
	}
	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	f.WriteString(line)
	f.WriteString("\n")
}

// rewriteFile atomically replaces the whole history file with the current,
// trimmed entry set. Used once trimming drops old lines, since a plain
// append can no longer keep the file in sync with h.entries; a crash
// mid-write must never leave a truncated or half-written file behind.
func (h *History) rewriteFile() {
	h.resetNav()
	if h.path == "" {
		return
	}
	var sb strings.Builder
	for _, e := range h.entries {
		sb.WriteString(e)
		sb.WriteByte('\n')
	}
	_ = renameio.WriteFile(h.path, []byte(sb.String()), 0o600)
}

// Len reports how many entries are stored.
func (h *History) Len() int { return len(h.entries) }

// Entries returns the history in insertion order, oldest first.
func (h *History) Entries() []string { return h.entries }

// resetNav points the cursor back at the live buffer.
func (h *History) resetNav() {
	h.navIndex = len(h.entries)
	h.savedBuf = ""
}

// AtEnd reports whether the navigation cursor is back at the live buffer.
func (h *History) AtEnd() bool { return h.navIndex >= len(h.entries) }

// SaveCurrent remembers the in-progress buffer so Next can restore it once
// navigation runs back off the end. It is a no-op once a save is already in
// flight, matching "only the first ↑ captures the live buffer".
func (h *History) SaveCurrent(buf string) {
	if h.AtEnd() {
		h.savedBuf = buf
	}
}

// Prev walks backward (older) one entry and returns it. ok is false if
// there's nothing older to show.
func (h *History) Prev() (line string, ok bool) {
	if h.navIndex == 0 {
		return "", false
	}
	h.navIndex--
	return h.entries[h.navIndex], true
}

// Next walks forward (newer) one entry. Past the newest entry it returns
// the buffer saved by SaveCurrent and resets navigation.
func (h *History) Next() (line string, ok bool) {
	if h.navIndex >= len(h.entries) {
		return "", false
	}
	h.navIndex++
	if h.navIndex >= len(h.entries) {
		saved := h.savedBuf
		h.savedBuf = ""
		return saved, true
	}
	return h.entries[h.navIndex], true
}

// ResetNav is the exported form of resetNav, called when the editor accepts
// a line or the user otherwise leaves history navigation (e.g. ^C).
func (h *History) ResetNav() { h.resetNav() }

// SearchBackward returns the most recent entry at or before fromIndex
// (exclusive of entries past it) containing query, walking from newest to
// oldest. fromIndex of -1 starts the search at the newest entry. Used by
// incremental reverse search (^R).
func (h *History) SearchBackward(query string, fromIndex int) (idx int, line string, ok bool) {
	if query == "" {
		return -1, "", false
	}
	start := fromIndex
	if start < 0 || start > len(h.entries)-1 {
		start = len(h.entries) - 1
	}
	for i := start; i >= 0; i-- {
		if strings.Contains(h.entries[i], query) {
			return i, h.entries[i], true
		}
	}
	return -1, "", false
}
