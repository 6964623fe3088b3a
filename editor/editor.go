// Package editor implements the interactive line editor: raw-mode terminal
// input, UTF-8-safe buffer editing, history navigation, incremental
// reverse search, tab completion, and syntax-highlighted redraw.
package editor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/rushshell/rush/completion"
	"github.com/rushshell/rush/highlight"
	"github.com/rushshell/rush/history"
)

// ErrEOF is returned by ReadLine when the user presses ^D on an empty
// buffer, the terminal's end-of-input signal.
var ErrEOF = errors.New("editor: eof")

// ErrInterrupted is returned when ^C clears the line rather than
// submitting it; the caller should print a fresh prompt and read again.
var ErrInterrupted = errors.New("editor: interrupted")

// Editor reads one line at a time from an interactive terminal.
type Editor struct {
	in  *os.File
	out io.Writer

	hist      *history.History
	cache     *highlight.PathCache
	isBuiltin func(string) bool
	builtins  []string

	reader *keyReader
}

// New returns a line editor reading from in and writing prompts/redraws to
// out. in must be a terminal for raw mode to take effect; a non-terminal
// in (e.g. in tests) degrades ReadLine to simple line-buffered input.
func New(in *os.File, out io.Writer, hist *history.History, cache *highlight.PathCache, isBuiltin func(string) bool, builtins []string) *Editor {
	return &Editor{
		in:        in,
		out:       out,
		hist:      hist,
		cache:     cache,
		isBuiltin: isBuiltin,
		builtins:  builtins,
		reader:    newKeyReader(in),
	}
}

// lineState is the mutable state of one in-progress ReadLine call.
type lineState struct {
	buf    []byte
	cursor int // byte offset, always on a UTF-8 boundary

	prompt string

	searching   bool
	searchQuery string
	searchIdx   int // -1 means "not yet found anything this search"
}

// ReadLine displays prompt, reads key-by-key in raw mode, and returns the
// accepted line once the user presses Enter. Raw mode is entered for the
// duration of the call only; it is always restored before returning, by
// any exit path.
func (e *Editor) ReadLine(prompt string) (string, error) {
	mode, err := enterRawMode(e.in)
	if err != nil {
		return e.readLineFallback(prompt)
	}
	defer mode.restore()

	e.cache.Refresh()
	st := &lineState{prompt: prompt, searchIdx: -1}
	e.redraw(st)

	for {
		key, r, err := e.reader.Read()
		if err != nil {
			if len(st.buf) == 0 {
				return "", ErrEOF
			}
			return string(st.buf), nil
		}

		if st.searching {
			if done, line, accept := e.handleSearchKey(st, key, r); done {
				if accept {
					st.buf = []byte(line)
					st.cursor = len(st.buf)
				}
				st.searching = false
				e.redraw(st)
				continue
			}
			e.redrawSearch(st)
			continue
		}

		switch key {
		case KeyEnter:
			fmt.Fprint(e.out, "\r\n")
			line := string(st.buf)
			e.hist.ResetNav()
			return line, nil
		case KeyCtrlC:
			fmt.Fprint(e.out, "\r\n")
			return "", ErrInterrupted
		case KeyCtrlD:
			if len(st.buf) == 0 {
				fmt.Fprint(e.out, "\r\n")
				return "", ErrEOF
			}
			e.deleteAt(st)
		case KeyBackspace:
			e.deleteBefore(st)
		case KeyDelete:
			e.deleteAt(st)
		case KeyLeft:
			e.moveLeft(st)
		case KeyRight:
			e.moveRight(st)
		case KeyCtrlA, KeyHome:
			st.cursor = 0
		case KeyCtrlE, KeyEnd:
			st.cursor = len(st.buf)
		case KeyCtrlK:
			st.buf = st.buf[:st.cursor]
		case KeyCtrlU:
			st.buf = append([]byte{}, st.buf[st.cursor:]...)
			st.cursor = 0
		case KeyCtrlW:
			e.killWordBackward(st)
		case KeyCtrlL:
			fmt.Fprint(e.out, "\x1b[2J\x1b[H")
		case KeyCtrlR:
			st.searching = true
			st.searchQuery = ""
			st.searchIdx = -1
			e.redrawSearch(st)
			continue
		case KeyUp:
			e.historyPrev(st)
		case KeyDown:
			e.historyNext(st)
		case KeyTab:
			e.complete(st)
		case KeyChar:
			e.insert(st, r)
		case KeyEscape, KeyNone:
			// no-op
		}
		e.redraw(st)
	}
}

// readLineFallback supports non-terminal input (pipes, tests): it reads
// one newline-terminated line without any of the interactive features.
func (e *Editor) readLineFallback(prompt string) (string, error) {
	fmt.Fprint(e.out, prompt)
	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := e.in.Read(buf)
		if n == 1 {
			if buf[0] == '\n' {
				return sb.String(), nil
			}
			sb.WriteByte(buf[0])
		}
		if err != nil {
			if sb.Len() == 0 {
				return "", ErrEOF
			}
			return sb.String(), nil
		}
	}
}

// --- buffer operations ---

func (e *Editor) insert(st *lineState, r rune) {
	var enc [utf8.UTFMax]byte
	n := utf8.EncodeRune(enc[:], r)
	buf := make([]byte, 0, len(st.buf)+n)
	buf = append(buf, st.buf[:st.cursor]...)
	buf = append(buf, enc[:n]...)
	buf = append(buf, st.buf[st.cursor:]...)
	st.buf = buf
	st.cursor += n
}

func (e *Editor) deleteBefore(st *lineState) {
	if st.cursor == 0 {
		return
	}
	prev := prevRuneStart(st.buf, st.cursor)
	st.buf = append(st.buf[:prev], st.buf[st.cursor:]...)
	st.cursor = prev
}

func (e *Editor) deleteAt(st *lineState) {
	if st.cursor >= len(st.buf) {
		return
	}
	next := nextRuneStart(st.buf, st.cursor)
	st.buf = append(st.buf[:st.cursor], st.buf[next:]...)
}

func (e *Editor) moveLeft(st *lineState) {
	if st.cursor > 0 {
		st.cursor = prevRuneStart(st.buf, st.cursor)
	}
}

func (e *Editor) moveRight(st *lineState) {
	if st.cursor < len(st.buf) {
		st.cursor = nextRuneStart(st.buf, st.cursor)
	}
}

// killWordBackward deletes trailing whitespace then the word before it,
// matching the classic ^W: `"echo   hello"` with the cursor at the end
// becomes `"echo   "`.
func (e *Editor) killWordBackward(st *lineState) {
	i := st.cursor
	for i > 0 && isSpace(st.buf[i-1]) {
		i--
	}
	for i > 0 && !isSpace(st.buf[i-1]) {
		i--
	}
	st.buf = append(st.buf[:i], st.buf[st.cursor:]...)
	st.cursor = i
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' }

func prevRuneStart(buf []byte, at int) int {
	i := at - 1
	for i > 0 && !utf8.RuneStart(buf[i]) {
		i--
	}
	return i
}

func nextRuneStart(buf []byte, at int) int {
	_, size := utf8.DecodeRune(buf[at:])
	if size == 0 {
		return at + 1
	}
	return at + size
}

// --- history navigation ---

func (e *Editor) historyPrev(st *lineState) {
	e.hist.SaveCurrent(string(st.buf))
	line, ok := e.hist.Prev()
	if !ok {
		return
	}
	st.buf = []byte(line)
	st.cursor = len(st.buf)
}

func (e *Editor) historyNext(st *lineState) {
	line, ok := e.hist.Next()
	if !ok {
		return
	}
	st.buf = []byte(line)
	st.cursor = len(st.buf)
}

// --- completion ---

func (e *Editor) complete(st *lineState) {
	res := completion.Complete(string(st.buf), st.cursor, e.builtins)
	switch len(res.Candidates) {
	case 0:
		fmt.Fprint(e.out, "\a")
		return
	case 1:
		repl := res.Replacement
		if res.IsDir {
			repl += "/"
		} else {
			repl += " "
		}
		e.applyCompletion(st, res.WordStart, repl)
	default:
		e.applyCompletion(st, res.WordStart, res.Replacement)
		fmt.Fprint(e.out, "\r\n", strings.Join(res.Candidates, "  "), "\r\n")
	}
}

func (e *Editor) applyCompletion(st *lineState, wordStart int, replacement string) {
	wordEnd := st.cursor
	var buf []byte
	buf = append(buf, st.buf[:wordStart]...)
	buf = append(buf, replacement...)
	buf = append(buf, st.buf[wordEnd:]...)
	st.cursor = wordStart + len(replacement)
	st.buf = buf
}

// --- incremental reverse search ---

// handleSearchKey processes one key while ^R search mode is active. done
// reports that search mode should end; accept (only meaningful if done)
// says whether line should replace the buffer or the search should just be
// cancelled.
func (e *Editor) handleSearchKey(st *lineState, key Key, r rune) (done bool, line string, accept bool) {
	switch key {
	case KeyCtrlR:
		idx, found, ok := e.hist.SearchBackward(st.searchQuery, st.searchIdx-1)
		if ok {
			st.searchIdx = idx
			return false, found, false
		}
		return false, "", false
	case KeyEnter:
		_, found, ok := e.hist.SearchBackward(st.searchQuery, st.searchIdx)
		if ok {
			return true, found, true
		}
		return true, "", false
	case KeyCtrlC, KeyEscape:
		return true, "", false
	case KeyBackspace:
		if len(st.searchQuery) > 0 {
			st.searchQuery = st.searchQuery[:len(st.searchQuery)-1]
		}
		return false, "", false
	case KeyChar:
		st.searchQuery += string(r)
		idx, found, ok := e.hist.SearchBackward(st.searchQuery, -1)
		if ok {
			st.searchIdx = idx
			return false, found, false
		}
		return false, "", false
	default:
		// Any other editing key accepts the current match and resumes
		// normal editing there.
		_, found, ok := e.hist.SearchBackward(st.searchQuery, st.searchIdx)
		if ok {
			return true, found, true
		}
		return true, "", false
	}
}

// --- redraw ---

// redraw emits one write: CR, prompt, highlighted buffer, clear-to-EOL,
// and a cursor reposition if the cursor isn't at the end. Visible-width
// math is done against the raw buffer, never the colorized output, and
// accounts for double-width runes (CJK, etc.) so the cursor lands on the
// right terminal column rather than one-column-per-rune.
func (e *Editor) redraw(st *lineState) {
	var sb strings.Builder
	sb.WriteString("\r")
	sb.WriteString(st.prompt)
	sb.WriteString(highlight.Highlight(string(st.buf), e.isBuiltin, e.cache))
	sb.WriteString("\x1b[K")

	trailing := runewidth.StringWidth(string(st.buf[st.cursor:]))
	if trailing > 0 {
		fmt.Fprintf(&sb, "\x1b[%dD", trailing)
	}
	fmt.Fprint(e.out, sb.String())
}

func (e *Editor) redrawSearch(st *lineState) {
	fmt.Fprintf(e.out, "\r(reverse-i-search)`%s': %s\x1b[K", st.searchQuery, st.buf)
}
