package editor

import (
	"errors"
	"os"
	"time"
)

// escTimeout is how long readEscapeSeq waits for a follow-up byte after a lone
// ESC before deciding it really was a bare Escape keypress.
const escTimeout = 50 * time.Millisecond

// keyReader decodes a byte stream from a raw-mode terminal into Key events,
// including multi-byte escape sequences and UTF-8 runes.
type keyReader struct {
	f *os.File
}

func newKeyReader(f *os.File) *keyReader { return &keyReader{f: f} }

func (kr *keyReader) readByte() (byte, error) {
	var buf [1]byte
	n, err := kr.f.Read(buf[:])
	if n == 1 {
		return buf[0], nil
	}
	if err == nil {
		err = errors.New("editor: short read")
	}
	return 0, err
}

// tryReadByte attempts one byte within the given timeout, used only for the
// follow-up half of an escape sequence. Returns ok=false on timeout.
func (kr *keyReader) tryReadByte(timeout time.Duration) (b byte, ok bool) {
	if err := kr.f.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		// Deadlines aren't supported on this file (e.g. a plain pipe in
		// tests); fall back to a blocking read.
		b, err := kr.readByte()
		return b, err == nil
	}
	defer kr.f.SetReadDeadline(time.Time{})
	b, err := kr.readByte()
	return b, err == nil
}

// Read blocks for the next key event. r is the decoded rune for KeyChar.
func (kr *keyReader) Read() (key Key, r rune, err error) {
	b, err := kr.readByte()
	if err != nil {
		return KeyNone, 0, err
	}

	switch b {
	case '\r', '\n':
		return KeyEnter, 0, nil
	case 127, 8:
		return KeyBackspace, 0, nil
	case 1:
		return KeyCtrlA, 0, nil
	case 3:
		return KeyCtrlC, 0, nil
	case 4:
		return KeyCtrlD, 0, nil
	case 5:
		return KeyCtrlE, 0, nil
	case 11:
		return KeyCtrlK, 0, nil
	case 12:
		return KeyCtrlL, 0, nil
	case 18:
		return KeyCtrlR, 0, nil
	case 21:
		return KeyCtrlU, 0, nil
	case 23:
		return KeyCtrlW, 0, nil
	case '\t':
		return KeyTab, 0, nil
	case 27:
		return kr.readEscapeSeq()
	}

	if b < 0x80 {
		return KeyChar, rune(b), nil
	}
	return kr.readUTF8Continuation(b)
}

// readEscapeSeq handles ESC followed by either nothing (bare Escape), or a
// CSI sequence for arrows, Home/End, and Delete.
func (kr *keyReader) readEscapeSeq() (Key, rune, error) {
	b1, ok := kr.tryReadByte(escTimeout)
	if !ok {
		return KeyEscape, 0, nil
	}
	if b1 != '[' && b1 != 'O' {
		return KeyEscape, 0, nil
	}
	b2, ok := kr.tryReadByte(escTimeout)
	if !ok {
		return KeyEscape, 0, nil
	}
	switch b2 {
	case 'A':
		return KeyUp, 0, nil
	case 'B':
		return KeyDown, 0, nil
	case 'C':
		return KeyRight, 0, nil
	case 'D':
		return KeyLeft, 0, nil
	case 'H':
		return KeyHome, 0, nil
	case 'F':
		return KeyEnd, 0, nil
	case '1', '4', '3':
		// "ESC [ 1~"/"4~" (Home/End) or "ESC [ 3~" (Delete); consume the
		// trailing '~'.
		tilde, ok := kr.tryReadByte(escTimeout)
		if !ok || tilde != '~' {
			return KeyEscape, 0, nil
		}
		switch b2 {
		case '1':
			return KeyHome, 0, nil
		case '4':
			return KeyEnd, 0, nil
		case '3':
			return KeyDelete, 0, nil
		}
	}
	return KeyEscape, 0, nil
}

// readUTF8Continuation reads however many continuation bytes the lead byte
// promises and decodes the resulting rune.
func (kr *keyReader) readUTF8Continuation(lead byte) (Key, rune, error) {
	var n int
	var r rune
	switch {
	case lead&0xE0 == 0xC0:
		n, r = 1, rune(lead&0x1F)
	case lead&0xF0 == 0xE0:
		n, r = 2, rune(lead&0x0F)
	case lead&0xF8 == 0xF0:
		n, r = 3, rune(lead&0x07)
	default:
		// Not a valid UTF-8 lead byte; surface it verbatim so the editor
		// doesn't wedge on noise.
		return KeyChar, rune(lead), nil
	}
	for i := 0; i < n; i++ {
		b, err := kr.readByte()
		if err != nil {
			return KeyNone, 0, err
		}
		r = r<<6 | rune(b&0x3F)
	}
	return KeyChar, r, nil
}
