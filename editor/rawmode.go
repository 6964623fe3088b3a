//go:build unix

package editor

import (
	"os"

	"golang.org/x/term"
)

// rawMode is a scoped terminal mode switch: construction enters raw mode,
// restore (via defer) always puts the original attributes back regardless
// of how the caller exits, mirroring a destructor/RAII guard.
type rawMode struct {
	fd       int
	oldState *term.State
}

func enterRawMode(f *os.File) (*rawMode, error) {
	fd := int(f.Fd())
	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return &rawMode{fd: fd, oldState: old}, nil
}

// restore puts the terminal back exactly as enterRawMode found it. Errors
// are ignored: there is nothing more useful to do with a failed
// tcsetattr on the way out.
func (m *rawMode) restore() {
	if m == nil {
		return
	}
	_ = term.Restore(m.fd, m.oldState)
}
