//go:build unix

package editor

import (
	"testing"

	"github.com/creack/pty"
)

func TestEnterRawModeRestoresOriginalState(t *testing.T) {
	t.Parallel()
	_, tty, err := pty.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer tty.Close()

	before, err := enterRawMode(tty)
	if err != nil {
		t.Fatal(err)
	}
	if before.fd != int(tty.Fd()) {
		t.Fatalf("fd = %d, want %d", before.fd, int(tty.Fd()))
	}

	// Entering raw mode again on the same fd must still succeed and capture
	// a (now already-raw) state to restore to.
	again, err := enterRawMode(tty)
	if err != nil {
		t.Fatal(err)
	}
	again.restore()
	before.restore()

	var nilMode *rawMode
	nilMode.restore() // must not panic
}
