package highlight

import (
	"strings"
	"testing"
)

func testBuiltin(name string) bool {
	return name == "echo" || name == "exit" || name == "cd"
}

func emptyCache() *PathCache {
	return &PathCache{commands: map[string]bool{}}
}

func TestValidBuiltinIsGreen(t *testing.T) {
	t.Parallel()
	out := Highlight("echo", testBuiltin, emptyCache())
	if !strings.Contains(out, greenBold) || !strings.Contains(out, "echo") {
		t.Fatalf("got %q", out)
	}
}

func TestInvalidCommandIsRed(t *testing.T) {
	t.Parallel()
	out := Highlight("nosuchcmd", testBuiltin, emptyCache())
	if !strings.Contains(out, redBold) {
		t.Fatalf("got %q", out)
	}
}

func TestPipeIsCyan(t *testing.T) {
	t.Parallel()
	out := Highlight("echo hello | exit", testBuiltin, emptyCache())
	if !strings.Contains(out, cyan+"|"+reset) {
		t.Fatalf("got %q", out)
	}
}

func TestCommandAfterPipeIsColored(t *testing.T) {
	t.Parallel()
	out := Highlight("echo hello | exit", testBuiltin, emptyCache())
	if !strings.Contains(out, greenBold+"exit"+reset) {
		t.Fatalf("got %q", out)
	}
}

func TestVariableIsMagenta(t *testing.T) {
	t.Parallel()
	out := Highlight("echo $HOME", testBuiltin, emptyCache())
	if !strings.Contains(out, magenta) || !strings.Contains(out, "$HOME") {
		t.Fatalf("got %q", out)
	}
}

func TestQuotedStringIsYellow(t *testing.T) {
	t.Parallel()
	out := Highlight(`echo "hello"`, testBuiltin, emptyCache())
	if !strings.Contains(out, yellow) {
		t.Fatalf("got %q", out)
	}
}

func TestRedirectTargetUncolored(t *testing.T) {
	t.Parallel()
	out := Highlight("echo hi > out.txt", testBuiltin, emptyCache())
	if !strings.Contains(out, "out.txt") {
		t.Fatalf("redirect target missing: %q", out)
	}
	if strings.Contains(out, greenBold+"out.txt") || strings.Contains(out, redBold+"out.txt") {
		t.Fatalf("redirect target was colored: %q", out)
	}
}

func TestPathCacheCommandsWithPrefix(t *testing.T) {
	t.Parallel()
	c := &PathCache{commands: map[string]bool{"foobar": true, "foobaz": true, "other": true}}
	got := c.CommandsWithPrefix("foo")
	if len(got) != 2 {
		t.Fatalf("got %v", got)
	}
}
