package parser

import (
	"testing"

	"github.com/rushshell/rush/ast"
)

type mapEnv map[string]string

func (m mapEnv) Get(name string) (string, bool) { v, ok := m[name]; return v, ok }
func (m mapEnv) Set(name, value string)         { m[name] = value }

func parse(t *testing.T, input string, p Params) *ast.CommandList {
	t.Helper()
	cl, err := Parse(input, p)
	if err != nil {
		t.Fatalf("Parse(%q): %v", input, err)
	}
	return cl
}

func TestParseEmpty(t *testing.T) {
	cl, err := Parse("   \t  ", Params{})
	if err != nil || cl != nil {
		t.Fatalf("whitespace-only input should yield (nil, nil), got (%v, %v)", cl, err)
	}
}

func TestParseSimplePipeline(t *testing.T) {
	cl := parse(t, "echo hello | tr a-z A-Z", Params{})
	if len(cl.Items) != 1 {
		t.Fatalf("want 1 item, got %d", len(cl.Items))
	}
	pipe := cl.Items[0].Pipeline
	if len(pipe.Commands) != 2 {
		t.Fatalf("want 2 commands, got %d", len(pipe.Commands))
	}
	if got := pipe.Commands[0].Args[0].Literal(); got != "echo" {
		t.Fatalf("got %q", got)
	}
	if got := pipe.Commands[1].Args[1].Literal(); got != "a-z" {
		t.Fatalf("got %q", got)
	}
}

func TestParseConnectors(t *testing.T) {
	cl := parse(t, "true && echo ok || echo fallback", Params{})
	if len(cl.Items) != 3 {
		t.Fatalf("want 3 items, got %d", len(cl.Items))
	}
	if cl.Items[0].Connector != ast.And {
		t.Fatalf("want And, got %v", cl.Items[0].Connector)
	}
	if cl.Items[1].Connector != ast.Or {
		t.Fatalf("want Or, got %v", cl.Items[1].Connector)
	}
	if cl.Items[2].Connector != ast.Seq {
		t.Fatalf("last item connector must be Seq, got %v", cl.Items[2].Connector)
	}
}

func TestParseBackground(t *testing.T) {
	cl := parse(t, "sleep 30 &", Params{})
	if !cl.Items[0].Pipeline.Background {
		t.Fatal("expected background pipeline")
	}
}

func TestParseRedirects(t *testing.T) {
	cl := parse(t, "echo hi > /tmp/out.txt 2>> /tmp/err.txt", Params{})
	cmd := cl.Items[0].Pipeline.Commands[0]
	if len(cmd.Redirects) != 2 {
		t.Fatalf("want 2 redirects, got %d", len(cmd.Redirects))
	}
	if cmd.Redirects[0].Kind != ast.RedirOutput || cmd.Redirects[0].Fd != 1 {
		t.Fatalf("redirect 0: %+v", cmd.Redirects[0])
	}
	if cmd.Redirects[1].Kind != ast.RedirStderrAppend || cmd.Redirects[1].Fd != 2 {
		t.Fatalf("redirect 1: %+v", cmd.Redirects[1])
	}
}

func TestParseFdDup(t *testing.T) {
	cl := parse(t, "cmd 2>&1", Params{})
	r := cl.Items[0].Pipeline.Commands[0].Redirects[0]
	if r.Kind != ast.RedirFdDup || r.Fd != 2 || r.DstFd != 1 {
		t.Fatalf("got %+v", r)
	}
}

func TestParseAssignment(t *testing.T) {
	cl := parse(t, "FOO=bar BAZ=qux", Params{})
	cmd := cl.Items[0].Pipeline.Commands[0]
	if len(cmd.Assigns) != 2 || len(cmd.Args) != 0 {
		t.Fatalf("got %+v", cmd)
	}
	if cmd.Assigns[0].Name != "FOO" || cmd.Assigns[0].Value.Literal() != "bar" {
		t.Fatalf("got %+v", cmd.Assigns[0])
	}
}

func TestParseAssignmentThenArgsNotTreatedAsAssign(t *testing.T) {
	cl := parse(t, "echo FOO=bar", Params{})
	cmd := cl.Items[0].Pipeline.Commands[0]
	if len(cmd.Assigns) != 0 || len(cmd.Args) != 2 {
		t.Fatalf("got %+v", cmd)
	}
}

func TestParseVarExpansion(t *testing.T) {
	env := mapEnv{"NAME": "world"}
	cl := parse(t, `echo hello $NAME`, Params{Env: env})
	got := cl.Items[0].Pipeline.Commands[0].Args[2].Literal()
	if got != "world" {
		t.Fatalf("got %q", got)
	}
}

func TestParseSpecialParams(t *testing.T) {
	cl := parse(t, "echo $? $$ $#", Params{LastStatus: 7, Pid: 1234, Positional: []string{"a", "b"}})
	args := cl.Items[0].Pipeline.Commands[0].Args
	if args[1].Literal() != "7" || args[2].Literal() != "1234" || args[3].Literal() != "2" {
		t.Fatalf("got %v %v %v", args[1].Literal(), args[2].Literal(), args[3].Literal())
	}
}

func TestParseArithmetic(t *testing.T) {
	cl := parse(t, "echo $((2 + 3 * 4))", Params{})
	if got := cl.Items[0].Pipeline.Commands[0].Args[1].Literal(); got != "14" {
		t.Fatalf("got %q", got)
	}
}

func TestParseParamOps(t *testing.T) {
	cases := []struct {
		in, name, val string
		want          string
	}{
		{"echo ${X:-def}", "X", "", "def"},
		{"echo ${X:-def}", "X", "set", "set"},
		{"echo ${X:+alt}", "X", "set", "alt"},
		{"echo ${X#fo}", "X", "foobar", "obar"},
		{"echo ${X##*o}", "X", "foobar", "bar"},
		{"echo ${X%bar}", "X", "foobar", "foo"},
		{"echo ${X/o/0}", "X", "foo", "f0o"},
		{"echo ${X//o/0}", "X", "foo", "f00"},
		{"echo ${#X}", "X", "foo", "3"},
	}
	for _, tc := range cases {
		env := mapEnv{}
		if tc.val != "" {
			env[tc.name] = tc.val
		}
		cl := parse(t, tc.in, Params{Env: env})
		got := cl.Items[0].Pipeline.Commands[0].Args[1].Literal()
		if got != tc.want {
			t.Errorf("%q: got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseCmdSubstDeferred(t *testing.T) {
	cl := parse(t, "echo $(date) and `uptime`", Params{})
	args := cl.Items[0].Pipeline.Commands[0].Args
	if !args[1].HasCmdSubst() {
		t.Fatal("expected deferred command substitution in $(...) word")
	}
	if !args[3].HasCmdSubst() {
		t.Fatal("expected deferred command substitution in `...` word")
	}
}

func TestParseSingleQuoteNoExpansion(t *testing.T) {
	cl := parse(t, `echo '$HOME'`, Params{Env: mapEnv{"HOME": "/root"}})
	if got := cl.Items[0].Pipeline.Commands[0].Args[1].Literal(); got != "$HOME" {
		t.Fatalf("got %q", got)
	}
}

func TestParseDoubleQuoteEscapedDollarNoReexpand(t *testing.T) {
	cl := parse(t, `echo "\$HOME"`, Params{Env: mapEnv{"HOME": "/root"}})
	if got := cl.Items[0].Pipeline.Commands[0].Args[1].Literal(); got != "$HOME" {
		t.Fatalf("got %q", got)
	}
}

func TestParseUnterminatedQuote(t *testing.T) {
	_, err := Parse(`echo "unterminated`, Params{})
	perr, ok := err.(*ParseError)
	if !ok || perr.Kind != UnterminatedQuote {
		t.Fatalf("got %v", err)
	}
}

func TestParseIncompleteInput(t *testing.T) {
	_, err := Parse("true &&", Params{})
	perr, ok := err.(*ParseError)
	if !ok || perr.Kind != IncompleteInput {
		t.Fatalf("got %v", err)
	}
}

func TestParseMissingRedirectTarget(t *testing.T) {
	_, err := Parse("echo hi >", Params{})
	perr, ok := err.(*ParseError)
	if !ok || perr.Kind != MissingRedirectTarget {
		t.Fatalf("got %v", err)
	}
}

func TestParseHereDoc(t *testing.T) {
	cl := parse(t, "cat <<EOF\nline one\nline two\nEOF\n", Params{})
	r := cl.Items[0].Pipeline.Commands[0].Redirects[0]
	if r.Kind != ast.RedirHereDoc {
		t.Fatalf("got kind %v", r.Kind)
	}
	if r.Body != "line one\nline two\n" {
		t.Fatalf("got body %q", r.Body)
	}
}

func TestParseUnboundVariableNounset(t *testing.T) {
	_, err := Parse("echo $MISSING", Params{Nounset: true})
	perr, ok := err.(*ParseError)
	if !ok || perr.Kind != UnboundVariable {
		t.Fatalf("got %v", err)
	}
}
