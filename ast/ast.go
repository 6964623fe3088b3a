// Package ast defines the data model the rest of rush is built on: the
// output of the parser and the input the executor walks. It is the literal
// shape described by the shell's design — a command list of pipelines of
// commands, rather than a general-purpose language AST.
package ast

import "strings"

// Connector joins one ListItem to the next inside a CommandList.
type Connector int

const (
	// Seq always runs the next item, regardless of this one's status.
	Seq Connector = iota
	// And runs the next item only if this one exited 0.
	And
	// Or runs the next item only if this one exited non-zero.
	Or
)

func (c Connector) String() string {
	switch c {
	case And:
		return "&&"
	case Or:
		return "||"
	default:
		return ";"
	}
}

// RedirectKind identifies the shape of a single redirection.
type RedirectKind int

const (
	RedirOutput       RedirectKind = iota // >
	RedirAppend                           // >>
	RedirInput                            // <
	RedirStderr                           // 2>
	RedirStderrAppend                     // 2>>
	RedirFdDup                           // N>&M
	RedirHereDoc                          // <<
	RedirHereString                       // <<<
)

// Redirect is one redirection attached to a Command, in the order it
// appeared in the input.
type Redirect struct {
	Kind RedirectKind
	// Fd is the fd being redirected: 0 for "<"/heredocs, 1 for ">"/">>",
	// 2 for "2>"/"2>>", or the explicit N in "N>&M".
	Fd int
	// DstFd is only meaningful for RedirFdDup: the M in "N>&M".
	DstFd int
	// Target holds the filename for file redirects, the delimiter for a
	// HereDoc redirect (the Body field carries the collected text once the
	// second pass has filled it in), or the literal word for HereString.
	Target Word
	// Body is the here-document's collected text, filled in once the
	// parser finds the terminating delimiter line.
	Body string
}

// Assign is a single NAME=VALUE inline assignment preceding a command, or
// standing alone as the whole command.
type Assign struct {
	Name  string
	Value Word
}

// WordPart is one literal or deferred span making up a Word. Exactly one of
// Lit or CmdSubst is meaningful per part: a plain part carries Lit, a
// deferred command-substitution part carries the un-evaluated CmdSubst body
// and an empty Lit.
type WordPart struct {
	Lit      string
	CmdSubst string
	IsSubst  bool
}

// Word is a single shell word after the parser's eager expansion pass:
// variable, parameter and arithmetic expansion have already run, but
// command substitution is left as a deferred marker for the executor, so
// that $(...) and `...` run exactly once, at execution time, with up to
// date state ($?, positional params, etc).
type Word struct {
	Parts []WordPart
}

// NewLit builds a Word with no deferred parts: already-resolved text.
func NewLit(s string) Word {
	return Word{Parts: []WordPart{{Lit: s}}}
}

// HasCmdSubst reports whether any part of the word still needs command
// substitution performed before it can be used as plain text.
func (w Word) HasCmdSubst() bool {
	for _, p := range w.Parts {
		if p.IsSubst {
			return true
		}
	}
	return false
}

// Literal joins the word's parts assuming no deferred substitutions remain
// (callers must resolve HasCmdSubst spans first via the executor's command
// substitution step).
func (w Word) Literal() string {
	var sb strings.Builder
	for _, p := range w.Parts {
		sb.WriteString(p.Lit)
	}
	return sb.String()
}

// Command is one stage of a Pipeline: argv plus its own redirects and any
// inline assignments preceding it (NAME=VALUE NAME2=VALUE2 cmd args...).
type Command struct {
	Args      []Word
	Redirects []Redirect
	Assigns   []Assign
}

// Pipeline is an ordered sequence of commands connected by pipes, optionally
// run in the background.
type Pipeline struct {
	Commands   []*Command
	Background bool
}

// ListItem binds a Pipeline to the Connector that decides whether the next
// item in the CommandList runs.
type ListItem struct {
	Pipeline  *Pipeline
	Connector Connector
}

// CommandList is the parser's output for one logical input line: a sequence
// of pipelines joined by ';', '&&' or '||'.
type CommandList struct {
	Items []ListItem
}
