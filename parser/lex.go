package parser

import (
	"strconv"
	"strings"

	"github.com/rushshell/rush/ast"
)

type tokKind int

const (
	tEOF tokKind = iota
	tWord
	tNewline
	tSemi
	tPipe
	tAndIf
	tOrIf
	tAnd
	tRedirOut
	tRedirAppend
	tRedirIn
	tRedirDup
	tHereDoc
	tHereString
)

type token struct {
	kind tokKind
	word ast.Word
	raw  string // raw source text, for assignment-word and heredoc-delimiter detection
	fd   int
}

// lexer turns an input string into the token stream the recursive-descent
// parser consumes, performing eager variable/parameter/arithmetic expansion
// as it scans words; command substitution is recorded as a deferred marker
// instead of being run.
type lexer struct {
	s   string
	pos int
	p   *Params
}

func newLexer(s string, p *Params) *lexer {
	return &lexer{s: s, p: p}
}

func (l *lexer) skipBlank() {
	for l.pos < len(l.s) && (l.s[l.pos] == ' ' || l.s[l.pos] == '\t') {
		l.pos++
	}
}

func isWordTerminator(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '|', '&', '>', '<', ';':
		return true
	}
	return false
}

func (l *lexer) next() (token, error) {
	l.skipBlank()
	if l.pos >= len(l.s) {
		return token{kind: tEOF}, nil
	}
	c := l.s[l.pos]
	switch {
	case c == '\n':
		l.pos++
		return token{kind: tNewline}, nil
	case c == ';':
		l.pos++
		return token{kind: tSemi}, nil
	case c == '|':
		l.pos++
		if l.pos < len(l.s) && l.s[l.pos] == '|' {
			l.pos++
			return token{kind: tOrIf}, nil
		}
		return token{kind: tPipe}, nil
	case c == '&':
		l.pos++
		if l.pos < len(l.s) && l.s[l.pos] == '&' {
			l.pos++
			return token{kind: tAndIf}, nil
		}
		return token{kind: tAnd}, nil
	case c == '>' || c == '<':
		return l.lexRedir(defaultFd(c))
	case c >= '0' && c <= '9':
		j := l.pos
		for j < len(l.s) && l.s[j] >= '0' && l.s[j] <= '9' {
			j++
		}
		if j < len(l.s) && (l.s[j] == '<' || l.s[j] == '>') {
			fd, _ := strconv.Atoi(l.s[l.pos:j])
			l.pos = j
			return l.lexRedir(fd)
		}
		return l.lexWord()
	default:
		return l.lexWord()
	}
}

func defaultFd(c byte) int {
	if c == '<' {
		return 0
	}
	return 1
}

func (l *lexer) lexRedir(fd int) (token, error) {
	c := l.s[l.pos]
	l.pos++
	if c == '>' {
		if l.pos < len(l.s) && l.s[l.pos] == '>' {
			l.pos++
			return token{kind: tRedirAppend, fd: fd}, nil
		}
		if l.pos < len(l.s) && l.s[l.pos] == '&' {
			l.pos++
			return token{kind: tRedirDup, fd: fd}, nil
		}
		return token{kind: tRedirOut, fd: fd}, nil
	}
	if l.pos < len(l.s) && l.s[l.pos] == '<' {
		l.pos++
		if l.pos < len(l.s) && l.s[l.pos] == '<' {
			l.pos++
			return token{kind: tHereString, fd: fd}, nil
		}
		return token{kind: tHereDoc, fd: fd}, nil
	}
	return token{kind: tRedirIn, fd: fd}, nil
}

// lexWord scans one word: a run of quoted/bare/expansion spans with no
// separating whitespace.
func (l *lexer) lexWord() (token, error) {
	start := l.pos
	w, err := l.scanRun(isWordTerminator)
	if err != nil {
		return token{}, err
	}
	return token{kind: tWord, word: w, raw: l.s[start:l.pos]}, nil
}

// scanRun is the shared word-body scanner: it accumulates literal text,
// quote contents, escapes, and $ / ` expansions into an ast.Word, stopping
// at the first unescaped, unquoted byte for which stop returns true (or at
// end of input).
func (l *lexer) scanRun(stop func(byte) bool) (ast.Word, error) {
	var w ast.Word
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			w.Parts = append(w.Parts, ast.WordPart{Lit: lit.String()})
			lit.Reset()
		}
	}
	for l.pos < len(l.s) {
		c := l.s[l.pos]
		switch {
		case c == '\'':
			l.pos++
			start := l.pos
			for l.pos < len(l.s) && l.s[l.pos] != '\'' {
				l.pos++
			}
			if l.pos >= len(l.s) {
				return ast.Word{}, &ParseError{Kind: UnterminatedQuote, Arg: "'"}
			}
			lit.WriteString(l.s[start:l.pos])
			l.pos++
		case c == '"':
			l.pos++
			if err := l.scanDQ(&w, &lit, flush); err != nil {
				return ast.Word{}, err
			}
		case c == '\\':
			l.pos++
			if l.pos >= len(l.s) {
				lit.WriteByte('\\')
				continue
			}
			lit.WriteByte(l.s[l.pos])
			l.pos++
		case c == '$':
			flush()
			if err := l.scanDollar(&w); err != nil {
				return ast.Word{}, err
			}
		case c == '`':
			flush()
			body, err := l.scanBacktick()
			if err != nil {
				return ast.Word{}, err
			}
			w.Parts = append(w.Parts, ast.WordPart{CmdSubst: body, IsSubst: true})
		case stop != nil && stop(c):
			flush()
			if len(w.Parts) == 0 {
				w.Parts = []ast.WordPart{{Lit: ""}}
			}
			return w, nil
		default:
			lit.WriteByte(c)
			l.pos++
		}
	}
	flush()
	if len(w.Parts) == 0 {
		w.Parts = []ast.WordPart{{Lit: ""}}
	}
	return w, nil
}

func (l *lexer) scanDQ(w *ast.Word, lit *strings.Builder, flush func()) error {
	for {
		if l.pos >= len(l.s) {
			return &ParseError{Kind: UnterminatedQuote, Arg: `"`}
		}
		c := l.s[l.pos]
		if c == '"' {
			l.pos++
			return nil
		}
		if c == '\\' && l.pos+1 < len(l.s) {
			n := l.s[l.pos+1]
			if n == '"' || n == '\\' || n == '$' || n == '`' {
				lit.WriteByte(n)
				l.pos += 2
				continue
			}
			lit.WriteByte('\\')
			l.pos++
			continue
		}
		if c == '$' {
			flush()
			if err := l.scanDollar(w); err != nil {
				return err
			}
			continue
		}
		if c == '`' {
			flush()
			body, err := l.scanBacktick()
			if err != nil {
				return err
			}
			w.Parts = append(w.Parts, ast.WordPart{CmdSubst: body, IsSubst: true})
			continue
		}
		lit.WriteByte(c)
		l.pos++
	}
}

func (l *lexer) scanBacktick() (string, error) {
	l.pos++
	start := l.pos
	for l.pos < len(l.s) {
		if l.s[l.pos] == '\\' && l.pos+1 < len(l.s) && l.s[l.pos+1] == '`' {
			l.pos += 2
			continue
		}
		if l.s[l.pos] == '`' {
			body := l.s[start:l.pos]
			l.pos++
			return body, nil
		}
		l.pos++
	}
	return "", &ParseError{Kind: UnterminatedQuote, Arg: "`"}
}

// scanBalanced scans from l.pos (which must be at the first rune of open)
// to the matching close, counting nested occurrences of open, and returns
// the text strictly between them, positioning l.pos just past close.
func (l *lexer) scanBalanced(open, close string) (string, error) {
	if !strings.HasPrefix(l.s[l.pos:], open) {
		return "", &ParseError{Kind: IncompleteInput}
	}
	l.pos += len(open)
	start := l.pos
	depth := 1
	for l.pos < len(l.s) {
		switch {
		case strings.HasPrefix(l.s[l.pos:], open) && open != close:
			depth++
			l.pos += len(open)
		case strings.HasPrefix(l.s[l.pos:], close):
			depth--
			if depth == 0 {
				body := l.s[start:l.pos]
				l.pos += len(close)
				return body, nil
			}
			l.pos += len(close)
		default:
			l.pos++
		}
	}
	return "", &ParseError{Kind: IncompleteInput}
}

// scanParenCmdSubst scans a $( ... ) command substitution body, tracking
// paren depth so nested parens/subshells don't terminate it early.
func (l *lexer) scanParenCmdSubst() (string, error) {
	l.pos++ // consume '('
	start := l.pos
	depth := 1
	for l.pos < len(l.s) {
		switch l.s[l.pos] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				body := l.s[start:l.pos]
				l.pos++
				return body, nil
			}
		case '\'':
			l.pos++
			for l.pos < len(l.s) && l.s[l.pos] != '\'' {
				l.pos++
			}
		case '"':
			l.pos++
			for l.pos < len(l.s) && l.s[l.pos] != '"' {
				if l.s[l.pos] == '\\' {
					l.pos++
				}
				l.pos++
			}
		}
		l.pos++
	}
	return "", &ParseError{Kind: IncompleteInput}
}

func (l *lexer) scanDollar(w *ast.Word) error {
	l.pos++ // consume '$'
	if l.pos >= len(l.s) {
		w.Parts = append(w.Parts, ast.WordPart{Lit: "$"})
		return nil
	}
	c := l.s[l.pos]
	switch {
	case c == '(' && l.pos+1 < len(l.s) && l.s[l.pos+1] == '(':
		body, err := l.scanBalanced("((", "))")
		if err != nil {
			return err
		}
		v := evalArith(body, l.p.Env, nil)
		w.Parts = append(w.Parts, ast.WordPart{Lit: strconv.FormatInt(v, 10)})
		return nil
	case c == '(':
		body, err := l.scanParenCmdSubst()
		if err != nil {
			return err
		}
		w.Parts = append(w.Parts, ast.WordPart{CmdSubst: body, IsSubst: true})
		return nil
	case c == '{':
		return l.scanBraceParam(w)
	case c == '?':
		l.pos++
		w.Parts = append(w.Parts, ast.WordPart{Lit: strconv.Itoa(l.p.LastStatus)})
		return nil
	case c == '$':
		l.pos++
		w.Parts = append(w.Parts, ast.WordPart{Lit: strconv.Itoa(l.p.Pid)})
		return nil
	case c == '!':
		l.pos++
		s := ""
		if l.p.LastBgPid != 0 {
			s = strconv.Itoa(l.p.LastBgPid)
		}
		w.Parts = append(w.Parts, ast.WordPart{Lit: s})
		return nil
	case c == '#':
		l.pos++
		w.Parts = append(w.Parts, ast.WordPart{Lit: strconv.Itoa(len(l.p.Positional))})
		return nil
	case c == '@' || c == '*':
		l.pos++
		w.Parts = append(w.Parts, ast.WordPart{Lit: strings.Join(l.p.Positional, " ")})
		return nil
	case c >= '0' && c <= '9':
		n := int(c - '0')
		l.pos++
		s := ""
		if n == 0 {
			s = l.p.ShellName
		} else if n-1 < len(l.p.Positional) {
			s = l.p.Positional[n-1]
		}
		w.Parts = append(w.Parts, ast.WordPart{Lit: s})
		return nil
	case isIdentStart(c):
		start := l.pos
		for l.pos < len(l.s) && isIdentPart(l.s[l.pos]) {
			l.pos++
		}
		name := l.s[start:l.pos]
		val, err := l.lookupVar(name)
		if err != nil {
			return err
		}
		w.Parts = append(w.Parts, ast.WordPart{Lit: val})
		return nil
	default:
		w.Parts = append(w.Parts, ast.WordPart{Lit: "$"})
		return nil
	}
}

func (l *lexer) lookupVar(name string) (string, error) {
	switch name {
	case "RANDOM":
		if l.p.Random != nil {
			return strconv.Itoa(l.p.Random()), nil
		}
		return "0", nil
	case "SECONDS":
		if l.p.Seconds != nil {
			return strconv.Itoa(l.p.Seconds()), nil
		}
		return "0", nil
	}
	val, ok := l.varGet(name)
	if !ok && l.p.Nounset {
		return "", &ParseError{Kind: UnboundVariable, Arg: name}
	}
	return val, nil
}

func (l *lexer) varGet(name string) (string, bool) {
	if l.p.Env == nil {
		return "", false
	}
	return l.p.Env.Get(name)
}
