package parser

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rushshell/rush/ast"
	"github.com/rushshell/rush/pattern"
)

// scanBraceParam handles ${...} starting at the '{' (l.pos points at it),
// implementing the parameter operators named in the design: ${#var},
// ${var:-w} ${var:=w} ${var:+w} ${var:?w}, ${var#pat} ${var##pat}
// ${var%pat} ${var%%pat}, ${var/pat/repl} ${var//pat/repl}.
func (l *lexer) scanBraceParam(w *ast.Word) error {
	body, err := l.scanBalanced("{", "}")
	if err != nil {
		return err
	}

	if strings.HasPrefix(body, "#") && len(body) > 1 && isParamNameStart(body[1]) {
		name := body[1:]
		val, _ := l.paramGet(name)
		w.Parts = append(w.Parts, ast.WordPart{Lit: strconv.Itoa(utf8.RuneCountInString(val))})
		return nil
	}

	i := 0
	if i < len(body) && isSpecialParam(body[i]) {
		i++
	} else {
		for i < len(body) && isIdentPart(body[i]) {
			i++
		}
	}
	name := body[:i]
	op := body[i:]
	val, isSet := l.paramGet(name)

	if op == "" {
		if !isSet && l.p.Nounset {
			return &ParseError{Kind: UnboundVariable, Arg: name}
		}
		w.Parts = append(w.Parts, ast.WordPart{Lit: val})
		return nil
	}

	splice := func(text string) error {
		sub, err := l.expandOpWord(text)
		if err != nil {
			return err
		}
		w.Parts = append(w.Parts, sub.Parts...)
		return nil
	}

	switch {
	case strings.HasPrefix(op, ":-"):
		if !isSet || val == "" {
			return splice(op[2:])
		}
		w.Parts = append(w.Parts, ast.WordPart{Lit: val})
		return nil
	case strings.HasPrefix(op, ":="):
		if !isSet || val == "" {
			sub, err := l.expandOpWord(op[2:])
			if err != nil {
				return err
			}
			if l.p.Env != nil && name != "" {
				l.p.Env.Set(name, sub.Literal())
			}
			w.Parts = append(w.Parts, sub.Parts...)
			return nil
		}
		w.Parts = append(w.Parts, ast.WordPart{Lit: val})
		return nil
	case strings.HasPrefix(op, ":+"):
		if isSet && val != "" {
			return splice(op[2:])
		}
		w.Parts = append(w.Parts, ast.WordPart{Lit: ""})
		return nil
	case strings.HasPrefix(op, ":?"):
		if !isSet || val == "" {
			msg, _ := l.expandOpWord(op[2:])
			m := msg.Literal()
			if m == "" {
				m = "parameter null or not set"
			}
			return &ParseError{Kind: UnboundVariable, Arg: name + ": " + m}
		}
		w.Parts = append(w.Parts, ast.WordPart{Lit: val})
		return nil
	case strings.HasPrefix(op, "##"):
		pat, err := l.expandOpWord(op[2:])
		if err != nil {
			return err
		}
		w.Parts = append(w.Parts, ast.WordPart{Lit: pattern.TrimPrefixLongest(val, pat.Literal())})
		return nil
	case strings.HasPrefix(op, "#"):
		pat, err := l.expandOpWord(op[1:])
		if err != nil {
			return err
		}
		w.Parts = append(w.Parts, ast.WordPart{Lit: pattern.TrimPrefixShortest(val, pat.Literal())})
		return nil
	case strings.HasPrefix(op, "%%"):
		pat, err := l.expandOpWord(op[2:])
		if err != nil {
			return err
		}
		w.Parts = append(w.Parts, ast.WordPart{Lit: pattern.TrimSuffixLongest(val, pat.Literal())})
		return nil
	case strings.HasPrefix(op, "%"):
		pat, err := l.expandOpWord(op[1:])
		if err != nil {
			return err
		}
		w.Parts = append(w.Parts, ast.WordPart{Lit: pattern.TrimSuffixShortest(val, pat.Literal())})
		return nil
	case strings.HasPrefix(op, "//"):
		patStr, replStr := splitPatRepl(op[2:])
		p, err := l.expandOpWord(patStr)
		if err != nil {
			return err
		}
		r, err := l.expandOpWord(replStr)
		if err != nil {
			return err
		}
		w.Parts = append(w.Parts, ast.WordPart{Lit: pattern.ReplaceAll(val, p.Literal(), r.Literal())})
		return nil
	case strings.HasPrefix(op, "/"):
		patStr, replStr := splitPatRepl(op[1:])
		p, err := l.expandOpWord(patStr)
		if err != nil {
			return err
		}
		r, err := l.expandOpWord(replStr)
		if err != nil {
			return err
		}
		w.Parts = append(w.Parts, ast.WordPart{Lit: pattern.ReplaceFirst(val, p.Literal(), r.Literal())})
		return nil
	default:
		w.Parts = append(w.Parts, ast.WordPart{Lit: val})
		return nil
	}
}

// splitPatRepl splits the text following '/' or '//' in a parameter
// operator into its pattern and replacement halves, on the first
// unescaped '/'.
func splitPatRepl(s string) (pat, repl string) {
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == '/' {
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}

func (l *lexer) paramGet(name string) (string, bool) {
	switch name {
	case "?":
		return strconv.Itoa(l.p.LastStatus), true
	case "$":
		return strconv.Itoa(l.p.Pid), true
	case "!":
		if l.p.LastBgPid == 0 {
			return "", false
		}
		return strconv.Itoa(l.p.LastBgPid), true
	case "#":
		return strconv.Itoa(len(l.p.Positional)), true
	case "@", "*":
		return strings.Join(l.p.Positional, " "), true
	case "RANDOM":
		if l.p.Random != nil {
			return strconv.Itoa(l.p.Random()), true
		}
		return "0", true
	case "SECONDS":
		if l.p.Seconds != nil {
			return strconv.Itoa(l.p.Seconds()), true
		}
		return "0", true
	}
	if len(name) == 1 && name[0] >= '0' && name[0] <= '9' {
		n := int(name[0] - '0')
		if n == 0 {
			return l.p.ShellName, true
		}
		if n-1 < len(l.p.Positional) {
			return l.p.Positional[n-1], true
		}
		return "", false
	}
	return l.varGet(name)
}

// expandOpWord expands the raw text of a parameter operator's word operand
// (the "w" in ${var:-w}), supporting the same quoting/escaping/$ rules as
// a normal word, but never stopping at whitespace — the whole remaining
// text belongs to the operand.
func (l *lexer) expandOpWord(text string) (ast.Word, error) {
	sub := &lexer{s: text, p: l.p}
	return sub.scanRun(nil)
}

func isParamNameStart(c byte) bool { return isIdentStart(c) }

func isSpecialParam(c byte) bool {
	switch c {
	case '@', '*', '#', '?', '!', '$':
		return true
	}
	return c >= '0' && c <= '9'
}
