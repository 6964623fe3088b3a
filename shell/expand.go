// Copyright (c) 2018, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package shell exposes small, dependency-light helpers built on top of
// parser and interp, for programs that want a taste of shell expansion or
// sourcing without wiring up a full interpreter.
package shell

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/rushshell/rush/ast"
	"github.com/rushshell/rush/expand"
	"github.com/rushshell/rush/interp"
	"github.com/rushshell/rush/parser"
)

// Expand performs shell expansion on s, using env to resolve variables. It
// applies to parameter expansions like $var and ${#var}; the result is
// never split into fields, and no tilde, brace or glob expansion runs, so
// whitespace and metacharacters in s survive untouched.
//
// If env is nil, the current environment variables are used. Empty
// variables are treated as unset.
//
// Command substitutions like $(echo foo) aren't supported, to avoid running
// arbitrary code; use an interp.Runner directly for that.
//
// An error is reported if s has invalid syntax.
func Expand(s string, env func(string) string) (string, error) {
	w, err := quotedWord(s, env)
	if err != nil {
		return "", err
	}
	if w.HasCmdSubst() {
		return "", fmt.Errorf("command substitution is not supported")
	}
	return w.Literal(), nil
}

// bareVarRef matches a whole field that is nothing but an unquoted $name or
// ${name} reference, the one case where an unquoted variable's value is
// re-split on whitespace like real POSIX field splitting.
var bareVarRef = regexp.MustCompile(`^\$(?:([A-Za-z_][A-Za-z0-9_]*)|\{([A-Za-z_][A-Za-z0-9_]*)\})$`)

// Fields performs shell expansion on s like Expand, but also splits s into
// fields on unquoted whitespace and applies tilde expansion to each one,
// returning the resulting fields rather than joining them. A field that is
// only a bare $name or ${name} reference is itself re-split on whitespace,
// matching unquoted variable field splitting; any other field, even one
// containing a variable, is kept whole. Filename globbing is not applied:
// this helper has no notion of which directory a pattern like "*.go" should
// be resolved against, so glob metacharacters are left untouched.
func Fields(s string, env func(string) string) ([]string, error) {
	envFn := defaultEnv(env)
	r, err := interp.New(interp.Env(expand.FuncEnviron(envFn)))
	if err != nil {
		return nil, err
	}
	r.Reset()

	var out []string
	for _, tok := range tokenizeFields(s) {
		if m := bareVarRef.FindStringSubmatch(tok); m != nil {
			name := m[1]
			if name == "" {
				name = m[2]
			}
			out = append(out, strings.Fields(envFn(name))...)
			continue
		}
		w, err := wordToken(tok, envFn)
		if err != nil {
			return nil, err
		}
		if w.HasCmdSubst() {
			return nil, fmt.Errorf("command substitution is not supported")
		}
		fields, err := r.ExpandWord(w)
		if err != nil {
			return nil, err
		}
		out = append(out, fields...)
	}
	return out, nil
}

// tokenizeFields splits s into raw fields on whitespace, treating newlines
// like any other separator, while keeping a single- or double-quoted run, a
// $(...) command substitution, or a `...` command substitution (quote or
// paren characters included) glued to its surrounding token so that any
// whitespace inside one doesn't cause a premature split.
func tokenizeFields(s string) []string {
	var toks []string
	var cur strings.Builder
	var inSingle, inDouble bool
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == '\'' && !inDouble:
			inSingle = !inSingle
			cur.WriteByte(c)
			i++
		case c == '"' && !inSingle:
			inDouble = !inDouble
			cur.WriteByte(c)
			i++
		case c == '\\' && !inSingle && i+1 < len(s):
			cur.WriteByte(c)
			cur.WriteByte(s[i+1])
			i += 2
		case !inSingle && c == '$' && i+1 < len(s) && s[i+1] == '(':
			j := i + 2
			depth := 1
			for j < len(s) && depth > 0 {
				switch s[j] {
				case '(':
					depth++
				case ')':
					depth--
				}
				j++
			}
			cur.WriteString(s[i:j])
			i = j
		case !inSingle && c == '`':
			j := i + 1
			for j < len(s) && s[j] != '`' {
				if s[j] == '\\' && j+1 < len(s) {
					j += 2
					continue
				}
				j++
			}
			if j < len(s) {
				j++ // include the closing backtick
			}
			cur.WriteString(s[i:j])
			i = j
		case !inSingle && !inDouble && (c == ' ' || c == '\t' || c == '\n'):
			flush()
			i++
		default:
			cur.WriteByte(c)
			i++
		}
	}
	flush()
	return toks
}

// wordToken parses a single whitespace-free field (as produced by
// tokenizeFields) into the ast.Word the lexer builds for it, applying
// variable substitution along the way.
func wordToken(tok string, env func(string) string) (ast.Word, error) {
	cl, err := parser.Parse("rush "+tok, parser.Params{Env: funcEnviron(env)})
	if err != nil {
		return ast.Word{}, err
	}
	if cl == nil || len(cl.Items) == 0 {
		return ast.Word{}, nil
	}
	cmd := cl.Items[0].Pipeline.Commands[0]
	if len(cmd.Args) < 2 {
		return ast.Word{}, nil
	}
	return cmd.Args[1], nil
}

// funcEnviron adapts a plain string-lookup function to parser.Environ; it
// never honors writes, since one-shot expansion has no variable table to
// persist them in.
type funcEnviron func(string) string

func (f funcEnviron) Get(name string) (string, bool) {
	v := f(name)
	return v, v != ""
}

func (f funcEnviron) Set(name, value string) {}

func defaultEnv(env func(string) string) func(string) string {
	if env != nil {
		return env
	}
	return os.Getenv
}

// quotedWord parses s as the body of a double-quoted string, so that
// whitespace stays part of one word while $vars and ${vars} are still
// recognized. It returns that body's parts as a standalone Word.
func quotedWord(s string, env func(string) string) (ast.Word, error) {
	var sb strings.Builder
	sb.WriteString(`rush "`)
	for _, r := range s {
		if r == '"' || r == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('"')
	cl, err := parser.Parse(sb.String(), parser.Params{Env: funcEnviron(defaultEnv(env))})
	if err != nil {
		return ast.Word{}, err
	}
	if cl == nil || len(cl.Items) == 0 {
		return ast.Word{}, nil
	}
	cmd := cl.Items[0].Pipeline.Commands[0]
	if len(cmd.Args) < 2 {
		return ast.Word{}, nil
	}
	return cmd.Args[1], nil
}
