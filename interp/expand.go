package interp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rushshell/rush/ast"
	"github.com/rushshell/rush/pattern"
)

// expandWord runs the per-argument expansion pipeline the design names, in
// order: command substitution, tilde expansion, brace expansion, glob
// expansion. It can return more than one field (brace and glob both fan a
// single word out into several).
func (r *Runner) expandWord(ctx context.Context, w ast.Word) ([]string, error) {
	lit, err := r.resolveCmdSubst(ctx, w)
	if err != nil {
		return nil, err
	}
	lit = r.expandTilde(lit)

	var fields []string
	for _, b := range expandBraces(lit) {
		fields = append(fields, r.expandGlob(b)...)
	}
	return fields, nil
}

// ExpandWord runs the tilde and brace half of the expansion pipeline
// against an already-substituted word, for callers like the shell package
// that want field expansion without running a command substitution, a
// filesystem glob lookup, or a full pipeline. Command substitution is
// rejected outright: a caller that needs it should drive a Runner through
// Run instead.
func (r *Runner) ExpandWord(w ast.Word) ([]string, error) {
	if w.HasCmdSubst() {
		return nil, fmt.Errorf("command substitution is not supported")
	}
	lit := r.expandTilde(w.Literal())
	return expandBraces(lit), nil
}

// expandWords expands a whole argv, flattening every word's fields in
// order.
func (r *Runner) expandWords(ctx context.Context, ws []ast.Word) ([]string, error) {
	var out []string
	for _, w := range ws {
		fields, err := r.expandWord(ctx, w)
		if err != nil {
			return nil, err
		}
		out = append(out, fields...)
	}
	return out, nil
}

// resolveCmdSubst runs any deferred $(...) / `...` spans in w and splices
// their (trailing-newline-trimmed) stdout back in as plain text, per the
// design's "replaced with captured stdout, trailing newlines stripped"
// contract. The word's quoting context isn't tracked past this point, so
// the result is not re-split on IFS: a reasonable trim given rush's ast.Word
// carries no quoted/unquoted tag to decide that correctly.
func (r *Runner) resolveCmdSubst(ctx context.Context, w ast.Word) (string, error) {
	var sb strings.Builder
	for _, p := range w.Parts {
		if !p.IsSubst {
			sb.WriteString(p.Lit)
			continue
		}
		out, err := r.captureCommand(ctx, p.CmdSubst)
		if err != nil {
			return "", err
		}
		sb.WriteString(strings.TrimRight(out, "\n"))
	}
	return sb.String(), nil
}

// expandSimpleVars substitutes bare $NAME and ${NAME} references in raw text
// the compound-construct scanner pulls words from directly, bypassing the
// parser package (for/case headers aren't part of ast.CommandList). It
// doesn't handle parameter operators or arithmetic; those are only
// available inside an actual command's argv, which does go through the
// parser.
func (r *Runner) expandSimpleVars(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '$' || i+1 >= len(s) {
			sb.WriteByte(c)
			continue
		}
		rest := s[i+1:]
		braced := strings.HasPrefix(rest, "{")
		name := rest
		if braced {
			name = rest[1:]
		}
		end := 0
		for end < len(name) && (name[end] == '_' || name[end] >= 'a' && name[end] <= 'z' || name[end] >= 'A' && name[end] <= 'Z' || (end > 0 && name[end] >= '0' && name[end] <= '9')) {
			end++
		}
		if end == 0 {
			sb.WriteByte(c)
			continue
		}
		varName := name[:end]
		val, _ := r.GetVar(varName)
		sb.WriteString(val)
		consumed := end
		if braced {
			consumed += 2 // the '{' and '}' wrapping the name
		}
		i += consumed
	}
	return sb.String()
}

// expandTilde expands a leading "~" or "~name" to the relevant home
// directory, only at the start of the word, per the design.
func (r *Runner) expandTilde(s string) string {
	if !strings.HasPrefix(s, "~") {
		return s
	}
	rest := s[1:]
	cut := strings.IndexByte(rest, '/')
	name, tail := rest, ""
	if cut >= 0 {
		name, tail = rest[:cut], rest[cut:]
	}
	var home string
	if name == "" {
		home, _ = r.GetVar("HOME")
	} else if u, err := userHomeDir(name); err == nil {
		home = u
	} else {
		return s
	}
	if home == "" {
		return s
	}
	return home + tail
}

// expandGlob expands s as a filename pattern if it contains glob
// metacharacters, returning the sorted matches, or s unchanged (as the sole
// result) if there are no matches or no metacharacters, matching the
// design's "glob with no matches is kept literal" rule.
func (r *Runner) expandGlob(s string) []string {
	if !pattern.HasMeta(s) {
		return []string{s}
	}
	dir, base := filepath.Split(s)
	searchDir := dir
	if searchDir == "" {
		searchDir = "."
	} else if !filepath.IsAbs(searchDir) {
		searchDir = filepath.Join(r.Dir, searchDir)
	}
	entries, err := os.ReadDir(searchDir)
	if err != nil {
		return []string{s}
	}
	var matches []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(base, ".") == false && strings.HasPrefix(name, ".") {
			continue
		}
		if pattern.Match(base, name) {
			matches = append(matches, dir+name)
		}
	}
	if len(matches) == 0 {
		return []string{s}
	}
	sort.Strings(matches)
	return matches
}
