// Package pattern implements the glob matcher: the shell's only pattern
// language, used for pathname expansion, case branches, and the parameter
// operators that trim or replace by pattern (${var#pat}, ${var/pat/repl},
// ...). The feature set is deliberately the POSIX-small one named in the
// design: '*', '?', '[...]'/'[!...]' character classes with ranges — no
// extended globs.
package pattern

import (
	"strings"
)

// Match reports whether name matches the glob pattern pat, anchored: pat
// must consume all of name.
func Match(pat, name string) bool {
	return matchesWhole([]rune(pat), []rune(name))
}

// match tries to consume pat against a prefix of name, backtracking through
// '*' by trying every split point.
func match(pat, name []rune) (bool, []rune) {
	for len(pat) > 0 {
		switch pat[0] {
		case '*':
			for len(pat) > 0 && pat[0] == '*' {
				pat = pat[1:]
			}
			if len(pat) == 0 {
				return true, nil
			}
			for i := 0; i <= len(name); i++ {
				if matchesWhole(pat, name[i:]) {
					return true, nil
				}
			}
			return false, name
		case '?':
			if len(name) == 0 {
				return false, name
			}
			pat, name = pat[1:], name[1:]
		case '[':
			end := classEnd(pat)
			if end < 0 {
				if len(name) == 0 || name[0] != '[' {
					return false, name
				}
				pat, name = pat[1:], name[1:]
				continue
			}
			if len(name) == 0 || !matchClass(pat[1:end], name[0]) {
				return false, name
			}
			pat, name = pat[end+1:], name[1:]
		case '\\':
			if len(pat) > 1 {
				pat = pat[1:]
			}
			if len(name) == 0 || name[0] != pat[0] {
				return false, name
			}
			pat, name = pat[1:], name[1:]
		default:
			if len(name) == 0 || name[0] != pat[0] {
				return false, name
			}
			pat, name = pat[1:], name[1:]
		}
	}
	return len(name) == 0, name
}

func matchesWhole(pat, name []rune) bool {
	ok, rest := match(pat, name)
	return ok && len(rest) == 0
}

// classEnd returns the index of the ']' closing the class starting at
// pat[0] == '[', or -1 if there is none.
func classEnd(pat []rune) int {
	i := 1
	if i < len(pat) && (pat[i] == '!' || pat[i] == '^') {
		i++
	}
	if i < len(pat) && pat[i] == ']' {
		i++
	}
	for i < len(pat) {
		if pat[i] == ']' {
			return i
		}
		i++
	}
	return -1
}

func matchClass(class []rune, c rune) bool {
	negate := false
	if len(class) > 0 && (class[0] == '!' || class[0] == '^') {
		negate = true
		class = class[1:]
	}
	found := false
	for i := 0; i < len(class); i++ {
		if i+2 < len(class) && class[i+1] == '-' {
			if class[i] <= c && c <= class[i+2] {
				found = true
			}
			i += 2
			continue
		}
		if class[i] == c {
			found = true
		}
	}
	return found != negate
}

// HasMeta reports whether s contains any unescaped glob metacharacter.
func HasMeta(s string) bool {
	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		switch rs[i] {
		case '\\':
			i++
		case '*', '?', '[':
			return true
		}
	}
	return false
}

// TrimPrefixShortest removes the shortest prefix of s matched whole by pat.
func TrimPrefixShortest(s, pat string) string {
	if pat == "" {
		return s
	}
	r, pr := []rune(s), []rune(pat)
	for i := 0; i <= len(r); i++ {
		if matchesWhole(pr, r[:i]) {
			return string(r[i:])
		}
	}
	return s
}

// TrimPrefixLongest removes the longest prefix of s matched whole by pat.
func TrimPrefixLongest(s, pat string) string {
	if pat == "" {
		return s
	}
	r, pr := []rune(s), []rune(pat)
	for i := len(r); i >= 0; i-- {
		if matchesWhole(pr, r[:i]) {
			return string(r[i:])
		}
	}
	return s
}

// TrimSuffixShortest removes the shortest suffix of s matched whole by pat.
func TrimSuffixShortest(s, pat string) string {
	if pat == "" {
		return s
	}
	r, pr := []rune(s), []rune(pat)
	for i := len(r); i >= 0; i-- {
		if matchesWhole(pr, r[i:]) {
			return string(r[:i])
		}
	}
	return s
}

// TrimSuffixLongest removes the longest suffix of s matched whole by pat.
func TrimSuffixLongest(s, pat string) string {
	if pat == "" {
		return s
	}
	r, pr := []rune(s), []rune(pat)
	for i := 0; i <= len(r); i++ {
		if matchesWhole(pr, r[i:]) {
			return string(r[:i])
		}
	}
	return s
}

// ReplaceFirst replaces the first substring of s matched by pat with repl.
func ReplaceFirst(s, pat, repl string) string { return replace(s, pat, repl, false) }

// ReplaceAll replaces every non-overlapping substring of s matched by pat
// with repl.
func ReplaceAll(s, pat, repl string) string { return replace(s, pat, repl, true) }

func replace(s, pat, repl string, all bool) string {
	if pat == "" {
		return s
	}
	r, pr := []rune(s), []rune(pat)
	var out strings.Builder
	i := 0
	for i < len(r) {
		if n := longestMatchAt(pr, r[i:]); n > 0 {
			out.WriteString(repl)
			i += n
			if !all {
				out.WriteString(string(r[i:]))
				return out.String()
			}
			continue
		}
		out.WriteRune(r[i])
		i++
	}
	return out.String()
}

// longestMatchAt returns the length, in runes, of the longest whole-match
// prefix of name against pat, or 0 if pat doesn't match any prefix.
func longestMatchAt(pat, name []rune) int {
	for i := len(name); i >= 1; i-- {
		if matchesWhole(pat, name[:i]) {
			return i
		}
	}
	return 0
}
