package interp

import (
	"fmt"
	"strconv"
	"strings"
)

// expandBraces performs the brace expansion named in the design: {a,b,c}
// cartesian combination, {N..M} integer sequences (optionally zero-padded),
// {a..z} single-character alphabetic ranges, nested recursively. A group
// with no comma and no valid range is kept literal. Always returns a
// non-empty slice containing s unchanged when s has no brace group.
func expandBraces(s string) []string {
	start, end, ok := findBraceGroup(s)
	if !ok {
		return []string{s}
	}
	prefix, body, suffix := s[:start], s[start+1:end], s[end+1:]
	items := splitTopLevel(body, ',')

	var alts []string
	valid := false
	switch {
	case len(items) >= 2:
		alts = items
		valid = true
	default:
		if seq, ok := expandRange(body); ok {
			alts = seq
			valid = true
		}
	}

	suffixExpansions := expandBraces(suffix)
	if !valid {
		out := make([]string, 0, len(suffixExpansions))
		for _, sfx := range suffixExpansions {
			out = append(out, prefix+"{"+body+"}"+sfx)
		}
		return out
	}

	var out []string
	for _, alt := range alts {
		for _, altExp := range expandBraces(alt) {
			for _, sfx := range suffixExpansions {
				out = append(out, prefix+altExp+sfx)
			}
		}
	}
	return out
}

// findBraceGroup locates the first unescaped '{' in s and its matching
// unescaped '}', tracking nesting depth so "{a,{b,c}}" finds the outermost
// pair. ok is false if there is no '{' or no matching '}'.
func findBraceGroup(s string) (start, end int, ok bool) {
	start = -1
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '{':
			if start < 0 {
				start = i
			} else {
				depth++
			}
		case '}':
			if start < 0 {
				continue
			}
			if depth == 0 {
				return start, i, true
			}
			depth--
		}
	}
	return 0, 0, false
}

// splitTopLevel splits body on sep, ignoring occurrences nested inside a
// brace group.
func splitTopLevel(body string, sep byte) []string {
	var parts []string
	depth := 0
	last := 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, body[last:i])
				last = i + 1
			}
		}
	}
	parts = append(parts, body[last:])
	return parts
}

// expandRange recognizes "X..Y" as either a numeric or single-letter
// alphabetic range, per the design.
func expandRange(body string) ([]string, bool) {
	i := strings.Index(body, "..")
	if i < 0 {
		return nil, false
	}
	lo, hi := body[:i], body[i+2:]
	if lo == "" || hi == "" {
		return nil, false
	}
	if seq, ok := numericRange(lo, hi); ok {
		return seq, true
	}
	if seq, ok := alphaRange(lo, hi); ok {
		return seq, true
	}
	return nil, false
}

func numericRange(lo, hi string) ([]string, bool) {
	loN, err1 := strconv.Atoi(lo)
	hiN, err2 := strconv.Atoi(hi)
	if err1 != nil || err2 != nil {
		return nil, false
	}
	pad := 0
	if hasLeadingZero(lo) {
		pad = len(strings.TrimPrefix(lo, "-"))
	}
	if hasLeadingZero(hi) && len(strings.TrimPrefix(hi, "-")) > pad {
		pad = len(strings.TrimPrefix(hi, "-"))
	}
	var out []string
	format := func(n int) string {
		if pad == 0 {
			return strconv.Itoa(n)
		}
		return fmt.Sprintf("%0*d", pad, n)
	}
	if loN <= hiN {
		for n := loN; n <= hiN; n++ {
			out = append(out, format(n))
		}
	} else {
		for n := loN; n >= hiN; n-- {
			out = append(out, format(n))
		}
	}
	return out, true
}

func hasLeadingZero(s string) bool {
	s = strings.TrimPrefix(s, "-")
	return len(s) > 1 && s[0] == '0'
}

func alphaRange(lo, hi string) ([]string, bool) {
	if len(lo) != 1 || len(hi) != 1 {
		return nil, false
	}
	a, b := lo[0], hi[0]
	isAlpha := func(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
	if !isAlpha(a) || !isAlpha(b) {
		return nil, false
	}
	var out []string
	if a <= b {
		for c := a; c <= b; c++ {
			out = append(out, string(c))
		}
	} else {
		for c := a; c >= b; c-- {
			out = append(out, string(c))
		}
	}
	return out, true
}
