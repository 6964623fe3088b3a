// Package highlight renders a command line buffer to an ANSI-colored string
// for the line editor: valid commands in green, unknown ones in red,
// operators in cyan, quoted strings in yellow, variables in magenta.
package highlight

import (
	"os"
	"strings"

	"github.com/rushshell/rush/fileutil"
)

const (
	greenBold = "\x1b[1;32m"
	redBold   = "\x1b[1;31m"
	yellow    = "\x1b[33m"
	cyan      = "\x1b[36m"
	magenta   = "\x1b[35m"
	reset     = "\x1b[0m"
)

// PathCache remembers which executable names exist on $PATH, rebuilding
// only when the PATH value itself changes.
type PathCache struct {
	commands map[string]bool
	pathStr  string
}

// NewPathCache returns a cache primed from the current $PATH.
func NewPathCache() *PathCache {
	c := &PathCache{commands: make(map[string]bool)}
	c.Refresh()
	return c
}

// Refresh rebuilds the cache if $PATH has changed since the last build.
func (c *PathCache) Refresh() {
	current := os.Getenv("PATH")
	if current == c.pathStr && len(c.commands) > 0 {
		return
	}
	c.pathStr = current
	c.commands = make(map[string]bool)
	for _, dir := range filepathSplitList(current) {
		for _, name := range fileutil.ExecutablesInDir(dir) {
			c.commands[name] = true
		}
	}
}

// HasCommand reports whether name was found on $PATH.
func (c *PathCache) HasCommand(name string) bool { return c.commands[name] }

// CommandsWithPrefix returns every cached command name starting with
// prefix, unsorted (callers that need a stable order should sort).
func (c *PathCache) CommandsWithPrefix(prefix string) []string {
	var out []string
	for name := range c.commands {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	return out
}

func filepathSplitList(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ":")
}

// IsValid reports whether word names a known builtin or a PATH command.
func IsValid(word string, isBuiltin func(string) bool, cache *PathCache) bool {
	return isBuiltin(word) || cache.HasCommand(word)
}

// Highlight renders buf with ANSI color codes applied, using isBuiltin to
// recognize shell builtins and cache for everything else on $PATH. The
// returned string's visible character count equals len(buf); callers must
// compute cursor math against the original buffer, not this result.
func Highlight(buf string, isBuiltin func(string) bool, cache *PathCache) string {
	bytes := []byte(buf)
	length := len(bytes)
	var result strings.Builder
	result.Grow(len(buf) * 2)

	pos := 0
	commandPosition := true
	redirectTarget := false

	for pos < length {
		switch bytes[pos] {
		case ' ', '\t':
			result.WriteByte(bytes[pos])
			pos++
		case '|':
			result.WriteString(cyan)
			result.WriteByte('|')
			result.WriteString(reset)
			pos++
			commandPosition = true
			redirectTarget = false
		case '&':
			result.WriteString(cyan)
			result.WriteByte('&')
			result.WriteString(reset)
			pos++
		case '>':
			result.WriteString(cyan)
			result.WriteByte('>')
			pos++
			if pos < length && bytes[pos] == '>' {
				result.WriteByte('>')
				pos++
			}
			result.WriteString(reset)
			redirectTarget = true
		case '<':
			result.WriteString(cyan)
			result.WriteByte('<')
			result.WriteString(reset)
			pos++
			redirectTarget = true
		case '\'':
			result.WriteString(yellow)
			result.WriteByte('\'')
			pos++
			for pos < length && bytes[pos] != '\'' {
				result.WriteByte(bytes[pos])
				pos++
			}
			if pos < length {
				result.WriteByte('\'')
				pos++
			}
			result.WriteString(reset)
			commandPosition = false
			redirectTarget = false
		case '"':
			result.WriteString(yellow)
			result.WriteByte('"')
			pos++
			for pos < length && bytes[pos] != '"' {
				if bytes[pos] == '$' {
					result.WriteString(magenta)
					result.WriteByte('$')
					pos++
					for pos < length && (isAlnum(bytes[pos]) || bytes[pos] == '_' || bytes[pos] == '?') {
						result.WriteByte(bytes[pos])
						pos++
					}
					result.WriteString(yellow)
				} else {
					result.WriteByte(bytes[pos])
					pos++
				}
			}
			if pos < length {
				result.WriteByte('"')
				pos++
			}
			result.WriteString(reset)
			commandPosition = false
			redirectTarget = false
		default:
			wordStart := pos
			for pos < length && !isWordBoundary(bytes[pos]) {
				pos++
			}
			word := buf[wordStart:pos]

			switch {
			case redirectTarget:
				result.WriteString(word)
				redirectTarget = false
			case commandPosition:
				switch {
				case strings.HasPrefix(word, "$"):
					highlightVars(&result, word)
				case IsValid(word, isBuiltin, cache):
					result.WriteString(greenBold)
					result.WriteString(word)
					result.WriteString(reset)
				default:
					result.WriteString(redBold)
					result.WriteString(word)
					result.WriteString(reset)
				}
				commandPosition = false
			default:
				highlightVars(&result, word)
			}
		}
	}

	return result.String()
}

func isWordBoundary(b byte) bool {
	switch b {
	case ' ', '\t', '|', '&', '>', '<', '\'', '"':
		return true
	default:
		return false
	}
}

func isAlnum(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// highlightVars colors $VAR / $? references within word magenta, leaving
// the rest uncolored.
func highlightVars(result *strings.Builder, word string) {
	bytes := []byte(word)
	length := len(bytes)
	i := 0
	for i < length {
		if bytes[i] == '$' && i+1 < length && (isAlpha(bytes[i+1]) || bytes[i+1] == '_' || bytes[i+1] == '?') {
			result.WriteString(magenta)
			result.WriteByte('$')
			i++
			if i < length && bytes[i] == '?' {
				result.WriteByte('?')
				i++
			} else {
				for i < length && (isAlnum(bytes[i]) || bytes[i] == '_') {
					result.WriteByte(bytes[i])
					i++
				}
			}
			result.WriteString(reset)
		} else {
			result.WriteByte(bytes[i])
			i++
		}
	}
}

func isAlpha(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
