// Package completion implements tab completion for the line editor:
// command-name completion at the start of a segment, filesystem-entry
// completion everywhere else.
package completion

import (
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rushshell/rush/fileutil"
)

// execDirCache bounds how many PATH directories' executable listings are
// kept around between Tab presses, so repeated completions in the same
// session don't keep re-reading every PATH directory from disk.
var execDirCache, _ = lru.New[string, []string](64)

func executablesInDirCached(dir string) []string {
	if names, ok := execDirCache.Get(dir); ok {
		return names
	}
	names := fileutil.ExecutablesInDir(dir)
	execDirCache.Add(dir, names)
	return names
}

// Result is what the editor needs to apply a completion.
type Result struct {
	// Candidates is the full set of matches, for listing when there's
	// more than one.
	Candidates []string
	// Replacement is what should replace the word under the cursor: the
	// sole candidate itself, or the longest common prefix of all
	// candidates. The editor appends the trailing " " or "/" (see IsDir).
	Replacement string
	// WordStart is the byte offset in the line where the completed word
	// begins.
	WordStart int
	// IsDir marks that Replacement names a directory, so the editor can
	// append "/" instead of a space.
	IsDir bool
}

// CurrentWord returns the word under the cursor (the run of non-whitespace,
// non-separator bytes ending at cursor) along with its start offset and
// whether it occupies command position: the first word of a segment,
// meaning only whitespace, or a preceding "|", "&&", "||", ";", precedes
// it.
func CurrentWord(line string, cursor int) (word string, start int, commandPosition bool) {
	if cursor > len(line) {
		cursor = len(line)
	}
	start = cursor
	for start > 0 && !isSeparator(line[start-1]) {
		start--
	}
	word = line[start:cursor]

	// Walk backward over whitespace to see what precedes this word.
	i := start
	for i > 0 && (line[i-1] == ' ' || line[i-1] == '\t') {
		i--
	}
	if i == 0 {
		return word, start, true
	}
	switch {
	case strings.HasSuffix(line[:i], "|"), strings.HasSuffix(line[:i], "&&"),
		strings.HasSuffix(line[:i], "||"), strings.HasSuffix(line[:i], ";"):
		return word, start, true
	}
	return word, start, false
}

func isSeparator(b byte) bool {
	switch b {
	case ' ', '\t', '|', '&', ';', '<', '>':
		return true
	default:
		return false
	}
}

// Complete computes completion candidates for the buffer at cursor.
// builtins is the list of builtin command names to offer in command
// position, alongside whatever is found on $PATH.
func Complete(line string, cursor int, builtins []string) Result {
	word, start, commandPos := CurrentWord(line, cursor)

	var candidates []string
	if commandPos {
		candidates = findCommands(word, builtins)
	} else {
		candidates = findFiles(word)
	}
	sort.Strings(candidates)

	res := Result{Candidates: candidates, WordStart: start}
	switch len(candidates) {
	case 0:
		res.Replacement = word
	case 1:
		res.Replacement = candidates[0]
		res.IsDir = !commandPos && fileutil.IsDir(expandTilde(candidates[0]))
	default:
		res.Replacement = LongestCommonPrefix(candidates)
	}
	return res
}

// findCommands matches builtins and $PATH executables by prefix.
func findCommands(prefix string, builtins []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if strings.HasPrefix(name, prefix) && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, b := range builtins {
		add(b)
	}
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		for _, name := range executablesInDirCached(dir) {
			add(name)
		}
	}
	return out
}

// findFiles matches filesystem entries under the directory named by
// prefix's directory component, honoring the dotfile rule: hidden entries
// only show up when the prefix itself starts with a dot.
func findFiles(prefix string) []string {
	expanded := expandTilde(prefix)
	dir := filepath.Dir(expanded)
	base := filepath.Base(expanded)
	if strings.HasSuffix(expanded, "/") {
		dir = expanded
		base = ""
	}
	if prefix == "" {
		dir, base = ".", ""
	}

	includeHidden := strings.HasPrefix(base, ".")
	entries, err := fileutil.DirEntries(dir, includeHidden)
	if err != nil {
		return nil
	}

	origDir := filepath.Dir(prefix)
	if strings.HasSuffix(prefix, "/") {
		origDir = strings.TrimSuffix(prefix, "/")
	}
	prefixDir := ""
	switch {
	case prefix == "":
		prefixDir = ""
	case strings.HasSuffix(prefix, "/"):
		prefixDir = prefix
	case origDir == ".":
		prefixDir = ""
	default:
		prefixDir = origDir + "/"
	}

	var out []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), base) {
			continue
		}
		out = append(out, prefixDir+e.Name())
	}
	return out
}

func expandTilde(path string) string {
	if path == "~" {
		if u, err := user.Current(); err == nil {
			return u.HomeDir
		}
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if u, err := user.Current(); err == nil {
			return filepath.Join(u.HomeDir, path[2:])
		}
	}
	return path
}

// LongestCommonPrefix returns the longest byte string that is a prefix of
// every candidate, rounded down to a UTF-8 codepoint boundary. Returns ""
// for an empty input.
func LongestCommonPrefix(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	prefix := candidates[0]
	for _, c := range candidates[1:] {
		prefix = commonPrefix(prefix, c)
		if prefix == "" {
			break
		}
	}
	for len(prefix) > 0 && !utf8.RuneStart(prefix[0]) {
		prefix = prefix[1:]
	}
	for !utf8.ValidString(prefix) && len(prefix) > 0 {
		prefix = prefix[:len(prefix)-1]
	}
	return prefix
}

func commonPrefix(a, b string) string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}
