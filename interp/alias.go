package interp

import "strings"

// expandAlias substitutes the leading word of line against the alias table,
// repeating while the replacement's own leading word is itself an alias, up
// to a fixed depth as a recursive-expansion guard (an alias defined in
// terms of itself just stops expanding rather than looping forever).
func (r *Runner) expandAlias(line string) string {
	const maxDepth = 16
	seen := map[string]bool{}
	for i := 0; i < maxDepth; i++ {
		trimmed := strings.TrimLeft(line, " \t")
		word := firstWord(trimmed)
		if word == "" || seen[word] {
			break
		}
		repl, ok := r.Aliases[word]
		if !ok {
			break
		}
		seen[word] = true
		rest := strings.TrimPrefix(trimmed, word)
		line = repl + rest
	}
	return line
}
