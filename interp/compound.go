package interp

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rushshell/rush/ast"
	"github.com/rushshell/rush/pattern"
)

// compoundOpeners are the keywords that start a block requiring raw-text
// replay rather than the parser package's flat CommandList grammar, per the
// design's explicit choice to keep if/for/while/until/case and function
// bodies out of ast.CommandList entirely.
var compoundOpeners = map[string]bool{
	"if": true, "for": true, "while": true, "until": true, "case": true,
}

var funcDefRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*\(\s*\)\s*\{(.*)$`)

// runCompound recognizes a compound construct or function definition at the
// start of text and, if found, interprets it directly, reporting handled so
// the caller falls back to the flat parser otherwise. Only the outermost
// compound construct in a piece of input is handled this way: a REPL flush
// is expected to be either one compound statement or a semicolon-joined run
// of simple pipelines, not a mix of both (a scope trim recorded in the
// project's design notes).
func (r *Runner) runCompound(ctx context.Context, text string) (handled bool, err error) {
	trimmed := strings.TrimSpace(text)
	word := firstWord(trimmed)

	if m := funcDefRe.FindStringSubmatch(trimmed); m != nil {
		body := m[2]
		if idx := lastCloseBrace(body); idx >= 0 {
			body = body[:idx]
		}
		r.Functions[m[1]] = body
		r.LastStatus = 0
		return true, nil
	}

	if !compoundOpeners[word] {
		return false, nil
	}

	if word == "case" {
		return true, r.runCase(ctx, trimmed)
	}

	stmts := splitStatements(trimmed)
	sc := &stmtScanner{stmts: stmts}
	switch word {
	case "if":
		err = r.runIf(ctx, sc)
	case "for":
		err = r.runFor(ctx, sc)
	case "while":
		err = r.runWhileUntil(ctx, sc, false)
	case "until":
		err = r.runWhileUntil(ctx, sc, true)
	}
	return true, err
}

func lastCloseBrace(s string) int {
	depth := 1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func firstWord(s string) string {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, " \t\n")
	if i < 0 {
		return s
	}
	return s[:i]
}

// stmtScanner walks a flat list of top-level statement strings.
type stmtScanner struct {
	stmts []string
	pos   int
}

func (s *stmtScanner) done() bool { return s.pos >= len(s.stmts) }

func (s *stmtScanner) take() string {
	v := s.stmts[s.pos]
	s.pos++
	return v
}

// splitStatements breaks text into top-level statements at ';' and '\n',
// ignoring separators inside single/double quotes or backtick spans so a
// condition like `[ "$a" = "b;c" ]` isn't split in the middle.
func splitStatements(text string) []string {
	var out []string
	var cur strings.Builder
	var quote byte
	for i := 0; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			cur.WriteByte(c)
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
			cur.WriteByte(c)
		case ';', '\n':
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	out = append(out, strings.TrimSpace(cur.String()))
	var trimmed []string
	for _, s := range out {
		if s != "" {
			trimmed = append(trimmed, s)
		}
	}
	return trimmed
}

// collectBlock gathers statements from sc until one of terminators appears
// as the first word at depth 0 (not inside a nested compound construct of
// its own), returning the collected body statements (runBody joins them
// back into replayable text) and which terminator matched.
func collectBlock(sc *stmtScanner, terminators ...string) (body []string, term string) {
	depth := 0
	for !sc.done() {
		stmt := sc.stmts[sc.pos]
		w := firstWord(stmt)
		if depth == 0 {
			for _, t := range terminators {
				if w == t {
					sc.pos++
					return body, t
				}
			}
		}
		if compoundOpeners[w] {
			depth++
		} else if w == "fi" || w == "done" || w == "esac" {
			if depth > 0 {
				depth--
			}
		}
		body = append(body, stmt)
		sc.pos++
	}
	return body, ""
}

func (r *Runner) runBody(ctx context.Context, stmts []string) error {
	if len(stmts) == 0 {
		return nil
	}
	return r.Run(ctx, strings.Join(stmts, ";\n"))
}

func (r *Runner) runIf(ctx context.Context, sc *stmtScanner) error {
	for {
		condStmt := sc.take() // "if COND" or "elif COND"
		cond := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(condStmt, "if"), "elif"))
		saved := r.noErrExit
		r.noErrExit = true
		if err := r.Run(ctx, cond); err != nil {
			r.noErrExit = saved
			return err
		}
		r.noErrExit = saved
		condStatus := r.LastStatus

		thenStmt := sc.take()
		rest := strings.TrimSpace(strings.TrimPrefix(thenStmt, "then"))
		body, term := collectBlock(sc, "elif", "else", "fi")
		if rest != "" {
			body = append([]string{rest}, body...)
		}

		if condStatus == 0 {
			if err := r.runBody(ctx, body); err != nil {
				return err
			}
			// drain the rest of the if/elif/else chain without running it
			skipRemainingIf(sc, term)
			return nil
		}
		switch term {
		case "elif":
			continue
		case "else":
			elseBody, _ := collectBlock(sc, "fi")
			return r.runBody(ctx, elseBody)
		case "fi", "":
			r.LastStatus = 0
			return nil
		}
	}
}

// skipRemainingIf advances sc past any remaining elif/else bodies once a
// branch has already matched, so a later "fi" doesn't get reinterpreted.
func skipRemainingIf(sc *stmtScanner, term string) {
	for term == "elif" || term == "else" {
		if term == "elif" {
			sc.take() // condition
			sc.take() // then
		}
		_, next := collectBlock(sc, "elif", "else", "fi")
		term = next
	}
}

func (r *Runner) runFor(ctx context.Context, sc *stmtScanner) error {
	header := sc.take() // "for VAR in W1 W2 ..." or "for VAR"
	rest := strings.TrimSpace(strings.TrimPrefix(header, "for"))
	varName := firstWord(rest)
	listText := strings.TrimSpace(strings.TrimPrefix(rest, varName))
	var items []string
	if strings.HasPrefix(listText, "in") {
		listText = strings.TrimSpace(strings.TrimPrefix(listText, "in"))
		words, err := r.expandWords(ctx, literalWords(r.expandSimpleVars(listText)))
		if err != nil {
			return err
		}
		items = words
	} else {
		items = append([]string{}, r.Positional...)
	}

	doStmt := sc.take()
	rest2 := strings.TrimSpace(strings.TrimPrefix(doStmt, "do"))
	body, _ := collectBlock(sc, "done")
	if rest2 != "" {
		body = append([]string{rest2}, body...)
	}

	r.LoopDepth++
	defer func() { r.LoopDepth-- }()
	for _, item := range items {
		r.SetVar(varName, item)
		if err := r.runBody(ctx, body); err != nil {
			return err
		}
		if r.ShouldExit || r.shouldReturn {
			return nil
		}
		if r.breakLevel > 0 {
			r.breakLevel--
			break
		}
		if r.contnLevel > 0 {
			r.contnLevel--
			if r.contnLevel > 0 {
				break
			}
			continue
		}
	}
	r.LastStatus = 0
	return nil
}

func (r *Runner) runWhileUntil(ctx context.Context, sc *stmtScanner, until bool) error {
	condStmt := sc.take()
	kw := "while"
	if until {
		kw = "until"
	}
	cond := strings.TrimSpace(strings.TrimPrefix(condStmt, kw))

	doStmt := sc.take()
	rest := strings.TrimSpace(strings.TrimPrefix(doStmt, "do"))
	body, _ := collectBlock(sc, "done")
	if rest != "" {
		body = append([]string{rest}, body...)
	}

	r.LoopDepth++
	defer func() { r.LoopDepth-- }()
	for {
		saved := r.noErrExit
		r.noErrExit = true
		if err := r.Run(ctx, cond); err != nil {
			r.noErrExit = saved
			return err
		}
		r.noErrExit = saved
		ok := r.LastStatus == 0
		if until {
			ok = !ok
		}
		if !ok {
			break
		}
		if err := r.runBody(ctx, body); err != nil {
			return err
		}
		if r.ShouldExit || r.shouldReturn {
			return nil
		}
		if r.breakLevel > 0 {
			r.breakLevel--
			break
		}
		if r.contnLevel > 0 {
			r.contnLevel--
			if r.contnLevel > 0 {
				break
			}
			continue
		}
	}
	r.LastStatus = 0
	return nil
}

// runCase works directly on the construct's raw text rather than the
// semicolon-delimited stmtScanner every other construct uses: case items
// are terminated by ";;", which splitStatements would otherwise collapse
// away as an empty statement.
func (r *Runner) runCase(ctx context.Context, text string) error {
	rest := strings.TrimSpace(strings.TrimPrefix(text, "case"))
	inAt := topLevelWordIndex(rest, "in", 0)
	if inAt < 0 {
		return fmt.Errorf("rush: syntax error: case missing 'in'")
	}
	subjectText := strings.TrimSpace(rest[:inAt])
	body := rest[inAt+2:]
	esacAt := topLevelWordIndexLast(body, "esac")
	if esacAt >= 0 {
		body = body[:esacAt]
	}

	words, err := r.expandWords(ctx, literalWords(r.expandSimpleVars(subjectText)))
	if err != nil {
		return err
	}
	subject := strings.Join(words, " ")

	matched := false
	for _, item := range splitTopLevelSep(body, ";;") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		pat, itemBody, ok := strings.Cut(item, ")")
		if !ok {
			continue
		}
		pat = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(pat), "("))
		if !matched && caseMatch(pat, subject) {
			matched = true
			if err := r.Run(ctx, strings.TrimSpace(itemBody)); err != nil {
				return err
			}
		}
	}
	if !matched {
		r.LastStatus = 0
	}
	return nil
}

// topLevelWordIndex finds the first standalone occurrence of word in s at
// or after from, outside quotes.
func topLevelWordIndex(s, word string, from int) int {
	var quote byte
	for i := from; i+len(word) <= len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		if c == '\'' || c == '"' || c == '`' {
			quote = c
			continue
		}
		if s[i:i+len(word)] == word &&
			(i == 0 || isWordBoundary(s[i-1])) &&
			(i+len(word) == len(s) || isWordBoundary(s[i+len(word)])) {
			return i
		}
	}
	return -1
}

// topLevelWordIndexLast finds the last standalone occurrence of word in s.
func topLevelWordIndexLast(s, word string) int {
	last := -1
	for i := 0; ; {
		idx := topLevelWordIndex(s, word, i)
		if idx < 0 {
			break
		}
		last = idx
		i = idx + 1
	}
	return last
}

func isWordBoundary(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == ';' || c == '('
}

// splitTopLevelSep splits s on sep (a multi-char separator like ";;"),
// ignoring occurrences inside quotes.
func splitTopLevelSep(s, sep string) []string {
	var out []string
	var quote byte
	last := 0
	for i := 0; i+len(sep) <= len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		if c == '\'' || c == '"' || c == '`' {
			quote = c
			continue
		}
		if s[i:i+len(sep)] == sep {
			out = append(out, s[last:i])
			last = i + len(sep)
			i += len(sep) - 1
		}
	}
	out = append(out, s[last:])
	return out
}

// caseMatch treats each "|"-separated alternative as a glob pattern per
// POSIX case semantics.
func caseMatch(pat, subject string) bool {
	for _, alt := range strings.Split(pat, "|") {
		if globLiteralMatch(strings.TrimSpace(alt), subject) {
			return true
		}
	}
	return false
}

func globLiteralMatch(pat, s string) bool {
	if pat == "*" {
		return true
	}
	return pattern.Match(pat, s)
}

// literalWords splits already-expanded/literal text on whitespace into
// ast.Word values for reuse with expandWords (brace/glob still apply).
func literalWords(s string) []ast.Word {
	fields := strings.Fields(s)
	out := make([]ast.Word, len(fields))
	for i, f := range fields {
		out[i] = ast.NewLit(f)
	}
	return out
}
