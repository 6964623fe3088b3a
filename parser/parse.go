// Package parser implements the tokenizer and recursive-descent parser
// that turn one shell input line into an ast.CommandList: the "hard part"
// named the parser in the design. It performs eager variable, parameter
// and arithmetic expansion while scanning; command substitution is left as
// a deferred marker for the executor, and tilde/brace/glob expansion are
// left entirely to the executor.
package parser

import (
	"regexp"
	"strings"

	"github.com/rushshell/rush/ast"
)

var assignRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*=`)

type parser struct {
	lex     *lexer
	tok     token
	pending []pendingHeredoc // heredocs awaiting their body, collected at end of line
}

// pendingHeredoc references a heredoc redirect by command+index rather than
// by pointer into the command's Redirects slice: later redirects on the
// same command can still append to that slice and reallocate its backing
// array before the line ends, which would leave a raw pointer dangling.
type pendingHeredoc struct {
	cmd *ast.Command
	idx int
}

// Parse implements the parser's contract: parse(input, last_status,
// positional_args, nounset) -> Ok(Some(CommandList)) | Ok(None) | Err.
// A nil CommandList with a nil error means "whitespace-only input".
func Parse(input string, params Params) (*ast.CommandList, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	p := &parser{lex: newLexer(input, &params)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	cl, err := p.parseCommandList()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tEOF {
		return nil, &ParseError{Kind: EmptyPipelineSegment}
	}
	return cl, nil
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) skipSeparators() error {
	for p.tok.kind == tNewline || p.tok.kind == tSemi {
		if p.tok.kind == tNewline {
			if err := p.collectPendingHeredocs(); err != nil {
				return err
			}
		}
		if err := p.advance(); err != nil {
			return err
		}
	}
	return nil
}

// collectPendingHeredocs performs the heredoc second pass: once a line
// carrying <<DELIM redirects ends, the following raw lines up to a line
// exactly matching DELIM are the heredoc body.
func (p *parser) collectPendingHeredocs() error {
	if len(p.pending) == 0 {
		return nil
	}
	for _, ph := range p.pending {
		r := &ph.cmd.Redirects[ph.idx]
		delim := strings.TrimSpace(r.Target.Literal())
		var body strings.Builder
		for {
			if p.lex.pos >= len(p.lex.s) {
				return &ParseError{Kind: IncompleteInput}
			}
			lineEnd := strings.IndexByte(p.lex.s[p.lex.pos:], '\n')
			var line string
			if lineEnd < 0 {
				line = p.lex.s[p.lex.pos:]
				p.lex.pos = len(p.lex.s)
			} else {
				line = p.lex.s[p.lex.pos : p.lex.pos+lineEnd]
				p.lex.pos += lineEnd + 1
			}
			if strings.TrimSpace(line) == delim {
				break
			}
			body.WriteString(line)
			body.WriteByte('\n')
		}
		r.Body = body.String()
	}
	p.pending = nil
	return nil
}

func (p *parser) parseCommandList() (*ast.CommandList, error) {
	cl := &ast.CommandList{}
	if err := p.skipSeparators(); err != nil {
		return nil, err
	}
	for p.tok.kind != tEOF {
		pipe, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		conn := ast.Seq
		switch p.tok.kind {
		case tAndIf:
			conn = ast.And
			if err := p.advance(); err != nil {
				return nil, err
			}
		case tOrIf:
			conn = ast.Or
			if err := p.advance(); err != nil {
				return nil, err
			}
		case tSemi, tNewline, tEOF:
			// Seq; fall through to separator skipping below.
		default:
			return nil, &ParseError{Kind: EmptyPipelineSegment}
		}
		cl.Items = append(cl.Items, ast.ListItem{Pipeline: pipe, Connector: conn})
		if conn == ast.Seq {
			if err := p.skipSeparators(); err != nil {
				return nil, err
			}
		} else {
			// && / || may be directly followed by a newline (continuation).
			for p.tok.kind == tNewline {
				if err := p.collectPendingHeredocs(); err != nil {
					return nil, err
				}
				if err := p.advance(); err != nil {
					return nil, err
				}
			}
			if p.tok.kind == tEOF {
				return nil, &ParseError{Kind: IncompleteInput}
			}
		}
	}
	if len(cl.Items) == 0 {
		return nil, nil
	}
	// The last item's connector is always Seq, per the design.
	cl.Items[len(cl.Items)-1].Connector = ast.Seq
	return cl, nil
}

func (p *parser) parsePipeline() (*ast.Pipeline, error) {
	pipe := &ast.Pipeline{}
	for {
		cmd, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		pipe.Commands = append(pipe.Commands, cmd)
		if p.tok.kind == tPipe {
			if err := p.advance(); err != nil {
				return nil, err
			}
			for p.tok.kind == tNewline {
				if err := p.advance(); err != nil {
					return nil, err
				}
			}
			if p.tok.kind == tEOF {
				return nil, &ParseError{Kind: IncompleteInput}
			}
			continue
		}
		break
	}
	if p.tok.kind == tAnd {
		pipe.Background = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return pipe, nil
}

func (p *parser) parseCommand() (*ast.Command, error) {
	cmd := &ast.Command{}
	for {
		switch p.tok.kind {
		case tWord:
			if len(cmd.Args) == 0 && assignRe.MatchString(p.tok.raw) {
				i := strings.IndexByte(p.tok.raw, '=')
				name := p.tok.raw[:i]
				valText := p.tok.raw[i+1:]
				val, err := p.lex.expandOpWord(valText)
				if err != nil {
					return nil, err
				}
				cmd.Assigns = append(cmd.Assigns, ast.Assign{Name: name, Value: val})
			} else {
				cmd.Args = append(cmd.Args, p.tok.word)
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		case tRedirOut, tRedirAppend, tRedirIn, tRedirDup, tHereDoc, tHereString:
			r, err := p.parseRedirect()
			if err != nil {
				return nil, err
			}
			cmd.Redirects = append(cmd.Redirects, r)
			if r.Kind == ast.RedirHereDoc {
				p.pending = append(p.pending, pendingHeredoc{cmd: cmd, idx: len(cmd.Redirects) - 1})
			}
		default:
			if len(cmd.Args) == 0 && len(cmd.Assigns) == 0 {
				return nil, &ParseError{Kind: EmptyPipelineSegment}
			}
			return cmd, nil
		}
	}
}

func (p *parser) parseRedirect() (ast.Redirect, error) {
	kind := map[tokKind]ast.RedirectKind{
		tRedirOut:    ast.RedirOutput,
		tRedirAppend: ast.RedirAppend,
		tRedirIn:     ast.RedirInput,
		tRedirDup:    ast.RedirFdDup,
		tHereDoc:     ast.RedirHereDoc,
		tHereString:  ast.RedirHereString,
	}[p.tok.kind]
	fd := p.tok.fd
	if fd == 2 {
		if kind == ast.RedirOutput {
			kind = ast.RedirStderr
		} else if kind == ast.RedirAppend {
			kind = ast.RedirStderrAppend
		}
	}
	if err := p.advance(); err != nil {
		return ast.Redirect{}, err
	}
	if p.tok.kind != tWord {
		return ast.Redirect{}, &ParseError{Kind: MissingRedirectTarget}
	}
	target := p.tok.word
	raw := p.tok.raw
	if err := p.advance(); err != nil {
		return ast.Redirect{}, err
	}
	r := ast.Redirect{Kind: kind, Fd: fd, Target: target}
	if kind == ast.RedirFdDup {
		n, ok := parseFd(raw)
		if !ok {
			return ast.Redirect{}, &ParseError{Kind: BadFdRedirect, Arg: raw}
		}
		r.DstFd = n
	}
	return r, nil
}

func parseFd(s string) (int, bool) {
	if s == "-" {
		return -1, true
	}
	n := 0
	if len(s) == 0 {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		n = n*10 + int(s[i]-'0')
	}
	return n, true
}
