// Copyright (c) 2018, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package shell

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rushshell/rush/expand"
	"github.com/rushshell/rush/interp"
)

// SourceFile sources a shell file from disk and returns the variables it
// declares.
func SourceFile(ctx context.Context, path string) (map[string]expand.Variable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open: %w", err)
	}
	return SourceNode(ctx, string(data))
}

// purePrograms is the whitelist of external commands SourceNode allows to
// run, picked for having no side effects that could harm the caller's
// system. Notably absent: "env" (can exec an arbitrary, unwhitelisted
// program on the caller's behalf) and anything that can be told to write
// to disk via a flag rather than a shell redirect (e.g. "sed -i", "tee",
// "cp").
var purePrograms = []string{
	"sed", "grep", "tr", "cut", "cat", "head", "tail", "seq", "yes", "wc",
	"ls", "pwd", "basename", "realpath", "echo",
	"sleep", "uniq", "sort",
}

// unsafeFlags lists, per program, flags that would give an otherwise-pure
// program a real side effect; isPure rejects any argv containing one.
var unsafeFlags = map[string][]string{
	"sed":  {"-i", "--in-place"},
	"sort": {"-o", "--output"},
}

func isPure(argv []string) bool {
	name := argv[0]
	allowed := false
	for _, p := range purePrograms {
		if p == name {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}
	for _, flag := range unsafeFlags[name] {
		for _, arg := range argv[1:] {
			// Prefix match, not equality: GNU/BSD sed both accept an
			// optional backup suffix glued directly onto "-i" (e.g.
			// "-i.bak"), and "--in-place" takes "=SUFFIX" the same way.
			if strings.HasPrefix(arg, flag) {
				return false
			}
		}
	}
	return true
}

// pureRunner builds a Runner with no inherited process environment, so the
// only variables SourceNode ever sees are the ones the sourced script
// itself declares (plus the handful Reset seeds, filtered out below).
func pureRunner() (*interp.Runner, error) {
	r, err := interp.New(interp.Env(expand.ListEnviron()), interp.Restricted(isPure))
	if err != nil {
		return nil, err
	}
	r.Reset()
	return r, nil
}

// builtinVars are the variables Reset seeds every runner with (PWD, HOME,
// IFS, RUSH_LAST_BG_PID), plus PATH and OPTIND; SourceNode hides them so
// callers only see what the sourced script itself declared.
var builtinVars = map[string]bool{
	"PWD": true, "HOME": true, "PATH": true, "IFS": true,
	"OPTIND": true, "RUSH_LAST_BG_PID": true,
}

// SourceNode sources a shell program from source text and returns the
// variables it declares. Any side effects are forbidden: opening real files
// always fails, and running external programs is restricted to a whitelist
// of commands with no meaningful side effects.
func SourceNode(ctx context.Context, src string) (map[string]expand.Variable, error) {
	r, err := pureRunner()
	if err != nil {
		return nil, err
	}
	if err := r.Run(ctx, src); err != nil {
		return nil, fmt.Errorf("could not run: %w", err)
	}
	if code := r.ExitCode(); code != 0 {
		return nil, interp.ExitStatus(code)
	}
	vars := map[string]expand.Variable{}
	r.EachVar(func(name, value string) bool {
		if !builtinVars[name] {
			vars[name] = expand.Variable{Set: true, Kind: expand.String, Str: value}
		}
		return true
	})
	return vars, nil
}
