package interp

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// builtinNames is the closed set the design's §4.6 names; anything not in
// this set (and not a known function) falls through to the spawn path.
var builtinNames = map[string]bool{
	":": true, "true": true, "false": true, "exit": true, "return": true,
	"break": true, "continue": true, "cd": true, "pwd": true, "export": true,
	"unset": true, "read": true, "exec": true, "source": true, ".": true,
	"local": true, "shift": true, "set": true, "pushd": true, "popd": true,
	"dirs": true, "type": true, "command": true, "builtin": true, "echo": true,
	"printf": true, "test": true, "[": true, "jobs": true, "fg": true,
	"bg": true, "wait": true, "alias": true, "unalias": true, "trap": true,
	"history": true,
}

// IsBuiltinName reports whether name is one of the shell's builtins,
// independent of any particular Runner (e.g. for the line editor's
// command-name completion, which has no Runner to ask about goCommands).
func IsBuiltinName(name string) bool { return builtinNames[name] }

func (r *Runner) isBuiltinName(name string) bool {
	if builtinNames[name] {
		return true
	}
	_, ok := r.goCommands[name]
	return ok
}

// runBuiltin dispatches argv[0] to its implementation. Builtins report a
// POSIX exit status directly; they never return a Go error for expected
// failures (a missing file, bad argument), only print to stderr and return
// non-zero, per the design's failure-semantics contract.
func (r *Runner) runBuiltin(ctx context.Context, argv []string) int {
	if len(argv) == 0 {
		return 0
	}
	name, args := argv[0], argv[1:]
	if fn, ok := r.goCommands[name]; ok {
		return fn(args, r.stdin, r.stdout, r.stderr)
	}
	switch name {
	case ":", "true":
		return 0
	case "false":
		return 1
	case "exit":
		code := r.LastStatus
		if len(args) > 0 {
			code, _ = strconv.Atoi(args[0])
		}
		r.ShouldExit = true
		r.exitCode = code
		return code
	case "return":
		code := r.LastStatus
		if len(args) > 0 {
			code, _ = strconv.Atoi(args[0])
		}
		r.shouldReturn = true
		r.LastStatus = code
		return code
	case "break":
		n := 1
		if len(args) > 0 {
			n, _ = strconv.Atoi(args[0])
		}
		r.breakLevel = n
		return 0
	case "continue":
		n := 1
		if len(args) > 0 {
			n, _ = strconv.Atoi(args[0])
		}
		r.contnLevel = n
		return 0
	case "cd":
		return r.builtinCd(args)
	case "pwd":
		r.outf("%s\n", r.Dir)
		return 0
	case "export":
		return r.builtinExport(args)
	case "unset":
		for _, n := range args {
			r.UnsetVar(n)
			delete(r.Functions, n)
		}
		return 0
	case "read":
		return r.builtinRead(args)
	case "exec":
		if len(args) == 0 {
			return 0
		}
		return r.runSpawnReplace(args)
	case "source", ".":
		return r.builtinSource(ctx, args)
	case "local":
		return r.builtinLocal(args)
	case "shift":
		n := 1
		if len(args) > 0 {
			n, _ = strconv.Atoi(args[0])
		}
		if n > len(r.Positional) {
			n = len(r.Positional)
		}
		r.Positional = r.Positional[n:]
		return 0
	case "set":
		return r.builtinSet(args)
	case "pushd":
		return r.builtinPushd(args)
	case "popd":
		return r.builtinPopd()
	case "dirs":
		r.outf("%s\n", strings.Join(r.DirStack, " "))
		return 0
	case "type":
		return r.builtinType(args)
	case "command":
		return r.builtinCommand(ctx, args)
	case "builtin":
		if len(args) == 0 {
			return 0
		}
		return r.runBuiltin(ctx, args)
	case "echo":
		return r.builtinEcho(args)
	case "printf":
		return r.builtinPrintf(args)
	case "test", "[":
		return r.builtinTest(name, args)
	case "jobs":
		return r.builtinJobs()
	case "fg":
		return r.builtinResume(args, true)
	case "bg":
		return r.builtinResume(args, false)
	case "wait":
		return r.builtinWait(args)
	case "alias":
		return r.builtinAlias(args)
	case "unalias":
		for _, n := range args {
			delete(r.Aliases, n)
		}
		return 0
	case "trap":
		return r.builtinTrap(args)
	case "history":
		return r.builtinHistory()
	}
	r.errf("rush: %s: command not found\n", name)
	return 127
}

func (r *Runner) builtinCd(args []string) int {
	target := ""
	if len(args) > 0 {
		target = args[0]
	}
	if target == "" || target == "~" {
		target, _ = r.GetVar("HOME")
	} else if target == "-" {
		target, _ = r.GetVar("OLDPWD")
		r.outf("%s\n", target)
	} else {
		target = r.expandTilde(target)
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(r.Dir, target)
	}
	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		r.errf("rush: cd: %s: No such file or directory\n", target)
		return 1
	}
	r.SetVar("OLDPWD", r.Dir)
	r.Dir = target
	r.SetVar("PWD", r.Dir)
	return 0
}

func (r *Runner) builtinExport(args []string) int {
	if len(args) == 0 {
		r.EachVar(func(name, value string) bool {
			r.outf("export %s=%s\n", name, value)
			return true
		})
		return 0
	}
	for _, a := range args {
		name, value, hasVal := strings.Cut(a, "=")
		if hasVal {
			r.SetVar(name, value)
		} else if _, ok := r.GetVar(name); !ok {
			r.SetVar(name, "")
		}
	}
	return 0
}

func (r *Runner) builtinRead(args []string) int {
	names := args
	if len(names) == 0 {
		names = []string{"REPLY"}
	}
	line, err := bufio.NewReader(r.stdin).ReadString('\n')
	if err != nil && line == "" {
		return 1
	}
	line = strings.TrimRight(line, "\n")
	ifs, _ := r.GetVar("IFS")
	if ifs == "" {
		ifs = " \t\n"
	}
	fields := strings.FieldsFunc(line, func(c rune) bool { return strings.ContainsRune(ifs, c) })
	for i, name := range names {
		if i < len(fields) {
			if i == len(names)-1 {
				r.SetVar(name, strings.Join(fields[i:], " "))
			} else {
				r.SetVar(name, fields[i])
			}
		} else {
			r.SetVar(name, "")
		}
	}
	return 0
}

func (r *Runner) builtinSource(ctx context.Context, args []string) int {
	if len(args) == 0 {
		r.errf("rush: source: filename argument required\n")
		return 1
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		r.errf("rush: source: %s: %v\n", args[0], err)
		return 1
	}
	savedPositional := r.Positional
	if len(args) > 1 {
		r.Positional = args[1:]
	}
	r.SourceDepth++
	defer func() {
		r.Positional = savedPositional
		r.SourceDepth--
	}()
	if err := r.Run(ctx, string(data)); err != nil {
		r.errf("rush: source: %v\n", err)
		return 1
	}
	return r.LastStatus
}

func (r *Runner) builtinLocal(args []string) int {
	for _, a := range args {
		name, value, _ := strings.Cut(a, "=")
		r.SetVar(name, value)
	}
	return 0
}

func (r *Runner) builtinSet(args []string) int {
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch a {
		case "-e":
			r.Opts.ErrExit = true
		case "+e":
			r.Opts.ErrExit = false
		case "-u":
			r.Opts.NoUnset = true
		case "+u":
			r.Opts.NoUnset = false
		case "-o", "+o":
			// "set -o pipefail" / "set +o pipefail" span two args.
			if i+1 < len(args) && args[i+1] == "pipefail" {
				r.Opts.PipeFail = a == "-o"
				i++
			}
		default:
			if strings.HasPrefix(a, "-") {
				continue
			}
			r.Positional = append(r.Positional, a)
		}
	}
	return 0
}

func (r *Runner) builtinPushd(args []string) int {
	if len(args) == 0 {
		if len(r.DirStack) < 2 {
			r.errf("rush: pushd: no other directory\n")
			return 1
		}
		r.DirStack[0], r.DirStack[1] = r.DirStack[1], r.DirStack[0]
	} else {
		dir := r.expandTilde(args[0])
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(r.Dir, dir)
		}
		r.DirStack = append([]string{dir}, r.DirStack...)
	}
	r.Dir = r.DirStack[0]
	r.SetVar("PWD", r.Dir)
	r.outf("%s\n", strings.Join(r.DirStack, " "))
	return 0
}

func (r *Runner) builtinPopd() int {
	if len(r.DirStack) < 2 {
		r.errf("rush: popd: directory stack empty\n")
		return 1
	}
	r.DirStack = r.DirStack[1:]
	r.Dir = r.DirStack[0]
	r.SetVar("PWD", r.Dir)
	r.outf("%s\n", strings.Join(r.DirStack, " "))
	return 0
}

func (r *Runner) builtinType(args []string) int {
	status := 0
	for _, name := range args {
		switch {
		case builtinNames[name]:
			r.outf("%s is a shell builtin\n", name)
		case r.Functions[name] != "":
			r.outf("%s is a function\n", name)
		case r.Aliases[name] != "":
			r.outf("%s is aliased to `%s'\n", name, r.Aliases[name])
		default:
			if path, err := lookPath(name); err == nil {
				r.outf("%s is %s\n", name, path)
			} else {
				r.errf("rush: type: %s: not found\n", name)
				status = 1
			}
		}
	}
	return status
}

func (r *Runner) builtinCommand(ctx context.Context, args []string) int {
	skip := 0
	for skip < len(args) && strings.HasPrefix(args[skip], "-") {
		skip++
	}
	args = args[skip:]
	if len(args) == 0 {
		return 0
	}
	return r.runBuiltin(ctx, args)
}

func (r *Runner) builtinEcho(args []string) int {
	newline := true
	i := 0
	for i < len(args) && args[i] == "-n" {
		newline = false
		i++
	}
	r.outf("%s", strings.Join(args[i:], " "))
	if newline {
		r.outf("\n")
	}
	return 0
}

func (r *Runner) builtinPrintf(args []string) int {
	if len(args) == 0 {
		return 1
	}
	rest := make([]any, 0, len(args)-1)
	for _, a := range args[1:] {
		rest = append(rest, a)
	}
	fmt.Fprintf(r.stdout, args[0], rest...)
	return 0
}

func (r *Runner) builtinJobs() int {
	if r.Jobs == nil {
		return 0
	}
	for _, j := range r.Jobs.List() {
		r.outf("[%d]  %s\t%s\n", j.ID, j.Status, j.Command)
	}
	return 0
}

func (r *Runner) builtinResume(args []string, foreground bool) int {
	if r.Jobs == nil {
		r.errf("rush: no job control\n")
		return 1
	}
	id := 0
	if len(args) > 0 {
		id, _ = strconv.Atoi(strings.TrimPrefix(args[0], "%"))
	}
	code, err := r.Jobs.Resume(id, foreground)
	if err != nil {
		r.errf("rush: %v\n", err)
		return 1
	}
	return code
}

func (r *Runner) builtinWait(args []string) int {
	if len(args) == 0 {
		if r.Jobs == nil {
			return 0
		}
		for _, j := range r.Jobs.List() {
			r.Jobs.Resume(j.ID, false)
		}
		return 0
	}
	id, _ := strconv.Atoi(strings.TrimPrefix(args[0], "%"))
	if r.Jobs == nil {
		return 0
	}
	code, err := r.Jobs.Resume(id, false)
	if err != nil {
		return 1
	}
	return code
}

func (r *Runner) builtinAlias(args []string) int {
	if len(args) == 0 {
		names := make([]string, 0, len(r.Aliases))
		for n := range r.Aliases {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			r.outf("alias %s='%s'\n", n, r.Aliases[n])
		}
		return 0
	}
	for _, a := range args {
		name, value, hasVal := strings.Cut(a, "=")
		if hasVal {
			r.Aliases[name] = value
		} else if v, ok := r.Aliases[name]; ok {
			r.outf("alias %s='%s'\n", name, v)
		}
	}
	return 0
}

func (r *Runner) builtinTrap(args []string) int {
	if len(args) == 0 {
		for sig, cmd := range r.Traps {
			r.outf("trap -- '%s' %s\n", cmd, sig)
		}
		return 0
	}
	if len(args) < 2 {
		return 1
	}
	for _, sig := range args[1:] {
		r.Traps[sig] = args[0]
	}
	return 0
}

func (r *Runner) builtinHistory() int {
	if r.History == nil {
		return 0
	}
	for i, line := range r.History.Entries() {
		r.outf("%5d  %s\n", i+1, line)
	}
	return 0
}

func lookPath(name string) (string, error) {
	if strings.Contains(name, "/") {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}
	path, _ := os.LookupEnv("PATH")
	for _, dir := range strings.Split(path, string(os.PathListSeparator)) {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("not found")
}
