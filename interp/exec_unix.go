//go:build unix

package interp

import "syscall"

// runSpawnReplace implements "exec argv...": replace the shell process
// image entirely rather than forking, per the design's exec builtin
// contract. Only returns on failure (exec never returns on success).
func (r *Runner) runSpawnReplace(args []string) int {
	path, err := lookPath(args[0])
	if err != nil {
		r.errf("rush: exec: %s: command not found\n", args[0])
		return 127
	}
	env := r.environForExec()
	if execErr := syscall.Exec(path, args, env); execErr != nil {
		r.errf("rush: exec: %s: %v\n", args[0], execErr)
		return 126
	}
	return 0
}
