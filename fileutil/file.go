// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package fileutil contains small filesystem helpers shared by the
// completion, highlighting, and PATH-lookup code.
package fileutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// IsExecutable reports whether path is a regular file with at least one
// executable permission bit set. Directories, symlinks that don't resolve,
// and non-regular files are never considered executable.
func IsExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().IsRegular() && info.Mode()&0o111 != 0
}

// IsHidden reports whether name begins with a dot, the Unix convention for
// hidden files that glob and completion both exclude unless the pattern
// itself starts with a dot.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// ExecutablesInDir returns the names of every executable, non-hidden entry
// in dir. Errors reading the directory are swallowed; callers use this for
// best-effort PATH scanning where a missing or unreadable directory is
// routine, not exceptional.
func ExecutablesInDir(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if IsHidden(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.Mode().IsRegular() && info.Mode()&0o111 != 0 {
			names = append(names, e.Name())
		}
	}
	return names
}

// DirEntries lists the entries of dir as plain names, optionally including
// hidden files. It is used by completion when expanding a path prefix.
func DirEntries(dir string, includeHidden bool) ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	if includeHidden {
		return entries, nil
	}
	out := entries[:0:0]
	for _, e := range entries {
		if !IsHidden(e.Name()) {
			out = append(out, e)
		}
	}
	return out, nil
}

// IsDir reports whether path names a directory, following symlinks.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Join is filepath.Join, re-exported so callers that otherwise only need
// this package don't pull in path/filepath directly.
func Join(elem ...string) string { return filepath.Join(elem...) }
