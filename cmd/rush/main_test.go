// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/rushshell/rush/expand"
	"github.com/rushshell/rush/interp"
)

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"rush": mainRun,
	}))
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
	})
}

func TestSourceRCMissingIsNotFatal(t *testing.T) {
	homedir.DisableCache = true
	t.Setenv("HOME", t.TempDir())
	var out bytes.Buffer
	r, err := interp.New(
		interp.Env(expand.ListEnviron(os.Environ()...)),
		interp.StdIO(nil, &out, &out),
	)
	if err != nil {
		t.Fatal(err)
	}
	sourceRC(context.Background(), r, zap.NewNop())
	if out.Len() != 0 {
		t.Fatalf("expected no output for a missing ~/.rushrc, got %q", out.String())
	}
}

func TestSourceRCRuns(t *testing.T) {
	homedir.DisableCache = true
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := os.WriteFile(filepath.Join(home, ".rushrc"), []byte("echo hello from rushrc\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	r, err := interp.New(
		interp.Env(expand.ListEnviron(os.Environ()...)),
		interp.StdIO(nil, &out, &out),
	)
	if err != nil {
		t.Fatal(err)
	}
	sourceRC(context.Background(), r, zap.NewNop())
	want := "hello from rushrc\n"
	if got := out.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
