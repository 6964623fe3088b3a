// Copyright (c) 2018, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package shell

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/rushshell/rush/expand"
)

var mapTests = []struct {
	in   string
	want map[string]expand.Variable
}{
	{
		"a=x; b=y",
		map[string]expand.Variable{
			"a": {Set: true, Kind: expand.String, Str: "x"},
			"b": {Set: true, Kind: expand.String, Str: "y"},
		},
	},
	{
		"a=x; a=y",
		map[string]expand.Variable{
			"a": {Set: true, Kind: expand.String, Str: "y"},
		},
	},
	{
		"a=$(echo foo | sed 's/o/a/g')",
		map[string]expand.Variable{
			"a": {Set: true, Kind: expand.String, Str: "faa"},
		},
	},
}

var errTests = []struct {
	in   string
	want string
}{
	{
		"a=b; exit 1",
		"exit status 1",
	},
	{
		"rm -rf /",
		"program not permitted",
	},
}

func TestSourceNode(t *testing.T) {
	for i := range mapTests {
		tc := mapTests[i]
		t.Run(fmt.Sprintf("%02d", i), func(t *testing.T) {
			t.Parallel()
			got, err := SourceNode(context.Background(), tc.in)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(tc.want, got) {
				t.Fatalf("mismatch:\nwant: %#v\ngot:  %#v", tc.want, got)
			}
		})
	}
}

func TestSourceNodeErr(t *testing.T) {
	for i := range errTests {
		tc := errTests[i]
		t.Run(fmt.Sprintf("%02d", i), func(t *testing.T) {
			t.Parallel()
			_, err := SourceNode(context.Background(), tc.in)
			if err == nil {
				t.Fatal("wanted non-nil error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not match %q", err, tc.want)
			}
		})
	}
}

func TestSourceFileContext(t *testing.T) {
	t.Parallel()
	tf, err := os.CreateTemp("", "rush-shell")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tf.Name())
	const src = "cat" // blocks forever reading from its own stdin
	if _, err := tf.WriteString(src); err != nil {
		t.Fatal(err)
	}
	if err := tf.Close(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := SourceFile(ctx, tf.Name())
		errc <- err
	}()
	cancel()
	err = <-errc
	want := "context canceled"
	if !strings.Contains(err.Error(), want) {
		t.Fatalf("error %q does not match %q", err, want)
	}
}

func TestSourceFileNotFound(t *testing.T) {
	t.Parallel()
	_, err := SourceFile(context.Background(), "/does/not/exist/rush-shell-test")
	if err == nil {
		t.Fatal("wanted non-nil error")
	}
	if !strings.Contains(err.Error(), "could not open") {
		t.Fatalf("error %q does not mention opening the file", err)
	}
}
