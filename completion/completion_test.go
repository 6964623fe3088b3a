package completion

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCurrentWordCommandPosition(t *testing.T) {
	t.Parallel()
	cases := []struct {
		line      string
		cursor    int
		wantWord  string
		wantStart int
		wantCmd   bool
	}{
		{"ec", 2, "ec", 0, true},
		{"echo fo", 7, "fo", 5, false},
		{"echo a | gr", 11, "gr", 9, true},
		{"a; c", 4, "c", 3, true},
		{"", 0, "", 0, true},
	}
	for _, c := range cases {
		word, start, cmd := CurrentWord(c.line, c.cursor)
		if word != c.wantWord || start != c.wantStart || cmd != c.wantCmd {
			t.Errorf("CurrentWord(%q, %d) = %q, %d, %v; want %q, %d, %v",
				c.line, c.cursor, word, start, cmd, c.wantWord, c.wantStart, c.wantCmd)
		}
	}
}

func TestLongestCommonPrefixBasic(t *testing.T) {
	t.Parallel()
	got := LongestCommonPrefix([]string{"foobar", "foobaz"})
	if got != "fooba" {
		t.Fatalf("got %q", got)
	}
}

func TestLongestCommonPrefixNoOverlap(t *testing.T) {
	t.Parallel()
	got := LongestCommonPrefix([]string{"abc", "xyz"})
	if got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestLongestCommonPrefixEmpty(t *testing.T) {
	t.Parallel()
	if got := LongestCommonPrefix(nil); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestFindFilesDotfileRule(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "visible.txt"), nil, 0o644)
	os.WriteFile(filepath.Join(dir, ".hidden.txt"), nil, 0o644)

	got := findFiles(dir + "/")
	foundVisible, foundHidden := false, false
	for _, c := range got {
		if filepath.Base(c) == "visible.txt" {
			foundVisible = true
		}
		if filepath.Base(c) == ".hidden.txt" {
			foundHidden = true
		}
	}
	if !foundVisible || foundHidden {
		t.Fatalf("got %v, want visible.txt only", got)
	}

	gotHidden := findFiles(dir + "/.")
	foundHidden = false
	for _, c := range gotHidden {
		if filepath.Base(c) == ".hidden.txt" {
			foundHidden = true
		}
	}
	if !foundHidden {
		t.Fatalf("expected dot-prefixed pattern to surface .hidden.txt, got %v", gotHidden)
	}
}

func TestCompleteSingleCandidateAppendsNothingSpecial(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "onlyfile.txt"), nil, 0o644)

	res := Complete(dir+"/only", len(dir+"/only"), nil)
	if len(res.Candidates) != 1 {
		t.Fatalf("candidates = %v", res.Candidates)
	}
}
