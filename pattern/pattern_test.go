package pattern

import (
	"testing"

	"github.com/go-quicktest/qt"
)

func TestMatch(t *testing.T) {
	t.Parallel()
	cases := []struct {
		pat, name string
		want      bool
	}{
		{"*.go", "main.go", true},
		{"*.go", "main.c", false},
		{"a?c", "abc", true},
		{"a?c", "ac", false},
		{"[abc]", "b", true},
		{"[!abc]", "b", false},
		{"[!abc]", "d", true},
		{"[a-c]", "b", true},
		{"[a-c]", "d", false},
		{"*", "anything", true},
		{"", "", true},
		{"", "x", false},
		{"a*b*c", "axxbyyc", true},
	}
	for _, tc := range cases {
		qt.Check(t, qt.Equals(Match(tc.pat, tc.name), tc.want), qt.Commentf("Match(%q, %q)", tc.pat, tc.name))
	}
}

func TestTrimPrefix(t *testing.T) {
	t.Parallel()
	qt.Assert(t, qt.Equals(TrimPrefixShortest("foo.bar.go", "*."), "bar.go"))
	qt.Assert(t, qt.Equals(TrimPrefixLongest("foo.bar.go", "*."), "go"))
}

func TestTrimSuffix(t *testing.T) {
	t.Parallel()
	qt.Assert(t, qt.Equals(TrimSuffixShortest("foo.bar.go", ".*"), "foo.bar"))
	qt.Assert(t, qt.Equals(TrimSuffixLongest("foo.bar.go", ".*"), "foo"))
}

func TestReplace(t *testing.T) {
	t.Parallel()
	qt.Assert(t, qt.Equals(ReplaceAll("hello", "l", "L"), "heLLo"))
	qt.Assert(t, qt.Equals(ReplaceFirst("hello", "l", "L"), "heLlo"))
}

func TestHasMeta(t *testing.T) {
	t.Parallel()
	qt.Assert(t, qt.IsTrue(HasMeta("*.go")))
	qt.Assert(t, qt.IsFalse(HasMeta("plain.go")))
}
