package pathfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		name    string
		rules   string
		path    string
		isDir   bool
		exclude bool
	}{
		{"no rules", "", "anything", true, false},
		{"plain name matches at any depth", "archive", "old/archive", true, true},
		{"plain name matches root", "archive", "archive", true, true},
		{"plain name matches children", "archive", "archive/2019", true, true},
		{"plain name is not a substring match", "archive", "archived", true, false},
		{"leading slash anchors", "/archive", "old/archive", true, false},
		{"leading slash matches root", "/archive", "archive", true, true},
		{"interior slash anchors", "a/b", "x/a/b", true, false},
		{"star stays in segment", "ML/*", "ML/Vision", true, true},
		{"star covers nested via directory match", "ML/*", "ML/Vision/3D", true, true},
		{"star does not match parent", "ML/*", "ML", true, false},
		{"question mark", "run?", "run1", true, true},
		{"question mark needs one char", "run?", "run", true, false},
		{"char class", "v[0-9]", "v3", true, true},
		{"negated char class", "v[!0-9]", "v3", true, false},
		{"double star prefix", "**/drafts", "a/b/drafts", true, true},
		{"double star prefix matches root", "**/drafts", "drafts", true, true},
		{"double star suffix", "foo/**", "foo/x/y", true, true},
		{"double star suffix excludes dir itself", "foo/**", "foo", true, false},
		{"double star middle", "a/**/z", "a/b/c/z", true, true},
		{"double star middle zero dirs", "a/**/z", "a/z", true, true},
		{"trailing slash needs directory", "notes/", "notes", false, false},
		{"trailing slash matches directory", "notes/", "notes", true, true},
		{"trailing slash covers children", "notes/", "notes/todo", false, true},
		{"comment ignored", "# archive", "archive", true, false},
		{"escaped hash is literal", `\#tag`, "#tag", true, true},
		{"escaped bang is literal", `\!important`, "!important", true, true},
		{"negation re-includes", "foo/**\n!foo/bar", "foo/bar", true, false},
		{"negation leaves siblings excluded", "foo/**\n!foo/bar", "foo/baz", true, true},
		{"last rule wins", "!keep\nkeep", "keep", true, true},
		{"comma separated", "a, b", "b", true, true},
		{"surrounding slashes trimmed from path", "/Reading", "/Reading/", true, true},
		{"empty path never excluded", "**", "", true, false},
		{"special regexp chars are literal", "c++", "c++", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := Compile(tt.rules)
			require.NoError(t, err)
			assert.Equal(t, tt.exclude, rs.Matches(tt.path, tt.isDir))
		})
	}
}

func TestNegationPrecedence(t *testing.T) {
	rs := MustCompile("foo/**\n!foo/bar")

	assert.False(t, rs.Matches("foo/bar", true), "foo/bar should be re-included")
	assert.True(t, rs.Matches("foo/baz", true), "foo/baz should stay excluded")
}

func TestMatches_Idempotent(t *testing.T) {
	rs := MustCompile("ML/**\n!ML/keep\n/archive/\n*.old")
	paths := []string{"ML/x", "ML/keep", "archive", "a/b.old", "misc"}

	for _, p := range paths {
		first := rs.Matches(p, true)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, rs.Matches(p, true), "path %q", p)
		}
	}
}

func TestExcludesAny(t *testing.T) {
	rs := MustCompile("Archive\n!Archive/Keep")

	tests := []struct {
		name  string
		paths []string
		want  bool
	}{
		{"unfiled item", nil, false},
		{"one excluded folder", []string{"Archive/Old"}, true},
		{"re-included folder", []string{"Archive/Keep"}, false},
		{"any excluded folder excludes item", []string{"Reading", "Archive"}, true},
		{"no excluded folder", []string{"Reading", "ML/Vision"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rs.ExcludesAny(tt.paths))
		})
	}
}

func TestCompile(t *testing.T) {
	rs, err := Compile("\n# comment\n  foo/ \n!bar\n\n")
	require.NoError(t, err)
	require.Equal(t, 2, rs.Len())

	rules := rs.Rules()
	assert.Equal(t, "foo/", rules[0].Pattern)
	assert.True(t, rules[0].DirOnly)
	assert.False(t, rules[0].Negate)
	assert.Equal(t, "!bar", rules[1].Pattern)
	assert.True(t, rules[1].Negate)
}

func TestCompile_Errors(t *testing.T) {
	for _, text := range []string{"/", "!", `foo\`} {
		_, err := Compile(text)
		assert.Error(t, err, "pattern %q", text)
	}
}

func TestNilRuleSet(t *testing.T) {
	var rs *RuleSet
	assert.False(t, rs.Matches("a", true))
	assert.False(t, rs.ExcludesAny([]string{"a"}))
	assert.Zero(t, rs.Len())
}
