// Package pathfilter evaluates gitignore-style exclusion rules against
// library folder paths.
package pathfilter

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule is one compiled pattern line.
type Rule struct {
	Pattern string // Source text as written, including any leading "!"
	Negate  bool   // "!pattern" re-includes a previously excluded path
	DirOnly bool   // Trailing "/" restricts the pattern to directories

	exact *regexp.Regexp // Matches the path itself
	under *regexp.Regexp // Matches anything beneath a matched directory
}

// RuleSet is an ordered sequence of rules. Later rules override earlier ones.
type RuleSet struct {
	rules []Rule
}

// Compile parses pattern text into a RuleSet. Patterns are separated by
// newlines or commas; blank entries and "#" comments are ignored.
func Compile(text string) (*RuleSet, error) {
	rs := &RuleSet{}
	for i, line := range splitPatterns(text) {
		rule, ok, err := compileRule(line)
		if err != nil {
			return nil, fmt.Errorf("pattern %d %q: %w", i+1, line, err)
		}
		if ok {
			rs.rules = append(rs.rules, rule)
		}
	}
	return rs, nil
}

// MustCompile is like Compile but panics on error. Intended for tests and
// package-level rule sets.
func MustCompile(text string) *RuleSet {
	rs, err := Compile(text)
	if err != nil {
		panic(err)
	}
	return rs
}

// Rules returns the compiled rules in declaration order.
func (rs *RuleSet) Rules() []Rule {
	if rs == nil {
		return nil
	}
	return rs.rules
}

// Len returns the number of active rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// Matches reports whether path is excluded. The last matching rule decides;
// a path no rule matches is not excluded.
func (rs *RuleSet) Matches(path string, isDir bool) bool {
	if rs == nil {
		return false
	}
	path = normalizePath(path)
	if path == "" {
		return false
	}

	excluded := false
	for _, r := range rs.rules {
		if r.match(path, isDir) {
			excluded = !r.Negate
		}
	}
	return excluded
}

// ExcludesAny reports whether any of the given folder paths is excluded.
// Folder paths are directories. An item with no folders is never excluded.
func (rs *RuleSet) ExcludesAny(paths []string) bool {
	for _, p := range paths {
		if rs.Matches(p, true) {
			return true
		}
	}
	return false
}

func (r Rule) match(path string, isDir bool) bool {
	if r.exact.MatchString(path) && (isDir || !r.DirOnly) {
		return true
	}
	return r.under.MatchString(path)
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, "/")
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	return path
}

func splitPatterns(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ','
	})
}

// compileRule turns one pattern line into a Rule. ok is false for blank
// lines and comments.
func compileRule(line string) (rule Rule, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Rule{}, false, nil
	}
	rule.Pattern = line

	switch {
	case strings.HasPrefix(line, `\#`), strings.HasPrefix(line, `\!`):
		line = line[1:]
	case strings.HasPrefix(line, "!"):
		rule.Negate = true
		line = line[1:]
	}

	if strings.HasSuffix(line, "/") {
		rule.DirOnly = true
		line = strings.TrimRight(line, "/")
	}

	anchored := strings.HasPrefix(line, "/")
	line = strings.TrimLeft(line, "/")
	if line == "" {
		return Rule{}, false, fmt.Errorf("empty pattern")
	}
	if strings.Contains(line, "/") {
		anchored = true
	}

	body, err := globToRegexp(line)
	if err != nil {
		return Rule{}, false, err
	}

	prefix := "^"
	if !anchored {
		prefix = "^(?:.*/)?"
	}
	rule.exact, err = regexp.Compile(prefix + body + "$")
	if err != nil {
		return Rule{}, false, err
	}
	rule.under, err = regexp.Compile(prefix + body + "/.+$")
	if err != nil {
		return Rule{}, false, err
	}
	return rule, true, nil
}

// globToRegexp translates gitignore glob syntax into an unanchored regexp body.
func globToRegexp(glob string) (string, error) {
	var b strings.Builder
	segments := strings.Split(glob, "/")
	for i, seg := range segments {
		last := i == len(segments)-1
		if seg == "**" {
			switch {
			case len(segments) == 1:
				b.WriteString(".*")
			case last:
				// "foo/**" matches everything inside foo
				b.WriteString(".+")
			default:
				// "**/" and "a/**/b" match zero or more directories
				b.WriteString("(?:[^/]+/)*")
			}
			continue
		}
		if err := writeSegment(&b, seg); err != nil {
			return "", err
		}
		if !last {
			b.WriteByte('/')
		}
	}
	return b.String(), nil
}

func writeSegment(b *strings.Builder, seg string) error {
	runes := []rune(seg)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch c {
		case '*':
			// Consecutive stars inside a segment behave like a single star
			for i+1 < len(runes) && runes[i+1] == '*' {
				i++
			}
			b.WriteString("[^/]*")
		case '?':
			b.WriteString("[^/]")
		case '[':
			end := classEnd(runes, i)
			if end < 0 {
				b.WriteString(regexp.QuoteMeta(string(c)))
				continue
			}
			class := runes[i+1 : end]
			b.WriteByte('[')
			if len(class) > 0 && (class[0] == '!' || class[0] == '^') {
				b.WriteByte('^')
				class = class[1:]
			}
			for _, cc := range class {
				if cc == '\\' || cc == ']' || cc == '[' {
					b.WriteByte('\\')
				}
				b.WriteRune(cc)
			}
			b.WriteByte(']')
			i = end
		case '\\':
			if i+1 >= len(runes) {
				return fmt.Errorf("trailing backslash")
			}
			i++
			b.WriteString(regexp.QuoteMeta(string(runes[i])))
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return nil
}

// classEnd returns the index of the "]" closing the class opened at start,
// or -1 if the class is unterminated.
func classEnd(runes []rune, start int) int {
	j := start + 1
	if j < len(runes) && (runes[j] == '!' || runes[j] == '^') {
		j++
	}
	if j < len(runes) && runes[j] == ']' {
		j++
	}
	for ; j < len(runes); j++ {
		if runes[j] == ']' {
			return j
		}
	}
	return -1
}
