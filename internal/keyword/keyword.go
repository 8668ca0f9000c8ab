// Package keyword implements subscription keyword validation and
// whole-word matching against feed text.
package keyword

import (
	"regexp"
	"strings"
	"sync"
)

// MaxPerChat is the subscription keyword cap for a single chat.
const MaxPerChat = 5

var (
	validKeyword = regexp.MustCompile(`^[A-Za-z0-9_-]{2,30}$`)
	segmentSplit = regexp.MustCompile(`[\s,]+`)
)

// Valid reports whether kw is an acceptable subscription keyword.
func Valid(kw string) bool {
	return validKeyword.MatchString(kw)
}

// Parse splits raw user input on whitespace and commas, lowercases each
// segment, and returns the valid keywords along with any rejected ones.
func Parse(raw string) (valid, invalid []string) {
	for _, seg := range segmentSplit.Split(raw, -1) {
		kw := strings.ToLower(strings.TrimSpace(seg))
		if kw == "" {
			continue
		}
		if !Valid(kw) {
			invalid = append(invalid, kw)
			continue
		}
		valid = append(valid, kw)
	}
	return valid, invalid
}

// Matcher performs case-insensitive whole-word keyword matching.
// Compiled patterns are cached per keyword for the process lifetime;
// the keyword set is small (capped per chat).
type Matcher struct {
	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

// NewMatcher creates an empty Matcher.
func NewMatcher() *Matcher {
	return &Matcher{patterns: make(map[string]*regexp.Regexp)}
}

// Matches reports whether text contains kw as a whole word: the keyword
// must not be immediately preceded or followed by a letter, digit, or
// underscore.
func (m *Matcher) Matches(text, kw string) bool {
	return m.pattern(kw).MatchString(text)
}

func (m *Matcher) pattern(kw string) *regexp.Regexp {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.patterns[kw]; ok {
		return p
	}
	p := regexp.MustCompile(`(?i)(?:^|[^A-Za-z0-9_])` + regexp.QuoteMeta(kw) + `(?:[^A-Za-z0-9_]|$)`)
	m.patterns[kw] = p
	return p
}
