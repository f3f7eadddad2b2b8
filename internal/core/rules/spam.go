package rules

import (
	"fmt"
	"regexp"
)

// SpamClassifier flags comments matching any configured pattern.
type SpamClassifier struct {
	patterns []*regexp.Regexp
}

// NewSpamClassifier compiles patterns case-insensitively.
func NewSpamClassifier(patterns []string) (*SpamClassifier, error) {
	sc := &SpamClassifier{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("invalid spam pattern %q: %w", p, err)
		}
		sc.patterns = append(sc.patterns, re)
	}
	return sc, nil
}

// IsSpam reports whether text matches any rule.
func (sc *SpamClassifier) IsSpam(text string) bool {
	for _, re := range sc.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
