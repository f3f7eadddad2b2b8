package rules

import (
	"fmt"
	"strings"
)

const authorPlaceholder = "{author}"

// ReplyRule pairs a predicate over lowercased comment text with a reply template.
type ReplyRule struct {
	Name     string
	Match    func(lower string) bool
	Template string
}

// KeywordMatch builds a predicate that matches when any keyword occurs in the text.
func KeywordMatch(keywords ...string) func(string) bool {
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}
	return func(lower string) bool {
		for _, k := range lowered {
			if strings.Contains(lower, k) {
				return true
			}
		}
		return false
	}
}

// ReplyGenerator is an ordered decision table: the first matching rule wins.
type ReplyGenerator struct {
	rules           []ReplyRule
	defaultTemplate string
}

// NewReplyGenerator validates that every template addresses the author.
func NewReplyGenerator(rules []ReplyRule, defaultTemplate string) (*ReplyGenerator, error) {
	for _, r := range rules {
		if r.Match == nil {
			return nil, fmt.Errorf("reply rule %q has no predicate", r.Name)
		}
		if !strings.Contains(r.Template, authorPlaceholder) {
			return nil, fmt.Errorf("reply rule %q template must contain %s", r.Name, authorPlaceholder)
		}
	}
	if !strings.Contains(defaultTemplate, authorPlaceholder) {
		return nil, fmt.Errorf("default reply template must contain %s", authorPlaceholder)
	}
	return &ReplyGenerator{rules: rules, defaultTemplate: defaultTemplate}, nil
}

// Generate returns the reply for a comment.
func (g *ReplyGenerator) Generate(authorName, text string) string {
	return render(g.templateFor(text), authorName)
}

// RuleFor names the rule that would answer text, or "default".
func (g *ReplyGenerator) RuleFor(text string) string {
	lower := strings.ToLower(text)
	for _, r := range g.rules {
		if r.Match(lower) {
			return r.Name
		}
	}
	return "default"
}

func (g *ReplyGenerator) templateFor(text string) string {
	lower := strings.ToLower(text)
	for _, r := range g.rules {
		if r.Match(lower) {
			return r.Template
		}
	}
	return g.defaultTemplate
}

func render(template, author string) string {
	return strings.ReplaceAll(template, authorPlaceholder, author)
}
