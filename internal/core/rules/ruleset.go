package rules

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultRules []byte

// File is the on-disk rule configuration.
type File struct {
	Spam         []string       `yaml:"spam"`
	Replies      []ReplyRuleDef `yaml:"replies"`
	DefaultReply string         `yaml:"default_reply"`
}

// ReplyRuleDef is a keyword reply rule as written in configuration.
type ReplyRuleDef struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Template string   `yaml:"template"`
}

// Ruleset bundles the spam classifier and reply generator.
type Ruleset struct {
	Spam    *SpamClassifier
	Replies *ReplyGenerator
}

// Default returns the embedded rule set.
func Default() (*Ruleset, error) {
	return Parse(defaultRules)
}

// Load reads rules from path, or the embedded defaults when path is empty.
func Load(path string) (*Ruleset, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return Parse(raw)
}

// Parse builds a Ruleset from YAML.
func Parse(raw []byte) (*Ruleset, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	spam, err := NewSpamClassifier(f.Spam)
	if err != nil {
		return nil, err
	}

	replyRules := make([]ReplyRule, 0, len(f.Replies))
	for _, def := range f.Replies {
		if len(def.Keywords) == 0 {
			return nil, fmt.Errorf("reply rule %q has no keywords", def.Name)
		}
		replyRules = append(replyRules, ReplyRule{
			Name:     def.Name,
			Match:    KeywordMatch(def.Keywords...),
			Template: def.Template,
		})
	}
	replies, err := NewReplyGenerator(replyRules, f.DefaultReply)
	if err != nil {
		return nil, err
	}

	return &Ruleset{Spam: spam, Replies: replies}, nil
}
