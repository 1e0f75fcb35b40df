package responder

import (
	"fmt"
	"regexp"
	"strings"
)

// "hi" needs a word boundary, plain substring matching would fire on
// words like "this".
var greetingPattern = regexp.MustCompile(`(?i)\bhi\b|hello`)

// Rule pairs a predicate with a reply producer. Rules are evaluated in
// order and the first match wins, so put the most specific ones first.
type Rule struct {
	Match func(utterance string) bool
	Reply func(utterance string) string
}

func containsAny(substrings ...string) func(string) bool {
	return func(utterance string) bool {
		lowered := strings.ToLower(utterance)

		for _, sub := range substrings {
			if strings.Contains(lowered, sub) {
				return true
			}
		}

		return false
	}
}

func endsWith(suffix string) func(string) bool {
	return func(utterance string) bool {
		return strings.HasSuffix(strings.TrimSpace(utterance), suffix)
	}
}

// DefaultRules is the canned reply table the widget ships with.
func DefaultRules() []Rule {
	return []Rule{
		{
			Match: greetingPattern.MatchString,
			Reply: func(string) string {
				return "Hello there! How can I help you today?"
			},
		},
		{
			Match: containsAny("weather"),
			Reply: func(string) string {
				return "I can't check the weather, but I hope it's nice where you are!"
			},
		},
		{
			Match: endsWith("?"),
			Reply: func(string) string {
				return "That's a great question! Unfortunately I'm just a demo assistant, so I don't have a real answer."
			},
		},
		{
			Match: func(string) bool {
				return true
			},
			Reply: func(utterance string) string {
				return fmt.Sprintf("You said: %q. Tell me more!", strings.TrimSpace(utterance))
			},
		},
	}
}
