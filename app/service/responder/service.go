package responder

import (
	"context"
	"fmt"
	"log/slog"

	"parley/app/config"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
)

// Responder turns a user utterance into a reply. Implementations may
// suspend (network-backed models), so callers pass a context and must
// not assume the call returns quickly.
type Responder interface {
	Generate(ctx context.Context, utterance string) (string, error)
}

// New picks the reply strategy: a model-backed responder when an
// OpenAI token is configured, the built-in rule table otherwise.
func New(di *do.Injector) (Responder, error) {
	cfg := do.MustInvoke[*config.Config](di)

	if cfg.OpenAI.Token != "" {
		slog.Info("Using model-backed responder", "model", cfg.OpenAI.Model)
		return NewModelResponder(cfg.OpenAI)
	}

	return NewRuleResponder(DefaultRules()), nil
}

var _ Responder = (*RuleResponder)(nil)

// RuleResponder evaluates an ordered rule table, first match wins. It
// is deterministic for a fixed table.
type RuleResponder struct {
	rules []Rule
}

func NewRuleResponder(rules []Rule) *RuleResponder {
	return &RuleResponder{
		rules: rules,
	}
}

func (r *RuleResponder) Generate(_ context.Context, utterance string) (string, error) {
	index := pie.FindFirstUsing(r.rules, func(rule Rule) bool {
		return rule.Match(utterance)
	})
	if index < 0 {
		return "", fmt.Errorf("no rule matched %q", utterance)
	}

	return r.rules[index].Reply(utterance), nil
}
