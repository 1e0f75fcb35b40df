package responder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"parley/app/config"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	maxGenerateDuration = 30 * time.Second
	maxReplyTokens      = 500
)

const systemPrompt = "You are a friendly assistant inside a small demo chat widget. " +
	"Reply to the user's message in one or two short sentences."

var _ Responder = (*ModelResponder)(nil)

// ModelResponder generates replies with an OpenAI-compatible model.
// It satisfies the same contract as the rule table, so swapping it in
// changes nothing for the store or the HTTP layer.
type ModelResponder struct {
	llm *openai.LLM
}

func NewModelResponder(cfg config.OpenAI) (*ModelResponder, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.Token),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	return &ModelResponder{
		llm: llm,
	}, nil
}

func (m *ModelResponder) Generate(ctx context.Context, utterance string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, maxGenerateDuration)
	defer cancel()

	result, err := m.llm.GenerateContent(ctx,
		[]llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
			llms.TextParts(llms.ChatMessageTypeHuman, utterance),
		},
		llms.WithMaxTokens(maxReplyTokens),
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no completion found")
	}

	return strings.TrimSpace(result.Choices[0].Content), nil
}
