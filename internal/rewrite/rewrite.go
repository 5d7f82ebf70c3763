package rewrite

import (
	"context"
	"fmt"
	"strings"

	"horse.fit/newsdesk/internal/llm"
	"horse.fit/newsdesk/internal/translation"
)

const defaultSystemPrompt = "You are a news editor. Rewrite the article in %s in a neutral, concise style for a Telegram channel. " +
	"Keep every fact, number and name. Do not add facts. Return only the rewritten text without a headline."

// Rewriter rewrites article bodies into publishable text.
type Rewriter interface {
	Rewrite(ctx context.Context, text string) (string, error)
}

// ChatRewriter rewrites through an OpenAI-compatible chat completions endpoint.
type ChatRewriter struct {
	chat         *llm.ChatClient
	systemPrompt string
}

type Options struct {
	Endpoint       string
	Model          string
	APIKey         string
	TargetLanguage string
	SystemPrompt   string
}

func NewChatRewriter(opts Options) *ChatRewriter {
	prompt := strings.TrimSpace(opts.SystemPrompt)
	if prompt == "" {
		prompt = fmt.Sprintf(defaultSystemPrompt, translation.LanguageName(opts.TargetLanguage))
	}
	return &ChatRewriter{
		chat: llm.NewChatClient(llm.ChatOptions{
			Endpoint:    opts.Endpoint,
			Model:       opts.Model,
			APIKey:      opts.APIKey,
			Temperature: 0.4,
		}),
		systemPrompt: prompt,
	}
}

func (r *ChatRewriter) Rewrite(ctx context.Context, text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", fmt.Errorf("text is required")
	}

	out, err := r.chat.Complete(ctx, []llm.Message{
		{Role: "system", Content: r.systemPrompt},
		{Role: "user", Content: trimmed},
	})
	if err != nil {
		return "", fmt.Errorf("rewrite: %w", err)
	}
	return out, nil
}
