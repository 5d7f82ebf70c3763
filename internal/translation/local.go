package translation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"horse.fit/newsdesk/internal/language"
	"horse.fit/newsdesk/internal/llm"
)

const (
	// DefaultLocalModel is used when no translation model is configured.
	DefaultLocalModel = "tencent/HY-MT1.5-7B"
)

// LocalProvider translates text through an OpenAI-compatible chat completions endpoint.
type LocalProvider struct {
	chat *llm.ChatClient
}

// NewLocalProvider builds a local provider for the given endpoint/model.
func NewLocalProvider(endpoint, model, apiKey string) *LocalProvider {
	trimmedModel := strings.TrimSpace(model)
	if trimmedModel == "" {
		trimmedModel = DefaultLocalModel
	}
	return &LocalProvider{
		chat: llm.NewChatClient(llm.ChatOptions{
			Endpoint:    endpoint,
			Model:       trimmedModel,
			APIKey:      apiKey,
			Temperature: 0.7,
			TopP:        0.6,
		}),
	}
}

func (p *LocalProvider) Name() string {
	return "local"
}

// ModelName returns the configured model identifier.
func (p *LocalProvider) ModelName() string {
	if p == nil {
		return ""
	}
	return p.chat.Model()
}

func (p *LocalProvider) SupportedLanguages() []string {
	return SupportedLanguageCodes()
}

func (p *LocalProvider) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	if p == nil {
		return nil, fmt.Errorf("local provider is nil")
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}

	sourceLang := language.NormalizeCode(req.SourceLang)
	targetLang := language.NormalizeCode(req.TargetLang)
	if targetLang == "" {
		return nil, fmt.Errorf("target language is required")
	}

	started := time.Now()
	translated, err := p.chat.Complete(ctx, []llm.Message{{
		Role:    "user",
		Content: buildPrompt(text, sourceLang, targetLang),
	}})
	if err != nil {
		return nil, fmt.Errorf("translate: %w", err)
	}

	return &TranslateResponse{
		Text:         translated,
		SourceLang:   sourceLang,
		TargetLang:   targetLang,
		ProviderName: p.Name(),
		LatencyMs:    time.Since(started).Milliseconds(),
	}, nil
}

func buildPrompt(text, sourceLang, targetLang string) string {
	target := LanguageName(targetLang)
	if sourceLang == "" || sourceLang == language.Undetermined {
		return fmt.Sprintf("Translate the following segment into %s, without additional explanation.\n\n%s", target, text)
	}
	return fmt.Sprintf("Translate the following %s segment into %s, without additional explanation.\n\n%s", LanguageName(sourceLang), target, text)
}
