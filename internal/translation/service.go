package translation

import (
	"context"
	"fmt"
	"strings"

	"horse.fit/newsdesk/internal/language"
)

// Provider translates free-form text between languages.
type Provider interface {
	Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error)
	Name() string
	SupportedLanguages() []string
}

// TranslateRequest describes one translation request.
type TranslateRequest struct {
	Text       string
	SourceLang string // ISO 639-1, "und" when unknown
	TargetLang string
}

// TranslateResponse contains translated text and provider metadata.
type TranslateResponse struct {
	Text         string
	SourceLang   string
	TargetLang   string
	ProviderName string
	LatencyMs    int64
}

// Needed reports whether text detected as source must be translated into target.
func Needed(source, target string) bool {
	target = language.NormalizeCode(target)
	if target == "" {
		return false
	}
	return language.NormalizeCode(source) != target
}

// TranslateFields translates title and body with one provider. A blank field is kept as is.
func TranslateFields(ctx context.Context, provider Provider, title, body, source, target string) (string, string, error) {
	if provider == nil {
		return "", "", fmt.Errorf("translation provider is nil")
	}

	translate := func(field, value string) (string, error) {
		if strings.TrimSpace(value) == "" {
			return value, nil
		}
		resp, err := provider.Translate(ctx, TranslateRequest{
			Text:       value,
			SourceLang: source,
			TargetLang: target,
		})
		if err != nil {
			return "", fmt.Errorf("translate %s via %s: %w", field, provider.Name(), err)
		}
		return resp.Text, nil
	}

	translatedTitle, err := translate("title", title)
	if err != nil {
		return "", "", err
	}
	translatedBody, err := translate("body", body)
	if err != nil {
		return "", "", err
	}
	return translatedTitle, translatedBody, nil
}
