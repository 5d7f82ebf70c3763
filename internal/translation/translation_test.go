package translation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"horse.fit/newsdesk/internal/config"
)

type stubProvider struct {
	name  string
	calls []TranslateRequest
	fail  string
}

func (s *stubProvider) Name() string                 { return s.name }
func (s *stubProvider) SupportedLanguages() []string { return []string{"ru"} }
func (s *stubProvider) Translate(_ context.Context, req TranslateRequest) (*TranslateResponse, error) {
	s.calls = append(s.calls, req)
	if s.fail != "" && req.Text == s.fail {
		return nil, errors.New("provider unavailable")
	}
	return &TranslateResponse{Text: "[" + req.TargetLang + "] " + req.Text, ProviderName: s.name}, nil
}

func TestNeeded(t *testing.T) {
	t.Parallel()

	if Needed("ru", "ru") {
		t.Fatalf("same language should not need translation")
	}
	if !Needed("en", "ru-RU") {
		t.Fatalf("different language should need translation")
	}
	if !Needed("und", "ru") {
		t.Fatalf("undetermined language should need translation")
	}
	if Needed("en", "") {
		t.Fatalf("blank target should never translate")
	}
}

func TestTranslateFields(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{name: "stub"}
	title, body, err := TranslateFields(context.Background(), provider, "Title", "", "en", "ru")
	if err != nil {
		t.Fatalf("translate fields: %v", err)
	}
	if title != "[ru] Title" || body != "" {
		t.Fatalf("unexpected translation title=%q body=%q", title, body)
	}
	if len(provider.calls) != 1 {
		t.Fatalf("expected blank body to skip the provider, calls=%d", len(provider.calls))
	}

	failing := &stubProvider{name: "stub", fail: "Body"}
	if _, _, err := TranslateFields(context.Background(), failing, "Title", "Body", "en", "ru"); err == nil {
		t.Fatalf("expected body failure to surface")
	}
}

func TestRegistryResolvesDefault(t *testing.T) {
	t.Parallel()

	registry := NewRegistry("")
	if _, err := registry.Provider(""); err == nil {
		t.Fatalf("expected error for empty registry")
	}
	if err := registry.Register(&stubProvider{name: " Local "}); err != nil {
		t.Fatalf("register: %v", err)
	}
	provider, err := registry.Provider("")
	if err != nil {
		t.Fatalf("resolve default: %v", err)
	}
	if provider.Name() != " Local " {
		t.Fatalf("unexpected provider %q", provider.Name())
	}
	if _, err := registry.Provider("google"); err == nil || !strings.Contains(err.Error(), "local") {
		t.Fatalf("expected unknown provider error listing local, got %v", err)
	}
}

func TestRegistryFromConfigFallsBackToLocal(t *testing.T) {
	t.Parallel()

	registry := NewRegistryFromConfig(&config.Config{TranslationProvider: "deepl"})
	if registry.DefaultProvider() != DefaultProviderName {
		t.Fatalf("expected fallback to local, got %q", registry.DefaultProvider())
	}
}

func TestLocalProviderPrompt(t *testing.T) {
	t.Parallel()

	var prompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Messages) > 0 {
			prompt = body.Messages[0].Content
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Привет"}}]}`))
	}))
	defer server.Close()

	provider := NewLocalProvider(server.URL, "", "")
	resp, err := provider.Translate(context.Background(), TranslateRequest{Text: "Hello", SourceLang: "en", TargetLang: "ru"})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if resp.Text != "Привет" || resp.ProviderName != "local" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if !strings.Contains(prompt, "English segment into Russian") {
		t.Fatalf("unexpected prompt %q", prompt)
	}
	if provider.ModelName() != DefaultLocalModel {
		t.Fatalf("expected default model, got %q", provider.ModelName())
	}
}
