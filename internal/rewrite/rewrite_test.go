package rewrite

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestChatRewriterSendsSystemPrompt(t *testing.T) {
	t.Parallel()

	var system string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Messages) == 2 && body.Messages[0].Role == "system" {
			system = body.Messages[0].Content
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"rewritten"}}]}`))
	}))
	defer server.Close()

	rewriter := NewChatRewriter(Options{Endpoint: server.URL, Model: "m", TargetLanguage: "ru"})
	out, err := rewriter.Rewrite(context.Background(), "  original text ")
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if out != "rewritten" {
		t.Fatalf("unexpected rewrite %q", out)
	}
	if !strings.Contains(system, "Russian") {
		t.Fatalf("expected target language in system prompt, got %q", system)
	}
}

func TestChatRewriterRejectsBlankText(t *testing.T) {
	t.Parallel()

	if _, err := NewChatRewriter(Options{Model: "m"}).Rewrite(context.Background(), " "); err == nil {
		t.Fatalf("expected error for blank text")
	}
}
