package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChatCompletionsURL(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"http://127.0.0.1:8845/v1":                  "http://127.0.0.1:8845/v1/chat/completions",
		"http://127.0.0.1:8845/v1/chat/completions": "http://127.0.0.1:8845/v1/chat/completions",
		"http://127.0.0.1:8845":                     "http://127.0.0.1:8845/v1/chat/completions",
		"http://host/openai":                        "http://host/openai/v1/chat/completions",
	}
	for in, want := range cases {
		if got := ChatCompletionsURL(in); got != want {
			t.Fatalf("ChatCompletionsURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	t.Parallel()

	if got := NormalizeEndpoint("localhost:9000/"); got != "http://localhost:9000/v1" {
		t.Fatalf("unexpected endpoint: %q", got)
	}
	if got := NormalizeEndpoint(""); got != DefaultEndpoint {
		t.Fatalf("expected default endpoint, got %q", got)
	}
}

func TestCompleteSendsBearerAndReturnsContent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Model != "m" || len(req.Messages) != 2 {
			t.Errorf("unexpected request %+v", req)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  done  "}}]}`))
	}))
	defer server.Close()

	client := NewChatClient(ChatOptions{Endpoint: server.URL, Model: "m", APIKey: "secret"})
	got, err := client.Complete(context.Background(), []Message{{Role: "system", Content: "s"}, {Role: "user", Content: "u"}})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got != "done" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestCompleteErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("case") {
		case "status":
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
		default:
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"   "}}]}`))
		}
	}))
	defer server.Close()

	empty := NewChatClient(ChatOptions{Endpoint: server.URL + "/v1/chat/completions", Model: "m"})
	if _, err := empty.Complete(context.Background(), nil); !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}

	status := NewChatClient(ChatOptions{Endpoint: server.URL + "/v1/chat/completions?case=status", Model: "m"})
	if _, err := status.Complete(context.Background(), nil); err == nil {
		t.Fatalf("expected status error")
	}
}
