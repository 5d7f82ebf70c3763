package reader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCleanTextCollapsesWhitespaceAndPreservesParagraphs(t *testing.T) {
	t.Parallel()

	input := "  First   paragraph \n\n Second\tparagraph \r\n\r\nThird line "
	got := CleanText(input)
	want := "First paragraph\n\nSecond paragraph\n\nThird line"
	if got != want {
		t.Fatalf("CleanText mismatch\nwant: %q\ngot:  %q", want, got)
	}
}

func TestTruncateText(t *testing.T) {
	t.Parallel()

	got, truncated := TruncateText("abcdefghijklmnopqrstuvwxyz", 10)
	if !truncated {
		t.Fatalf("expected truncated=true")
	}
	if got != "abcdefghi…" {
		t.Fatalf("unexpected truncated text: %q", got)
	}
	if n := len([]rune(got)); n != 10 {
		t.Fatalf("expected 10 runes, got %d", n)
	}

	full, wasTruncated := TruncateText("short", 10)
	if wasTruncated || full != "short" {
		t.Fatalf("unexpected short text: %q truncated=%v", full, wasTruncated)
	}

	cyrillic, _ := TruncateText("Привет, мир", 7)
	if cyrillic != "Привет…" {
		t.Fatalf("expected rune-safe truncation, got %q", cyrillic)
	}
}

func TestFetchPageAndExtractPlainText(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("User-Agent"), "newsdesk") {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("line one\n\n\nline   two"))
	}))
	defer server.Close()

	page, err := FetchPage(context.Background(), server.URL, FetchOptions{})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	text, err := ExtractText(page, "")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "line one\n\nline two" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestFetchPageStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	if _, err := FetchPage(context.Background(), server.URL, FetchOptions{}); err == nil {
		t.Fatalf("expected status error")
	}
}

func TestExtractTextFromHTML(t *testing.T) {
	t.Parallel()

	html := `<html><head><title>T</title></head><body><article><h1>Headline</h1>
<p>The new crossover arrives with a hybrid powertrain and a larger battery than the outgoing model.</p>
<p>Deliveries start in spring, and prices will be announced closer to the launch date.</p>
</article></body></html>`
	text, err := ExtractText(Page{URL: "https://example.com/a", ContentType: "text/html", Body: []byte(html)}, "Headline")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(text, "hybrid powertrain") {
		t.Fatalf("expected article text, got %q", text)
	}
}
