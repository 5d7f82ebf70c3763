package payloadschema

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestValidateScrapedItem_Valid(t *testing.T) {
	payload := json.RawMessage(`{
		"title":"Новый кроссовер",
		"url":"https://www.kolesa.ru/news/novyy-krossover",
		"date":"05.03.2025",
		"text":"Первый абзац.\nВторой абзац.",
		"media_urls":["https://www.kolesa.ru/uploads/a.jpg"]
	}`)

	item, err := ValidateScrapedItem(payload)
	if err != nil {
		t.Fatalf("expected payload to be valid, got error: %v", err)
	}
	if item.Title != "Новый кроссовер" {
		t.Fatalf("unexpected title: %q", item.Title)
	}
	if len(item.MediaURLs) != 1 {
		t.Fatalf("expected one media url, got %d", len(item.MediaURLs))
	}
}

func TestValidateScrapedItem_MissingURL(t *testing.T) {
	_, err := ValidateScrapedItem(json.RawMessage(`{"title":"No link"}`))
	if err == nil {
		t.Fatalf("expected validation to fail for missing url")
	}
}

func TestValidateScrapedItem_RelativeURL(t *testing.T) {
	_, err := ValidateScrapedItem(json.RawMessage(`{"title":"Relative","url":"/news/1"}`))
	if err == nil {
		t.Fatalf("expected validation to fail for relative url")
	}
}

func TestValidateScrapedItem_WhitespaceTitle(t *testing.T) {
	_, err := ValidateScrapedItem(json.RawMessage(`{"title":"   ","url":"https://site/a"}`))
	if err == nil {
		t.Fatalf("expected validation to fail for whitespace-only title")
	}
	if !strings.Contains(err.Error(), "title must not be empty") {
		t.Fatalf("expected title semantic error, got: %v", err)
	}
}

func TestValidateScrapedItem_TrailingContent(t *testing.T) {
	_, err := ValidateScrapedItem(json.RawMessage(`{"title":"A","url":"https://site/a"} {}`))
	if err == nil {
		t.Fatalf("expected trailing content to fail")
	}
}

func TestValidateAppConfigYAML(t *testing.T) {
	valid := []byte(`
telegram_channels:
  suggested_chat_id: -1001
  topics:
    auto: -1002
users:
  prog_ids: [1, 2]
settings:
  poll_interval: 900
  dub_threshold: 0.9
source_map:
  auto:
    - class: kolesa
      url: https://www.kolesa.ru/news
`)
	if err := ValidateAppConfigYAML(valid); err != nil {
		t.Fatalf("expected app config to be valid, got %v", err)
	}

	unknown := []byte(`
telegram_channels:
  suggested_chat_id: -1001
users: {}
extra: true
`)
	if err := ValidateAppConfigYAML(unknown); err == nil {
		t.Fatalf("expected unknown top-level key to fail validation")
	}

	badThreshold := []byte(`
telegram_channels:
  suggested_chat_id: -1001
users: {}
settings:
  dub_threshold: 1.5
`)
	if err := ValidateAppConfigYAML(badThreshold); err == nil {
		t.Fatalf("expected out-of-range threshold to fail validation")
	}
}
