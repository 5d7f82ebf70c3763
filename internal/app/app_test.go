package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"horse.fit/newsdesk/internal/config"
)

const testAppConfig = `
telegram_channels:
  suggested_chat_id: -100100
  publish_chat_id: -100200
users:
  admin_ids: [12]
source_map:
  auto:
    - class: kolesa
      url: https://www.kolesa.ru/news
`

func TestRunUsageExitCodes(t *testing.T) {
	t.Parallel()

	if code := Run(nil); code != 2 {
		t.Fatalf("expected exit 2 without args, got %d", code)
	}
	if code := Run([]string{"help"}); code != 0 {
		t.Fatalf("expected exit 0 for help, got %d", code)
	}
	if code := Run([]string{"nope"}); code != 2 {
		t.Fatalf("expected exit 2 for unknown command, got %d", code)
	}
	if code := Run([]string{"run-once", "--mode", "sideways"}); code != 2 {
		t.Fatalf("expected exit 2 for bad mode, got %d", code)
	}
	if code := Run([]string{"daemon", "explode"}); code != 2 {
		t.Fatalf("expected exit 2 for unknown daemon action, got %d", code)
	}
}

func TestParseOutputFormat(t *testing.T) {
	t.Parallel()

	if got, err := parseOutputFormat(" JSON ", outputFormatTable); err != nil || got != outputFormatJSON {
		t.Fatalf("unexpected format %q err=%v", got, err)
	}
	if got, err := parseOutputFormat("", outputFormatTable); err != nil || got != outputFormatTable {
		t.Fatalf("unexpected default format %q err=%v", got, err)
	}
	if _, err := parseOutputFormat("xml", outputFormatTable); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestBuildUnitFile(t *testing.T) {
	t.Parallel()

	unit := buildUnitFile(unitParams{
		User:    "news",
		WorkDir: "/srv/newsdesk",
		Binary:  "/usr/local/bin/newsdesk",
		EnvFile: ".env",
		Port:    8091,
	})
	for _, want := range []string{
		"User=news",
		"WorkingDirectory=/srv/newsdesk",
		"ExecStart=/usr/local/bin/newsdesk serve --port 8091 --env .env",
		"KillSignal=SIGTERM",
		"WantedBy=multi-user.target",
	} {
		if !strings.Contains(unit, want) {
			t.Fatalf("unit file missing %q:\n%s", want, unit)
		}
	}
}

func TestFilterSources(t *testing.T) {
	t.Parallel()

	sources := []config.SourceSpec{
		{Topic: "auto", Class: "kolesa", URL: "https://a.example/news"},
		{Topic: "auto", Class: "drom", URL: "https://b.example/news"},
		{Topic: "design", Class: "html", URL: "https://c.example/"},
	}
	if got := filterSources(sources, "", ""); len(got) != 3 {
		t.Fatalf("expected no filtering, got %d", len(got))
	}
	if got := filterSources(sources, "auto", ""); len(got) != 2 {
		t.Fatalf("expected two auto sources, got %d", len(got))
	}
	got := filterSources(sources, "auto", " DROM ")
	if len(got) != 1 || got[0].URL != "https://b.example/news" {
		t.Fatalf("unexpected filtered sources: %+v", got)
	}
}

func TestValidateItemDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "good.json"), `{"title":"Новая модель","url":"https://example.com/a"}`)
	writeFile(t, filepath.Join(root, "nested", "bad.json"), `{"title":"","url":"ftp://example.com"}`)
	writeFile(t, filepath.Join(root, "broken.json"), `{"title":`)
	writeFile(t, filepath.Join(root, ".hidden.json"), `{}`)
	writeFile(t, filepath.Join(root, "notes.txt"), `ignored`)

	result, err := validateItemDir(root, true)
	if err != nil {
		t.Fatalf("validate dir: %v", err)
	}
	if result.Scanned != 3 || result.Valid != 1 || result.Invalid != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}

	flat, err := validateItemDir(root, false)
	if err != nil {
		t.Fatalf("validate dir: %v", err)
	}
	if flat.Scanned != 2 {
		t.Fatalf("expected nested dir to be skipped, got %+v", flat)
	}
}

func TestRunValidateConfig(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	good := filepath.Join(root, "config.yml")
	writeFile(t, good, testAppConfig)
	if code := Run([]string{"validate", "--config", good}); code != 0 {
		t.Fatalf("expected valid config, got exit %d", code)
	}

	bad := filepath.Join(root, "bad.yml")
	writeFile(t, bad, "users:\n  admin_ids: [1]\n")
	if code := Run([]string{"validate", "--config", bad}); code != 1 {
		t.Fatalf("expected invalid config to exit 1, got %d", code)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
