package langdetect

import "testing"

func TestDetectCyrillicHeuristic(t *testing.T) {
	t.Parallel()

	if got := Detect("Новый кроссовер представлен в Москве"); got != "ru" {
		t.Fatalf("expected ru, got %q", got)
	}
	if got := Detect("Toyota показала concept car"); got != "ru" {
		t.Fatalf("expected any Cyrillic letter to select ru, got %q", got)
	}
}

func TestDetectUndetermined(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "   ", "12 34", "ok"} {
		if got := Detect(text); got != "und" {
			t.Fatalf("Detect(%q) = %q, want und", text, got)
		}
	}
}

func TestDetectModelFallback(t *testing.T) {
	t.Parallel()

	if got := Detect("The new electric sedan goes on sale across Europe next spring"); got != "en" {
		t.Fatalf("expected en, got %q", got)
	}
}
