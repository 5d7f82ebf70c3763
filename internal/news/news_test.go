package news

import (
	"testing"
	"time"
)

func TestCanonicalURL_StripsTrackingAndNormalizes(t *testing.T) {
	t.Parallel()

	canonical, host := CanonicalURL("https://Example.COM:443/news/path/?utm_source=abc&fbclid=123&b=2&a=1#top")
	if canonical != "https://example.com/news/path?a=1&b=2" {
		t.Fatalf("unexpected canonical url: %q", canonical)
	}
	if host != "example.com" {
		t.Fatalf("unexpected host: %q", host)
	}
}

func TestCanonicalURL_Invalid(t *testing.T) {
	t.Parallel()

	canonical, host := CanonicalURL("not a url")
	if canonical != "" || host != "" {
		t.Fatalf("expected empty result for invalid URL, got canonical=%q host=%q", canonical, host)
	}
}

func TestIDFromURL_StableAcrossVariants(t *testing.T) {
	t.Parallel()

	first, canonical, err := IDFromURL("https://site/a")
	if err != nil {
		t.Fatalf("IDFromURL: %v", err)
	}
	second, _, err := IDFromURL("https://SITE/a/?utm_medium=tg")
	if err != nil {
		t.Fatalf("IDFromURL: %v", err)
	}
	if first != second {
		t.Fatalf("expected same id for url variants, got %d and %d", first, second)
	}
	if canonical != "https://site/a" {
		t.Fatalf("unexpected canonical url: %q", canonical)
	}
	if first == 0 {
		t.Fatalf("expected non-zero id")
	}

	other, _, _ := IDFromURL("https://site/b")
	if other == first {
		t.Fatalf("expected different id for different url")
	}
}

func TestIDRoundTripsThroughString(t *testing.T) {
	t.Parallel()

	id := HashID("https://site/a")
	parsed, err := ParseID(id.String())
	if err != nil {
		t.Fatalf("ParseID: %v", err)
	}
	if parsed != id {
		t.Fatalf("unexpected id: got %d want %d", parsed, id)
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		raw  string
		want time.Time
	}{
		{raw: "2025-03-05", want: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)},
		{raw: "05.03.2025", want: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)},
		{raw: "5 марта 2024", want: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{raw: "5 марта", want: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got := ParseDate(tc.raw, now)
		if got == nil {
			t.Fatalf("ParseDate(%q) returned nil", tc.raw)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("ParseDate(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}

	if got := ParseDate("yesterday", now); got != nil {
		t.Fatalf("expected nil for unknown format, got %s", got)
	}
	if got := ParseDate("31 февраля 2024", now); got != nil {
		t.Fatalf("expected nil for impossible date, got %s", got)
	}
}

func TestSentRecordMessageIDs(t *testing.T) {
	t.Parallel()

	record := SentRecord{PrimaryMessageID: 10, AlbumMessageIDs: []int{10, 11, 12}, MetaMessageID: 13}
	got := record.MessageIDs()
	want := []int{10, 11, 12, 13}
	if len(got) != len(want) {
		t.Fatalf("unexpected ids: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected ids: %v", got)
		}
	}
}
