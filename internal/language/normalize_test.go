package language

import "testing"

func TestNormalizeTag(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		" EN_us ": "en-us",
		"zh-Hans": "zh-hans",
		"en--US":  "en-us",
		"en_123":  "",
		"   ":     "",
	}
	for in, want := range cases {
		if got := NormalizeTag(in); got != want {
			t.Fatalf("NormalizeTag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeCode(t *testing.T) {
	t.Parallel()

	if got := NormalizeCode(" RU-ru "); got != "ru" {
		t.Fatalf("unexpected normalized code: %q", got)
	}
	if got := NormalizeCode("kk"); got != "kk" {
		t.Fatalf("unexpected normalized code: %q", got)
	}
	if got := NormalizeCode(" "); got != "" {
		t.Fatalf("expected empty code for blank input, got %q", got)
	}
}

func TestCodeOrUndetermined(t *testing.T) {
	t.Parallel()

	if got := CodeOrUndetermined("??"); got != Undetermined {
		t.Fatalf("expected und, got %q", got)
	}
	if got := CodeOrUndetermined("en-GB"); got != "en" {
		t.Fatalf("expected en, got %q", got)
	}
}
