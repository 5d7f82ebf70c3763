package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"

	"horse.fit/newsdesk/internal/language"
)

const minLetters = 6

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// Detect returns the ISO 639-1 code of text. Any Cyrillic letter means "ru";
// otherwise the lingua model decides, and "und" is returned when it cannot.
func Detect(text string) string {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return language.Undetermined
	}
	if hasCyrillic(sample) {
		return "ru"
	}
	if code := detectModel(sample); code != "" {
		return code
	}
	return language.Undetermined
}

func hasCyrillic(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Cyrillic, r) {
			return true
		}
	}
	return false
}

func detectModel(sample string) string {
	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < minLetters {
		return ""
	}

	detected, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}

	code := strings.ToLower(detected.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(
				lingua.English,
				lingua.German,
				lingua.French,
				lingua.Spanish,
				lingua.Italian,
				lingua.Portuguese,
				lingua.Polish,
				lingua.Turkish,
				lingua.Chinese,
				lingua.Japanese,
				lingua.Korean,
				lingua.Arabic,
			).
			Build()
	})
	return detector
}
