package translation

import (
	"sort"

	"horse.fit/newsdesk/internal/language"
)

var languageNames = map[string]string{
	"ar": "Arabic",
	"be": "Belarusian",
	"de": "German",
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"it": "Italian",
	"ja": "Japanese",
	"kk": "Kazakh",
	"ko": "Korean",
	"pl": "Polish",
	"pt": "Portuguese",
	"ru": "Russian",
	"tr": "Turkish",
	"uk": "Ukrainian",
	"zh": "Chinese",
}

func SupportedLanguageCodes() []string {
	codes := make([]string, 0, len(languageNames))
	for code := range languageNames {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// LanguageName returns the English name of code, or the code itself when unknown.
func LanguageName(code string) string {
	normalized := language.NormalizeCode(code)
	if name, ok := languageNames[normalized]; ok {
		return name
	}
	if normalized == "" {
		return "English"
	}
	return normalized
}
