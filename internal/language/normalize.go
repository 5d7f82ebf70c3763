package language

import "strings"

// Undetermined is the ISO 639-2 code for text whose language is unknown.
const Undetermined = "und"

// NormalizeTag lowercases a language tag and joins its subtags with "-".
// Returns "" when the value is blank or a subtag contains anything but ASCII letters.
func NormalizeTag(raw string) string {
	parts := strings.FieldsFunc(strings.ToLower(strings.TrimSpace(raw)), func(r rune) bool {
		return r == '-' || r == '_'
	})
	if len(parts) == 0 {
		return ""
	}
	for _, part := range parts {
		if !isASCIILower(part) {
			return ""
		}
	}
	return strings.Join(parts, "-")
}

// NormalizeCode returns the primary language subtag ("en" from "en-US").
func NormalizeCode(raw string) string {
	tag := NormalizeTag(raw)
	if primary, _, found := strings.Cut(tag, "-"); found {
		return primary
	}
	return tag
}

// CodeOrUndetermined is NormalizeCode with "und" in place of an empty result.
func CodeOrUndetermined(raw string) string {
	if code := NormalizeCode(raw); code != "" {
		return code
	}
	return Undetermined
}

func isASCIILower(value string) bool {
	for _, r := range value {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
