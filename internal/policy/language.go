package policy

import (
	"strings"
	"unicode"

	"golang.org/x/text/language"
)

// Character pairs that differ between simplified and traditional script.
const (
	simplifiedMarkers  = "这个们为来对发与说时过动会国产业经关电视机学习"
	traditionalMarkers = "這個們為來對發與說時過動會國產業經關電視機學習"
)

// ContainsHan reports whether s has any CJK unified ideograph.
func ContainsHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// IsSimplified reports whether s looks like simplified Chinese: it has at
// least one simplified-only marker and no traditional-only marker. Anything
// ambiguous is treated as traditional.
func IsSimplified(s string) bool {
	hasSimplified := strings.ContainsAny(s, simplifiedMarkers)
	hasTraditional := strings.ContainsAny(s, traditionalMarkers)
	return hasSimplified && !hasTraditional
}

// ResponseLanguage picks the reply language for user input: any Han text gets
// Traditional Chinese, Latin text gets English, and undetermined input falls
// back to Traditional Chinese.
func ResponseLanguage(input string) language.Tag {
	if ContainsHan(input) {
		return language.TraditionalChinese
	}
	for _, r := range input {
		switch {
		case unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r):
			return language.Japanese
		case unicode.Is(unicode.Hangul, r):
			return language.Korean
		case unicode.Is(unicode.Latin, r):
			return language.English
		}
	}
	return language.TraditionalChinese
}
