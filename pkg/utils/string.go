// Package utils provides common text helpers shared by the cleaning stages.
package utils

import (
	"strings"
	"unicode"
)

// blankTokens are spreadsheet placeholders that mean "no value".
var blankTokens = map[string]bool{
	"":     true,
	"none": true,
	"nan":  true,
	"nat":  true,
	"null": true,
}

// IsBlank reports whether s carries no value once trimmed.
func IsBlank(s string) bool {
	return blankTokens[strings.ToLower(strings.TrimSpace(s))]
}

// NormalizeWhitespace replaces runs of whitespace (tabs and newlines included) with a single space.
func NormalizeWhitespace(str string) string {
	return strings.Join(strings.Fields(str), " ")
}

// FoldKey is the lookup form of a label: trimmed, single-spaced, lower case, ASCII digits.
func FoldKey(str string) string {
	return strings.ToLower(NormalizeWhitespace(FoldDigits(str)))
}

// FoldDigits maps Arabic-Indic and Eastern Arabic-Indic digits to ASCII digits.
func FoldDigits(str string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		case r >= '۰' && r <= '۹':
			return '0' + (r - '۰')
		}

		return r
	}, str)
}

// ContainsArabic reports whether str has any rune from the Arabic block (U+0600 to U+06FF).
func ContainsArabic(str string) bool {
	for _, r := range str {
		if r >= 0x0600 && r <= 0x06FF {
			return true
		}
	}

	return false
}

// HasDigit reports whether str contains any decimal digit, in any script.
func HasDigit(str string) bool {
	for _, r := range str {
		if unicode.IsDigit(r) {
			return true
		}
	}

	return false
}

// TitleWords capitalizes the first letter of every word and lowercases the rest.
func TitleWords(str string) string {
	words := strings.Fields(str)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}

	return strings.Join(words, " ")
}

// TruncateString truncates string to max runes.
func TruncateString(str string, maxLength int) string {
	runes := []rune(str)
	if len(runes) <= maxLength {
		return str
	}

	return string(runes[:maxLength]) + "..."
}
