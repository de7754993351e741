package utils

import (
	"html"
	"html/template"
	"regexp"
	"strings"
)

// optionPrefixLen is the length of the "A. " prefix carried by option strings.
const optionPrefixLen = 3

var (
	boldItalicPattern = regexp.MustCompile(`\*\*\*(.*?)\*\*\*`)
	boldPattern       = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicPattern     = regexp.MustCompile(`\*(.*?)\*`)
)

// StringPtr returns a pointer to a string, or nil if empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ContainsString checks if a string slice contains a specific string.
func ContainsString(slice []string, item string) bool {
	for _, a := range slice {
		if a == item {
			return true
		}
	}
	return false
}

// RenderMarkup escapes text and converts inline emphasis to HTML.
// Substitutions run triple, double, single emphasis, then line breaks, so that
// longer delimiters are never partially consumed by the shorter rules.
func RenderMarkup(text string) template.HTML {
	if text == "" {
		return ""
	}
	out := html.EscapeString(text)
	out = boldItalicPattern.ReplaceAllString(out, "<strong><em>$1</em></strong>")
	out = boldPattern.ReplaceAllString(out, "<strong>$1</strong>")
	out = italicPattern.ReplaceAllString(out, "<em>$1</em>")
	out = strings.ReplaceAll(out, "\n", "<br />")
	return template.HTML(out)
}

// OptionLetter returns the letter for the option at idx: 0 -> "A", 1 -> "B".
func OptionLetter(idx int) string {
	return string(rune('A' + idx))
}

// OptionText strips the "A. " prefix. Strings no longer than the prefix are
// returned as-is. Length is counted in characters, not bytes.
func OptionText(option string) string {
	if r := []rune(option); len(r) > optionPrefixLen {
		return string(r[optionPrefixLen:])
	}
	return option
}

// OptionLetters lists the letters available for n options.
func OptionLetters(n int) []string {
	letters := make([]string, 0, n)
	for i := 0; i < n; i++ {
		letters = append(letters, OptionLetter(i))
	}
	return letters
}
