// Package language converts language identifiers to ISO 639-3 codes, the
// form collection summaries are keyed by.
package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// DefaultLanguages is assumed when a client expresses no preference.
var DefaultLanguages = []string{"eng"}

// ToAlpha3 converts a language identifier to its ISO 639-3 code. The
// identifier may be an alpha-2 code ("en"), an alpha-3 code ("eng") or a
// locale ("en-US"). Returns "" when the identifier is unrecognized.
func ToAlpha3(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return ""
	}
	if i := strings.IndexByte(s, '-'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '_'); i >= 0 {
		s = s[:i]
	}

	base, err := xlanguage.ParseBase(s)
	if err != nil {
		return ""
	}
	return base.ISO3()
}

// Name returns the English name of a language, or "" if the identifier is
// unrecognized.
func Name(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return ""
	}
	base, err := xlanguage.ParseBase(s)
	if err != nil {
		return ""
	}
	return display.English.Languages().Name(xlanguage.Make(base.String()))
}

// FromAcceptLanguage turns an Accept-Language header into an ordered list of
// distinct ISO 639-3 codes. Falls back to DefaultLanguages when the header
// is empty or yields nothing usable.
func FromAcceptLanguage(header string) []string {
	tags, _, err := xlanguage.ParseAcceptLanguage(header)
	if err != nil {
		return DefaultLanguages
	}

	seen := make(map[string]bool)
	var codes []string
	for _, tag := range tags {
		base, confidence := tag.Base()
		if confidence == xlanguage.No {
			continue
		}
		code := base.ISO3()
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}

	if len(codes) == 0 {
		return DefaultLanguages
	}
	return codes
}
