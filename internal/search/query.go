// Package search resolves free-text queries like "Watchung", "new york public
// library" or "93203" into libraries, by name, by place, and by description.
package search

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/stacksregistry/registry-server/internal/domain"
)

var (
	whitespaceRE = regexp.MustCompile(`\s+`)
	zip5RE       = regexp.MustCompile(`^[0-9]{5}$`)
	zipPlus4RE   = regexp.MustCompile(`^[0-9]{5}-[0-9]{4}$`)
)

// CleanupQuery normalizes a raw query: lowercase, collapsed whitespace, and
// the one misspelling common enough to be worth correcting.
func CleanupQuery(query string) string {
	query = strings.TrimSpace(strings.ToLower(query))
	query = whitespaceRE.ReplaceAllString(query, " ")
	return strings.ReplaceAll(query, "libary", "library")
}

// AsPostalCode returns the five-digit US ZIP code a query names, or "" if
// the query is not a ZIP code. A ZIP+4 is truncated to its five-digit prefix.
func AsPostalCode(query string) string {
	if zip5RE.MatchString(query) {
		return query
	}
	if zipPlus4RE.MatchString(query) {
		return query[:5]
	}
	return ""
}

// QueryParts derives the two probes a non-ZIP query yields: the full string
// as a library-name probe, and the string with "public library" / "library"
// stripped as a place-name probe. "montgomery county public library" should
// probe for libraries named like the whole phrase and for places called
// "montgomery county".
func QueryParts(cleaned string) (libraryProbe, placeProbe string) {
	libraryProbe = cleaned
	placeProbe = cleaned
	for _, phrase := range []string{"public library", "library"} {
		if strings.Contains(placeProbe, phrase) {
			placeProbe = strings.TrimSpace(strings.ReplaceAll(placeProbe, phrase, ""))
		}
	}
	return libraryProbe, placeProbe
}

// ParsePlaceProbe recognizes an explicit place type spelled out in the
// probe: "kern county" means the county called Kern, "washington state" the
// state called Washington. Returns the bare name and the implied type, or
// the probe unchanged with nil type.
func ParsePlaceProbe(probe string) (string, *domain.PlaceType) {
	if name, ok := strings.CutSuffix(probe, " county"); ok {
		t := domain.PlaceCounty
		return name, &t
	}
	if name, ok := strings.CutSuffix(probe, " state"); ok {
		t := domain.PlaceState
		return name, &t
	}
	return probe, nil
}

// minFuzzyLen gates edit-distance matching: below this length a distance-2
// tolerance would match nearly anything, so short fields require an exact
// case-insensitive match.
const minFuzzyLen = 6

// maxEditDistance is the typo tolerance for longer fields.
const maxEditDistance = 2

// FuzzyMatches reports whether the candidate field value matches the query,
// exactly (case-insensitive) or within the edit-distance tolerance when the
// field is long enough to make that safe.
func FuzzyMatches(field, query string) bool {
	if strings.EqualFold(field, query) {
		return true
	}
	if len(field) < minFuzzyLen {
		return false
	}
	return levenshtein.ComputeDistance(strings.ToLower(field), strings.ToLower(query)) <= maxEditDistance
}

// PartialMatches reports whether the query occurs as a case-insensitive
// substring of the field.
func PartialMatches(field, query string) bool {
	return strings.Contains(strings.ToLower(field), strings.ToLower(query))
}
