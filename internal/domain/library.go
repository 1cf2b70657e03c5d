// Package domain defines the registry's core records: libraries, places,
// service areas, collection summaries, and delegated patron identifiers.
// These are plain data types; everything that needs related rows takes them
// as explicit arguments rather than reaching back into storage.
package domain

import (
	"strings"
	"time"
)

// Stage is an opinion about a library's readiness, held independently by the
// library itself and by the registry.
type Stage string

// Stages a library can be in.
const (
	StageTesting    Stage = "testing"    // show up in the testing feed
	StageProduction Stage = "production" // show up in the production feed
	StageCancelled  Stage = "cancelled"  // show up in no feed
)

// Library is an OPDS circulation server registered with the registry.
type Library struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// ShortName is the library's unique mnemonic, embedded in Short Client
	// Tokens. Always uppercase, never contains a pipe.
	ShortName string `json:"short_name"`

	// SharedSecret signs Short Client Tokens issued on the library's behalf.
	SharedSecret string `json:"-"`

	Description string `json:"description,omitempty"`

	LibraryStage  Stage `json:"library_stage"`
	RegistryStage Stage `json:"registry_stage"`

	// Audiences are the classes of patron the library serves.
	Audiences []string `json:"audiences"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InProduction reports whether both the library and the registry consider
// the library production-ready.
func (l *Library) InProduction() bool {
	return l.LibraryStage == StageProduction && l.RegistryStage == StageProduction
}

// InFeed reports whether the library belongs in the requested feed: the
// production feed requires both parties to agree on production, the testing
// feed accepts either production or testing from both parties.
func (l *Library) InFeed(production bool) bool {
	if production {
		return l.InProduction()
	}
	ok := func(s Stage) bool { return s == StageProduction || s == StageTesting }
	return ok(l.LibraryStage) && ok(l.RegistryStage)
}

// ServesAudience reports whether the library serves the named audience.
func (l *Library) ServesAudience(name string) bool {
	for _, a := range l.Audiences {
		if a == name {
			return true
		}
	}
	return false
}

// ValidateShortName checks the constraints a short name must satisfy before
// it can appear in pipe-delimited tokens.
func ValidateShortName(shortName string) error {
	if shortName == "" {
		return errEmptyShortName
	}
	if strings.Contains(shortName, "|") {
		return errPipeInShortName
	}
	return nil
}

// LibraryAlias is an alternate name for a library, used during name search.
type LibraryAlias struct {
	ID        string `json:"id"`
	LibraryID string `json:"library_id"`
	Name      string `json:"name"`
	Language  string `json:"language"`
}

// CollectionSummary is the approximate number of titles a library holds in
// one language. A missing row means "unknown", which ranking treats
// differently from a known-empty collection.
type CollectionSummary struct {
	LibraryID string `json:"library_id"`
	Language  string `json:"language"` // ISO 639-2 alpha-3 code
	Size      int64  `json:"size"`
}
