package domain

import (
	"time"

	"github.com/stacksregistry/registry-server/internal/errors"
)

// DelegatedIdentifierType classifies a delegated patron identifier.
// Currently only Adobe account IDs are minted.
const DelegatedIdentifierAdobeAccountID = "Adobe Account ID"

// DelegatedPatronIdentifier is an identifier the registry made up for a
// patron it knows only by an opaque per-library identifier. The triple
// (Type, LibraryID, PatronIdentifier) is unique; the delegated identifier is
// immutable once minted.
type DelegatedPatronIdentifier struct {
	ID string `json:"id"`

	// Type of the delegated identifier, e.g. DelegatedIdentifierAdobeAccountID.
	Type string `json:"type"`

	// LibraryID names the library in charge of the patron's record.
	LibraryID string `json:"library_id"`

	// PatronIdentifier is the library's name for the patron: an identifier
	// created solely for registry purposes, not (e.g.) the patron's barcode.
	PatronIdentifier string `json:"patron_identifier"`

	// DelegatedIdentifier is the identifier the registry made up, a URN.
	DelegatedIdentifier string `json:"delegated_identifier"`

	CreatedAt time.Time `json:"created_at"`
}

var (
	errEmptyShortName  = errors.Validation("short name must not be empty")
	errPipeInShortName = errors.Validation("short name cannot contain the pipe character")
)
