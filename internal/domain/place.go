package domain

import (
	"fmt"
	"time"

	"github.com/stacksregistry/registry-server/internal/geo"
)

// PlaceType classifies a geographic entity.
type PlaceType string

// Place types, from largest to smallest. ZIP codes are not strictly smaller
// than cities, so this is a partial order, not a hierarchy.
const (
	PlaceEverywhere         PlaceType = "everywhere"
	PlaceNation             PlaceType = "nation"
	PlaceState              PlaceType = "state"
	PlaceCounty             PlaceType = "county"
	PlaceCity               PlaceType = "city"
	PlacePostalCode         PlaceType = "postal_code"
	PlaceLibraryServiceArea PlaceType = "library_service_area"
)

// Place is a geographic entity a library can serve.
type Place struct {
	ID   string    `json:"id"`
	Type PlaceType `json:"type"`

	// ExternalID and ExternalName come from the geography data source the
	// place was imported from.
	ExternalID   string `json:"external_id,omitempty"`
	ExternalName string `json:"external_name"`

	// AbbreviatedName is a canonical abbreviation, generally set only for
	// nations and states ("US", "MA").
	AbbreviatedName string `json:"abbreviated_name,omitempty"`

	// ParentID names the most convenient containing place. A nation has no
	// parent; neither does the everywhere place.
	ParentID string `json:"parent_id,omitempty"`

	// Geometry is nil for the everywhere place.
	Geometry *geo.Geometry `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsEverywhere reports whether this is the special place with no shape that
// every other place is inside.
func (p *Place) IsEverywhere() bool {
	return p.Type == PlaceEverywhere
}

// HumanFriendlyName generates the sort of string a human would recognize as
// an unambiguous name for this place. The parent must be supplied explicitly
// (it is not lazily loaded). Returns "" when there is no human-friendly name,
// which is the case for the everywhere place.
func (p *Place) HumanFriendlyName(parent *Place) string {
	if p.Type == PlaceEverywhere {
		return ""
	}
	if parent != nil && parent.Type == PlaceState {
		parentName := parent.AbbreviatedName
		if parentName == "" {
			parentName = parent.ExternalName
		}
		switch p.Type {
		case PlaceCounty:
			// Renfrew County, ON
			return fmt.Sprintf("%s County, %s", p.ExternalName, parentName)
		case PlaceCity:
			// Montgomery, AL
			return fmt.Sprintf("%s, %s", p.ExternalName, parentName)
		}
	}
	// All other cases: "93203", "Texas", "France".
	return p.ExternalName
}

// PlaceAlias is an alternate name for a place ("Manhattan" for New York
// County), with a language tag.
type PlaceAlias struct {
	ID       string `json:"id"`
	PlaceID  string `json:"place_id"`
	Name     string `json:"name"`
	Language string `json:"language"`
}

// ServiceAreaType distinguishes where a library may serve patrons from where
// it is specifically oriented.
type ServiceAreaType string

// Service area types.
const (
	// ServiceAreaEligibility means the library is permitted to serve the place.
	ServiceAreaEligibility ServiceAreaType = "eligibility"
	// ServiceAreaFocus means the library is specifically oriented toward the
	// place, usually a subset of its eligibility area.
	ServiceAreaFocus ServiceAreaType = "focus"
)

// ServiceArea ties a library to a place it serves. At most one row exists
// per (library, place, type).
type ServiceArea struct {
	ID        string          `json:"id"`
	LibraryID string          `json:"library_id"`
	PlaceID   string          `json:"place_id"`
	Type      ServiceAreaType `json:"type"`
}
