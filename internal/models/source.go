package models

import "time"

// SourceClass groups sources by provenance for default trust weighting.
type SourceClass string

const (
	SourceCurated       SourceClass = "curated"
	SourcePublic        SourceClass = "public"
	SourceUserSubmitted SourceClass = "user-submitted"
)

// Source describes a data provider and how much its claims are trusted.
// Trust follows the class default unless a curator explicitly overrode it;
// overrides are recorded, never applied silently.
type Source struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Class       SourceClass `json:"class"`
	TrustWeight float64     `json:"trust_weight"`

	// OverriddenBy holds the curator ID when TrustWeight deviates from the
	// class default.
	OverriddenBy string    `json:"overridden_by,omitempty"`
	OverriddenAt time.Time `json:"overridden_at,omitempty"`
}

// SourceAttribution records which source contributed which fields to an
// entity, with the trust weight that applied at contribution time.
type SourceAttribution struct {
	SourceID     string    `json:"source_id"`
	SourceName   string    `json:"source_name,omitempty"`
	TrustWeight  float64   `json:"trust_weight"`
	Fields       []string  `json:"fields,omitempty"`
	ExternalID   string    `json:"external_id,omitempty"`
	URL          string    `json:"url,omitempty"`
	LastVerified time.Time `json:"last_verified,omitempty"`
}
