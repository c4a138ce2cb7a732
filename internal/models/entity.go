package models

import (
	"sort"
	"time"
)

// Entity is the normalized representation every resolver operates on: an
// identifier, a dimension tag, tagged claims keyed by property code, and
// localized labels. The identifier and dimension are immutable once
// assigned; reclassification means a new entity plus a supersedes edge.
type Entity struct {
	ID           string             `json:"id"`
	Dimension    Dimension          `json:"dimension"`
	Claims       map[string][]Claim `json:"claims,omitempty"`
	Labels       map[string]string  `json:"labels,omitempty"`
	Descriptions map[string]string  `json:"descriptions,omitempty"`
	Sitelinks    map[string]string  `json:"sitelinks,omitempty"`

	// Center is an explicit pre-computed center coordinate, populated by
	// the store adapter for geographic entities. Spatial resolution falls
	// back to it when no coordinate claim is present.
	Center *Coordinate `json:"center,omitempty"`

	// Supersedes points at the entity this one replaces, if any.
	Supersedes string `json:"supersedes,omitempty"`

	Sources  []SourceAttribution `json:"sources,omitempty"`
	Modified time.Time           `json:"modified,omitempty"`
}

// Label returns the label for lang, falling back to English, then the ID.
func (e *Entity) Label(lang string) string {
	if l, ok := e.Labels[lang]; ok && l != "" {
		return l
	}
	if l, ok := e.Labels["en"]; ok && l != "" {
		return l
	}
	return e.ID
}

// Description returns the description for lang, falling back to English.
func (e *Entity) Description(lang string) string {
	if d, ok := e.Descriptions[lang]; ok && d != "" {
		return d
	}
	return e.Descriptions["en"]
}

// PropertyCodes returns the entity's property codes in sorted order, so
// fallback scans over "all claims" are deterministic.
func (e *Entity) PropertyCodes() []string {
	codes := make([]string, 0, len(e.Claims))
	for code := range e.Claims {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// BestClaim returns the best-ranked claim for a property code: preferred
// over normal, normal over deprecated, first wins within a rank.
func (e *Entity) BestClaim(property string) (Claim, bool) {
	claims := e.Claims[property]
	if len(claims) == 0 {
		return Claim{}, false
	}
	for _, c := range claims {
		if c.Rank == RankPreferred {
			return c, true
		}
	}
	for _, c := range claims {
		if c.Rank == RankNormal || c.Rank == "" {
			return c, true
		}
	}
	return claims[0], true
}

// AddClaim appends a claim under its property code.
func (e *Entity) AddClaim(c Claim) {
	if e.Claims == nil {
		e.Claims = make(map[string][]Claim)
	}
	e.Claims[c.Property] = append(e.Claims[c.Property], c)
}

// Clone returns a deep copy. Index rebuilds and aggregation never mutate
// stored entities; anything that needs to annotate copies first.
func (e *Entity) Clone() *Entity {
	out := *e
	if e.Claims != nil {
		out.Claims = make(map[string][]Claim, len(e.Claims))
		for code, claims := range e.Claims {
			cp := make([]Claim, len(claims))
			copy(cp, claims)
			out.Claims[code] = cp
		}
	}
	out.Labels = copyStringMap(e.Labels)
	out.Descriptions = copyStringMap(e.Descriptions)
	out.Sitelinks = copyStringMap(e.Sitelinks)
	if e.Center != nil {
		center := *e.Center
		out.Center = &center
	}
	if e.Sources != nil {
		out.Sources = make([]SourceAttribution, len(e.Sources))
		copy(out.Sources, e.Sources)
	}
	return &out
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
