package models

import "time"

// RelationKind names the semantics of a pivot edge.
type RelationKind string

const (
	RelationLocatedIn     RelationKind = "located-in"
	RelationParticipantOf RelationKind = "participant-of"
	RelationContemporary  RelationKind = "contemporary-of"
	RelationNear          RelationKind = "near"
	RelationSupersedes    RelationKind = "supersedes"
)

// PivotEdge is a directed, derived relationship between entities in two
// dimensions. Edges are a cache owned by the dimension index and are
// rebuildable from entities at any time.
type PivotEdge struct {
	From          string       `json:"from"`
	To            string       `json:"to"`
	FromDimension Dimension    `json:"from_dimension"`
	ToDimension   Dimension    `json:"to_dimension"`
	Kind          RelationKind `json:"kind"`
	Confidence    float64      `json:"confidence"`

	// VerifiedAt is the most recent verification time among the sources
	// that produced the edge; it breaks confidence ties when ranking.
	VerifiedAt time.Time `json:"verified_at,omitempty"`
}

// Span is a derived temporal interval. Either end may be absent: a span
// with only Start set is a valid single-instant span, and a span with
// neither is the normal outcome for atemporal entities. StartProperty and
// EndProperty record which property code produced each end.
type Span struct {
	Start         *TimeValue `json:"start,omitempty"`
	End           *TimeValue `json:"end,omitempty"`
	StartProperty string     `json:"start_property,omitempty"`
	EndProperty   string     `json:"end_property,omitempty"`
}

// Empty reports whether neither end resolved.
func (s Span) Empty() bool { return s.Start == nil && s.End == nil }

// Overlaps reports whether two spans overlap or adjoin. Single-instant
// spans are treated as zero-length intervals.
func (s Span) Overlaps(other Span) bool {
	if s.Empty() || other.Empty() {
		return false
	}
	aStart, aEnd := s.bounds()
	bStart, bEnd := other.bounds()
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}

// GapYears returns the number of years between two non-overlapping spans,
// zero when they overlap or adjoin.
func (s Span) GapYears(other Span) int64 {
	if s.Empty() || other.Empty() || s.Overlaps(other) {
		return 0
	}
	_, aEnd := s.bounds()
	bStart, _ := other.bounds()
	if aEnd.Before(bStart) {
		return bStart.Year - aEnd.Year
	}
	_, bEnd := other.bounds()
	aStart, _ := s.bounds()
	return aStart.Year - bEnd.Year
}

func (s Span) bounds() (TimeValue, TimeValue) {
	start := s.Start
	if start == nil {
		start = s.End
	}
	end := s.End
	if end == nil {
		end = s.Start
	}
	return *start, *end
}
