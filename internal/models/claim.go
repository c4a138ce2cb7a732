package models

import (
	"fmt"
	"time"
)

// ValueKind tags the payload carried by a claim. Resolvers match on the
// kind instead of probing property codes for incidentally-shaped values.
type ValueKind string

const (
	KindInstant          ValueKind = "instant"           // a point in time
	KindIntervalEndpoint ValueKind = "interval-endpoint" // start or end of a span
	KindCoordinate       ValueKind = "coordinate"        // latitude/longitude pair
	KindEntityRef        ValueKind = "entity-reference"  // reference to another entity
	KindLiteral          ValueKind = "literal"           // untyped string payload
)

// TimeKind reports whether claims of this kind carry a temporal value.
func (k ValueKind) TimeKind() bool {
	return k == KindInstant || k == KindIntervalEndpoint
}

// Rank mirrors the upstream statement rank. Preferred beats normal beats
// deprecated when several claims share a property code.
type Rank string

const (
	RankPreferred  Rank = "preferred"
	RankNormal     Rank = "normal"
	RankDeprecated Rank = "deprecated"
)

// Precision levels for temporal values, matching the upstream encoding
// (larger is finer). Geological-scale values use the coarse levels so a
// "150 million years ago" instant is never compared as if it were day-exact.
type Precision int

const (
	PrecisionGigayear   Precision = 0
	PrecisionMegayear   Precision = 3
	PrecisionMillennium Precision = 6
	PrecisionCentury    Precision = 7
	PrecisionDecade     Precision = 8
	PrecisionYear       Precision = 9
	PrecisionMonth      Precision = 10
	PrecisionDay        Precision = 11
)

// TimeValue is a temporal instant with explicit precision. Year uses
// astronomical numbering so geological dates (e.g. -201000000) are valid.
type TimeValue struct {
	Year      int64      `json:"year"`
	Month     time.Month `json:"month,omitempty"`
	Day       int        `json:"day,omitempty"`
	Precision Precision  `json:"precision"`
}

// Before reports whether t is strictly earlier than other, comparing only
// fields meaningful at the coarser of the two precisions.
func (t TimeValue) Before(other TimeValue) bool {
	if t.Year != other.Year {
		return t.Year < other.Year
	}
	p := t.Precision
	if other.Precision < p {
		p = other.Precision
	}
	if p >= PrecisionMonth && t.Month != other.Month {
		return t.Month < other.Month
	}
	if p >= PrecisionDay && t.Day != other.Day {
		return t.Day < other.Day
	}
	return false
}

// Equal reports whether two time values agree at the coarser of their
// precisions. A year-precision 1821 equals a day-precision 1821-05-05.
func (t TimeValue) Equal(other TimeValue) bool {
	if t.Year != other.Year {
		return false
	}
	p := t.Precision
	if other.Precision < p {
		p = other.Precision
	}
	if p >= PrecisionMonth && t.Month != other.Month {
		return false
	}
	if p >= PrecisionDay && t.Day != other.Day {
		return false
	}
	return true
}

// Identical reports exact agreement including precision. Used to detect
// genuine value disagreement as opposed to precision differences.
func (t TimeValue) Identical(other TimeValue) bool {
	return t == other
}

func (t TimeValue) String() string {
	switch {
	case t.Precision >= PrecisionDay:
		return fmt.Sprintf("%04d-%02d-%02d", t.Year, int(t.Month), t.Day)
	case t.Precision >= PrecisionMonth:
		return fmt.Sprintf("%04d-%02d", t.Year, int(t.Month))
	default:
		return fmt.Sprintf("%d", t.Year)
	}
}

// Coordinate is a geographic point.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Claim is a single attributed fact about an entity, keyed by property code.
// Exactly one of the value fields is set, matching Kind.
type Claim struct {
	Property   string      `json:"property"`
	Kind       ValueKind   `json:"kind"`
	Rank       Rank        `json:"rank,omitempty"`
	Time       *TimeValue  `json:"time,omitempty"`
	Coordinate *Coordinate `json:"coordinate,omitempty"`
	EntityRef  string      `json:"entity_ref,omitempty"`
	Literal    string      `json:"literal,omitempty"`
	SourceID   string      `json:"source_id,omitempty"`
}

// NewTimeClaim builds an instant claim for a property code.
func NewTimeClaim(property string, t TimeValue) Claim {
	return Claim{Property: property, Kind: KindInstant, Rank: RankNormal, Time: &t}
}

// NewCoordinateClaim builds a coordinate claim for a property code.
func NewCoordinateClaim(property string, lat, lon float64) Claim {
	return Claim{
		Property:   property,
		Kind:       KindCoordinate,
		Rank:       RankNormal,
		Coordinate: &Coordinate{Latitude: lat, Longitude: lon},
	}
}

// NewEntityRefClaim builds an entity-reference claim for a property code.
func NewEntityRefClaim(property, target string) Claim {
	return Claim{Property: property, Kind: KindEntityRef, Rank: RankNormal, EntityRef: target}
}

// NewLiteralClaim builds a literal claim for a property code.
func NewLiteralClaim(property, value string) Claim {
	return Claim{Property: property, Kind: KindLiteral, Rank: RankNormal, Literal: value}
}

// ValueKey returns a comparable representation of the claim's payload.
// Two claims about the same fact conflict when their value keys differ.
func (c Claim) ValueKey() string {
	switch c.Kind {
	case KindInstant, KindIntervalEndpoint:
		if c.Time != nil {
			return "t:" + c.Time.String()
		}
	case KindCoordinate:
		if c.Coordinate != nil {
			return fmt.Sprintf("c:%.4f,%.4f", c.Coordinate.Latitude, c.Coordinate.Longitude)
		}
	case KindEntityRef:
		return "e:" + c.EntityRef
	}
	return "l:" + c.Literal
}

// ParseDate parses an ISO-8601-ish date string ("1769-08-15", "1821-05",
// "-201000000") into a TimeValue with matching precision.
func ParseDate(s string) (TimeValue, error) {
	var tv TimeValue
	if s == "" {
		return tv, fmt.Errorf("empty date string")
	}
	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	} else if s[0] == '+' {
		s = s[1:]
	}
	var year int64
	var month, day int
	n, _ := fmt.Sscanf(s, "%d-%d-%d", &year, &month, &day)
	if n == 0 {
		return tv, fmt.Errorf("unparseable date %q", s)
	}
	if neg {
		year = -year
	}
	tv.Year = year
	switch n {
	case 1:
		tv.Precision = PrecisionYear
	case 2:
		tv.Month = time.Month(month)
		tv.Precision = PrecisionMonth
	default:
		tv.Month = time.Month(month)
		tv.Day = day
		tv.Precision = PrecisionDay
	}
	return tv, nil
}

// MustParseDate is ParseDate for static fixture data; panics on bad input.
func MustParseDate(s string) TimeValue {
	tv, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return tv
}
