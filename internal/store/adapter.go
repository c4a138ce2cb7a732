package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/raphaelgruber/timepivot/internal/models"
	"github.com/raphaelgruber/timepivot/internal/synonym"
)

// Raw upstream record shapes. The upstream API nests every claim in a
// statement/snak/datavalue envelope; the adapter flattens that into tagged
// claims and drops everything it cannot interpret.

type RawRecord struct {
	ID           string                    `json:"id"`
	Labels       map[string]RawText        `json:"labels"`
	Descriptions map[string]RawText        `json:"descriptions"`
	Sitelinks    map[string]RawSitelink    `json:"sitelinks"`
	Claims       map[string][]RawStatement `json:"claims"`
}

type RawText struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

type RawSitelink struct {
	Site  string `json:"site"`
	Title string `json:"title"`
}

type RawStatement struct {
	MainSnak RawSnak `json:"mainsnak"`
	Rank     string  `json:"rank"`
}

type RawSnak struct {
	SnakType  string        `json:"snaktype"`
	Property  string        `json:"property"`
	DataValue *RawDataValue `json:"datavalue"`
}

type RawDataValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type rawTimeValue struct {
	Time      string `json:"time"`
	Precision int    `json:"precision"`
}

type rawCoordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type rawEntityID struct {
	ID string `json:"id"`
}

// FromRaw normalizes a raw record into an entity. Claims whose parsed kind
// contradicts the registry's declared kind for that code are degraded to
// literals and logged, never silently reinterpreted. Unparseable claims are
// skipped.
func FromRaw(rec *RawRecord, snap *synonym.Snapshot, logger *slog.Logger) (*models.Entity, error) {
	if rec.ID == "" {
		return nil, fmt.Errorf("raw record has no ID")
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &models.Entity{ID: rec.ID}
	if len(rec.Labels) > 0 {
		e.Labels = make(map[string]string, len(rec.Labels))
		for lang, t := range rec.Labels {
			e.Labels[lang] = t.Value
		}
	}
	if len(rec.Descriptions) > 0 {
		e.Descriptions = make(map[string]string, len(rec.Descriptions))
		for lang, t := range rec.Descriptions {
			e.Descriptions[lang] = t.Value
		}
	}
	if len(rec.Sitelinks) > 0 {
		e.Sitelinks = make(map[string]string, len(rec.Sitelinks))
		for site, l := range rec.Sitelinks {
			e.Sitelinks[site] = l.Title
		}
	}

	for code, statements := range rec.Claims {
		for _, st := range statements {
			claim, ok := convertStatement(code, st)
			if !ok {
				continue
			}
			if declared, registered := snap.DeclaredKind(code); registered && declared != claim.Kind {
				if declared.TimeKind() && claim.Kind.TimeKind() {
					// The wire format cannot tell an instant from an
					// interval endpoint; the registry's role table decides
					// which one a code carries.
					claim.Kind = declared
					e.AddClaim(claim)
					continue
				}
				logger.Warn("claim kind mismatch, degrading to literal",
					slog.String("entity", rec.ID),
					slog.String("property", code),
					slog.String("declared", string(declared)),
					slog.String("parsed", string(claim.Kind)))
				claim = models.Claim{
					Property: code,
					Kind:     models.KindLiteral,
					Rank:     claim.Rank,
					Literal:  claim.ValueKey(),
				}
			}
			e.AddClaim(claim)
		}
	}

	e.Dimension = classifyDimension(e)
	if e.Dimension == models.DimensionGeography {
		if pt, ok := directCoordinate(e, snap); ok {
			e.Center = &pt
		}
	}
	return e, nil
}

func convertStatement(code string, st RawStatement) (models.Claim, bool) {
	snak := st.MainSnak
	if snak.SnakType != "" && snak.SnakType != "value" {
		return models.Claim{}, false
	}
	if snak.DataValue == nil {
		return models.Claim{}, false
	}

	claim := models.Claim{Property: code, Rank: convertRank(st.Rank)}
	dv := snak.DataValue
	switch dv.Type {
	case "time":
		var raw rawTimeValue
		if err := json.Unmarshal(dv.Value, &raw); err != nil {
			return models.Claim{}, false
		}
		tv, err := parseCalendarTime(raw.Time, raw.Precision)
		if err != nil {
			return models.Claim{}, false
		}
		claim.Kind = models.KindInstant
		claim.Time = &tv
	case "globecoordinate", "globe-coordinate":
		var raw rawCoordinate
		if err := json.Unmarshal(dv.Value, &raw); err != nil {
			return models.Claim{}, false
		}
		claim.Kind = models.KindCoordinate
		claim.Coordinate = &models.Coordinate{Latitude: raw.Latitude, Longitude: raw.Longitude}
	case "wikibase-entityid":
		var raw rawEntityID
		if err := json.Unmarshal(dv.Value, &raw); err != nil || raw.ID == "" {
			return models.Claim{}, false
		}
		claim.Kind = models.KindEntityRef
		claim.EntityRef = raw.ID
	case "string":
		var s string
		if err := json.Unmarshal(dv.Value, &s); err != nil {
			return models.Claim{}, false
		}
		claim.Kind = models.KindLiteral
		claim.Literal = s
	default:
		// Quantities, monolingual text and the rest come through as their
		// raw JSON so nothing is lost, just untyped.
		claim.Kind = models.KindLiteral
		claim.Literal = strings.Trim(string(dv.Value), `"`)
	}
	return claim, true
}

func convertRank(rank string) models.Rank {
	switch rank {
	case "preferred":
		return models.RankPreferred
	case "deprecated":
		return models.RankDeprecated
	default:
		return models.RankNormal
	}
}

// parseCalendarTime parses the upstream "+1769-08-15T00:00:00Z" encoding.
// Month and day may be zero at coarse precisions; the precision field from
// the record wins over whatever the string spells out.
func parseCalendarTime(s string, precision int) (models.TimeValue, error) {
	var tv models.TimeValue
	if s == "" {
		return tv, fmt.Errorf("empty time string")
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	var year int64
	var month, day int
	if _, err := fmt.Sscanf(s, "%d-%d-%dT", &year, &month, &day); err != nil {
		if n, _ := fmt.Sscanf(s, "%d-%d-%d", &year, &month, &day); n == 0 {
			return tv, fmt.Errorf("unparseable time %q", s)
		}
	}
	if neg {
		year = -year
	}
	tv.Year = year
	tv.Precision = models.Precision(precision)
	if tv.Precision >= models.PrecisionMonth && month > 0 {
		tv.Month = time.Month(month)
	}
	if tv.Precision >= models.PrecisionDay && day > 0 {
		tv.Day = day
	}
	return tv, nil
}

// Dimension classification by instance-of class. Anything unrecognized
// lands in the category dimension rather than being rejected.
var instanceDimensions = map[string]models.Dimension{
	"Q5":        models.DimensionPeople,    // human
	"Q178561":   models.DimensionEvents,    // battle
	"Q198":      models.DimensionEvents,    // war
	"Q1190554":  models.DimensionEvents,    // occurrence
	"Q6256":     models.DimensionGeography, // country
	"Q515":      models.DimensionGeography, // city
	"Q82794":    models.DimensionGeography, // geographic region
	"Q11514315": models.DimensionTimeline,  // historical period
	"Q754823":   models.DimensionTimeline,  // geochronological unit
}

func classifyDimension(e *models.Entity) models.Dimension {
	for _, c := range e.Claims["P31"] {
		if c.Kind != models.KindEntityRef {
			continue
		}
		if dim, ok := instanceDimensions[c.EntityRef]; ok {
			return dim
		}
	}
	// A bare coordinate claim is a strong geography signal.
	for _, claims := range e.Claims {
		for _, c := range claims {
			if c.Kind == models.KindCoordinate {
				return models.DimensionGeography
			}
		}
	}
	return models.DimensionCategory
}

func directCoordinate(e *models.Entity, snap *synonym.Snapshot) (models.Coordinate, bool) {
	bindings, err := snap.Resolve(synonym.RoleLocation)
	if err != nil {
		return models.Coordinate{}, false
	}
	for _, b := range bindings {
		claim, ok := e.BestClaim(b.Code)
		if !ok || claim.Kind != models.KindCoordinate || claim.Coordinate == nil {
			continue
		}
		return *claim.Coordinate, true
	}
	return models.Coordinate{}, false
}
