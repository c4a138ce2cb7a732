// Package resolve derives temporal spans and spatial points from entity
// claims, using the synonym registry to know which property codes can
// stand in for each semantic role.
package resolve

import (
	"github.com/raphaelgruber/timepivot/internal/models"
	"github.com/raphaelgruber/timepivot/internal/synonym"
)

// ExtractSpan derives a best-effort (start, end) span from any entity,
// regardless of kind. The first start-role code present with a time-kind
// claim wins; likewise for the end role. When no registered code yields a
// value, all claims are scanned in property-code order and the first two
// distinct time values become start and end. An empty span is a normal
// outcome, not an error.
func ExtractSpan(e *models.Entity, snap *synonym.Snapshot) models.Span {
	var span models.Span

	if start, code, ok := resolveTimeRole(e, snap, synonym.RoleStart); ok {
		span.Start = start
		span.StartProperty = code
	}
	if end, code, ok := resolveTimeRole(e, snap, synonym.RoleEnd); ok {
		span.End = end
		span.EndProperty = code
	}
	if !span.Empty() {
		return span
	}

	// Fallback: no role-registered code matched. Scan every claim for
	// time values, deterministic in property-code order. The second value
	// only becomes the end if it differs from the start, so a duplicated
	// instant never produces a degenerate interval.
	for _, code := range e.PropertyCodes() {
		claim, ok := e.BestClaim(code)
		if !ok || !claim.Kind.TimeKind() || claim.Time == nil {
			continue
		}
		if span.Start == nil {
			t := *claim.Time
			span.Start = &t
			span.StartProperty = code
			continue
		}
		if !claim.Time.Identical(*span.Start) {
			t := *claim.Time
			span.End = &t
			span.EndProperty = code
			break
		}
	}
	return span
}

func resolveTimeRole(e *models.Entity, snap *synonym.Snapshot, role synonym.Role) (*models.TimeValue, string, bool) {
	bindings, err := snap.Resolve(role)
	if err != nil {
		return nil, "", false
	}
	for _, b := range bindings {
		claim, ok := e.BestClaim(b.Code)
		if !ok || !claim.Kind.TimeKind() || claim.Time == nil {
			continue
		}
		t := *claim.Time
		return &t, b.Code, true
	}
	return nil, "", false
}
