// Package models defines data structures for the timepivot dimensional engine.
package models

// Dimension identifies a navigation axis for entities.
type Dimension string

const (
	DimensionTimeline  Dimension = "timeline"
	DimensionGeography Dimension = "geography"
	DimensionPeople    Dimension = "people"
	DimensionEvents    Dimension = "events"
	DimensionCategory  Dimension = "category"
)

// KnownDimensions lists the built-in dimensions. Custom dimensions may be
// added through configuration without code changes.
func KnownDimensions() []Dimension {
	return []Dimension{
		DimensionTimeline,
		DimensionGeography,
		DimensionPeople,
		DimensionEvents,
		DimensionCategory,
	}
}

// DimensionDescriptor is per-dimension metadata served to clients.
type DimensionDescriptor struct {
	ID          Dimension `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ZoomLevels  []string  `json:"zoom_levels,omitempty"`
	PivotTo     []string  `json:"pivot_to,omitempty"`
}
