// Package action defines the proposed-operation model submitted for governance.
package action

import "time"

// Category represents the business domain of a proposed action.
type Category int

const (
	CategoryUnspecified Category = iota
	CategoryTrading
	CategoryContent
	CategoryBuild
	CategoryDeployment
	CategoryConfiguration
)

// String returns the lowercase category name.
func (c Category) String() string {
	switch c {
	case CategoryTrading:
		return "trading"
	case CategoryContent:
		return "content"
	case CategoryBuild:
		return "build"
	case CategoryDeployment:
		return "deployment"
	case CategoryConfiguration:
		return "configuration"
	default:
		return "unspecified"
	}
}

// ParseCategory maps a category string to its Category.
// The second return reports whether the string named a known category,
// so unknown identifiers are caught at the ingress boundary instead of
// silently defaulting inside scoring logic.
func ParseCategory(s string) (Category, bool) {
	switch s {
	case "trading":
		return CategoryTrading, true
	case "content":
		return CategoryContent, true
	case "build":
		return CategoryBuild, true
	case "deployment":
		return CategoryDeployment, true
	case "configuration":
		return CategoryConfiguration, true
	default:
		return CategoryUnspecified, false
	}
}

// Categories lists every known category, for allow-list validation.
func Categories() []Category {
	return []Category{
		CategoryTrading, CategoryContent, CategoryBuild,
		CategoryDeployment, CategoryConfiguration,
	}
}

// Urgency represents how time-sensitive an action is.
type Urgency int

const (
	UrgencyLow Urgency = iota + 1
	UrgencyNormal
	UrgencyHigh
	UrgencyCritical
)

// String returns the lowercase urgency name.
func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "low"
	case UrgencyHigh:
		return "high"
	case UrgencyCritical:
		return "critical"
	default:
		return "normal"
	}
}

// ParseUrgency maps an urgency string to its Urgency.
// Empty or unknown strings default to UrgencyNormal.
func ParseUrgency(s string) Urgency {
	switch s {
	case "low":
		return UrgencyLow
	case "high":
		return UrgencyHigh
	case "critical":
		return UrgencyCritical
	default:
		return UrgencyNormal
	}
}

// Metadata holds the risk-relevant telemetry attached to an action.
// Missing fields are treated as neutral defaults by the classifier,
// never as a hard failure.
type Metadata struct {
	EstimatedValue float64 `json:"estimated_value"`
	Reversible     bool    `json:"reversible"`
	Urgency        Urgency `json:"-"`
	LinesChanged   int     `json:"lines_changed"`
	FilesChanged   int     `json:"files_changed"`
}

// Action is a proposed operation submitted by an engine adapter.
// Immutable once submitted.
type Action struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Engine      string         `json:"engine"`
	Category    Category       `json:"-"`
	Description string         `json:"description"`
	Metadata    Metadata       `json:"metadata"`
	Params      map[string]any `json:"params,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
