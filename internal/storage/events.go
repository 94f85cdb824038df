package storage

import "time"

// EventWriter is the interface for writing decision events.
// Write() must NEVER block the caller.
type EventWriter interface {
	Write(event *DecisionEvent)
	Close()
}

// DecisionEvent is one routed decision flattened for analytics storage.
type DecisionEvent struct {
	DecisionID     string
	ActionID       string
	ClientID       string
	Timestamp      time.Time
	ActionType     string
	Category       string
	Engine         string
	Description    string // first 500 chars
	EstimatedValue float64
	Reversible     bool
	Urgency        string
	RiskLevel      string
	RiskScore      float64
	FactorNames    []string
	FactorValues   []float64
	FactorExceeded []bool
	Outcome        string
	Reason         string
	Violations     []string
	Warnings       []string
	Consensus      string
	LatencyMs      float32
}

// DescriptionPreviewLength is the max chars stored for descriptions.
const DescriptionPreviewLength = 500

// TruncateDescription returns the first N characters (runes) of a
// description. It never splits a multi-byte UTF-8 character.
func TruncateDescription(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
