package model

import "time"

// CorrectionStatus is the lifecycle state of a detected falsehood.
type CorrectionStatus string

const (
	StatusOpen      CorrectionStatus = "open"
	StatusVerifying CorrectionStatus = "verifying"
	StatusFixed     CorrectionStatus = "fixed"
	StatusDismissed CorrectionStatus = "dismissed"
	StatusRecurring CorrectionStatus = "recurring"
)

// Valid reports whether s is one of the five lifecycle states.
func (s CorrectionStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusVerifying, StatusFixed, StatusDismissed, StatusRecurring:
		return true
	}
	return false
}

// correctionTransitions is the closed transition table. Nothing writes
// recurring: only a fresh audit re-detecting a fixed claim surfaces it,
// and fixed has no outgoing transitions here.
var correctionTransitions = map[CorrectionStatus]map[CorrectionStatus]bool{
	StatusOpen:      {StatusVerifying: true, StatusDismissed: true},
	StatusVerifying: {StatusFixed: true, StatusOpen: true},
	StatusDismissed: {StatusOpen: true},
	StatusFixed:     {},
	StatusRecurring: {},
}

// CanTransition reports whether from -> to is an allowed lifecycle move.
func CanTransition(from, to CorrectionStatus) bool {
	return correctionTransitions[from][to]
}

// Hallucination is one specific detected falsehood. Records are never
// hard-deleted; dismissal is a status, not a removal.
type Hallucination struct {
	ID         string           `json:"id"`
	TenantID   string           `json:"tenant_id"`
	EntityID   string           `json:"entity_id"`
	Engine     Engine           `json:"engine"`
	Claim      string           `json:"claim"`
	ClaimKey   string           `json:"claim_key"`
	Expected   string           `json:"expected"`
	Severity   Severity         `json:"severity"`
	Status     CorrectionStatus `json:"correction_status"`
	DetectedAt time.Time        `json:"detected_at"`
	LastSeenAt *time.Time       `json:"last_seen_at,omitempty"`
	ResolvedAt *time.Time       `json:"resolved_at,omitempty"`
}
