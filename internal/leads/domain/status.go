// Package domain provides core business rules for the leads bounded context.
package domain

import "fmt"

// Status is the lead pipeline state.
type Status string

const (
	StatusNew         Status = "NEW"
	StatusEnriching   Status = "ENRICHING"
	StatusEnriched    Status = "ENRICHED"
	StatusScoring     Status = "SCORING"
	StatusQualified   Status = "QUALIFIED"
	StatusUnqualified Status = "UNQUALIFIED"
	StatusSentToCRM   Status = "SENT_TO_CRM"
	StatusConverted   Status = "CONVERTED"
	StatusLost        Status = "LOST"
)

// QualificationThreshold is the minimum score for a lead to qualify.
// Fixed design constant, not per-tenant configuration.
const QualificationThreshold = 60

// allowedTransitions defines the legal pipeline edges. Operator-forced
// re-scoring is handled separately in CanTransition.
var allowedTransitions = map[Status][]Status{
	StatusNew:         {StatusEnriching, StatusScoring, StatusLost},
	StatusEnriching:   {StatusEnriched, StatusNew, StatusLost},
	StatusEnriched:    {StatusScoring, StatusLost},
	StatusScoring:     {StatusQualified, StatusUnqualified, StatusLost},
	StatusQualified:   {StatusSentToCRM, StatusScoring, StatusLost},
	StatusUnqualified: {StatusScoring, StatusEnriching, StatusLost},
	StatusSentToCRM:   {StatusConverted, StatusLost},
	StatusConverted:   {},
	StatusLost:        {},
}

// terminalStatuses are states where no further pipeline stage may run.
var terminalStatuses = map[Status]bool{
	StatusConverted: true,
	StatusLost:      true,
}

// IsTerminal returns true when no pipeline stage may process the lead anymore.
func IsTerminal(status Status) bool {
	return terminalStatuses[status]
}

// IsValid reports whether the value is a member of the closed status enum.
func (s Status) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransition reports whether the edge from → to is legal. Operator-forced
// re-scoring makes SCORING reachable from every non-terminal state.
func CanTransition(from, to Status) bool {
	if IsTerminal(from) {
		return false
	}
	if to == StatusScoring {
		return true
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a typed reason when the edge is illegal.
func ValidateTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("illegal status transition %s -> %s", from, to)
	}
	return nil
}

// QualifiedStatus maps a final score to QUALIFIED or UNQUALIFIED.
func QualifiedStatus(score int) Status {
	if score >= QualificationThreshold {
		return StatusQualified
	}
	return StatusUnqualified
}
