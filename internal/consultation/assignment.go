package consultation

import (
	"context"
)

// AssignmentStrategy picks the advisor for a new consultation. The source
// system has two observed behaviors, so both are selectable at boot.
type AssignmentStrategy interface {
	// Assign returns the chosen advisor ID, or ok=false to leave the
	// consultation unassigned.
	Assign(ctx context.Context) (advisorID string, ok bool, err error)
}

// ManualAssignment leaves every consultation unassigned; an admin routes
// it later with Service.Assign, or the first advisor to respond claims it.
type ManualAssignment struct{}

func (ManualAssignment) Assign(ctx context.Context) (string, bool, error) {
	return "", false, nil
}

// AutoAssignment assigns the first available advisor account. Selection is
// creation-order first-match; there is no load awareness.
type AutoAssignment struct {
	Store Store
}

func (a AutoAssignment) Assign(ctx context.Context) (string, bool, error) {
	advisors, err := a.Store.ListAdvisors(ctx)
	if err != nil {
		return "", false, err
	}
	if len(advisors) == 0 {
		return "", false, nil
	}
	return advisors[0].ID, true, nil
}

// NewAssignmentStrategy maps the CONSULTATION_ASSIGNMENT setting to a
// strategy. Anything other than "manual" selects auto-assignment.
func NewAssignmentStrategy(mode string, s Store) AssignmentStrategy {
	if mode == "manual" {
		return ManualAssignment{}
	}
	return AutoAssignment{Store: s}
}
