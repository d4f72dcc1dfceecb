// Package lifecycle owns the item status state machine. The transition table
// is the single source of truth; the engine consults it before any mutation
// so an illegal transition never touches the store.
package lifecycle

import (
	"fmt"

	"reclaim/pkg/domain"
	dErrors "reclaim/pkg/domain-errors"
)

// transitions maps each state to the states reachable from it. Absence means
// the transition is illegal. Returned and sold are terminal.
var transitions = map[domain.Status][]domain.Status{
	domain.StatusRegistered: {domain.StatusLost, domain.StatusStolen},
	domain.StatusLost:       {domain.StatusFound, domain.StatusRegistered},
	domain.StatusStolen:     {domain.StatusFound},
	domain.StatusFound:      {domain.StatusReturned, domain.StatusSold, domain.StatusRegistered},
	domain.StatusReturned:   {},
	domain.StatusSold:       {},
}

// Initial is the state every item starts in.
const Initial = domain.StatusRegistered

// CanTransition reports whether from → to is in the table.
func CanTransition(from, to domain.Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Validate returns an InvalidTransition error for any from → to pair not in
// the table. State is left for the caller to mutate only on nil return.
func Validate(from, to domain.Status) error {
	if !to.IsValid() {
		return dErrors.New(dErrors.CodeInvalidTransition, fmt.Sprintf("unknown status %q", to))
	}
	if !CanTransition(from, to) {
		return dErrors.New(dErrors.CodeInvalidTransition, fmt.Sprintf("cannot transition from %s to %s", from, to))
	}
	return nil
}

// IsTerminal reports whether the status has no outgoing transitions.
func IsTerminal(s domain.Status) bool {
	return len(transitions[s]) == 0
}

// TriggersMatching reports whether a transition into status must run the
// identity matcher. Theft and loss reporting is precisely when
// cross-referencing matters.
func TriggersMatching(s domain.Status) bool {
	return s == domain.StatusStolen || s == domain.StatusLost
}
