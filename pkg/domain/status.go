package domain

import dErrors "reclaim/pkg/domain-errors"

// Status is an item lifecycle state.
// Invariant: the value must be one of the supported states; transitions
// between states are enforced by the lifecycle package, not here.
type Status string

const (
	StatusRegistered Status = "registered"
	StatusLost       Status = "lost"
	StatusStolen     Status = "stolen"
	StatusFound      Status = "found"
	StatusReturned   Status = "returned"
	StatusSold       Status = "sold"
)

// validStatuses is the single source of truth for valid states.
var validStatuses = map[Status]bool{
	StatusRegistered: true,
	StatusLost:       true,
	StatusStolen:     true,
	StatusFound:      true,
	StatusReturned:   true,
	StatusSold:       true,
}

// ParseStatus constructs a Status from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseStatus(s string) (Status, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "status cannot be empty")
	}
	st := Status(s)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid status")
	}
	return st, nil
}

// IsValid checks if the status is one of the supported enum values.
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}
