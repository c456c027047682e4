package domain

import "fmt"

type Status string

const (
	StatusPending Status = "pending"
	StatusSettled Status = "settled"
	StatusExpired Status = "expired"
	StatusFailed  Status = "failed"
)

// transitions lists every accepted (from, to) pair. Anything missing is
// rejected, so settled has no outgoing edge and can never be left.
var transitions = map[Status][]Status{
	StatusPending: {StatusSettled, StatusExpired, StatusFailed},
	StatusExpired: {StatusSettled},
	StatusFailed:  {StatusSettled},
}

// CanTransition reports whether a donation in status from may move to to.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SourcesOf returns the statuses from which to is reachable in one step.
// Stores use it as the guard of the conditional status update.
func SourcesOf(to Status) []Status {
	var out []Status
	for _, from := range []Status{StatusPending, StatusSettled, StatusExpired, StatusFailed} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// IsTerminal reports whether no further notification can change s in practice.
func (s Status) IsTerminal() bool {
	return s == StatusSettled
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSettled, StatusExpired, StatusFailed:
		return true
	}
	return false
}

// ParseStatus converts a stored value back into a Status.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown donation status %q", v)
	}
	return s, nil
}
