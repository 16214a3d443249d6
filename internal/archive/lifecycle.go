package archive

import "fmt"

// transitions maps a target state to the states it may be entered from.
// Publication and archival are terminal for the normal flow; archival is the
// soft-delete target and is reachable from everything else.
var transitions = map[Status][]Status{
	StatusPublished: {StatusDraft, StatusPendingReview},
	StatusRejected:  {StatusDraft, StatusPendingReview},
	StatusArchived:  {StatusDraft, StatusPendingReview, StatusPublished, StatusRejected},
}

// AllowedFrom returns the set of states from which `to` may be entered.
func AllowedFrom(to Status) []Status {
	return transitions[to]
}

// CanTransition reports whether from → to is a legal lifecycle move.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[to] {
		if s == from {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrInvalidTransition when from → to is not a legal
// move, with both states named for the caller's error message.
func CheckTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
