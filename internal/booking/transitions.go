package booking

// The appointment lifecycle:
//
//	pending -> confirmed -> in_progress -> completed
//	pending | confirmed | in_progress   -> cancelled
//	pending | confirmed                 -> no_show
//
// completed, cancelled and no_show are terminal.
var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusInProgress, StatusCancelled, StatusNoShow},
	StatusConfirmed:  {StatusInProgress, StatusCancelled, StatusNoShow},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether an appointment may move from one status to
// another.
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition leaves the status.
func IsTerminal(s Status) bool {
	return len(allowedTransitions[s]) == 0
}

// IsActive reports whether an appointment in this status still occupies its
// slot. Only cancellation releases a slot for rebooking.
func IsActive(s Status) bool {
	return s != StatusCancelled
}
