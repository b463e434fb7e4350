package assessment

// Next returns the status an action leads to from the given status. Legal
// edges: pending->submitted, submitted->approved, submitted->rejected,
// rejected->submitted.
func Next(from Status, action Action) (Status, bool) {
	switch from {
	case StatusPending, StatusRejected:
		if action == ActionSubmit {
			return StatusSubmitted, true
		}
	case StatusSubmitted:
		switch action {
		case ActionApprove:
			return StatusApproved, true
		case ActionReject:
			return StatusRejected, true
		case ActionSubmit:
		}
	case StatusApproved:
	}
	return from, false
}

// Legal reports whether a status change is an edge of the lifecycle graph.
func Legal(from, to Status) bool {
	for _, action := range []Action{ActionSubmit, ActionApprove, ActionReject} {
		if next, ok := Next(from, action); ok && next == to {
			return true
		}
	}
	return false
}
