package assessment

import "fmt"

type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

var Statuses = []Status{StatusPending, StatusSubmitted, StatusApproved, StatusRejected}

func ParseStatus(value string) (Status, error) {
	switch Status(value) {
	case StatusPending, StatusSubmitted, StatusApproved, StatusRejected:
		return Status(value), nil
	}
	return "", fmt.Errorf("unknown assessment status %q", value)
}

// Open reports whether the assessment still awaits someone's action.
func (s Status) Open() bool {
	switch s {
	case StatusPending, StatusSubmitted, StatusRejected:
		return true
	case StatusApproved:
		return false
	}
	return false
}

// Completed reports whether the assessor has acted. Submitted counts even
// though approval is still outstanding.
func (s Status) Completed() bool {
	switch s {
	case StatusSubmitted, StatusApproved:
		return true
	case StatusPending, StatusRejected:
		return false
	}
	return false
}

type Type string

const (
	TypeSelf    Type = "self"
	TypeManager Type = "manager"
	TypePeer    Type = "peer"
)

func ParseType(value string) (Type, error) {
	switch Type(value) {
	case TypeSelf, TypeManager, TypePeer:
		return Type(value), nil
	}
	return "", fmt.Errorf("unknown assessment type %q", value)
}

type Action string

const (
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

type Category string

const (
	CategoryBehavioral          Category = "Behavioral"
	CategoryPerformance         Category = "Performance"
	CategoryTechnical           Category = "Technical"
	CategoryCommunication       Category = "Communication"
	CategoryLearningDevelopment Category = "Learning & Development"
)
