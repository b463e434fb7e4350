package notifications

import (
	"competency/internal/domain/escalation"
)

// Key is the idempotency key: one send per subject, day and tier.
type Key struct {
	Subject string `json:"subject"`
	Day     string `json:"day"`
	Tier    string `json:"tier"`
}

func (k Key) String() string {
	return k.Subject + "|" + k.Day + "|" + k.Tier
}

// Permanent keys guard once-only notices (cycle started/completed, the hr
// window) and must never expire from a ledger.
func (k Key) Permanent() bool {
	return k.Day == keyDayOnce || k.Tier == keyTierHRWindow
}

// Payload carries the ids and display strings a transport needs. It never
// references live records.
type Payload struct {
	AssessmentID   string `json:"assessmentId,omitempty"`
	CycleID        string `json:"cycleId,omitempty"`
	CycleName      string `json:"cycleName,omitempty"`
	EmployeeID     string `json:"employeeId,omitempty"`
	EmployeeName   string `json:"employeeName,omitempty"`
	AssessorName   string `json:"assessorName,omitempty"`
	CompetencyName string `json:"competencyName,omitempty"`
	DueDate        string `json:"dueDate,omitempty"`
	DaysRemaining  int    `json:"daysRemaining,omitempty"`
	DaysOverdue    int    `json:"daysOverdue,omitempty"`
	Reason         string `json:"reason,omitempty"`
	Completion     string `json:"completionPercentage,omitempty"`
}

type Intent struct {
	ID          string             `json:"id"`
	TenantID    string             `json:"tenantId"`
	Kind        Kind               `json:"kind"`
	Role        Role               `json:"recipientRole"`
	RecipientID string             `json:"recipientId,omitempty"`
	Urgency     escalation.Urgency `json:"urgency,omitempty"`
	Tier        escalation.Tier    `json:"tier,omitempty"`
	Payload     Payload            `json:"payload"`

	// Key is nil for transition notices, which are sent once by virtue of
	// the transition itself succeeding once.
	Key *Key `json:"key,omitempty"`
	// SuppressedBy lists keys whose presence in the ledger cancels the send.
	SuppressedBy []Key `json:"-"`
	// AlsoMarks lists extra keys recorded together with Key on success.
	AlsoMarks []Key `json:"-"`
}

func (i Intent) subject() string {
	if i.Key != nil {
		return i.Key.Subject
	}
	if i.Payload.AssessmentID != "" {
		return i.Payload.AssessmentID
	}
	return i.ID
}
