package notifications

// Kind is the notification type stored in the inbox.
type Kind string

const (
	KindAssigned          Kind = "assessment_assigned"
	KindSubmitted         Kind = "assessment_submitted"
	KindApproved          Kind = "assessment_approved"
	KindRejected          Kind = "assessment_rejected"
	KindReminder          Kind = "assessment_reminder"
	KindOverdueEscalation Kind = "assessment_overdue_escalation"
	KindCycleStarted      Kind = "cycle_started"
	KindCycleCompleted    Kind = "cycle_completed"
)

type Role string

const (
	RoleAssessor Role = "assessor"
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	// RoleHR addresses the HR group; such intents carry no recipient id.
	RoleHR Role = "hr"
)

const (
	keyDayOnce      = "once"
	keyTierStarted  = "started"
	keyTierComplete = "completed"
	// keyTierHRWindow marks that an overdue window reached the hr tier.
	keyTierHRWindow = "hr-window"
)
