package notifications

import (
	"time"

	"competency/internal/domain/assessment"
	"competency/internal/domain/cycle"
	"competency/internal/domain/escalation"
)

// Trigger is what asks for a decision: a lifecycle event, or the scheduled
// tick when Event is empty.
type Trigger struct {
	Event  assessment.EventKind
	Reason string
}

var Tick = Trigger{}

// Policy decides which notifications to emit. It performs no I/O.
type Policy struct {
	// NormalReminderIntervalDays spaces normal-urgency reminders. Zero
	// disables them.
	NormalReminderIntervalDays int
}

func NewPolicy(normalReminderIntervalDays int) Policy {
	if normalReminderIntervalDays < 0 {
		normalReminderIntervalDays = 0
	}
	return Policy{NormalReminderIntervalDays: normalReminderIntervalDays}
}

func (p Policy) Decide(trigger Trigger, snap assessment.Snapshot, eval escalation.Evaluation) []Intent {
	if trigger.Event != "" {
		return p.decideTransition(trigger, snap, eval)
	}
	return p.decideTick(snap, eval)
}

// Each transition yields exactly one notice.
func (p Policy) decideTransition(trigger Trigger, snap assessment.Snapshot, eval escalation.Evaluation) []Intent {
	intent := Intent{
		TenantID: snap.TenantID,
		Urgency:  eval.Urgency,
		Tier:     escalation.TierNone,
		Payload:  payloadFor(snap, eval),
	}
	intent.Payload.Reason = trigger.Reason

	switch trigger.Event {
	case assessment.EventAssigned:
		intent.Kind = KindAssigned
		intent.Role, intent.RecipientID = RoleAssessor, snap.AssessorID
	case assessment.EventSubmitted:
		intent.Kind = KindSubmitted
		intent.Role, intent.RecipientID = approver(snap)
	case assessment.EventApproved:
		intent.Kind = KindApproved
		intent.Role, intent.RecipientID = RoleAssessor, snap.AssessorID
	case assessment.EventRejected:
		intent.Kind = KindRejected
		intent.Role, intent.RecipientID = RoleAssessor, snap.AssessorID
	default:
		return nil
	}
	return []Intent{intent}
}

// decideTick emits at most one reminder or escalation per assessment.
func (p Policy) decideTick(snap assessment.Snapshot, eval escalation.Evaluation) []Intent {
	if !eval.Dated || !snap.Status.Open() {
		return nil
	}
	today := eval.Today.String()
	intent := Intent{
		TenantID: snap.TenantID,
		Urgency:  eval.Urgency,
		Tier:     eval.Tier,
		Payload:  payloadFor(snap, eval),
	}

	if !eval.Overdue {
		if eval.Urgency == escalation.UrgencyNormal && !p.normalReminderDue(eval.DaysRemaining) {
			return nil
		}
		intent.Kind = KindReminder
		intent.Role, intent.RecipientID = actionOwner(snap)
		intent.Key = &Key{Subject: snap.ID, Day: today, Tier: string(escalation.TierNone)}
		return []Intent{intent}
	}

	window := hrWindow(snap, eval)
	switch eval.Tier {
	case escalation.TierNone:
		intent.Kind = KindReminder
		intent.Role, intent.RecipientID = actionOwner(snap)
	case escalation.TierManager:
		intent.Kind = KindOverdueEscalation
		intent.Role, intent.RecipientID = managerOf(snap)
		intent.SuppressedBy = []Key{window}
	case escalation.TierHR:
		intent.Kind = KindOverdueEscalation
		intent.Role = RoleHR
		intent.AlsoMarks = []Key{window}
	default:
		return nil
	}
	intent.Key = &Key{Subject: snap.ID, Day: today, Tier: string(eval.Tier)}
	return []Intent{intent}
}

func (p Policy) normalReminderDue(daysRemaining int) bool {
	if p.NormalReminderIntervalDays <= 0 {
		return false
	}
	return daysRemaining%p.NormalReminderIntervalDays == 0
}

// DecideCycle returns the cycle-level notices owed at now. Both are keyed
// once per cycle so repeated ticks never resend them.
func (p Policy) DecideCycle(c cycle.Cycle, stats cycle.Stats, now time.Time, loc *time.Location) []Intent {
	payload := Payload{
		CycleID:    c.ID,
		CycleName:  c.Name,
		DueDate:    c.EndDate.String(),
		Completion: stats.CompletionPercentage.StringFixed(2),
	}
	var out []Intent
	if c.Started(now, loc) {
		out = append(out, Intent{
			TenantID: c.TenantID,
			Kind:     KindCycleStarted,
			Role:     RoleHR,
			Urgency:  escalation.UrgencyNormal,
			Tier:     escalation.TierNone,
			Payload:  payload,
			Key:      &Key{Subject: cycleSubject(c.ID), Day: keyDayOnce, Tier: keyTierStarted},
		})
	}
	if cycle.CompletionDue(c, stats, now, loc) {
		out = append(out, Intent{
			TenantID: c.TenantID,
			Kind:     KindCycleCompleted,
			Role:     RoleHR,
			Urgency:  escalation.UrgencyNormal,
			Tier:     escalation.TierNone,
			Payload:  payload,
			Key:      &Key{Subject: cycleSubject(c.ID), Day: keyDayOnce, Tier: keyTierComplete},
		})
	}
	return out
}

func cycleSubject(cycleID string) string {
	return "cycle:" + cycleID
}

// hrWindow is keyed on the deadline, so it spans the whole overdue period
// of one cycle.
func hrWindow(snap assessment.Snapshot, eval escalation.Evaluation) Key {
	return Key{Subject: snap.ID, Day: eval.EndDate.String(), Tier: keyTierHRWindow}
}

// actionOwner is whoever must act next: the assessor until submission, then
// the approver.
func actionOwner(snap assessment.Snapshot) (Role, string) {
	if snap.Status == assessment.StatusSubmitted {
		return approver(snap)
	}
	return RoleAssessor, snap.AssessorID
}

func approver(snap assessment.Snapshot) (Role, string) {
	return managerOf(snap)
}

// managerOf falls back to HR when the assessor has no manager on record.
func managerOf(snap assessment.Snapshot) (Role, string) {
	if snap.ManagerID == "" {
		return RoleHR, ""
	}
	return RoleManager, snap.ManagerID
}

func payloadFor(snap assessment.Snapshot, eval escalation.Evaluation) Payload {
	payload := Payload{
		AssessmentID:   snap.ID,
		CycleID:        snap.CycleID,
		EmployeeID:     snap.EmployeeID,
		EmployeeName:   snap.EmployeeName,
		AssessorName:   snap.AssessorName,
		CompetencyName: snap.CompetencyName,
		DaysOverdue:    eval.DaysOverdue,
	}
	if eval.Dated {
		payload.DueDate = eval.EndDate.String()
		if !eval.Overdue {
			payload.DaysRemaining = eval.DaysRemaining
		}
	}
	return payload
}
