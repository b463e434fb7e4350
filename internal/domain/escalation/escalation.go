package escalation

import (
	"errors"
	"fmt"
	"time"

	"competency/internal/domain/assessment"
	"competency/internal/domain/calendar"
	"competency/internal/domain/cycle"
)

type Urgency string

const (
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
	UrgencyUrgent Urgency = "urgent"
)

// Tier is the post-deadline escalation level. Tiers are ordered.
type Tier string

const (
	TierNone    Tier = "none"
	TierManager Tier = "manager"
	TierHR      Tier = "hr"
)

func (t Tier) rank() int {
	switch t {
	case TierNone:
		return 0
	case TierManager:
		return 1
	case TierHR:
		return 2
	}
	return -1
}

func (t Tier) AtLeast(other Tier) bool {
	return t.rank() >= other.rank()
}

const (
	urgentWithinDays = 1
	highWithinDays   = 3
)

var ErrConfiguration = errors.New("invalid escalation configuration")

type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("escalation %s: %s", e.Field, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

type Config struct {
	ManagerAfterDays int
	HRAfterDays      int
	// Location decides which calendar day an instant falls on.
	Location *time.Location
}

type Policy struct {
	managerAfter int
	hrAfter      int
	loc          *time.Location
}

// NewPolicy validates thresholds once so Evaluate can never fail.
func NewPolicy(cfg Config) (*Policy, error) {
	if cfg.ManagerAfterDays < 0 {
		return nil, &ConfigurationError{Field: "managerAfterDays", Message: "must not be negative"}
	}
	if cfg.HRAfterDays <= cfg.ManagerAfterDays {
		return nil, &ConfigurationError{
			Field:   "hrAfterDays",
			Message: fmt.Sprintf("must be greater than managerAfterDays (%d), got %d", cfg.ManagerAfterDays, cfg.HRAfterDays),
		}
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Policy{managerAfter: cfg.ManagerAfterDays, hrAfter: cfg.HRAfterDays, loc: loc}, nil
}

func (p *Policy) Location() *time.Location {
	return p.loc
}

func (p *Policy) ManagerAfterDays() int { return p.managerAfter }
func (p *Policy) HRAfterDays() int      { return p.hrAfter }

type Evaluation struct {
	Dated         bool         `json:"dated"`
	Today         calendar.Day `json:"today"`
	EndDate       calendar.Day `json:"endDate,omitempty"`
	DaysRemaining int          `json:"daysRemaining"`
	DaysOverdue   int          `json:"daysOverdue"`
	Overdue       bool         `json:"overdue"`
	Urgency       Urgency      `json:"urgencyLevel"`
	Tier          Tier         `json:"escalationLevel"`
}

// Evaluate derives deadline pressure for one assessment. Undated and
// approved assessments are never under pressure.
func (p *Policy) Evaluate(snap assessment.Snapshot, c *cycle.Cycle, now time.Time) Evaluation {
	today := calendar.DayOf(now, p.loc)
	eval := Evaluation{Today: today, Urgency: UrgencyNormal, Tier: TierNone}
	if !snap.Dated() || c == nil || c.ID != snap.CycleID {
		return eval
	}
	eval.Dated = true
	eval.EndDate = c.EndDate
	eval.DaysRemaining = today.DaysUntil(c.EndDate)
	if snap.Status == assessment.StatusApproved {
		return eval
	}

	if eval.DaysRemaining >= 0 {
		eval.Urgency = urgencyFor(eval.DaysRemaining)
		return eval
	}
	eval.Overdue = true
	eval.DaysOverdue = -eval.DaysRemaining
	eval.Urgency = UrgencyUrgent
	eval.Tier = p.tierFor(eval.DaysOverdue)
	return eval
}

func urgencyFor(daysRemaining int) Urgency {
	switch {
	case daysRemaining <= urgentWithinDays:
		return UrgencyUrgent
	case daysRemaining <= highWithinDays:
		return UrgencyHigh
	default:
		return UrgencyNormal
	}
}

func (p *Policy) tierFor(daysOverdue int) Tier {
	switch {
	case daysOverdue >= p.hrAfter:
		return TierHR
	case daysOverdue >= p.managerAfter:
		return TierManager
	default:
		return TierNone
	}
}
