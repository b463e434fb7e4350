package cycle

import (
	"errors"
	"time"

	"competency/internal/domain/assessment"
	"competency/internal/domain/calendar"
)

var ErrNotFound = errors.New("assessment cycle not found")

// unknownCycle is what assignment sees for a dangling cycle reference.
var unknownCycle = &assessment.ValidationError{Field: "cycleId", Message: "cycle does not exist"}

type Status string

const (
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

// Cycle is a bounded window grouping assessments under a common deadline.
// Its status is derived from the end date and never stored.
type Cycle struct {
	ID          string            `json:"id"`
	TenantID    string            `json:"tenantId"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	StartDate   calendar.Day      `json:"startDate"`
	EndDate     calendar.Day      `json:"endDate"`
	Types       []assessment.Type `json:"assessmentTypes"`
}

// StatusAt is active through the whole end day and closed from the next.
func (c Cycle) StatusAt(now time.Time, loc *time.Location) Status {
	if calendar.DayOf(now, loc).After(c.EndDate) {
		return StatusClosed
	}
	return StatusActive
}

func (c Cycle) Started(now time.Time, loc *time.Location) bool {
	return !calendar.DayOf(now, loc).Before(c.StartDate)
}

// Covers reports whether the cycle accepts the type. An empty scope accepts
// every type.
func (c Cycle) Covers(t assessment.Type) bool {
	if len(c.Types) == 0 {
		return true
	}
	for _, scoped := range c.Types {
		if scoped == t {
			return true
		}
	}
	return false
}
