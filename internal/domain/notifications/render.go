package notifications

import (
	"fmt"
	"strings"
)

// Render produces the inbox title and plain-text body for an intent.
func Render(intent Intent) (string, string) {
	p := intent.Payload
	subject := fmt.Sprintf("%s for %s", orDash(p.CompetencyName), orDash(p.EmployeeName))

	switch intent.Kind {
	case KindAssigned:
		return "New competency assessment", lines(
			fmt.Sprintf("You have been asked to assess %s.", subject),
			due(p),
		)
	case KindSubmitted:
		return "Assessment awaiting approval", lines(
			fmt.Sprintf("%s submitted the assessment of %s.", orDash(p.AssessorName), subject),
		)
	case KindApproved:
		return "Assessment approved", lines(
			fmt.Sprintf("Your assessment of %s was approved.", subject),
		)
	case KindRejected:
		return "Assessment returned for revision", lines(
			fmt.Sprintf("Your assessment of %s was returned for revision.", subject),
			"Reason: "+p.Reason,
		)
	case KindReminder:
		if p.DaysOverdue > 0 {
			return "Assessment overdue", lines(
				fmt.Sprintf("The assessment of %s is %d day(s) overdue.", subject, p.DaysOverdue),
				due(p),
			)
		}
		return fmt.Sprintf("Reminder: assessment due in %d day(s)", p.DaysRemaining), lines(
			fmt.Sprintf("The assessment of %s is still open.", subject),
			due(p),
		)
	case KindOverdueEscalation:
		return fmt.Sprintf("Escalation: assessment %d day(s) overdue", p.DaysOverdue), lines(
			fmt.Sprintf("The assessment of %s by %s has not been completed.", subject, orDash(p.AssessorName)),
			due(p),
		)
	case KindCycleStarted:
		return "Assessment cycle started", lines(
			fmt.Sprintf("The assessment cycle %s has started.", orDash(p.CycleName)),
			due(p),
		)
	case KindCycleCompleted:
		return "Assessment cycle completed", lines(
			fmt.Sprintf("The assessment cycle %s is complete at %s%%.", orDash(p.CycleName), p.Completion),
		)
	}
	return string(intent.Kind), ""
}

func due(p Payload) string {
	if p.DueDate == "" {
		return ""
	}
	return "Due date: " + p.DueDate
}

func lines(parts ...string) string {
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return strings.Join(out, "\n")
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
