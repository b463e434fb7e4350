package cycle

import (
	"time"

	"github.com/shopspring/decimal"

	"competency/internal/domain/assessment"
)

var hundred = decimal.NewFromInt(100)

type Stats struct {
	Total                int             `json:"totalAssessments"`
	Completed            int             `json:"completedAssessments"`
	CompletionPercentage decimal.Decimal `json:"completionPercentage"`
}

// Account computes completion for the assessments of one cycle. An
// assessment counts as completed once the assessor has acted, so both
// submitted and approved are included.
func Account(snaps []assessment.Snapshot) Stats {
	stats := Stats{Total: len(snaps), CompletionPercentage: decimal.Zero}
	for _, snap := range snaps {
		if snap.Status.Completed() {
			stats.Completed++
		}
	}
	if stats.Total == 0 {
		return stats
	}
	stats.CompletionPercentage = decimal.NewFromInt(int64(stats.Completed)).
		Mul(hundred).
		DivRound(decimal.NewFromInt(int64(stats.Total)), 2)
	return stats
}

func (s Stats) Full() bool {
	return s.Total > 0 && s.Completed == s.Total
}

// CompletionDue reports whether the cycle-completed notice is owed: every
// assessment is completed or the cycle has closed, whichever comes first.
func CompletionDue(c Cycle, stats Stats, now time.Time, loc *time.Location) bool {
	return stats.Full() || c.StatusAt(now, loc) == StatusClosed
}

type Summary struct {
	Cycle          Cycle                     `json:"cycle"`
	Status         Status                    `json:"status"`
	Stats          Stats                     `json:"stats"`
	ByStatus       map[assessment.Status]int `json:"byStatus"`
	AverageRating  decimal.Decimal           `json:"averageRating"`
	WeightedRating decimal.Decimal           `json:"weightedRating"`
	Rated          int                       `json:"ratedAssessments"`
}

// Summarize extends Account with per-status counts and rating averages.
// Averages only consider rated assessments and are zero when none are.
func Summarize(c Cycle, snaps []assessment.Snapshot, now time.Time, loc *time.Location) Summary {
	summary := Summary{
		Cycle:          c,
		Status:         c.StatusAt(now, loc),
		Stats:          Account(snaps),
		ByStatus:       make(map[assessment.Status]int, len(assessment.Statuses)),
		AverageRating:  decimal.Zero,
		WeightedRating: decimal.Zero,
	}
	for _, status := range assessment.Statuses {
		summary.ByStatus[status] = 0
	}

	sum := decimal.Zero
	weighted := decimal.Zero
	weights := decimal.Zero
	for _, snap := range snaps {
		summary.ByStatus[snap.Status]++
		if snap.Rating == nil {
			continue
		}
		rating := decimal.NewFromInt(int64(*snap.Rating))
		weight := decimal.NewFromFloat(snap.CompetencyWeight)
		if weight.LessThanOrEqual(decimal.Zero) {
			weight = decimal.NewFromInt(1)
		}
		summary.Rated++
		sum = sum.Add(rating)
		weighted = weighted.Add(rating.Mul(weight))
		weights = weights.Add(weight)
	}
	if summary.Rated > 0 {
		summary.AverageRating = sum.DivRound(decimal.NewFromInt(int64(summary.Rated)), 2)
		summary.WeightedRating = weighted.DivRound(weights, 2)
	}
	return summary
}
