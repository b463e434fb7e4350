package assessment

import "strings"

type Rating int

const (
	RatingPoor                Rating = 1
	RatingNeedsImprovement    Rating = 2
	RatingMeetsExpectations   Rating = 3
	RatingExceedsExpectations Rating = 4
	RatingOutstanding         Rating = 5
)

func (r Rating) Valid() bool {
	return r >= RatingPoor && r <= RatingOutstanding
}

func (r Rating) Label() string {
	switch r {
	case RatingPoor:
		return "Poor"
	case RatingNeedsImprovement:
		return "Needs Improvement"
	case RatingMeetsExpectations:
		return "Meets Expectations"
	case RatingExceedsExpectations:
		return "Exceeds Expectations"
	case RatingOutstanding:
		return "Outstanding"
	}
	return ""
}

// Extreme reports whether the rating falls in the needs-improvement band
// (1, 2) or the outstanding band (5).
func (r Rating) Extreme() bool {
	return r == RatingPoor || r == RatingNeedsImprovement || r == RatingOutstanding
}

// RatingPolicy validates submissions. The comments rule is fixed at
// construction.
type RatingPolicy struct {
	requireCommentsForExtremes bool
}

func NewRatingPolicy(requireCommentsForExtremes bool) RatingPolicy {
	return RatingPolicy{requireCommentsForExtremes: requireCommentsForExtremes}
}

func (p RatingPolicy) RequiresComments(r Rating) bool {
	return p.requireCommentsForExtremes && r.Extreme()
}

func (p RatingPolicy) Validate(sub Submission) error {
	if sub.Rating == nil {
		return invalid("rating", "rating is required")
	}
	r := Rating(*sub.Rating)
	if !r.Valid() {
		return invalid("rating", "rating must be an integer between 1 and 5")
	}
	if p.RequiresComments(r) && strings.TrimSpace(sub.Comments) == "" {
		return invalid("comments", "comments are required for a rating of "+r.Label())
	}
	return nil
}
