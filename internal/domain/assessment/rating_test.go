package assessment

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int) *int { return &v }

func TestRatingValidateRequiresRating(t *testing.T) {
	err := NewRatingPolicy(true).Validate(Submission{Comments: "fine"})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "rating", verr.Field)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRatingValidateExtremesNeedComments(t *testing.T) {
	policy := NewRatingPolicy(true)

	for _, r := range []int{1, 2, 5} {
		err := policy.Validate(Submission{Rating: ptr(r), Comments: "   "})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, "rating %d", r)
		assert.Equal(t, "comments", verr.Field)

		assert.NoError(t, policy.Validate(Submission{Rating: ptr(r), Comments: "clear evidence"}))
	}
	for _, r := range []int{3, 4} {
		assert.NoError(t, policy.Validate(Submission{Rating: ptr(r)}), "rating %d", r)
	}
}

func TestRatingValidateCommentsRuleDisabled(t *testing.T) {
	policy := NewRatingPolicy(false)

	assert.NoError(t, policy.Validate(Submission{Rating: ptr(1)}))
	assert.NoError(t, policy.Validate(Submission{Rating: ptr(5)}))
	assert.False(t, policy.RequiresComments(RatingPoor))
}

func TestRatingLabels(t *testing.T) {
	assert.Equal(t, "Poor", RatingPoor.Label())
	assert.Equal(t, "Meets Expectations", RatingMeetsExpectations.Label())
	assert.Equal(t, "Outstanding", RatingOutstanding.Label())
	assert.Empty(t, Rating(9).Label())
}

func TestRatingRangeProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("ratings outside 1..5 are always rejected", prop.ForAll(
		func(r int, comments string) bool {
			err := NewRatingPolicy(false).Validate(Submission{Rating: ptr(r), Comments: comments})
			if r >= 1 && r <= 5 {
				return err == nil
			}
			return errors.Is(err, ErrValidation)
		},
		gen.IntRange(-20, 20),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
