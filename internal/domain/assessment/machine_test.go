package assessment

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestNextLegalEdges(t *testing.T) {
	cases := []struct {
		from   Status
		action Action
		want   Status
		ok     bool
	}{
		{StatusPending, ActionSubmit, StatusSubmitted, true},
		{StatusRejected, ActionSubmit, StatusSubmitted, true},
		{StatusSubmitted, ActionApprove, StatusApproved, true},
		{StatusSubmitted, ActionReject, StatusRejected, true},
		{StatusPending, ActionApprove, StatusPending, false},
		{StatusPending, ActionReject, StatusPending, false},
		{StatusSubmitted, ActionSubmit, StatusSubmitted, false},
		{StatusRejected, ActionApprove, StatusRejected, false},
		{StatusApproved, ActionSubmit, StatusApproved, false},
		{StatusApproved, ActionApprove, StatusApproved, false},
		{StatusApproved, ActionReject, StatusApproved, false},
	}
	for _, tc := range cases {
		got, ok := Next(tc.from, tc.action)
		assert.Equal(t, tc.ok, ok, "%s + %s", tc.from, tc.action)
		assert.Equal(t, tc.want, got, "%s + %s", tc.from, tc.action)
	}
}

func TestApprovedIsTerminal(t *testing.T) {
	for _, to := range Statuses {
		assert.False(t, Legal(StatusApproved, to), "approved -> %s", to)
	}
}

func TestRandomWalksStayOnGraph(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	actions := []Action{ActionSubmit, ActionApprove, ActionReject}
	properties.Property("every accepted step is a lifecycle edge and approved absorbs", prop.ForAll(
		func(steps []int) bool {
			status := StatusPending
			for _, step := range steps {
				next, ok := Next(status, actions[step])
				if !ok {
					if next != status {
						return false
					}
					continue
				}
				if !Legal(status, next) || status == StatusApproved {
					return false
				}
				status = next
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 2)),
	))

	properties.TestingRun(t)
}
