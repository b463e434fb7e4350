package shared

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"competency/internal/domain/assessment"
	"competency/internal/domain/cycle"
	"competency/internal/transport/http/api"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) api.Envelope {
	t.Helper()
	var env api.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestFailErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &assessment.ValidationError{Field: "rating", Message: "out of range"}, http.StatusBadRequest, "validation_error"},
		{"wrapped validation", fmt.Errorf("checking: %w", &assessment.ValidationError{Field: "cycleId", Message: "missing"}), http.StatusBadRequest, "validation_error"},
		{"transition", &assessment.InvalidTransitionError{AssessmentID: "a1", From: assessment.StatusApproved, Action: assessment.ActionApprove}, http.StatusConflict, "invalid_transition"},
		{"assessment missing", assessment.ErrNotFound, http.StatusNotFound, "not_found"},
		{"cycle missing", cycle.ErrNotFound, http.StatusNotFound, "not_found"},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			FailError(rec, tc.err, "req-1")
			assert.Equal(t, tc.status, rec.Code)
			env := decodeEnvelope(t, rec)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
			assert.Equal(t, "req-1", env.RequestID)
		})
	}
}

func TestFailErrorHidesInternalText(t *testing.T) {
	rec := httptest.NewRecorder()
	FailError(rec, fmt.Errorf("dial tcp 10.0.0.1:5432: refused"), "")
	assert.NotContains(t, rec.Body.String(), "10.0.0.1")
}

func TestDecodeJSON(t *testing.T) {
	var payload struct {
		Reason string `json:"reason"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"thin evidence"}`))
	rec := httptest.NewRecorder()
	require.True(t, DecodeJSON(rec, req, &payload, ""))
	assert.Equal(t, "thin evidence", payload.Reason)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"unknown":1}`))
	rec = httptest.NewRecorder()
	assert.False(t, DecodeJSON(rec, req, &payload, ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	rec = httptest.NewRecorder()
	assert.True(t, DecodeJSON(rec, req, &payload, ""))
}

func TestParseInstant(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	at, err := ParseInstant("2025-03-10", tokyo)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, tokyo), at)

	at, err = ParseInstant("2025-03-10T12:00:00Z", tokyo)
	require.NoError(t, err)
	assert.True(t, at.Equal(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)))

	at, err = ParseInstant("", tokyo)
	require.NoError(t, err)
	assert.True(t, at.IsZero())

	_, err = ParseInstant("next tuesday", tokyo)
	assert.Error(t, err)
}

func TestParsePaginationClamps(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=900&offset=20", nil)
	page := ParsePagination(req, 100, 500)
	assert.Equal(t, Pagination{Limit: 500, Offset: 20}, page)

	req = httptest.NewRequest(http.MethodGet, "/?limit=-1&offset=x", nil)
	assert.Equal(t, Pagination{Limit: 100}, ParsePagination(req, 100, 500))
}

func TestValidatorSortsIssues(t *testing.T) {
	v := NewValidator()
	v.Required("reason", " ", "reason is required")
	OneOf(v, "expectedStatus", "archived", assessment.Statuses, "unknown status")
	OneOf(v, "expectedStatus", "Pending", assessment.Statuses, "unknown status")
	OneOf(v, "action", "", []assessment.Action{assessment.ActionSubmit}, "ignored when empty")
	require.True(t, v.HasIssues())
	issues := v.Issues()
	require.Len(t, issues, 3)
	assert.Equal(t, "expectedStatus", issues[0].Field)
	assert.Equal(t, "reason", issues[2].Field)
}

func TestValidatorRating(t *testing.T) {
	v := NewValidator()
	v.Rating("rating", nil)
	assert.Equal(t, []ValidationIssue{{Field: "rating", Reason: "rating is required"}}, v.Issues())

	for _, r := range []int{0, 6, -3} {
		v := NewValidator()
		v.Rating("rating", &r)
		assert.Equal(t, []ValidationIssue{{Field: "rating", Reason: "rating must be an integer between 1 and 5"}}, v.Issues(), "rating %d", r)
	}
	for r := 1; r <= 5; r++ {
		v := NewValidator()
		v.Rating("rating", &r)
		assert.False(t, v.HasIssues(), "rating %d", r)
	}
}

func TestValidatorMergesDomainValidation(t *testing.T) {
	v := NewValidator()
	assert.False(t, v.Merge(assessment.ErrNotFound))

	policy := assessment.NewRatingPolicy(true)
	err := policy.Validate(assessment.Submission{Rating: ptrInt(1)})
	require.Error(t, err)
	assert.True(t, v.Merge(err))
	require.Len(t, v.Issues(), 1)
	assert.Equal(t, "comments", v.Issues()[0].Field)
}

func ptrInt(n int) *int { return &n }
