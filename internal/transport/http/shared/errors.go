package shared

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"competency/internal/domain/assessment"
	"competency/internal/domain/cycle"
	"competency/internal/transport/http/api"
)

// FailError maps a domain error onto the response envelope. Unknown errors
// are logged and reported as 500 without leaking their text.
func FailError(w http.ResponseWriter, err error, requestID string) {
	var transition *assessment.InvalidTransitionError
	v := NewValidator()
	switch {
	case v.Merge(err):
		v.Reject(w, requestID)
	case errors.As(err, &transition):
		api.FailWithDetails(w, http.StatusConflict, "invalid_transition", transition.Error(), map[string]any{
			"currentStatus": transition.From,
			"action":        transition.Action,
			"concurrent":    transition.Lost,
		}, requestID)
	case errors.Is(err, assessment.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), requestID)
	case errors.Is(err, assessment.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "assessment not found", requestID)
	case errors.Is(err, cycle.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "cycle not found", requestID)
	case errors.Is(err, context.DeadlineExceeded):
		api.Fail(w, http.StatusGatewayTimeout, "timeout", "operation timed out", requestID)
	default:
		slog.Error("request failed", "requestId", requestID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
	}
}
