package remindershandler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"competency/internal/domain/reminders"
	"competency/internal/platform/auth"
	"competency/internal/transport/http/api"
	"competency/internal/transport/http/middleware"
	"competency/internal/transport/http/shared"
)

// Runner performs a recorded reminder pass.
type Runner interface {
	RunReminders(ctx context.Context, tenantID string, at time.Time) (reminders.Report, error)
}

type Handler struct {
	Runner   Runner
	Location *time.Location
}

func NewHandler(runner Runner, loc *time.Location) *Handler {
	return &Handler{Runner: runner, Location: loc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireRole(auth.RoleHR)).Post("/reminders/run", h.handleRun)
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var payload struct {
		At string `json:"at"`
	}
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	at, err := shared.ParseInstant(payload.At, h.Location)
	if err != nil {
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "at", Reason: err.Error()}})
		return
	}

	report, err := h.Runner.RunReminders(r.Context(), user.TenantID, at)
	if err != nil {
		shared.FailError(w, err, requestID)
		return
	}
	api.Success(w, report, requestID)
}
