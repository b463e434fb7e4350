package assessmentshandler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"competency/internal/domain/assessment"
	"competency/internal/domain/cycle"
	"competency/internal/domain/escalation"
	"competency/internal/platform/auth"
	"competency/internal/transport/http/api"
	"competency/internal/transport/http/middleware"
	"competency/internal/transport/http/shared"
)

type CycleReader interface {
	Get(ctx context.Context, tenantID, cycleID string) (cycle.Cycle, error)
}

type Handler struct {
	Service    *assessment.Service
	Cycles     CycleReader
	Escalation *escalation.Policy
	Clock      func() time.Time
}

func NewHandler(service *assessment.Service, cycles CycleReader, esc *escalation.Policy) *Handler {
	return &Handler{Service: service, Cycles: cycles, Escalation: esc, Clock: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/assessments", func(r chi.Router) {
		r.With(middleware.RequireRole(auth.RoleHR, auth.RoleManager)).Post("/", h.handleAssign)
		r.Get("/{assessmentID}", h.handleGet)
		r.Get("/{assessmentID}/history", h.handleHistory)
		r.Get("/{assessmentID}/urgency", h.handleUrgency)
		r.Post("/{assessmentID}/submit", h.handleSubmit)
		r.With(middleware.RequireRole(auth.RoleHR, auth.RoleManager)).Post("/{assessmentID}/approve", h.handleApprove)
		r.With(middleware.RequireRole(auth.RoleHR, auth.RoleManager)).Post("/{assessmentID}/reject", h.handleReject)
	})
}

type assignRequest struct {
	EmployeeID     string `json:"employeeId"`
	AssessorID     string `json:"assessorId"`
	CompetencyID   string `json:"competencyId"`
	CycleID        string `json:"cycleId"`
	AssessmentType string `json:"assessmentType"`
}

type transitionRequest struct {
	ExpectedStatus   string `json:"expectedStatus"`
	Rating           *int   `json:"rating"`
	Comments         string `json:"comments"`
	DevelopmentNotes string `json:"developmentNotes"`
	Reason           string `json:"reason"`
}

type urgencyResponse struct {
	AssessmentID string                `json:"assessmentId"`
	Status       assessment.Status     `json:"status"`
	CycleID      string                `json:"cycleId,omitempty"`
	Evaluation   escalation.Evaluation `json:"evaluation"`
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var payload assignRequest
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "employee is required")
	v.Required("assessorId", payload.AssessorID, "assessor is required")
	v.Required("competencyId", payload.CompetencyID, "competency is required")
	v.Required("assessmentType", payload.AssessmentType, "assessment type is required")
	shared.OneOf(v, "assessmentType", payload.AssessmentType, []assessment.Type{assessment.TypeSelf, assessment.TypeManager, assessment.TypePeer}, "assessment type must be self, manager or peer")
	if v.Reject(w, requestID) {
		return
	}

	created, err := h.Service.Assign(r.Context(), user.TenantID, user.UserID, assessment.AssignInput{
		EmployeeID:   payload.EmployeeID,
		AssessorID:   payload.AssessorID,
		CompetencyID: payload.CompetencyID,
		CycleID:      payload.CycleID,
		Type:         assessment.Type(payload.AssessmentType),
	})
	if err != nil {
		shared.FailError(w, err, requestID)
		return
	}
	api.Created(w, created, requestID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	a, err := h.Service.Get(r.Context(), user.TenantID, chi.URLParam(r, "assessmentID"))
	if err != nil {
		shared.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, a, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	assessmentID := chi.URLParam(r, "assessmentID")
	if _, err := h.Service.Get(r.Context(), user.TenantID, assessmentID); err != nil {
		shared.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	entries, err := h.Service.History(r.Context(), user.TenantID, assessmentID)
	if err != nil {
		shared.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if entries == nil {
		entries = []assessment.HistoryEntry{}
	}
	api.Success(w, entries, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUrgency(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	snap, err := h.Service.Snapshot(r.Context(), user.TenantID, chi.URLParam(r, "assessmentID"))
	if err != nil {
		shared.FailError(w, err, requestID)
		return
	}
	var c *cycle.Cycle
	if snap.Dated() {
		found, err := h.Cycles.Get(r.Context(), user.TenantID, snap.CycleID)
		switch {
		case err == nil:
			c = &found
		case !errors.Is(err, cycle.ErrNotFound):
			shared.FailError(w, err, requestID)
			return
		}
	}

	api.Success(w, urgencyResponse{
		AssessmentID: snap.ID,
		Status:       snap.Status,
		CycleID:      snap.CycleID,
		Evaluation:   h.Escalation.Evaluate(snap, c, h.Clock()),
	}, requestID)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, assessment.ActionSubmit)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, assessment.ActionApprove)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, assessment.ActionReject)
}

// transition runs one lifecycle action. A missing expectedStatus lets the
// service use the status it reads as the precondition.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, action assessment.Action) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var payload transitionRequest
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	v := shared.NewValidator()
	shared.OneOf(v, "expectedStatus", payload.ExpectedStatus, assessment.Statuses, "unknown assessment status")
	switch action {
	case assessment.ActionSubmit:
		v.Rating("rating", payload.Rating)
	case assessment.ActionReject:
		v.Required("reason", payload.Reason, "rejection reason is required")
	case assessment.ActionApprove:
	}
	if v.Reject(w, requestID) {
		return
	}

	updated, err := h.Service.Transition(r.Context(), assessment.TransitionRequest{
		TenantID:     user.TenantID,
		ActorID:      user.UserID,
		AssessmentID: chi.URLParam(r, "assessmentID"),
		Action:       action,
		Expected:     assessment.Status(payload.ExpectedStatus),
		Submission: assessment.Submission{
			Rating:           payload.Rating,
			Comments:         payload.Comments,
			DevelopmentNotes: payload.DevelopmentNotes,
		},
		Reason: payload.Reason,
	})
	if err != nil {
		shared.FailError(w, err, requestID)
		return
	}
	api.Success(w, updated, requestID)
}
