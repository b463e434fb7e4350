package cycleshandler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"competency/internal/domain/assessment"
	"competency/internal/domain/cycle"
	"competency/internal/transport/http/api"
	"competency/internal/transport/http/middleware"
	"competency/internal/transport/http/shared"
)

type Assessments interface {
	ListByCycle(ctx context.Context, tenantID, cycleID string) ([]assessment.Snapshot, error)
}

type Handler struct {
	Cycles      cycle.StoreAPI
	Assessments Assessments
	Location    *time.Location
	Clock       func() time.Time
}

func NewHandler(cycles cycle.StoreAPI, assessments Assessments, loc *time.Location) *Handler {
	return &Handler{Cycles: cycles, Assessments: assessments, Location: loc, Clock: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/cycles", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/{cycleID}/summary", h.handleSummary)
	})
}

type cycleView struct {
	cycle.Cycle
	Status cycle.Status `json:"status"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	cycles, err := h.Cycles.List(r.Context(), user.TenantID)
	if err != nil {
		shared.FailError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	now := h.Clock()
	out := make([]cycleView, 0, len(cycles))
	for _, c := range cycles {
		out = append(out, cycleView{Cycle: c, Status: c.StatusAt(now, h.Location)})
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	c, err := h.Cycles.Get(r.Context(), user.TenantID, chi.URLParam(r, "cycleID"))
	if err != nil {
		shared.FailError(w, err, requestID)
		return
	}
	snaps, err := h.Assessments.ListByCycle(r.Context(), user.TenantID, c.ID)
	if err != nil {
		shared.FailError(w, err, requestID)
		return
	}
	api.Success(w, cycle.Summarize(c, snaps, h.Clock(), h.Location), requestID)
}
