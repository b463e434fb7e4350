package notificationshandler

import (
	"context"
	"log/slog"
	"net/http"
	"net/mail"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"competency/internal/domain/notifications"
	"competency/internal/platform/auth"
	"competency/internal/transport/http/api"
	"competency/internal/transport/http/middleware"
	"competency/internal/transport/http/shared"
)

// Inbox is the slice of notifications.Service the handler serves.
type Inbox interface {
	List(ctx context.Context, tenantID, userID string, limit, offset int) ([]notifications.Notification, error)
	Count(ctx context.Context, tenantID, userID string) (int, error)
	MarkRead(ctx context.Context, tenantID, userID, notificationID string) error
	GetSettings(ctx context.Context, tenantID string) (bool, string, error)
	UpdateSettings(ctx context.Context, tenantID string, enabled bool, from string) error
}

type Handler struct {
	Inbox    Inbox
	Failures notifications.FailureReader
}

func NewHandler(inbox Inbox, failures notifications.FailureReader) *Handler {
	return &Handler{Inbox: inbox, Failures: failures}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/{notificationID}/read", h.handleMarkRead)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleHR))
			r.Get("/settings", h.handleSettings)
			r.Put("/settings", h.handleUpdateSettings)
			r.Get("/failures", h.handleFailures)
		})
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	page := shared.ParsePagination(r, 100, 500)
	total, err := h.Inbox.Count(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		slog.Warn("notification count failed", "err", err)
	}

	items, err := h.Inbox.List(r.Context(), user.TenantID, user.UserID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "notification_list_failed", "failed to list notifications", requestID)
		return
	}
	if items == nil {
		items = []notifications.Notification{}
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, items, requestID)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	notificationID := chi.URLParam(r, "notificationID")
	if err := h.Inbox.MarkRead(r.Context(), user.TenantID, user.UserID, notificationID); err != nil {
		api.Fail(w, http.StatusInternalServerError, "notification_update_failed", "failed to update notification", middleware.GetRequestID(r.Context()))
		return
	}

	api.Success(w, map[string]string{"status": "read"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	enabled, from, err := h.Inbox.GetSettings(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "settings_failed", "failed to load settings", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"emailEnabled": enabled, "emailFrom": from}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var payload struct {
		EmailEnabled bool   `json:"emailEnabled"`
		EmailFrom    string `json:"emailFrom"`
	}
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	payload.EmailFrom = strings.TrimSpace(payload.EmailFrom)
	if payload.EmailFrom != "" {
		if _, err := mail.ParseAddress(payload.EmailFrom); err != nil {
			shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "emailFrom", Reason: "must be a valid email address"}})
			return
		}
	}

	if err := h.Inbox.UpdateSettings(r.Context(), user.TenantID, payload.EmailEnabled, payload.EmailFrom); err != nil {
		api.Fail(w, http.StatusInternalServerError, "settings_failed", "failed to update settings", requestID)
		return
	}
	api.Success(w, map[string]string{"status": "updated"}, requestID)
}

func (h *Handler) handleFailures(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	page := shared.ParsePagination(r, 50, 200)
	failures, err := h.Failures.ListFailures(r.Context(), user.TenantID, page.Limit, page.Offset)
	if err != nil {
		shared.FailError(w, err, requestID)
		return
	}
	api.Success(w, failures, requestID)
}
