package notificationshandler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"competency/internal/domain/notifications"
	"competency/internal/platform/auth"
	"competency/internal/transport/http/middleware"
)

type fakeInbox struct {
	items    []notifications.Notification
	read     []string
	enabled  bool
	from     string
	updateOK bool
}

func (f *fakeInbox) List(_ context.Context, _, _ string, limit, offset int) ([]notifications.Notification, error) {
	if offset >= len(f.items) {
		return nil, nil
	}
	end := min(offset+limit, len(f.items))
	return f.items[offset:end], nil
}

func (f *fakeInbox) Count(context.Context, string, string) (int, error) {
	return len(f.items), nil
}

func (f *fakeInbox) MarkRead(_ context.Context, _, _, notificationID string) error {
	f.read = append(f.read, notificationID)
	return nil
}

func (f *fakeInbox) GetSettings(context.Context, string) (bool, string, error) {
	return f.enabled, f.from, nil
}

func (f *fakeInbox) UpdateSettings(_ context.Context, _ string, enabled bool, from string) error {
	f.enabled, f.from, f.updateOK = enabled, from, true
	return nil
}

func serve(h *Handler, method, path, role, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireUser)
		h.RegisterRoutes(r)
	})
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req = req.WithContext(middleware.WithUser(req.Context(), auth.UserContext{UserID: "u1", TenantID: "t1", RoleName: role}))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestListPaginates(t *testing.T) {
	inbox := &fakeInbox{}
	for i := 0; i < 5; i++ {
		inbox.items = append(inbox.items, notifications.Notification{ID: fmt.Sprintf("n%d", i), CreatedAt: time.Now()})
	}
	rec := serve(NewHandler(inbox, &notifications.MemoryFailureLog{}), http.MethodGet, "/api/v1/notifications?limit=2&offset=1", auth.RoleEmployee, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("X-Total-Count"))

	var env struct {
		Data []notifications.Notification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Len(t, env.Data, 2)
	assert.Equal(t, "n1", env.Data[0].ID)
}

func TestMarkRead(t *testing.T) {
	inbox := &fakeInbox{}
	rec := serve(NewHandler(inbox, nil), http.MethodPost, "/api/v1/notifications/n7/read", auth.RoleEmployee, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"n7"}, inbox.read)
}

func TestSettingsRequireHR(t *testing.T) {
	inbox := &fakeInbox{}
	h := NewHandler(inbox, nil)

	rec := serve(h, http.MethodPut, "/api/v1/notifications/settings", auth.RoleManager, `{"emailEnabled":true}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, inbox.updateOK)

	rec = serve(h, http.MethodPut, "/api/v1/notifications/settings", auth.RoleHR, `{"emailEnabled":true,"emailFrom":"not-an-address"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, http.MethodPut, "/api/v1/notifications/settings", auth.RoleHR, `{"emailEnabled":true,"emailFrom":"hr@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, inbox.enabled)
	assert.Equal(t, "hr@example.com", inbox.from)
}

func TestFailuresListNewestFirst(t *testing.T) {
	failures := &notifications.MemoryFailureLog{}
	ctx := context.Background()
	require.NoError(t, failures.RecordFailure(ctx, notifications.Failure{TenantID: "t1", IntentID: "i1", Attempts: 3, LastError: "smtp down"}))
	require.NoError(t, failures.RecordFailure(ctx, notifications.Failure{TenantID: "other", IntentID: "x"}))
	require.NoError(t, failures.RecordFailure(ctx, notifications.Failure{TenantID: "t1", IntentID: "i2", Attempts: 3, LastError: "smtp down"}))

	rec := serve(NewHandler(&fakeInbox{}, failures), http.MethodGet, "/api/v1/notifications/failures", auth.RoleHR, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var env struct {
		Data []notifications.Failure `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Len(t, env.Data, 2)
	assert.Equal(t, "i2", env.Data[0].IntentID)
	assert.Equal(t, "i1", env.Data[1].IntentID)
}
