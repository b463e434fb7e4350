package remindershandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"competency/internal/domain/reminders"
	"competency/internal/platform/auth"
	"competency/internal/transport/http/middleware"
)

type stubRunner struct {
	tenant string
	at     time.Time
	err    error
}

func (s *stubRunner) RunReminders(_ context.Context, tenantID string, at time.Time) (reminders.Report, error) {
	s.tenant = tenantID
	s.at = at
	return reminders.Report{TenantID: tenantID, Evaluated: 2, Outcomes: map[string]int{"sent": 1}}, s.err
}

func serve(runner Runner, role, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	NewHandler(runner, time.UTC).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/reminders/run", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req = req.WithContext(middleware.WithUser(req.Context(), auth.UserContext{UserID: "u1", TenantID: "t1", RoleName: role}))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRunForDate(t *testing.T) {
	runner := &stubRunner{}
	rec := serve(runner, auth.RoleHR, `{"at":"2024-06-20"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t1", runner.tenant)
	assert.Equal(t, time.Date(2024, time.June, 20, 0, 0, 0, 0, time.UTC), runner.at)

	var env struct {
		Data reminders.Report `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, 1, env.Data.Outcomes["sent"])
}

func TestRunWithoutBodyUsesNow(t *testing.T) {
	runner := &stubRunner{}
	rec := serve(runner, auth.RoleHR, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, runner.at.IsZero())
}

func TestRunRequiresHR(t *testing.T) {
	rec := serve(&stubRunner{}, auth.RoleManager, `{}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRunRejectsBadDate(t *testing.T) {
	rec := serve(&stubRunner{}, auth.RoleHR, `{"at":"soon"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunSurfacesTimeout(t *testing.T) {
	rec := serve(&stubRunner{err: context.DeadlineExceeded}, auth.RoleHR, `{}`)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)

	rec = serve(&stubRunner{err: errors.New("cycles unavailable")}, auth.RoleHR, `{}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
