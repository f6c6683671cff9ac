package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splitview/internal/api"
	"splitview/internal/core"
	"splitview/internal/log"
	"splitview/internal/services"
	"splitview/internal/settings"
)

type stubViews struct {
	dashboard    services.DashboardView
	dashboardErr error
	detail       services.GroupDetailView
	detailErr    error
	users        services.UsersView
	usersErr     error

	invalidated     []int64
	listInvalidates int
	userInvalidates int
	allInvalidates  int
}

func (s *stubViews) Dashboard(context.Context) (services.DashboardView, error) {
	return s.dashboard, s.dashboardErr
}

func (s *stubViews) Activity(context.Context) (services.ActivityView, error) {
	return services.ActivityView{Currency: "INR"}, nil
}

func (s *stubViews) GroupDetail(_ context.Context, groupID int64) (services.GroupDetailView, error) {
	return s.detail, s.detailErr
}

func (s *stubViews) Users(context.Context) (services.UsersView, error) {
	return s.users, s.usersErr
}

func (s *stubViews) Invalidate(groupID int64) {
	s.invalidated = append(s.invalidated, groupID)
}

func (s *stubViews) InvalidateLists() {
	s.listInvalidates++
}

func (s *stubViews) InvalidateUsers() {
	s.userInvalidates++
}

func (s *stubViews) InvalidateAll() {
	s.allInvalidates++
}

type stubLedger struct {
	submitErr error
	lastInput services.ExpenseInput
}

func (s *stubLedger) SubmitExpense(_ context.Context, in services.ExpenseInput) (core.Activity, error) {
	s.lastInput = in
	if s.submitErr != nil {
		return core.Activity{}, s.submitErr
	}
	return core.Activity{ID: 42, GroupID: in.GroupID, PayerID: in.PayerID}, nil
}

func (s *stubLedger) CreateGroup(_ context.Context, name, description string) (core.Group, error) {
	if strings.TrimSpace(name) == "" {
		return core.Group{}, core.ErrEmptyName
	}
	return core.Group{ID: 7, Name: name, Description: description}, nil
}

func (s *stubLedger) CreateUser(_ context.Context, name, email string) (core.User, error) {
	if !strings.Contains(email, "@") {
		return core.User{}, core.ErrInvalidEmail
	}
	return core.User{ID: 9, Name: name, Email: email}, nil
}

type stubPrefs struct {
	values map[string]string
}

func newStubPrefs() *stubPrefs {
	return &stubPrefs{values: map[string]string{
		settings.KeyCurrency:  "INR",
		settings.KeyUserName:  "Current User",
		settings.KeyUserEmail: "user@example.com",
	}}
}

func (s *stubPrefs) Get(_ context.Context, key string) (string, error) {
	v, ok := s.values[key]
	if !ok {
		return "", settings.ErrUnknownKey
	}
	return v, nil
}

func (s *stubPrefs) Set(_ context.Context, key, value string) error {
	if _, ok := s.values[key]; !ok {
		return settings.ErrUnknownKey
	}
	s.values[key] = value
	return nil
}

func testServer(views *stubViews, ledger *stubLedger, prefs *stubPrefs) *Server {
	logger := log.New(log.Config{Component: "test"})
	return New(Config{Port: "0"}, views, ledger, prefs, logger)
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var env APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestHealthz(t *testing.T) {
	srv := testServer(&stubViews{}, &stubLedger{}, newStubPrefs())
	rec := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeEnvelope(t, rec).Success)
}

func TestDashboard(t *testing.T) {
	views := &stubViews{dashboard: services.DashboardView{
		Currency:          "INR",
		TotalSpend:        1750,
		TotalSpendDisplay: "₹17.50",
	}}
	srv := testServer(views, &stubLedger{}, newStubPrefs())

	rec := do(t, srv, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	data, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var view services.DashboardView
	require.NoError(t, json.Unmarshal(data, &view))
	assert.Equal(t, int64(1750), view.TotalSpend)
	assert.Equal(t, "₹17.50", view.TotalSpendDisplay)
}

func TestDashboardLoadFailure(t *testing.T) {
	views := &stubViews{dashboardErr: api.ErrLoad}
	srv := testServer(views, &stubLedger{}, newStubPrefs())

	rec := do(t, srv, http.MethodGet, "/api/dashboard", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "LOAD_FAILED", env.Error.Code)
}

func TestGroupDetailNotFound(t *testing.T) {
	views := &stubViews{detailErr: api.ErrNotFound}
	srv := testServer(views, &stubLedger{}, newStubPrefs())

	rec := do(t, srv, http.MethodGet, "/api/groups/5", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeEnvelope(t, rec).Error.Code)
}

func TestGroupDetailBadID(t *testing.T) {
	srv := testServer(&stubViews{}, &stubLedger{}, newStubPrefs())

	for _, path := range []string{"/api/groups/abc", "/api/groups/-1", "/api/groups/0"} {
		rec := do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, "INVALID_GROUP_ID", decodeEnvelope(t, rec).Error.Code, path)
	}
}

func TestSubmitExpense(t *testing.T) {
	views := &stubViews{}
	ledger := &stubLedger{}
	srv := testServer(views, ledger, newStubPrefs())

	body := `{
		"payer_id": 1,
		"amount": "10.00",
		"description": "dinner",
		"split_type": "EQUAL",
		"participants": [1, 2, 3]
	}`
	rec := do(t, srv, http.MethodPost, "/api/groups/7/expenses", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, int64(7), ledger.lastInput.GroupID)
	assert.Equal(t, core.PolicyEqual, ledger.lastInput.Policy)
	assert.Equal(t, []int64{1, 2, 3}, ledger.lastInput.Participants)
	assert.Equal(t, []int64{7}, views.invalidated)
}

func TestSubmitExpenseCustom(t *testing.T) {
	ledger := &stubLedger{}
	srv := testServer(&stubViews{}, ledger, newStubPrefs())

	body := `{
		"payer_id": 1,
		"amount": "5.00",
		"description": "snacks",
		"split_type": "CUSTOM",
		"splits": [{"user_id": 1, "amount": "3.00"}, {"user_id": 2, "amount": "2.00"}]
	}`
	rec := do(t, srv, http.MethodPost, "/api/groups/7/expenses", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Len(t, ledger.lastInput.Entries, 2)
	assert.Equal(t, core.CustomEntry{UserID: 2, Amount: "2.00"}, ledger.lastInput.Entries[1])
}

func TestSubmitExpenseValidationCodes(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"mismatch", core.ErrSplitMismatch, "SPLIT_MISMATCH"},
		{"no participants", core.ErrNoParticipants, "NO_PARTICIPANTS"},
		{"bad amount", core.ErrParseAmount, "PARSE_ERROR"},
		{"zero amount", core.ErrInvalidAmount, "INVALID_AMOUNT"},
		{"empty description", core.ErrEmptyDescription, "EMPTY_DESCRIPTION"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			views := &stubViews{}
			srv := testServer(views, &stubLedger{submitErr: tc.err}, newStubPrefs())

			body := `{"payer_id": 1, "amount": "1.00", "description": "x"}`
			rec := do(t, srv, http.MethodPost, "/api/groups/7/expenses", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.wantCode, decodeEnvelope(t, rec).Error.Code)
			assert.Empty(t, views.invalidated, "failed submit must not invalidate views")
		})
	}
}

func TestSubmitExpenseBackendFailure(t *testing.T) {
	srv := testServer(&stubViews{}, &stubLedger{submitErr: api.ErrSubmit}, newStubPrefs())

	body := `{"payer_id": 1, "amount": "1.00", "description": "x"}`
	rec := do(t, srv, http.MethodPost, "/api/groups/7/expenses", body)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "SUBMIT_FAILED", decodeEnvelope(t, rec).Error.Code)
}

func TestSubmitExpenseInvalidBody(t *testing.T) {
	srv := testServer(&stubViews{}, &stubLedger{}, newStubPrefs())

	rec := do(t, srv, http.MethodPost, "/api/groups/7/expenses", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_BODY", decodeEnvelope(t, rec).Error.Code)
}

func TestCreateGroup(t *testing.T) {
	views := &stubViews{}
	srv := testServer(views, &stubLedger{}, newStubPrefs())

	rec := do(t, srv, http.MethodPost, "/api/groups", `{"name": "Trip", "description": "beach"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, views.listInvalidates)

	rec = do(t, srv, http.MethodPost, "/api/groups", `{"name": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "EMPTY_NAME", decodeEnvelope(t, rec).Error.Code)
}

func TestListUsers(t *testing.T) {
	views := &stubViews{users: services.UsersView{
		Users:            []core.User{{ID: 1, Name: "Asha", Email: "asha@example.com"}},
		CurrentUserName:  "Current User",
		CurrentUserEmail: "user@example.com",
	}}
	srv := testServer(views, &stubLedger{}, newStubPrefs())

	rec := do(t, srv, http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	data, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var view services.UsersView
	require.NoError(t, json.Unmarshal(data, &view))
	require.Len(t, view.Users, 1)
	assert.Equal(t, "Asha", view.Users[0].Name)
	assert.Equal(t, "Current User", view.CurrentUserName)
}

func TestListUsersLoadFailure(t *testing.T) {
	views := &stubViews{usersErr: api.ErrLoad}
	srv := testServer(views, &stubLedger{}, newStubPrefs())

	rec := do(t, srv, http.MethodGet, "/api/users", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "LOAD_FAILED", decodeEnvelope(t, rec).Error.Code)
}

func TestCreateUser(t *testing.T) {
	srv := testServer(&stubViews{}, &stubLedger{}, newStubPrefs())

	rec := do(t, srv, http.MethodPost, "/api/users", `{"name": "Asha", "email": "asha@example.com"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/users", `{"name": "Asha", "email": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_EMAIL", decodeEnvelope(t, rec).Error.Code)
}

func TestSettingsRoundTrip(t *testing.T) {
	views := &stubViews{}
	prefs := newStubPrefs()
	srv := testServer(views, &stubLedger{}, prefs)

	rec := do(t, srv, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	data, _ := json.Marshal(env.Data)
	var got settingsResponse
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "INR", got.Currency)
	assert.Equal(t, "Current User", got.UserName)

	rec = do(t, srv, http.MethodPut, "/api/settings", `{"currency": "USD"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "USD", prefs.values[settings.KeyCurrency])
	assert.Equal(t, "Current User", prefs.values[settings.KeyUserName], "absent fields stay untouched")
	assert.Equal(t, 1, views.allInvalidates, "currency change drops every cached view, group details included")
	assert.Zero(t, views.listInvalidates)

	rec = do(t, srv, http.MethodPut, "/api/settings", `{"user_name": "Asha"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Asha", prefs.values[settings.KeyUserName])
	assert.Equal(t, 1, views.allInvalidates, "name change does not drop the display views")
	assert.Equal(t, 1, views.userInvalidates, "name change drops only the users view")
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(3)
	defer rl.shutdown()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.allow("10.0.0.1:1234"))
	}
	assert.False(t, rl.allow("10.0.0.1:1234"))
	assert.True(t, rl.allow("10.0.0.2:1234"), "limits are per client")

	rl.cleanStale()
	assert.False(t, rl.allow("10.0.0.1:1234"), "cleanStale keeps live windows")
}

func TestRateLimiterCleanupEvictsStaleWindows(t *testing.T) {
	rl := newRateLimiter(3)
	defer rl.shutdown()

	rl.allow("10.0.0.1:1234")
	rl.mu.Lock()
	rl.clients["10.0.0.1:1234"].windowStart = time.Now().Add(-2 * time.Minute)
	rl.mu.Unlock()

	rl.cleanStale()

	rl.mu.Lock()
	_, ok := rl.clients["10.0.0.1:1234"]
	rl.mu.Unlock()
	assert.False(t, ok, "stale window must be evicted")

	assert.True(t, rl.allow("10.0.0.1:1234"), "evicted client starts a fresh window")
}

func TestRateLimiterShutdownIsIdempotent(t *testing.T) {
	rl := newRateLimiter(3)
	rl.shutdown()
	rl.shutdown()
}

func TestServerShutdownStopsLimiter(t *testing.T) {
	logger := log.New(log.Config{Component: "test"})
	srv := New(Config{Port: "0", RequestsPerMinute: 10}, &stubViews{}, &stubLedger{}, newStubPrefs(), logger)
	require.NotNil(t, srv.limiter)

	require.NoError(t, srv.Shutdown(context.Background()))
	select {
	case <-srv.limiter.stopCleanup:
	default:
		t.Fatal("cleanup goroutine not signaled to stop")
	}
	require.NoError(t, srv.Shutdown(context.Background()), "second shutdown must not panic")
}
