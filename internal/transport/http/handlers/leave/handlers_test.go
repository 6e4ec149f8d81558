package leavehandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"leavedesk/internal/domain/auth"
	"leavedesk/internal/domain/calendar"
	"leavedesk/internal/domain/leave"
	"leavedesk/internal/domain/user"
	"leavedesk/internal/transport/http/middleware"
)

const testSecret = "handler-test-secret"

type fakeLeaveStore struct {
	nextID int64
	leaves map[int64]leave.LeaveRequest
}

func newFakeLeaveStore() *fakeLeaveStore {
	return &fakeLeaveStore{nextID: 1, leaves: map[int64]leave.LeaveRequest{}}
}

func (f *fakeLeaveStore) Create(_ context.Context, userID int64, fields leave.Fields) (int64, error) {
	id := f.nextID
	f.nextID++
	f.leaves[id] = leave.LeaveRequest{
		ID:        id,
		UserID:    userID,
		StartDate: fields.StartDate,
		EndDate:   fields.EndDate,
		LeaveType: fields.LeaveType,
		Reason:    fields.Reason,
		IsHalfDay: fields.IsHalfDay,
		Period:    fields.Period,
		Status:    leave.StatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	return id, nil
}

func (f *fakeLeaveStore) Get(_ context.Context, id int64) (leave.LeaveRequest, error) {
	lv, ok := f.leaves[id]
	if !ok {
		return leave.LeaveRequest{}, leave.ErrNotFound
	}
	return lv, nil
}

func (f *fakeLeaveStore) ListAll(_ context.Context) ([]leave.LeaveRequest, error) {
	out := make([]leave.LeaveRequest, 0, len(f.leaves))
	for _, lv := range f.leaves {
		out = append(out, lv)
	}
	return out, nil
}

func (f *fakeLeaveStore) ListByUser(_ context.Context, userID int64) ([]leave.LeaveRequest, error) {
	var out []leave.LeaveRequest
	for _, lv := range f.leaves {
		if lv.UserID == userID {
			out = append(out, lv)
		}
	}
	return out, nil
}

func (f *fakeLeaveStore) Update(_ context.Context, id int64, fields leave.Fields) error {
	lv, ok := f.leaves[id]
	if !ok {
		return leave.ErrNotFound
	}
	lv.StartDate = fields.StartDate
	lv.EndDate = fields.EndDate
	lv.LeaveType = fields.LeaveType
	lv.Reason = fields.Reason
	lv.IsHalfDay = fields.IsHalfDay
	lv.Period = fields.Period
	lv.UpdatedAt = time.Now()
	f.leaves[id] = lv
	return nil
}

func (f *fakeLeaveStore) SetStatus(_ context.Context, id int64, status string, approverID int64) error {
	lv, ok := f.leaves[id]
	if !ok {
		return leave.ErrNotFound
	}
	lv.Status = status
	lv.ApprovedByID = &approverID
	f.leaves[id] = lv
	return nil
}

func (f *fakeLeaveStore) MarkSlackNotified(_ context.Context, id int64) error {
	lv, ok := f.leaves[id]
	if !ok {
		return leave.ErrNotFound
	}
	lv.SlackNotificationSent = true
	f.leaves[id] = lv
	return nil
}

func (f *fakeLeaveStore) Delete(_ context.Context, id int64) error {
	if _, ok := f.leaves[id]; !ok {
		return leave.ErrNotFound
	}
	delete(f.leaves, id)
	return nil
}

type fakeUserStore struct {
	users map[int64]user.User
}

func (f *fakeUserStore) List(_ context.Context) ([]user.User, error) { return nil, nil }

func (f *fakeUserStore) Get(_ context.Context, id int64) (user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) CredentialsByEmail(_ context.Context, _ string) (user.User, string, error) {
	return user.User{}, "", user.ErrNotFound
}

func (f *fakeUserStore) Create(_ context.Context, _ user.CreateInput, _ string) (int64, error) {
	return 0, nil
}

func (f *fakeUserStore) Update(_ context.Context, _ int64, _ user.UpdateInput, _ string) error {
	return nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, _ int64, _ string) error {
	return nil
}

func (f *fakeUserStore) Delete(_ context.Context, _ int64) error    { return nil }
func (f *fakeUserStore) CountAdmins(_ context.Context) (int, error) { return 1, nil }

// recordingSyncer notes, for every cleanup call, whether the leave row was
// still present in the store at that moment.
type recordingSyncer struct {
	store       *fakeLeaveStore
	deleteCalls []int64
	rowPresent  []bool
}

func (r *recordingSyncer) SyncLeave(_ context.Context, _ leave.LeaveRequest, _ string) calendar.SyncResult {
	return calendar.SyncResult{}
}

func (r *recordingSyncer) DeleteLeaveEvents(_ context.Context, leaveID int64) calendar.SyncResult {
	r.deleteCalls = append(r.deleteCalls, leaveID)
	_, present := r.store.leaves[leaveID]
	r.rowPresent = append(r.rowPresent, present)
	return calendar.SyncResult{Synced: 1}
}

func newTestRouter(t *testing.T, store *fakeLeaveStore) chi.Router {
	t.Helper()
	return newTestRouterWithSyncer(t, store, nil)
}

func newTestRouterWithSyncer(t *testing.T, store *fakeLeaveStore, syncer Syncer) chi.Router {
	t.Helper()
	users := user.NewService(&fakeUserStore{users: map[int64]user.User{
		1: {ID: 1, Name: "Alice Admin", Role: auth.RoleAdmin},
		2: {ID: 2, Name: "Bob Employee", Role: auth.RoleEmployee},
	}})
	handler := NewHandler(leave.NewService(store), users, nil, syncer)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(testSecret))
		handler.RegisterRoutes(r)
	})
	return r
}

func tokenFor(t *testing.T, id int64, role string) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, auth.Claims{UserID: id, Email: "x@example.com", Role: role}, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func doRequest(t *testing.T, r chi.Router, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateLeave(t *testing.T) {
	store := newFakeLeaveStore()
	r := newTestRouter(t, store)
	token := tokenFor(t, 2, auth.RoleEmployee)

	rec := doRequest(t, r, http.MethodPost, "/leaves", token, map[string]any{
		"startDate": "2026-09-01",
		"endDate":   "2026-09-03",
		"leaveType": "Annual",
		"reason":    "family trip",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			Leave leave.LeaveRequest `json:"leave"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Success {
		t.Fatal("expected success envelope")
	}
	if envelope.Data.Leave.Status != leave.StatusPending {
		t.Fatalf("expected pending status, got %q", envelope.Data.Leave.Status)
	}
	if envelope.Data.Leave.UserID != 2 {
		t.Fatalf("expected owner 2, got %d", envelope.Data.Leave.UserID)
	}
}

func TestCreateLeaveRejectsInvertedRange(t *testing.T) {
	store := newFakeLeaveStore()
	r := newTestRouter(t, store)
	token := tokenFor(t, 2, auth.RoleEmployee)

	rec := doRequest(t, r, http.MethodPost, "/leaves", token, map[string]any{
		"startDate": "2026-09-05",
		"endDate":   "2026-09-01",
		"leaveType": "Annual",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(store.leaves) != 0 {
		t.Fatal("no leave should have been stored")
	}
}

func TestCreateLeaveRejectsHalfDayWithoutPeriod(t *testing.T) {
	store := newFakeLeaveStore()
	r := newTestRouter(t, store)
	token := tokenFor(t, 2, auth.RoleEmployee)

	rec := doRequest(t, r, http.MethodPost, "/leaves", token, map[string]any{
		"startDate": "2026-09-01",
		"endDate":   "2026-09-01",
		"leaveType": "Annual",
		"isHalfDay": true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGetLeaveOwnership(t *testing.T) {
	store := newFakeLeaveStore()
	r := newTestRouter(t, store)
	owner := tokenFor(t, 2, auth.RoleEmployee)
	stranger := tokenFor(t, 3, auth.RoleEmployee)
	admin := tokenFor(t, 1, auth.RoleAdmin)

	rec := doRequest(t, r, http.MethodPost, "/leaves", owner, map[string]any{
		"startDate": "2026-09-01",
		"endDate":   "2026-09-02",
		"leaveType": "Annual",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("setup create failed: %d", rec.Code)
	}

	if rec := doRequest(t, r, http.MethodGet, "/leaves/1", owner, nil); rec.Code != http.StatusOK {
		t.Fatalf("owner read: expected 200, got %d", rec.Code)
	}
	if rec := doRequest(t, r, http.MethodGet, "/leaves/1", stranger, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("stranger read: expected 403, got %d", rec.Code)
	}
	if rec := doRequest(t, r, http.MethodGet, "/leaves/1", admin, nil); rec.Code != http.StatusOK {
		t.Fatalf("admin read: expected 200, got %d", rec.Code)
	}
	if rec := doRequest(t, r, http.MethodGet, "/leaves/99", owner, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing read: expected 404, got %d", rec.Code)
	}
}

func TestApproveLeave(t *testing.T) {
	store := newFakeLeaveStore()
	r := newTestRouter(t, store)
	owner := tokenFor(t, 2, auth.RoleEmployee)
	admin := tokenFor(t, 1, auth.RoleAdmin)

	doRequest(t, r, http.MethodPost, "/leaves", owner, map[string]any{
		"startDate": "2026-09-01",
		"endDate":   "2026-09-02",
		"leaveType": "Annual",
	})

	if rec := doRequest(t, r, http.MethodPost, "/leaves/1/approve", owner, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("employee approve: expected 403, got %d", rec.Code)
	}

	rec := doRequest(t, r, http.MethodPost, "/leaves/1/approve", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin approve: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	lv := store.leaves[1]
	if lv.Status != leave.StatusApproved {
		t.Fatalf("expected approved, got %q", lv.Status)
	}
	if lv.ApprovedByID == nil || *lv.ApprovedByID != 1 {
		t.Fatal("expected approver id 1 recorded")
	}
}

func TestDeleteLeave(t *testing.T) {
	store := newFakeLeaveStore()
	r := newTestRouter(t, store)
	owner := tokenFor(t, 2, auth.RoleEmployee)

	doRequest(t, r, http.MethodPost, "/leaves", owner, map[string]any{
		"startDate": "2026-09-01",
		"endDate":   "2026-09-02",
		"leaveType": "Annual",
	})

	rec := doRequest(t, r, http.MethodDelete, "/leaves/1", owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(store.leaves) != 0 {
		t.Fatal("leave should be gone")
	}
}

func TestDeleteLeaveCleansCalendarBeforeRowDelete(t *testing.T) {
	store := newFakeLeaveStore()
	syncer := &recordingSyncer{store: store}
	r := newTestRouterWithSyncer(t, store, syncer)
	owner := tokenFor(t, 2, auth.RoleEmployee)

	doRequest(t, r, http.MethodPost, "/leaves", owner, map[string]any{
		"startDate": "2026-09-01",
		"endDate":   "2026-09-02",
		"leaveType": "Annual",
	})

	rec := doRequest(t, r, http.MethodDelete, "/leaves/1", owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(syncer.deleteCalls) != 1 || syncer.deleteCalls[0] != 1 {
		t.Fatalf("expected one cleanup call for leave 1, got %v", syncer.deleteCalls)
	}
	// The leave row must still exist when the remote cleanup runs; deleting
	// it first would cascade the event mappings away.
	if !syncer.rowPresent[0] {
		t.Fatal("cleanup ran after the leave row was deleted")
	}
	if len(store.leaves) != 0 {
		t.Fatal("leave should be gone afterwards")
	}
}

func TestDeleteLeaveByStrangerSkipsCleanup(t *testing.T) {
	store := newFakeLeaveStore()
	syncer := &recordingSyncer{store: store}
	r := newTestRouterWithSyncer(t, store, syncer)
	owner := tokenFor(t, 2, auth.RoleEmployee)
	stranger := tokenFor(t, 3, auth.RoleEmployee)

	doRequest(t, r, http.MethodPost, "/leaves", owner, map[string]any{
		"startDate": "2026-09-01",
		"endDate":   "2026-09-02",
		"leaveType": "Annual",
	})

	rec := doRequest(t, r, http.MethodDelete, "/leaves/1", stranger, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if len(syncer.deleteCalls) != 0 {
		t.Fatal("cleanup must not run for a forbidden delete")
	}
	if len(store.leaves) != 1 {
		t.Fatal("leave should survive a forbidden delete")
	}
}

func TestListLeavesRoleScoped(t *testing.T) {
	store := newFakeLeaveStore()
	r := newTestRouter(t, store)
	bob := tokenFor(t, 2, auth.RoleEmployee)
	carol := tokenFor(t, 3, auth.RoleEmployee)
	admin := tokenFor(t, 1, auth.RoleAdmin)

	doRequest(t, r, http.MethodPost, "/leaves", bob, map[string]any{
		"startDate": "2026-09-01", "endDate": "2026-09-02", "leaveType": "Annual",
	})
	doRequest(t, r, http.MethodPost, "/leaves", carol, map[string]any{
		"startDate": "2026-09-03", "endDate": "2026-09-04", "leaveType": "Sick",
	})

	count := func(rec *httptest.ResponseRecorder) int {
		var envelope struct {
			Data []leave.LeaveRequest `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decode list: %v", err)
		}
		return len(envelope.Data)
	}

	if got := count(doRequest(t, r, http.MethodGet, "/leaves", bob, nil)); got != 1 {
		t.Fatalf("employee list: expected 1, got %d", got)
	}
	if got := count(doRequest(t, r, http.MethodGet, "/leaves", admin, nil)); got != 2 {
		t.Fatalf("admin list: expected 2, got %d", got)
	}
}

func TestLeavesRequireAuth(t *testing.T) {
	r := newTestRouter(t, newFakeLeaveStore())
	if rec := doRequest(t, r, http.MethodGet, "/leaves", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
