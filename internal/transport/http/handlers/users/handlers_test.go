package usershandler

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
	"leavedesk/internal/domain/user"
	"leavedesk/internal/transport/http/middleware"
)

const testSecret = "users-handler-secret"

type fakeStore struct {
	nextID int64
	users  map[int64]user.User
	emails map[string]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1, users: map[int64]user.User{}, emails: map[string]int64{}}
}

func (f *fakeStore) seed(name, email, role string) int64 {
	id := f.nextID
	f.nextID++
	f.users[id] = user.User{ID: id, Name: name, Email: email, Role: role}
	f.emails[email] = id
	return id
}

func (f *fakeStore) List(_ context.Context) ([]user.User, error) {
	out := make([]user.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeStore) Get(_ context.Context, id int64) (user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) CredentialsByEmail(_ context.Context, email string) (user.User, string, error) {
	id, ok := f.emails[email]
	if !ok {
		return user.User{}, "", user.ErrNotFound
	}
	return f.users[id], "", nil
}

func (f *fakeStore) Create(_ context.Context, input user.CreateInput, _ string) (int64, error) {
	if _, taken := f.emails[input.Email]; taken {
		return 0, user.ErrEmailTaken
	}
	return f.seed(input.Name, input.Email, input.Role), nil
}

func (f *fakeStore) Update(_ context.Context, id int64, input user.UpdateInput, _ string) error {
	u, ok := f.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.Name = input.Name
	u.Role = input.Role
	u.Department = input.Department
	f.users[id] = u
	return nil
}

func (f *fakeStore) UpdatePassword(_ context.Context, id int64, _ string) error {
	if _, ok := f.users[id]; !ok {
		return user.ErrNotFound
	}
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id int64) error {
	u, ok := f.users[id]
	if !ok {
		return user.ErrNotFound
	}
	delete(f.emails, u.Email)
	delete(f.users, id)
	return nil
}

func (f *fakeStore) CountAdmins(_ context.Context) (int, error) {
	count := 0
	for _, u := range f.users {
		if u.Role == auth.RoleAdmin {
			count++
		}
	}
	return count, nil
}

func newTestRouter(store *fakeStore) chi.Router {
	handler := NewHandler(user.NewService(store))
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(testSecret))
		r.Use(middleware.RequireAdmin)
		handler.RegisterRoutes(r)
	})
	return r
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, auth.Claims{UserID: 1, Role: auth.RoleAdmin}, time.Hour)
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

func TestCreateUserDuplicateEmail(t *testing.T) {
	store := newFakeStore()
	store.seed("Alice", "alice@example.com", auth.RoleAdmin)
	r := newTestRouter(store)
	token := adminToken(t)

	payload := map[string]any{
		"name":     "Alice Again",
		"email":    "alice@example.com",
		"password": "supersecret",
		"role":     "employee",
	}
	rec := doRequest(t, r, http.MethodPost, "/admin/users", token, payload)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateUserHonorsRole(t *testing.T) {
	store := newFakeStore()
	store.seed("Alice", "alice@example.com", auth.RoleAdmin)
	r := newTestRouter(store)
	token := adminToken(t)

	rec := doRequest(t, r, http.MethodPost, "/admin/users", token, map[string]any{
		"name":     "Second Admin",
		"email":    "second@example.com",
		"password": "supersecret",
		"role":     "admin",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if store.users[2].Role != auth.RoleAdmin {
		t.Fatalf("expected admin role, got %q", store.users[2].Role)
	}
}

func TestDeleteLastAdminRefused(t *testing.T) {
	store := newFakeStore()
	store.seed("Alice", "alice@example.com", auth.RoleAdmin)
	r := newTestRouter(store)
	token := adminToken(t)

	rec := doRequest(t, r, http.MethodDelete, "/admin/users/1", token, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(store.users) != 1 {
		t.Fatal("admin should not have been deleted")
	}
}

func TestDemoteLastAdminRefused(t *testing.T) {
	store := newFakeStore()
	store.seed("Alice", "alice@example.com", auth.RoleAdmin)
	r := newTestRouter(store)
	token := adminToken(t)

	rec := doRequest(t, r, http.MethodPut, "/admin/users/1", token, map[string]any{
		"name": "Alice",
		"role": "employee",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if store.users[1].Role != auth.RoleAdmin {
		t.Fatal("role should be unchanged")
	}
}

func TestAdminRoutesForbiddenForEmployees(t *testing.T) {
	store := newFakeStore()
	store.seed("Alice", "alice@example.com", auth.RoleAdmin)
	r := newTestRouter(store)

	token, err := auth.GenerateToken(testSecret, auth.Claims{UserID: 2, Role: auth.RoleEmployee}, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	rec := doRequest(t, r, http.MethodGet, "/admin/users", token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
