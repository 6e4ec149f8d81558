package usershandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"leavedesk/internal/domain/user"
	"leavedesk/internal/transport/http/api"
	"leavedesk/internal/transport/http/middleware"
	"leavedesk/internal/transport/http/shared"
)

type Handler struct {
	Users *user.Service
}

func NewHandler(users *user.Service) *Handler {
	return &Handler{Users: users}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin/users", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Put("/{userID}", h.handleUpdate)
		r.Delete("/{userID}", h.handleDelete)
	})
}

type createUserRequest struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	Role       string `json:"role" validate:"required,oneof=admin employee"`
	Department string `json:"department"`
}

type updateUserRequest struct {
	Name       string `json:"name" validate:"required"`
	Role       string `json:"role" validate:"required,oneof=admin employee"`
	Department string `json:"department"`
	Password   string `json:"password" validate:"omitempty,min=8"`
}

func userIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	users, err := h.Users.List(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "user_list_failed", "failed to list users", reqID)
		return
	}
	api.Success(w, users, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	if shared.RejectInvalid(w, payload, reqID) {
		return
	}

	u, err := h.Users.Create(r.Context(), user.CreateInput{
		Name:       payload.Name,
		Email:      payload.Email,
		Password:   payload.Password,
		Role:       payload.Role,
		Department: payload.Department,
	})
	if errors.Is(err, user.ErrEmailTaken) {
		api.Fail(w, http.StatusConflict, "email_taken", "email already registered", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "user_create_failed", "failed to create user", reqID)
		return
	}
	api.Created(w, u, reqID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	id, err := userIDParam(r)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid user id", reqID)
		return
	}

	var payload updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	if shared.RejectInvalid(w, payload, reqID) {
		return
	}

	u, err := h.Users.Update(r.Context(), id, user.UpdateInput{
		Name:       payload.Name,
		Role:       payload.Role,
		Department: payload.Department,
		Password:   payload.Password,
	})
	switch {
	case errors.Is(err, user.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "user not found", reqID)
	case errors.Is(err, user.ErrLastAdmin):
		api.Fail(w, http.StatusConflict, "last_admin", "cannot demote the last admin", reqID)
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "user_update_failed", "failed to update user", reqID)
	default:
		api.Success(w, u, reqID)
	}
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	id, err := userIDParam(r)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid user id", reqID)
		return
	}

	err = h.Users.Delete(r.Context(), id)
	switch {
	case errors.Is(err, user.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "user not found", reqID)
	case errors.Is(err, user.ErrLastAdmin):
		api.Fail(w, http.StatusConflict, "last_admin", "cannot delete the last admin", reqID)
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "user_delete_failed", "failed to delete user", reqID)
	default:
		api.Success(w, map[string]string{"status": "deleted"}, reqID)
	}
}
