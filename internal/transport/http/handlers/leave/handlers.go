package leavehandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"leavedesk/internal/domain/calendar"
	"leavedesk/internal/domain/leave"
	"leavedesk/internal/domain/user"
	"leavedesk/internal/transport/http/api"
	"leavedesk/internal/transport/http/middleware"
	"leavedesk/internal/transport/http/shared"
)

// Notifier is the Slack dispatch surface the handler needs.
type Notifier interface {
	NotifyLeaveCreated(ctx context.Context, lv leave.LeaveRequest, ownerName string) bool
}

// Syncer is the calendar dispatch surface the handler needs.
type Syncer interface {
	SyncLeave(ctx context.Context, lv leave.LeaveRequest, ownerName string) calendar.SyncResult
	DeleteLeaveEvents(ctx context.Context, leaveID int64) calendar.SyncResult
}

type Handler struct {
	Leaves   *leave.Service
	Users    *user.Service
	Slack    Notifier
	Calendar Syncer
}

func NewHandler(leaves *leave.Service, users *user.Service, sl Notifier, cal Syncer) *Handler {
	return &Handler{Leaves: leaves, Users: users, Slack: sl, Calendar: cal}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leaves", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{leaveID}", h.handleGet)
		r.Put("/{leaveID}", h.handleUpdate)
		r.Delete("/{leaveID}", h.handleDelete)
		r.With(middleware.RequireAdmin).Post("/{leaveID}/approve", h.statusHandler(leave.StatusApproved))
		r.With(middleware.RequireAdmin).Post("/{leaveID}/reject", h.statusHandler(leave.StatusRejected))
	})
}

type leaveRequest struct {
	StartDate string  `json:"startDate" validate:"required"`
	EndDate   string  `json:"endDate" validate:"required"`
	LeaveType string  `json:"leaveType" validate:"required"`
	Reason    string  `json:"reason"`
	IsHalfDay bool    `json:"isHalfDay"`
	Period    *string `json:"period" validate:"omitempty,oneof=morning afternoon"`
}

// leaveResponse wraps a leave record with the outcome of the side-channel
// dispatchers so callers can surface partial failures.
type leaveResponse struct {
	Leave         leave.LeaveRequest  `json:"leave"`
	SlackNotified bool                `json:"slackNotified"`
	CalendarSync  calendar.SyncResult `json:"calendarSync"`
}

func leaveIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "leaveID"), 10, 64)
}

func (h *Handler) fields(w http.ResponseWriter, r *http.Request, reqID string) (leave.Fields, bool) {
	var payload leaveRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return leave.Fields{}, false
	}
	if shared.RejectInvalid(w, payload, reqID) {
		return leave.Fields{}, false
	}

	start, err := shared.ParseDate(payload.StartDate)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_date", "startDate must be RFC3339 or YYYY-MM-DD", reqID)
		return leave.Fields{}, false
	}
	end, err := shared.ParseDate(payload.EndDate)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_date", "endDate must be RFC3339 or YYYY-MM-DD", reqID)
		return leave.Fields{}, false
	}
	if end.Before(start) {
		api.Fail(w, http.StatusBadRequest, "invalid_range", "endDate must not precede startDate", reqID)
		return leave.Fields{}, false
	}

	return leave.Fields{
		StartDate: start,
		EndDate:   end,
		LeaveType: payload.LeaveType,
		Reason:    payload.Reason,
		IsHalfDay: payload.IsHalfDay,
		Period:    payload.Period,
	}, true
}

// ownerName resolves the display name used in Slack messages and calendar
// event titles. A lookup failure falls back to the email-less empty string
// rather than blocking the mutation.
func (h *Handler) ownerName(r *http.Request, lv leave.LeaveRequest) string {
	if lv.UserName != "" {
		return lv.UserName
	}
	owner, err := h.Users.Get(r.Context(), lv.UserID)
	if err != nil {
		return ""
	}
	return owner.Name
}

// dispatch runs the best-effort side effects of a leave mutation: the Slack
// notification (create only) and the calendar sync. Failures never fail the
// request.
func (h *Handler) dispatch(r *http.Request, lv leave.LeaveRequest, notifySlack bool) leaveResponse {
	resp := leaveResponse{Leave: lv}
	name := h.ownerName(r, lv)

	if notifySlack && h.Slack != nil {
		if h.Slack.NotifyLeaveCreated(r.Context(), lv, name) {
			if err := h.Leaves.MarkSlackNotified(r.Context(), lv.ID); err == nil {
				resp.Leave.SlackNotificationSent = true
			}
			resp.SlackNotified = true
		}
	}
	if h.Calendar != nil {
		resp.CalendarSync = h.Calendar.SyncLeave(r.Context(), resp.Leave, name)
	}
	return resp
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	usr, _ := middleware.GetUser(r.Context())

	leaves, err := h.Leaves.List(r.Context(), usr.UserID, usr.Role)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "leave_list_failed", "failed to list leave requests", reqID)
		return
	}
	api.Success(w, leaves, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	usr, _ := middleware.GetUser(r.Context())

	id, err := leaveIDParam(r)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid leave id", reqID)
		return
	}

	lv, err := h.Leaves.GetForRequester(r.Context(), id, usr.UserID, usr.Role)
	if h.writeLeaveError(w, err, reqID) {
		return
	}
	api.Success(w, lv, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	usr, _ := middleware.GetUser(r.Context())

	fields, ok := h.fields(w, r, reqID)
	if !ok {
		return
	}

	lv, err := h.Leaves.Create(r.Context(), usr.UserID, fields)
	if h.writeLeaveError(w, err, reqID) {
		return
	}
	api.Created(w, h.dispatch(r, lv, true), reqID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	usr, _ := middleware.GetUser(r.Context())

	id, err := leaveIDParam(r)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid leave id", reqID)
		return
	}

	fields, ok := h.fields(w, r, reqID)
	if !ok {
		return
	}

	lv, err := h.Leaves.Update(r.Context(), id, usr.UserID, usr.Role, fields)
	if h.writeLeaveError(w, err, reqID) {
		return
	}
	api.Success(w, h.dispatch(r, lv, false), reqID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	usr, _ := middleware.GetUser(r.Context())

	id, err := leaveIDParam(r)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid leave id", reqID)
		return
	}

	// Remote events are cleaned up before the row goes away: deleting the
	// leave first would cascade the mapping rows and leave the Google
	// events orphaned.
	lv, err := h.Leaves.GetForRequester(r.Context(), id, usr.UserID, usr.Role)
	if h.writeLeaveError(w, err, reqID) {
		return
	}
	var sync calendar.SyncResult
	if h.Calendar != nil {
		sync = h.Calendar.DeleteLeaveEvents(r.Context(), lv.ID)
	}

	if _, err := h.Leaves.Delete(r.Context(), id, usr.UserID, usr.Role); h.writeLeaveError(w, err, reqID) {
		return
	}
	api.Success(w, map[string]any{"status": "deleted", "calendarSync": sync}, reqID)
}

func (h *Handler) statusHandler(status string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetRequestID(r.Context())
		usr, _ := middleware.GetUser(r.Context())

		id, err := leaveIDParam(r)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid leave id", reqID)
			return
		}

		lv, err := h.Leaves.SetStatus(r.Context(), id, status, usr.UserID, usr.Role)
		if h.writeLeaveError(w, err, reqID) {
			return
		}
		api.Success(w, h.dispatch(r, lv, false), reqID)
	}
}

func (h *Handler) writeLeaveError(w http.ResponseWriter, err error, reqID string) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, leave.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "leave request not found", reqID)
	case errors.Is(err, leave.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to access this leave request", reqID)
	case errors.Is(err, leave.ErrInvalid):
		api.Fail(w, http.StatusBadRequest, "invalid_leave", err.Error(), reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, "leave_failed", "leave operation failed", reqID)
	}
	return true
}
