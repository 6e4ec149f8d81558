package reportshandler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"leavedesk/internal/domain/report"
	"leavedesk/internal/transport/http/api"
	"leavedesk/internal/transport/http/middleware"
)

const defaultReportDays = 30

type Handler struct {
	Reports *report.Service
}

func NewHandler(reports *report.Service) *Handler {
	return &Handler{Reports: reports}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/admin/reports/leaves.pdf", h.handleLeavesPDF)
}

// handleLeavesPDF streams a PDF of the leaves intersecting the next N days
// (?days=, default 30).
func (h *Handler) handleLeavesPDF(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	days := defaultReportDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 365 {
			api.Fail(w, http.StatusBadRequest, "invalid_days", "days must be between 1 and 365", reqID)
			return
		}
		days = parsed
	}

	from := time.Now().Truncate(24 * time.Hour)
	to := from.AddDate(0, 0, days)

	pdf, err := h.Reports.LeavesPDF(r.Context(), from, to)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to render leave report", reqID)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="leaves.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
