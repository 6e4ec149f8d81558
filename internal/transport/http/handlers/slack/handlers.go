package slackhandler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"leavedesk/internal/domain/slack"
	"leavedesk/internal/transport/http/api"
	"leavedesk/internal/transport/http/middleware"
	"leavedesk/internal/transport/http/shared"
)

type Handler struct {
	Store slack.StoreAPI
	Slack *slack.Service
}

func NewHandler(store slack.StoreAPI, svc *slack.Service) *Handler {
	return &Handler{Store: store, Slack: svc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin/slack", func(r chi.Router) {
		r.Get("/config", h.handleGetConfig)
		r.Post("/config", h.handleSaveConfig)
		r.Delete("/config", h.handleDeleteConfig)
		r.Post("/test", h.handleTest)
		r.Post("/summary", h.handleSummary)
	})
}

// RegisterCronRoutes mounts the unauthenticated scheduler entry point. It is
// guarded by the shared-secret middleware, not by JWT auth.
func (h *Handler) RegisterCronRoutes(r chi.Router) {
	r.Post("/cron/slack-summary", h.handleCron)
}

type configRequest struct {
	ChannelID    string `json:"channelId" validate:"required"`
	BotToken     string `json:"botToken"`
	WebhookURL   string `json:"webhookUrl"`
	Enabled      bool   `json:"enabled"`
	DayRange     int    `json:"dayRange" validate:"omitempty,min=1,max=30"`
	ScheduleTime string `json:"scheduleTime" validate:"omitempty,len=5"`
	WorkdaysOnly bool   `json:"workdaysOnly"`
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	cfg, err := h.Store.GetConfig(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "slack_config_failed", "failed to load slack config", reqID)
		return
	}
	if cfg == nil {
		api.Fail(w, http.StatusNotFound, "not_found", "slack integration is not configured", reqID)
		return
	}
	api.Success(w, map[string]any{"config": cfg, "hasBotToken": cfg.BotToken != ""}, reqID)
}

func (h *Handler) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload configRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	if shared.RejectInvalid(w, payload, reqID) {
		return
	}

	// An omitted token keeps the stored one so the UI never has to echo
	// secrets back.
	if payload.BotToken == "" {
		if existing, err := h.Store.GetConfig(r.Context()); err == nil && existing != nil {
			payload.BotToken = existing.BotToken
		}
	}

	saved, err := h.Store.SaveConfig(r.Context(), slack.Config{
		ChannelID:    payload.ChannelID,
		BotToken:     payload.BotToken,
		WebhookURL:   payload.WebhookURL,
		Enabled:      payload.Enabled,
		DayRange:     payload.DayRange,
		ScheduleTime: payload.ScheduleTime,
		WorkdaysOnly: payload.WorkdaysOnly,
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "slack_config_failed", "failed to save slack config", reqID)
		return
	}
	api.Success(w, saved, reqID)
}

func (h *Handler) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	if err := h.Store.DeleteConfig(r.Context()); err != nil {
		api.Fail(w, http.StatusInternalServerError, "slack_config_failed", "failed to delete slack config", reqID)
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, reqID)
}

func (h *Handler) handleTest(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	if err := h.Slack.SendTest(r.Context()); err != nil {
		api.Fail(w, http.StatusBadGateway, "slack_test_failed", err.Error(), reqID)
		return
	}
	api.Success(w, map[string]string{"status": "sent"}, reqID)
}

// handleSummary is the manual trigger; it ignores the schedule.
func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	h.runSummary(w, r, true)
}

// handleCron is hit by the external scheduler; schedule and watermark gating
// apply.
func (h *Handler) handleCron(w http.ResponseWriter, r *http.Request) {
	h.runSummary(w, r, false)
}

func (h *Handler) runSummary(w http.ResponseWriter, r *http.Request, force bool) {
	reqID := middleware.GetRequestID(r.Context())

	sent, err := h.Slack.SendSummary(r.Context(), force)
	if err != nil {
		api.Fail(w, http.StatusBadGateway, "slack_summary_failed", err.Error(), reqID)
		return
	}
	api.Success(w, map[string]bool{"sent": sent}, reqID)
}
