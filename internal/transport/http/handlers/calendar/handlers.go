package calendarhandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"

	"leavedesk/internal/domain/auth"
	"leavedesk/internal/domain/calendar"
	"leavedesk/internal/transport/http/api"
	"leavedesk/internal/transport/http/middleware"
	"leavedesk/internal/transport/http/shared"
)

// stateTTL bounds how long an OAuth consent round-trip may take.
const stateTTL = 10 * time.Minute

type Handler struct {
	Store   calendar.StoreAPI
	Factory *calendar.ClientFactory
	Secret  string
}

func NewHandler(store calendar.StoreAPI, factory *calendar.ClientFactory, secret string) *Handler {
	return &Handler{Store: store, Factory: factory, Secret: secret}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin/calendar", func(r chi.Router) {
		r.Get("/configs", h.handleListConfigs)
		r.Post("/configs", h.handleCreateConfig)
		r.Patch("/configs/{configID}", h.handleUpdateConfig)
		r.Delete("/configs/{configID}", h.handleDeleteConfig)

		r.Get("/auth/url", h.handleAuthURL)
		r.Get("/auth/status", h.handleAuthStatus)
		r.Delete("/auth/token", h.handleDeleteToken)

		r.Get("/credentials", h.handleGetCredentials)
		r.Post("/credentials", h.handleSaveCredentials)
		r.Delete("/credentials", h.handleDeleteCredentials)
	})
}

// RegisterCallbackRoute mounts the OAuth redirect target. Google hits it as
// a plain browser GET with no bearer token, so it lives outside the
// authenticated groups; the signed state parameter carries the admin
// identity instead.
func (h *Handler) RegisterCallbackRoute(r chi.Router) {
	r.Get("/calendar/auth/callback", h.handleAuthCallback)
}

type createConfigRequest struct {
	LeaveType    string `json:"leaveType" validate:"required"`
	CalendarID   string `json:"calendarId" validate:"required"`
	CalendarName string `json:"calendarName"`
	IsActive     *bool  `json:"isActive"`
}

type updateConfigRequest struct {
	CalendarName string `json:"calendarName" validate:"required"`
	IsActive     bool   `json:"isActive"`
}

type credentialsRequest struct {
	ClientID     string `json:"clientId" validate:"required"`
	ClientSecret string `json:"clientSecret" validate:"required"`
	RedirectURI  string `json:"redirectUri" validate:"required,url"`
}

func configIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "configID"), 10, 64)
}

func (h *Handler) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	configs, err := h.Store.ListConfigs(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "calendar_config_failed", "failed to list calendar configs", reqID)
		return
	}
	api.Success(w, configs, reqID)
}

func (h *Handler) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload createConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	if shared.RejectInvalid(w, payload, reqID) {
		return
	}

	active := true
	if payload.IsActive != nil {
		active = *payload.IsActive
	}
	cfg, err := h.Store.CreateConfig(r.Context(), calendar.Config{
		LeaveType:    payload.LeaveType,
		CalendarID:   payload.CalendarID,
		CalendarName: payload.CalendarName,
		IsActive:     active,
	})
	if errors.Is(err, calendar.ErrConflict) {
		api.Fail(w, http.StatusConflict, "config_exists", "a config for this leave type and calendar already exists", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "calendar_config_failed", "failed to create calendar config", reqID)
		return
	}
	api.Created(w, cfg, reqID)
}

func (h *Handler) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	id, err := configIDParam(r)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid config id", reqID)
		return
	}

	var payload updateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	if shared.RejectInvalid(w, payload, reqID) {
		return
	}

	cfg, err := h.Store.UpdateConfig(r.Context(), id, payload.CalendarName, payload.IsActive)
	if errors.Is(err, calendar.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "calendar config not found", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "calendar_config_failed", "failed to update calendar config", reqID)
		return
	}
	api.Success(w, cfg, reqID)
}

func (h *Handler) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	id, err := configIDParam(r)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid config id", reqID)
		return
	}

	err = h.Store.DeleteConfig(r.Context(), id)
	if errors.Is(err, calendar.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "calendar config not found", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "calendar_config_failed", "failed to delete calendar config", reqID)
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, reqID)
}

// handleAuthURL hands back the Google consent URL. The state parameter is a
// short-lived token naming the admin who started the flow, so the callback
// can attribute the resulting grant without a session.
func (h *Handler) handleAuthURL(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	usr, _ := middleware.GetUser(r.Context())

	oauthCfg, err := h.Factory.OAuthConfig(r.Context())
	if errors.Is(err, calendar.ErrNoCredentials) {
		api.Fail(w, http.StatusPreconditionFailed, "no_credentials", "google client credentials are not configured", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "oauth_failed", "failed to build oauth configuration", reqID)
		return
	}

	state, err := auth.GenerateToken(h.Secret, auth.Claims{
		UserID: usr.UserID,
		Email:  usr.Email,
		Role:   usr.Role,
	}, stateTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "oauth_failed", "failed to sign oauth state", reqID)
		return
	}

	url := oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	api.Success(w, map[string]string{"url": url}, reqID)
}

func (h *Handler) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_callback", "code and state are required", reqID)
		return
	}

	claims, err := auth.ParseToken(h.Secret, state)
	if err != nil || claims.Role != auth.RoleAdmin {
		api.Fail(w, http.StatusUnauthorized, "invalid_state", "oauth state is invalid or expired", reqID)
		return
	}

	oauthCfg, err := h.Factory.OAuthConfig(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "oauth_failed", "failed to build oauth configuration", reqID)
		return
	}

	tok, err := oauthCfg.Exchange(r.Context(), code)
	if err != nil {
		api.Fail(w, http.StatusBadGateway, "oauth_exchange_failed", "google rejected the authorization code", reqID)
		return
	}

	if err := h.Store.SaveToken(r.Context(), claims.UserID, tok.AccessToken, tok.RefreshToken, tok.Expiry); err != nil {
		api.Fail(w, http.StatusInternalServerError, "oauth_failed", "failed to persist oauth token", reqID)
		return
	}
	api.Success(w, map[string]string{"status": "connected"}, reqID)
}

func (h *Handler) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	token, err := h.Store.LatestToken(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "oauth_failed", "failed to load oauth token", reqID)
		return
	}
	if token == nil {
		api.Success(w, map[string]any{"connected": false}, reqID)
		return
	}
	api.Success(w, map[string]any{
		"connected":       true,
		"userId":          token.UserID,
		"expiryDate":      token.ExpiryDate,
		"hasRefreshToken": token.RefreshToken != "",
	}, reqID)
}

func (h *Handler) handleDeleteToken(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	usr, _ := middleware.GetUser(r.Context())

	if err := h.Store.DeleteToken(r.Context(), usr.UserID); err != nil {
		api.Fail(w, http.StatusInternalServerError, "oauth_failed", "failed to delete oauth token", reqID)
		return
	}
	api.Success(w, map[string]string{"status": "disconnected"}, reqID)
}

func (h *Handler) handleGetCredentials(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	creds, source, err := h.Factory.Credentials(r.Context())
	if errors.Is(err, calendar.ErrNoCredentials) {
		api.Success(w, map[string]any{"configured": false}, reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "credentials_failed", "failed to load credentials", reqID)
		return
	}
	api.Success(w, map[string]any{
		"configured":  true,
		"source":      source,
		"clientId":    creds.ClientID,
		"redirectUri": creds.RedirectURI,
	}, reqID)
}

func (h *Handler) handleSaveCredentials(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	if shared.RejectInvalid(w, payload, reqID) {
		return
	}

	err := h.Store.SaveCredentials(r.Context(), calendar.Credentials{
		ClientID:     payload.ClientID,
		ClientSecret: payload.ClientSecret,
		RedirectURI:  payload.RedirectURI,
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "credentials_failed", "failed to save credentials", reqID)
		return
	}
	h.Factory.Invalidate()
	api.Success(w, map[string]string{"status": "saved"}, reqID)
}

func (h *Handler) handleDeleteCredentials(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	if err := h.Store.DeleteCredentials(r.Context()); err != nil {
		api.Fail(w, http.StatusInternalServerError, "credentials_failed", "failed to delete credentials", reqID)
		return
	}
	h.Factory.Invalidate()
	api.Success(w, map[string]string{"status": "deleted"}, reqID)
}
