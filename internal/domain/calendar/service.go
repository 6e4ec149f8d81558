package calendar

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"leavedesk/internal/domain/leave"
)

// Service is the Google Calendar sync dispatcher. Like the Slack dispatcher
// it never fails the triggering request: missing prerequisites produce a
// skipped SyncResult and API failures are logged per calendar.
type Service struct {
	store    StoreAPI
	factory  *ClientFactory
	timezone string

	// newEvents and refresh are swapped in tests.
	newEvents func(ctx context.Context, token *oauth2.Token) (EventsAPI, error)
	refresh   func(ctx context.Context, oauthCfg *oauth2.Config, token *Token) (*Token, error)
	now       func() time.Time
}

func NewService(store StoreAPI, factory *ClientFactory, timezone string) *Service {
	s := &Service{
		store:     store,
		factory:   factory,
		timezone:  timezone,
		newEvents: newGoogleEvents,
		now:       time.Now,
	}
	s.refresh = s.refreshToken
	return s
}

// SyncLeave creates or updates one external event per matching active
// calendar config. An existing (leaveId, calendarId) mapping means update in
// place; otherwise insert and record the mapping.
func (s *Service) SyncLeave(ctx context.Context, lv leave.LeaveRequest, ownerName string) SyncResult {
	configs, err := s.store.ActiveConfigsForType(ctx, lv.LeaveType)
	if err != nil {
		slog.Warn("calendar config lookup failed", "leaveId", lv.ID, "err", err)
		return SyncResult{Skipped: true, Reason: "config lookup failed"}
	}
	if len(configs) == 0 {
		return SyncResult{Skipped: true, Reason: "no active calendar config for leave type"}
	}

	oauthCfg, token, result := s.authorize(ctx)
	if result != nil {
		return *result
	}

	payload := EventPayload(lv, ownerName, s.timezone)
	synced := 0
	for _, cfg := range configs {
		mapping, err := s.store.GetMapping(ctx, lv.ID, cfg.CalendarID)
		if err != nil {
			slog.Warn("calendar mapping lookup failed", "leaveId", lv.ID, "calendarId", cfg.CalendarID, "err", err)
			continue
		}

		if mapping != nil {
			if err := s.updateEvent(ctx, oauthCfg, token, cfg.CalendarID, mapping.EventID, payload); err != nil {
				slog.Warn("calendar event update failed", "leaveId", lv.ID, "calendarId", cfg.CalendarID, "err", err)
				continue
			}
			if err := s.store.UpsertMapping(ctx, lv.ID, cfg.CalendarID, mapping.EventID, s.now()); err != nil {
				slog.Warn("calendar mapping refresh failed", "leaveId", lv.ID, "calendarId", cfg.CalendarID, "err", err)
			}
			synced++
			continue
		}

		eventID, err := s.insertEvent(ctx, oauthCfg, token, cfg.CalendarID, payload)
		if err != nil {
			slog.Warn("calendar event insert failed", "leaveId", lv.ID, "calendarId", cfg.CalendarID, "err", err)
			continue
		}
		if err := s.store.UpsertMapping(ctx, lv.ID, cfg.CalendarID, eventID, s.now()); err != nil {
			slog.Warn("calendar mapping save failed", "leaveId", lv.ID, "calendarId", cfg.CalendarID, "err", err)
			continue
		}
		synced++
	}
	return SyncResult{Synced: synced}
}

// DeleteLeaveEvents removes the remote events for a deleted leave. Remote
// failures are logged; the mapping rows are removed unconditionally so no
// stale cache survives the leave.
func (s *Service) DeleteLeaveEvents(ctx context.Context, leaveID int64) SyncResult {
	mappings, err := s.store.MappingsForLeave(ctx, leaveID)
	if err != nil {
		slog.Warn("calendar mapping lookup failed", "leaveId", leaveID, "err", err)
		return SyncResult{Skipped: true, Reason: "mapping lookup failed"}
	}
	if len(mappings) == 0 {
		return SyncResult{}
	}

	deleted := 0
	oauthCfg, token, result := s.authorize(ctx)
	if result == nil {
		for _, m := range mappings {
			if err := s.deleteEvent(ctx, oauthCfg, token, m.CalendarID, m.EventID); err != nil {
				slog.Warn("calendar event delete failed", "leaveId", leaveID, "calendarId", m.CalendarID, "err", err)
				continue
			}
			deleted++
		}
	}

	if err := s.store.DeleteMappingsForLeave(ctx, leaveID); err != nil {
		slog.Warn("calendar mapping cleanup failed", "leaveId", leaveID, "err", err)
	}
	return SyncResult{Synced: deleted}
}

// authorize resolves client credentials and a usable token. A non-nil
// SyncResult means the sync must be skipped.
func (s *Service) authorize(ctx context.Context) (*oauth2.Config, *Token, *SyncResult) {
	oauthCfg, err := s.factory.OAuthConfig(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoCredentials) {
			slog.Warn("oauth config build failed", "err", err)
		}
		return nil, nil, &SyncResult{Skipped: true, Reason: "google credentials not configured"}
	}

	token, err := s.store.LatestToken(ctx)
	if err != nil {
		slog.Warn("oauth token lookup failed", "err", err)
		return nil, nil, &SyncResult{Skipped: true, Reason: "token lookup failed"}
	}
	if token == nil {
		return nil, nil, &SyncResult{Skipped: true, Reason: "no google oauth token"}
	}

	if !token.ExpiryDate.After(s.now()) {
		refreshed, err := s.refresh(ctx, oauthCfg, token)
		if err != nil {
			slog.Warn("oauth token refresh failed", "userId", token.UserID, "err", err)
			return nil, nil, &SyncResult{Skipped: true, Reason: "token refresh failed"}
		}
		token = refreshed
	}
	return oauthCfg, token, nil
}

// refreshToken performs exactly one refresh against Google and persists the
// result. Callers do not loop on failure.
func (s *Service) refreshToken(ctx context.Context, oauthCfg *oauth2.Config, token *Token) (*Token, error) {
	if token.RefreshToken == "" {
		return nil, ErrNoToken
	}
	src := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: token.RefreshToken})
	fresh, err := src.Token()
	if err != nil {
		return nil, err
	}
	refreshToken := fresh.RefreshToken
	if refreshToken == "" {
		refreshToken = token.RefreshToken
	}
	if err := s.store.SaveToken(ctx, token.UserID, fresh.AccessToken, refreshToken, fresh.Expiry); err != nil {
		slog.Warn("refreshed token save failed", "userId", token.UserID, "err", err)
	}
	return &Token{
		UserID:       token.UserID,
		AccessToken:  fresh.AccessToken,
		RefreshToken: refreshToken,
		ExpiryDate:   fresh.Expiry,
	}, nil
}

func (s *Service) insertEvent(ctx context.Context, oauthCfg *oauth2.Config, token *Token, calendarID string, payload *gcal.Event) (string, error) {
	var eventID string
	err := s.callWithRetry(ctx, oauthCfg, token, func(api EventsAPI) error {
		created, err := api.Insert(ctx, calendarID, payload)
		if err != nil {
			return err
		}
		eventID = created.Id
		return nil
	})
	return eventID, err
}

func (s *Service) updateEvent(ctx context.Context, oauthCfg *oauth2.Config, token *Token, calendarID, eventID string, payload *gcal.Event) error {
	return s.callWithRetry(ctx, oauthCfg, token, func(api EventsAPI) error {
		_, err := api.Update(ctx, calendarID, eventID, payload)
		return err
	})
}

func (s *Service) deleteEvent(ctx context.Context, oauthCfg *oauth2.Config, token *Token, calendarID, eventID string) error {
	return s.callWithRetry(ctx, oauthCfg, token, func(api EventsAPI) error {
		return api.Delete(ctx, calendarID, eventID)
	})
}

// callWithRetry runs one API call, and on an expired-credential response
// attempts a single refresh-and-retry. Any further failure is final.
func (s *Service) callWithRetry(ctx context.Context, oauthCfg *oauth2.Config, token *Token, call func(EventsAPI) error) error {
	api, err := s.newEvents(ctx, tokenFor(token))
	if err != nil {
		return err
	}
	err = call(api)
	if err == nil || !isAuthError(err) || token.RefreshToken == "" {
		return err
	}

	refreshed, refreshErr := s.refresh(ctx, oauthCfg, token)
	if refreshErr != nil {
		return err
	}
	*token = *refreshed

	api, apiErr := s.newEvents(ctx, tokenFor(token))
	if apiErr != nil {
		return apiErr
	}
	return call(api)
}

func tokenFor(token *Token) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.ExpiryDate,
		TokenType:    "Bearer",
	}
}

func isAuthError(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == 401
}
