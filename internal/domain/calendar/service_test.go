package calendar

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"leavedesk/internal/domain/leave"
)

type mappingKey struct {
	leaveID    int64
	calendarID string
}

type fakeStore struct {
	configs  []Config
	mappings map[mappingKey]EventMapping
	token    *Token
	creds    *Credentials
	nextID   int64
}

func newCalFakeStore() *fakeStore {
	return &fakeStore{mappings: map[mappingKey]EventMapping{}, nextID: 1}
}

func (f *fakeStore) ListConfigs(ctx context.Context) ([]Config, error) { return f.configs, nil }

func (f *fakeStore) ActiveConfigsForType(ctx context.Context, leaveType string) ([]Config, error) {
	var out []Config
	for _, c := range f.configs {
		if c.IsActive && (c.LeaveType == leaveType || c.LeaveType == LeaveTypeAll) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateConfig(ctx context.Context, cfg Config) (Config, error) {
	for _, c := range f.configs {
		if c.LeaveType == cfg.LeaveType && c.CalendarID == cfg.CalendarID {
			return Config{}, ErrConflict
		}
	}
	cfg.ID = f.nextID
	f.nextID++
	f.configs = append(f.configs, cfg)
	return cfg, nil
}

func (f *fakeStore) UpdateConfig(ctx context.Context, id int64, calendarName string, isActive bool) (Config, error) {
	for i, c := range f.configs {
		if c.ID == id {
			f.configs[i].CalendarName = calendarName
			f.configs[i].IsActive = isActive
			return f.configs[i], nil
		}
	}
	return Config{}, ErrNotFound
}

func (f *fakeStore) DeleteConfig(ctx context.Context, id int64) error {
	for i, c := range f.configs {
		if c.ID == id {
			f.configs = append(f.configs[:i], f.configs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeStore) GetMapping(ctx context.Context, leaveID int64, calendarID string) (*EventMapping, error) {
	m, ok := f.mappings[mappingKey{leaveID, calendarID}]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (f *fakeStore) UpsertMapping(ctx context.Context, leaveID int64, calendarID, eventID string, at time.Time) error {
	f.mappings[mappingKey{leaveID, calendarID}] = EventMapping{LeaveID: leaveID, CalendarID: calendarID, EventID: eventID, LastSynced: at}
	return nil
}

func (f *fakeStore) MappingsForLeave(ctx context.Context, leaveID int64) ([]EventMapping, error) {
	var out []EventMapping
	for key, m := range f.mappings {
		if key.leaveID == leaveID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteMappingsForLeave(ctx context.Context, leaveID int64) error {
	for key := range f.mappings {
		if key.leaveID == leaveID {
			delete(f.mappings, key)
		}
	}
	return nil
}

func (f *fakeStore) SaveToken(ctx context.Context, userID int64, accessToken, refreshToken string, expiry time.Time) error {
	f.token = &Token{UserID: userID, AccessToken: accessToken, RefreshToken: refreshToken, ExpiryDate: expiry}
	return nil
}

func (f *fakeStore) TokenByUser(ctx context.Context, userID int64) (*Token, error) {
	if f.token != nil && f.token.UserID == userID {
		return f.token, nil
	}
	return nil, nil
}

func (f *fakeStore) LatestToken(ctx context.Context) (*Token, error) { return f.token, nil }

func (f *fakeStore) DeleteToken(ctx context.Context, userID int64) error {
	f.token = nil
	return nil
}

func (f *fakeStore) SaveCredentials(ctx context.Context, creds Credentials) error {
	f.creds = &creds
	return nil
}

func (f *fakeStore) GetCredentials(ctx context.Context) (*Credentials, error) { return f.creds, nil }

func (f *fakeStore) DeleteCredentials(ctx context.Context) error {
	f.creds = nil
	return nil
}

type fakeEvents struct {
	inserts   int
	updates   int
	deletes   int
	failUntil int // number of leading calls answered with 401
	calls     int
	deleteErr error
	nextID    int
}

func (f *fakeEvents) authFail() error {
	f.calls++
	if f.calls <= f.failUntil {
		return &googleapi.Error{Code: 401, Message: "Invalid Credentials"}
	}
	return nil
}

func (f *fakeEvents) Insert(ctx context.Context, calendarID string, event *gcal.Event) (*gcal.Event, error) {
	if err := f.authFail(); err != nil {
		return nil, err
	}
	f.inserts++
	f.nextID++
	return &gcal.Event{Id: fmt.Sprintf("evt-%s-%d", calendarID, f.nextID)}, nil
}

func (f *fakeEvents) Update(ctx context.Context, calendarID, eventID string, event *gcal.Event) (*gcal.Event, error) {
	if err := f.authFail(); err != nil {
		return nil, err
	}
	f.updates++
	return &gcal.Event{Id: eventID}, nil
}

func (f *fakeEvents) Delete(ctx context.Context, calendarID, eventID string) error {
	if err := f.authFail(); err != nil {
		return err
	}
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes++
	return nil
}

func newTestService(store *fakeStore, events *fakeEvents) *Service {
	svc := NewService(store, NewClientFactory(store, Credentials{}), "UTC")
	svc.newEvents = func(ctx context.Context, token *oauth2.Token) (EventsAPI, error) {
		return events, nil
	}
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func validToken() *Token {
	return &Token{UserID: 1, AccessToken: "access", RefreshToken: "refresh", ExpiryDate: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)}
}

func sickLeave() leave.LeaveRequest {
	start := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	return leave.LeaveRequest{ID: 7, UserID: 2, LeaveType: "Sick", StartDate: start, EndDate: start}
}

func TestSyncSkippedWithoutCredentials(t *testing.T) {
	store := newCalFakeStore()
	store.configs = []Config{{ID: 1, LeaveType: "Sick", CalendarID: "cal-1", IsActive: true}}
	svc := newTestService(store, &fakeEvents{})

	result := svc.SyncLeave(context.Background(), sickLeave(), "John")
	if !result.Skipped {
		t.Fatalf("expected skipped result, got %+v", result)
	}
	if len(store.mappings) != 0 {
		t.Fatal("expected no mapping rows")
	}
}

func TestSyncSkippedWithoutToken(t *testing.T) {
	store := newCalFakeStore()
	store.configs = []Config{{ID: 1, LeaveType: "Sick", CalendarID: "cal-1", IsActive: true}}
	store.creds = &Credentials{ClientID: "cid", ClientSecret: "secret"}
	svc := newTestService(store, &fakeEvents{})

	result := svc.SyncLeave(context.Background(), sickLeave(), "John")
	if !result.Skipped || result.Reason != "no google oauth token" {
		t.Fatalf("expected token skip, got %+v", result)
	}
}

func TestSyncSkippedWithoutMatchingConfig(t *testing.T) {
	store := newCalFakeStore()
	store.configs = []Config{{ID: 1, LeaveType: "Annual", CalendarID: "cal-1", IsActive: true}}
	store.creds = &Credentials{ClientID: "cid"}
	store.token = validToken()
	svc := newTestService(store, &fakeEvents{})

	result := svc.SyncLeave(context.Background(), sickLeave(), "John")
	if !result.Skipped {
		t.Fatalf("expected skip without matching config, got %+v", result)
	}
}

func TestSyncIdempotentPerPair(t *testing.T) {
	store := newCalFakeStore()
	store.configs = []Config{{ID: 1, LeaveType: "Sick", CalendarID: "cal-1", IsActive: true}}
	store.creds = &Credentials{ClientID: "cid"}
	store.token = validToken()
	events := &fakeEvents{}
	svc := newTestService(store, events)

	lv := sickLeave()
	first := svc.SyncLeave(context.Background(), lv, "John")
	if first.Synced != 1 {
		t.Fatalf("expected 1 synced, got %+v", first)
	}
	second := svc.SyncLeave(context.Background(), lv, "John")
	if second.Synced != 1 {
		t.Fatalf("expected 1 synced on re-sync, got %+v", second)
	}

	if events.inserts != 1 {
		t.Fatalf("expected exactly 1 insert, got %d", events.inserts)
	}
	if events.updates != 1 {
		t.Fatalf("expected 1 update on re-sync, got %d", events.updates)
	}
	if len(store.mappings) != 1 {
		t.Fatalf("expected 1 mapping row, got %d", len(store.mappings))
	}
}

func TestSyncWildcardConfigMatches(t *testing.T) {
	store := newCalFakeStore()
	store.configs = []Config{
		{ID: 1, LeaveType: LeaveTypeAll, CalendarID: "cal-all", IsActive: true},
		{ID: 2, LeaveType: "Sick", CalendarID: "cal-sick", IsActive: true},
		{ID: 3, LeaveType: "Sick", CalendarID: "cal-inactive", IsActive: false},
	}
	store.creds = &Credentials{ClientID: "cid"}
	store.token = validToken()
	events := &fakeEvents{}
	svc := newTestService(store, events)

	result := svc.SyncLeave(context.Background(), sickLeave(), "John")
	if result.Synced != 2 {
		t.Fatalf("expected 2 synced (wildcard + typed), got %+v", result)
	}
	if events.inserts != 2 {
		t.Fatalf("expected 2 inserts, got %d", events.inserts)
	}
}

func TestSyncRetriesOnceOnExpiredCredentials(t *testing.T) {
	store := newCalFakeStore()
	store.configs = []Config{{ID: 1, LeaveType: "Sick", CalendarID: "cal-1", IsActive: true}}
	store.creds = &Credentials{ClientID: "cid"}
	store.token = validToken()
	events := &fakeEvents{failUntil: 1}
	svc := newTestService(store, events)

	refreshes := 0
	svc.refresh = func(ctx context.Context, oauthCfg *oauth2.Config, token *Token) (*Token, error) {
		refreshes++
		fresh := *token
		fresh.AccessToken = "fresh-access"
		fresh.ExpiryDate = svc.now().Add(time.Hour)
		return &fresh, nil
	}

	result := svc.SyncLeave(context.Background(), sickLeave(), "John")
	if result.Synced != 1 {
		t.Fatalf("expected sync to succeed after retry, got %+v", result)
	}
	if refreshes != 1 {
		t.Fatalf("expected exactly 1 refresh, got %d", refreshes)
	}
	if events.inserts != 1 {
		t.Fatalf("expected 1 successful insert, got %d", events.inserts)
	}
}

func TestSyncGivesUpWhenRetryFails(t *testing.T) {
	store := newCalFakeStore()
	store.configs = []Config{{ID: 1, LeaveType: "Sick", CalendarID: "cal-1", IsActive: true}}
	store.creds = &Credentials{ClientID: "cid"}
	store.token = validToken()
	events := &fakeEvents{failUntil: 10}
	svc := newTestService(store, events)

	refreshes := 0
	svc.refresh = func(ctx context.Context, oauthCfg *oauth2.Config, token *Token) (*Token, error) {
		refreshes++
		return token, nil
	}

	result := svc.SyncLeave(context.Background(), sickLeave(), "John")
	if result.Synced != 0 {
		t.Fatalf("expected no sync, got %+v", result)
	}
	if refreshes != 1 {
		t.Fatalf("expected a single refresh attempt, got %d", refreshes)
	}
	if events.calls != 2 {
		t.Fatalf("expected original call plus one retry, got %d calls", events.calls)
	}
}

func TestDeleteLeaveEventsRemovesMappingsOnRemoteFailure(t *testing.T) {
	store := newCalFakeStore()
	store.creds = &Credentials{ClientID: "cid"}
	store.token = validToken()
	_ = store.UpsertMapping(context.Background(), 7, "cal-1", "evt-1", time.Now())
	_ = store.UpsertMapping(context.Background(), 7, "cal-2", "evt-2", time.Now())
	events := &fakeEvents{deleteErr: errors.New("remote gone wrong")}
	svc := newTestService(store, events)

	result := svc.DeleteLeaveEvents(context.Background(), 7)
	if result.Skipped {
		t.Fatalf("expected cleanup to proceed, got %+v", result)
	}
	if len(store.mappings) != 0 {
		t.Fatalf("expected all mapping rows removed, got %d", len(store.mappings))
	}
}

func TestDeleteLeaveEventsNoMappings(t *testing.T) {
	store := newCalFakeStore()
	svc := newTestService(store, &fakeEvents{})
	result := svc.DeleteLeaveEvents(context.Background(), 42)
	if result.Skipped || result.Synced != 0 {
		t.Fatalf("expected empty no-op result, got %+v", result)
	}
}
