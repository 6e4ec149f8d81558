package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	cryptoutil "leavedesk/internal/platform/crypto"
	"leavedesk/internal/platform/querier"
)

type StoreAPI interface {
	ListConfigs(ctx context.Context) ([]Config, error)
	ActiveConfigsForType(ctx context.Context, leaveType string) ([]Config, error)
	CreateConfig(ctx context.Context, cfg Config) (Config, error)
	UpdateConfig(ctx context.Context, id int64, calendarName string, isActive bool) (Config, error)
	DeleteConfig(ctx context.Context, id int64) error

	GetMapping(ctx context.Context, leaveID int64, calendarID string) (*EventMapping, error)
	UpsertMapping(ctx context.Context, leaveID int64, calendarID, eventID string, at time.Time) error
	MappingsForLeave(ctx context.Context, leaveID int64) ([]EventMapping, error)
	DeleteMappingsForLeave(ctx context.Context, leaveID int64) error

	SaveToken(ctx context.Context, userID int64, accessToken, refreshToken string, expiry time.Time) error
	TokenByUser(ctx context.Context, userID int64) (*Token, error)
	LatestToken(ctx context.Context) (*Token, error)
	DeleteToken(ctx context.Context, userID int64) error

	SaveCredentials(ctx context.Context, creds Credentials) error
	GetCredentials(ctx context.Context) (*Credentials, error)
	DeleteCredentials(ctx context.Context) error
}

// Store persists calendar configs, sync mappings, per-admin OAuth tokens and
// the client credential singleton. Tokens and credentials go through the
// application cipher on the way in and out.
type Store struct {
	DB     querier.Querier
	Crypto *cryptoutil.Service
}

func NewStore(db querier.Querier, crypto *cryptoutil.Service) *Store {
	return &Store{DB: db, Crypto: crypto}
}

func (s *Store) ListConfigs(ctx context.Context) ([]Config, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, leave_type, calendar_id, calendar_name, is_active, created_at, updated_at
    FROM google_calendar_configs
    ORDER BY leave_type, calendar_name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConfigs(rows)
}

func (s *Store) ActiveConfigsForType(ctx context.Context, leaveType string) ([]Config, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, leave_type, calendar_id, calendar_name, is_active, created_at, updated_at
    FROM google_calendar_configs
    WHERE is_active AND (leave_type = $1 OR leave_type = $2)
    ORDER BY id
  `, leaveType, LeaveTypeAll)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConfigs(rows)
}

func scanConfigs(rows pgx.Rows) ([]Config, error) {
	var configs []Config
	for rows.Next() {
		var c Config
		if err := rows.Scan(&c.ID, &c.LeaveType, &c.CalendarID, &c.CalendarName, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

// CreateConfig relies on the (leave_type, calendar_id) unique constraint to
// reject duplicates, so two concurrent creates cannot both succeed.
func (s *Store) CreateConfig(ctx context.Context, cfg Config) (Config, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO google_calendar_configs (leave_type, calendar_id, calendar_name, is_active)
    VALUES ($1,$2,$3,$4)
    RETURNING id, created_at, updated_at
  `, cfg.LeaveType, cfg.CalendarID, cfg.CalendarName, cfg.IsActive).Scan(&cfg.ID, &cfg.CreatedAt, &cfg.UpdatedAt)
	if isUniqueViolation(err) {
		return Config{}, ErrConflict
	}
	return cfg, err
}

func (s *Store) UpdateConfig(ctx context.Context, id int64, calendarName string, isActive bool) (Config, error) {
	var c Config
	err := s.DB.QueryRow(ctx, `
    UPDATE google_calendar_configs
    SET calendar_name = $1, is_active = $2, updated_at = now()
    WHERE id = $3
    RETURNING id, leave_type, calendar_id, calendar_name, is_active, created_at, updated_at
  `, calendarName, isActive, id).Scan(&c.ID, &c.LeaveType, &c.CalendarID, &c.CalendarName, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Config{}, ErrNotFound
	}
	return c, err
}

func (s *Store) DeleteConfig(ctx context.Context, id int64) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM google_calendar_configs WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetMapping(ctx context.Context, leaveID int64, calendarID string) (*EventMapping, error) {
	var m EventMapping
	err := s.DB.QueryRow(ctx, `
    SELECT id, leave_id, calendar_id, event_id, last_synced
    FROM google_calendar_events
    WHERE leave_id = $1 AND calendar_id = $2
  `, leaveID, calendarID).Scan(&m.ID, &m.LeaveID, &m.CalendarID, &m.EventID, &m.LastSynced)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) UpsertMapping(ctx context.Context, leaveID int64, calendarID, eventID string, at time.Time) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO google_calendar_events (leave_id, calendar_id, event_id, last_synced)
    VALUES ($1,$2,$3,$4)
    ON CONFLICT (leave_id, calendar_id)
    DO UPDATE SET event_id = EXCLUDED.event_id, last_synced = EXCLUDED.last_synced
  `, leaveID, calendarID, eventID, at)
	return err
}

func (s *Store) MappingsForLeave(ctx context.Context, leaveID int64) ([]EventMapping, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, leave_id, calendar_id, event_id, last_synced
    FROM google_calendar_events
    WHERE leave_id = $1
  `, leaveID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mappings []EventMapping
	for rows.Next() {
		var m EventMapping
		if err := rows.Scan(&m.ID, &m.LeaveID, &m.CalendarID, &m.EventID, &m.LastSynced); err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

func (s *Store) DeleteMappingsForLeave(ctx context.Context, leaveID int64) error {
	_, err := s.DB.Exec(ctx, "DELETE FROM google_calendar_events WHERE leave_id = $1", leaveID)
	return err
}

func (s *Store) SaveToken(ctx context.Context, userID int64, accessToken, refreshToken string, expiry time.Time) error {
	accessEnc, err := s.Crypto.EncryptString(accessToken)
	if err != nil {
		return err
	}
	refreshEnc, err := s.Crypto.EncryptString(refreshToken)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO google_oauth_tokens (user_id, access_token_enc, refresh_token_enc, expiry_date)
    VALUES ($1,$2,$3,$4)
    ON CONFLICT (user_id)
    DO UPDATE SET access_token_enc = EXCLUDED.access_token_enc,
                  refresh_token_enc = CASE WHEN EXCLUDED.refresh_token_enc IS NULL THEN google_oauth_tokens.refresh_token_enc ELSE EXCLUDED.refresh_token_enc END,
                  expiry_date = EXCLUDED.expiry_date,
                  updated_at = now()
  `, userID, accessEnc, refreshEnc, expiry)
	return err
}

func (s *Store) TokenByUser(ctx context.Context, userID int64) (*Token, error) {
	return s.scanToken(s.DB.QueryRow(ctx, `
    SELECT id, user_id, access_token_enc, refresh_token_enc, expiry_date, created_at, updated_at
    FROM google_oauth_tokens
    WHERE user_id = $1
  `, userID))
}

// LatestToken returns the most recently refreshed token of any admin; the
// sync path only needs some valid authorization, not a specific user's.
func (s *Store) LatestToken(ctx context.Context) (*Token, error) {
	return s.scanToken(s.DB.QueryRow(ctx, `
    SELECT id, user_id, access_token_enc, refresh_token_enc, expiry_date, created_at, updated_at
    FROM google_oauth_tokens
    ORDER BY updated_at DESC
    LIMIT 1
  `))
}

func (s *Store) scanToken(row pgx.Row) (*Token, error) {
	var t Token
	var accessEnc, refreshEnc []byte
	err := row.Scan(&t.ID, &t.UserID, &accessEnc, &refreshEnc, &t.ExpiryDate, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if t.AccessToken, err = s.Crypto.DecryptString(accessEnc); err != nil {
		return nil, err
	}
	if t.RefreshToken, err = s.Crypto.DecryptString(refreshEnc); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) DeleteToken(ctx context.Context, userID int64) error {
	_, err := s.DB.Exec(ctx, "DELETE FROM google_oauth_tokens WHERE user_id = $1", userID)
	return err
}

func (s *Store) SaveCredentials(ctx context.Context, creds Credentials) error {
	clientIDEnc, err := s.Crypto.EncryptString(creds.ClientID)
	if err != nil {
		return err
	}
	secretEnc, err := s.Crypto.EncryptString(creds.ClientSecret)
	if err != nil {
		return err
	}

	var existingID int64
	err = s.DB.QueryRow(ctx, "SELECT id FROM google_credentials ORDER BY id LIMIT 1").Scan(&existingID)
	if errors.Is(err, pgx.ErrNoRows) {
		_, err = s.DB.Exec(ctx, `
      INSERT INTO google_credentials (client_id_enc, client_secret_enc, redirect_uri)
      VALUES ($1,$2,$3)
    `, clientIDEnc, secretEnc, creds.RedirectURI)
		return err
	}
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
    UPDATE google_credentials
    SET client_id_enc = $1, client_secret_enc = $2, redirect_uri = $3, updated_at = now()
    WHERE id = $4
  `, clientIDEnc, secretEnc, creds.RedirectURI, existingID)
	return err
}

func (s *Store) GetCredentials(ctx context.Context) (*Credentials, error) {
	var clientIDEnc, secretEnc []byte
	var creds Credentials
	err := s.DB.QueryRow(ctx, `
    SELECT client_id_enc, client_secret_enc, redirect_uri
    FROM google_credentials
    ORDER BY id
    LIMIT 1
  `).Scan(&clientIDEnc, &secretEnc, &creds.RedirectURI)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if creds.ClientID, err = s.Crypto.DecryptString(clientIDEnc); err != nil {
		return nil, err
	}
	if creds.ClientSecret, err = s.Crypto.DecryptString(secretEnc); err != nil {
		return nil, err
	}
	return &creds, nil
}

func (s *Store) DeleteCredentials(ctx context.Context) error {
	_, err := s.DB.Exec(ctx, "DELETE FROM google_credentials")
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
