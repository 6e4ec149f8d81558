package slack

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"leavedesk/internal/platform/querier"
)

type StoreAPI interface {
	// GetConfig returns nil when no config row exists yet.
	GetConfig(ctx context.Context) (*Config, error)
	// SaveConfig creates the singleton row on first save and updates it
	// afterwards, never producing a second row.
	SaveConfig(ctx context.Context, cfg Config) (Config, error)
	DeleteConfig(ctx context.Context) error
	MarkSummarySent(ctx context.Context, at time.Time) error
	LeavesInWindow(ctx context.Context, from, to time.Time) ([]SummaryRow, error)
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) GetConfig(ctx context.Context) (*Config, error) {
	var cfg Config
	err := s.DB.QueryRow(ctx, `
    SELECT id, channel_id, bot_token, webhook_url, enabled, day_range,
           schedule_time, workdays_only, last_summary_sent_at, created_at, updated_at
    FROM slack_configs
    ORDER BY id
    LIMIT 1
  `).Scan(
		&cfg.ID, &cfg.ChannelID, &cfg.BotToken, &cfg.WebhookURL, &cfg.Enabled, &cfg.DayRange,
		&cfg.ScheduleTime, &cfg.WorkdaysOnly, &cfg.LastSummarySentAt, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Store) SaveConfig(ctx context.Context, cfg Config) (Config, error) {
	existing, err := s.GetConfig(ctx)
	if err != nil {
		return Config{}, err
	}
	if existing == nil {
		err = s.DB.QueryRow(ctx, `
      INSERT INTO slack_configs (channel_id, bot_token, webhook_url, enabled, day_range, schedule_time, workdays_only)
      VALUES ($1,$2,$3,$4,$5,$6,$7)
      RETURNING id, created_at, updated_at
    `, cfg.ChannelID, cfg.BotToken, cfg.WebhookURL, cfg.Enabled, cfg.DayRange, cfg.ScheduleTime, cfg.WorkdaysOnly).
			Scan(&cfg.ID, &cfg.CreatedAt, &cfg.UpdatedAt)
		return cfg, err
	}

	err = s.DB.QueryRow(ctx, `
    UPDATE slack_configs
    SET channel_id = $1, bot_token = $2, webhook_url = $3, enabled = $4,
        day_range = $5, schedule_time = $6, workdays_only = $7, updated_at = now()
    WHERE id = $8
    RETURNING id, created_at, updated_at
  `, cfg.ChannelID, cfg.BotToken, cfg.WebhookURL, cfg.Enabled, cfg.DayRange, cfg.ScheduleTime, cfg.WorkdaysOnly, existing.ID).
		Scan(&cfg.ID, &cfg.CreatedAt, &cfg.UpdatedAt)
	cfg.LastSummarySentAt = existing.LastSummarySentAt
	return cfg, err
}

func (s *Store) DeleteConfig(ctx context.Context) error {
	_, err := s.DB.Exec(ctx, "DELETE FROM slack_configs")
	return err
}

func (s *Store) MarkSummarySent(ctx context.Context, at time.Time) error {
	_, err := s.DB.Exec(ctx, "UPDATE slack_configs SET last_summary_sent_at = $1, updated_at = now()", at)
	return err
}

// LeavesInWindow returns leaves whose date range intersects [from, to).
func (s *Store) LeavesInWindow(ctx context.Context, from, to time.Time) ([]SummaryRow, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT u.name, u.department, l.start_date, l.end_date, l.leave_type, l.status, l.is_half_day, l.period
    FROM leaves l
    JOIN users u ON u.id = l.user_id
    WHERE l.start_date < $2 AND l.end_date >= $1
    ORDER BY l.start_date, u.name
  `, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SummaryRow
	for rows.Next() {
		var row SummaryRow
		if err := rows.Scan(&row.UserName, &row.Department, &row.StartDate, &row.EndDate, &row.LeaveType, &row.Status, &row.IsHalfDay, &row.Period); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
