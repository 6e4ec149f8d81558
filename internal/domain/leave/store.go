package leave

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"leavedesk/internal/platform/querier"
)

type StoreAPI interface {
	Create(ctx context.Context, userID int64, fields Fields) (int64, error)
	Get(ctx context.Context, id int64) (LeaveRequest, error)
	ListAll(ctx context.Context) ([]LeaveRequest, error)
	ListByUser(ctx context.Context, userID int64) ([]LeaveRequest, error)
	Update(ctx context.Context, id int64, fields Fields) error
	SetStatus(ctx context.Context, id int64, status string, approverID int64) error
	MarkSlackNotified(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const leaveColumns = `
  l.id, l.user_id, l.start_date, l.end_date, l.leave_type, l.reason,
  l.is_half_day, l.period, l.status, l.approved_by_id,
  l.slack_notification_sent, l.created_at, l.updated_at`

func scanLeave(row pgx.Row) (LeaveRequest, error) {
	var lv LeaveRequest
	err := row.Scan(
		&lv.ID, &lv.UserID, &lv.StartDate, &lv.EndDate, &lv.LeaveType, &lv.Reason,
		&lv.IsHalfDay, &lv.Period, &lv.Status, &lv.ApprovedByID,
		&lv.SlackNotificationSent, &lv.CreatedAt, &lv.UpdatedAt,
	)
	return lv, err
}

func (s *Store) Create(ctx context.Context, userID int64, fields Fields) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO leaves (user_id, start_date, end_date, leave_type, reason, is_half_day, period, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id
  `, userID, fields.StartDate, fields.EndDate, fields.LeaveType, fields.Reason, fields.IsHalfDay, fields.Period, StatusPending).Scan(&id)
	return id, err
}

func (s *Store) Get(ctx context.Context, id int64) (LeaveRequest, error) {
	lv, err := scanLeave(s.DB.QueryRow(ctx, `
    SELECT`+leaveColumns+`
    FROM leaves l
    WHERE l.id = $1
  `, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveRequest{}, ErrNotFound
	}
	return lv, err
}

func (s *Store) ListAll(ctx context.Context) ([]LeaveRequest, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT`+leaveColumns+`, u.name, u.department
    FROM leaves l
    JOIN users u ON u.id = l.user_id
    ORDER BY l.start_date DESC
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leaves []LeaveRequest
	for rows.Next() {
		var lv LeaveRequest
		if err := rows.Scan(
			&lv.ID, &lv.UserID, &lv.StartDate, &lv.EndDate, &lv.LeaveType, &lv.Reason,
			&lv.IsHalfDay, &lv.Period, &lv.Status, &lv.ApprovedByID,
			&lv.SlackNotificationSent, &lv.CreatedAt, &lv.UpdatedAt,
			&lv.UserName, &lv.Department,
		); err != nil {
			return nil, err
		}
		leaves = append(leaves, lv)
	}
	return leaves, rows.Err()
}

func (s *Store) ListByUser(ctx context.Context, userID int64) ([]LeaveRequest, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT`+leaveColumns+`
    FROM leaves l
    WHERE l.user_id = $1
    ORDER BY l.start_date DESC
  `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leaves []LeaveRequest
	for rows.Next() {
		var lv LeaveRequest
		if err := rows.Scan(
			&lv.ID, &lv.UserID, &lv.StartDate, &lv.EndDate, &lv.LeaveType, &lv.Reason,
			&lv.IsHalfDay, &lv.Period, &lv.Status, &lv.ApprovedByID,
			&lv.SlackNotificationSent, &lv.CreatedAt, &lv.UpdatedAt,
		); err != nil {
			return nil, err
		}
		leaves = append(leaves, lv)
	}
	return leaves, rows.Err()
}

func (s *Store) Update(ctx context.Context, id int64, fields Fields) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leaves
    SET start_date = $1, end_date = $2, leave_type = $3, reason = $4,
        is_half_day = $5, period = $6, updated_at = now()
    WHERE id = $7
  `, fields.StartDate, fields.EndDate, fields.LeaveType, fields.Reason, fields.IsHalfDay, fields.Period, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetStatus(ctx context.Context, id int64, status string, approverID int64) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leaves
    SET status = $1, approved_by_id = $2, updated_at = now()
    WHERE id = $3
  `, status, approverID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) MarkSlackNotified(ctx context.Context, id int64) error {
	_, err := s.DB.Exec(ctx, "UPDATE leaves SET slack_notification_sent = TRUE WHERE id = $1", id)
	return err
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM leaves WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
