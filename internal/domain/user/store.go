package user

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"leavedesk/internal/platform/querier"
)

type StoreAPI interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id int64) (User, error)
	CredentialsByEmail(ctx context.Context, email string) (User, string, error)
	Create(ctx context.Context, input CreateInput, passwordHash string) (int64, error)
	Update(ctx context.Context, id int64, input UpdateInput, passwordHash string) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
	CountAdmins(ctx context.Context) (int, error)
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) List(ctx context.Context) ([]User, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, email, role, department, created_at, updated_at
    FROM users
    ORDER BY name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Department, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) Get(ctx context.Context, id int64) (User, error) {
	var u User
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, email, role, department, created_at, updated_at
    FROM users
    WHERE id = $1
  `, id).Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Department, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (s *Store) CredentialsByEmail(ctx context.Context, email string) (User, string, error) {
	var u User
	var hash string
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, email, role, department, password_hash, created_at, updated_at
    FROM users
    WHERE email = $1
  `, email).Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Department, &hash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, "", ErrNotFound
	}
	return u, hash, err
}

func (s *Store) Create(ctx context.Context, input CreateInput, passwordHash string) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO users (name, email, password_hash, role, department)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id
  `, input.Name, input.Email, passwordHash, input.Role, input.Department).Scan(&id)
	if isUniqueViolation(err) {
		return 0, ErrEmailTaken
	}
	return id, err
}

func (s *Store) Update(ctx context.Context, id int64, input UpdateInput, passwordHash string) error {
	var tag pgconn.CommandTag
	var err error
	if passwordHash != "" {
		tag, err = s.DB.Exec(ctx, `
      UPDATE users
      SET name = $1, role = $2, department = $3, password_hash = $4, updated_at = now()
      WHERE id = $5
    `, input.Name, input.Role, input.Department, passwordHash, id)
	} else {
		tag, err = s.DB.Exec(ctx, `
      UPDATE users
      SET name = $1, role = $2, department = $3, updated_at = now()
      WHERE id = $4
    `, input.Name, input.Role, input.Department, id)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE users
    SET password_hash = $1, updated_at = now()
    WHERE id = $2
  `, passwordHash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM users WHERE role = 'admin'").Scan(&count)
	return count, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
