package user

import (
	"context"

	"leavedesk/internal/domain/auth"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.store.Get(ctx, id)
}

// Authenticate checks email+password and returns the matching user.
// Lookup misses and bad passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, hash, err := s.store.CredentialsByEmail(ctx, email)
	if err != nil {
		return User{}, ErrNotFound
	}
	if err := auth.CheckPassword(hash, password); err != nil {
		return User{}, ErrNotFound
	}
	return u, nil
}

// Register creates a self-service employee account. The role is forced to
// employee regardless of input.
func (s *Service) Register(ctx context.Context, input CreateInput) (User, error) {
	input.Role = auth.RoleEmployee
	return s.create(ctx, input)
}

// Create is the admin path and honors the requested role.
func (s *Service) Create(ctx context.Context, input CreateInput) (User, error) {
	if input.Role != auth.RoleAdmin {
		input.Role = auth.RoleEmployee
	}
	return s.create(ctx, input)
}

func (s *Service) create(ctx context.Context, input CreateInput) (User, error) {
	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return User{}, err
	}
	id, err := s.store.Create(ctx, input, hash)
	if err != nil {
		return User{}, err
	}
	return s.store.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (User, error) {
	if input.Role != auth.RoleAdmin {
		input.Role = auth.RoleEmployee
	}

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if current.Role == auth.RoleAdmin && input.Role != auth.RoleAdmin {
		admins, err := s.store.CountAdmins(ctx)
		if err != nil {
			return User{}, err
		}
		if admins <= 1 {
			return User{}, ErrLastAdmin
		}
	}

	hash := ""
	if input.Password != "" {
		hash, err = auth.HashPassword(input.Password)
		if err != nil {
			return User{}, err
		}
	}
	if err := s.store.Update(ctx, id, input, hash); err != nil {
		return User{}, err
	}
	return s.store.Get(ctx, id)
}

// ChangePassword is the self-service path: the caller proves knowledge of
// the current password before the hash is replaced.
func (s *Service) ChangePassword(ctx context.Context, id int64, current, next string) error {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	_, hash, err := s.store.CredentialsByEmail(ctx, u.Email)
	if err != nil {
		return err
	}
	if err := auth.CheckPassword(hash, current); err != nil {
		return ErrWrongPassword
	}
	nextHash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return s.store.UpdatePassword(ctx, id, nextHash)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	target, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if target.Role == auth.RoleAdmin {
		admins, err := s.store.CountAdmins(ctx)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return ErrLastAdmin
		}
	}
	return s.store.Delete(ctx, id)
}
