package leave

import (
	"context"
	"fmt"

	"leavedesk/internal/domain/auth"
)

// Service owns the leave repository rules: ownership checks, role-scoped
// visibility, and half-day normalization. Date ordering is validated at the
// HTTP boundary, not here.
type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

// normalize keeps the half-day invariant: full-day leaves carry no period,
// half-day leaves must name one.
func normalize(fields *Fields) error {
	if !fields.IsHalfDay {
		fields.Period = nil
		return nil
	}
	if fields.Period == nil {
		return fmt.Errorf("%w: half-day leave requires a period", ErrInvalid)
	}
	if *fields.Period != PeriodMorning && *fields.Period != PeriodAfternoon {
		return fmt.Errorf("%w: period must be morning or afternoon", ErrInvalid)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, ownerID int64, fields Fields) (LeaveRequest, error) {
	if err := normalize(&fields); err != nil {
		return LeaveRequest{}, err
	}
	id, err := s.store.Create(ctx, ownerID, fields)
	if err != nil {
		return LeaveRequest{}, err
	}
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, requesterID int64, requesterRole string) ([]LeaveRequest, error) {
	if requesterRole == auth.RoleAdmin {
		return s.store.ListAll(ctx)
	}
	return s.store.ListByUser(ctx, requesterID)
}

// GetForRequester returns the leave if the requester may act on it.
func (s *Service) GetForRequester(ctx context.Context, id, requesterID int64, requesterRole string) (LeaveRequest, error) {
	lv, err := s.store.Get(ctx, id)
	if err != nil {
		return LeaveRequest{}, err
	}
	if lv.UserID != requesterID && requesterRole != auth.RoleAdmin {
		return LeaveRequest{}, ErrForbidden
	}
	return lv, nil
}

func (s *Service) Update(ctx context.Context, id, requesterID int64, requesterRole string, fields Fields) (LeaveRequest, error) {
	if _, err := s.GetForRequester(ctx, id, requesterID, requesterRole); err != nil {
		return LeaveRequest{}, err
	}
	if err := normalize(&fields); err != nil {
		return LeaveRequest{}, err
	}
	if err := s.store.Update(ctx, id, fields); err != nil {
		return LeaveRequest{}, err
	}
	return s.store.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id, requesterID int64, requesterRole string) (LeaveRequest, error) {
	lv, err := s.GetForRequester(ctx, id, requesterID, requesterRole)
	if err != nil {
		return LeaveRequest{}, err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return LeaveRequest{}, err
	}
	return lv, nil
}

// SetStatus is the approval path; admin only.
func (s *Service) SetStatus(ctx context.Context, id int64, status string, approverID int64, approverRole string) (LeaveRequest, error) {
	if approverRole != auth.RoleAdmin {
		return LeaveRequest{}, ErrForbidden
	}
	if status != StatusApproved && status != StatusRejected {
		return LeaveRequest{}, fmt.Errorf("%w: status must be approved or rejected", ErrInvalid)
	}
	if err := s.store.SetStatus(ctx, id, status, approverID); err != nil {
		return LeaveRequest{}, err
	}
	return s.store.Get(ctx, id)
}

func (s *Service) MarkSlackNotified(ctx context.Context, id int64) error {
	return s.store.MarkSlackNotified(ctx, id)
}
