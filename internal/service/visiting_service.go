package service

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/repository"
)

// VisitingService manages visits recorded against cases.
type VisitingService struct {
	visits repository.VisitingRepository
	cases  repository.CaseRepository
}

// NewVisitingService builds the service.
func NewVisitingService(visits repository.VisitingRepository, cases repository.CaseRepository) *VisitingService {
	return &VisitingService{visits: visits, cases: cases}
}

// VisitingInput carries a new visit.
type VisitingInput struct {
	CaseID    string
	VisitedAt time.Time
	Comments  *string
}

// VisitingPatch carries a partial visit update.
type VisitingPatch struct {
	CaseID    *string
	VisitedAt *time.Time
	Comments  *string
}

func (s *VisitingService) List(ctx context.Context, filter repository.VisitingFilter) ([]domain.Visiting, int, error) {
	return s.visits.List(ctx, filter)
}

func (s *VisitingService) Get(ctx context.Context, id string) (*domain.Visiting, error) {
	v, err := s.visits.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVisitingNotFound
		}
		return nil, err
	}
	return v, nil
}

func (s *VisitingService) Create(ctx context.Context, actorID string, in VisitingInput) (*domain.Visiting, error) {
	if err := s.requireCase(ctx, in.CaseID); err != nil {
		return nil, err
	}
	v := &domain.Visiting{
		UserID:    actorID,
		CaseID:    in.CaseID,
		VisitedAt: in.VisitedAt.UTC(),
		Comments:  in.Comments,
	}
	if err := s.visits.Create(ctx, v); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCaseNotFound
		}
		return nil, err
	}
	return v, nil
}

func (s *VisitingService) Update(ctx context.Context, id string, patch VisitingPatch) (*domain.Visiting, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.CaseID != nil && *patch.CaseID != v.CaseID {
		if err := s.requireCase(ctx, *patch.CaseID); err != nil {
			return nil, err
		}
		v.CaseID = *patch.CaseID
	}
	if patch.VisitedAt != nil {
		v.VisitedAt = patch.VisitedAt.UTC()
	}
	if patch.Comments != nil {
		v.Comments = patch.Comments
	}
	if err := s.visits.Update(ctx, v); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVisitingNotFound
		}
		return nil, err
	}
	return v, nil
}

func (s *VisitingService) Delete(ctx context.Context, id string) error {
	if err := s.visits.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrVisitingNotFound
		}
		return err
	}
	return nil
}

func (s *VisitingService) requireCase(ctx context.Context, caseID string) error {
	if _, err := s.cases.GetByID(ctx, caseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCaseNotFound
		}
		return err
	}
	return nil
}
