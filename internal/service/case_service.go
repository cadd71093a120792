package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/events"
	"github.com/spec-kit/case-service/internal/repository"
)

// CaseService manages medical cases.
type CaseService struct {
	cases      repository.CaseRepository
	reports    repository.ReportRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewCaseService builds the service.
func NewCaseService(cases repository.CaseRepository, reports repository.ReportRepository, dispatcher events.Dispatcher, logger *zap.Logger) *CaseService {
	return &CaseService{cases: cases, reports: reports, dispatcher: dispatcher, logger: logger, now: time.Now}
}

// CaseInput carries a new case.
type CaseInput struct {
	FullName string
	Code     int
	Disease  string
	Age      int
	Date     *time.Time
}

// CasePatch carries a partial case update.
type CasePatch struct {
	FullName *string
	Code     *int
	Disease  *string
	Age      *int
	Date     *time.Time
}

func (s *CaseService) List(ctx context.Context, page repository.Page) ([]domain.Case, int, error) {
	return s.cases.List(ctx, page)
}

func (s *CaseService) Get(ctx context.Context, id string) (*domain.Case, error) {
	c, err := s.cases.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCaseNotFound
		}
		return nil, err
	}
	return c, nil
}

// Create records a case opened by actorID; the date defaults to now.
func (s *CaseService) Create(ctx context.Context, actorID string, in CaseInput) (*domain.Case, error) {
	c := &domain.Case{
		UserID:   actorID,
		FullName: strings.TrimSpace(in.FullName),
		Code:     in.Code,
		Disease:  strings.TrimSpace(in.Disease),
		Age:      in.Age,
		Date:     s.now().UTC(),
	}
	if in.Date != nil {
		c.Date = in.Date.UTC()
	}
	if err := s.cases.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CaseService) Update(ctx context.Context, id string, patch CasePatch) (*domain.Case, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.FullName != nil {
		c.FullName = strings.TrimSpace(*patch.FullName)
	}
	if patch.Code != nil {
		c.Code = *patch.Code
	}
	if patch.Disease != nil {
		c.Disease = strings.TrimSpace(*patch.Disease)
	}
	if patch.Age != nil {
		c.Age = *patch.Age
	}
	if patch.Date != nil {
		c.Date = patch.Date.UTC()
	}
	if err := s.cases.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCaseNotFound
		}
		return nil, err
	}
	return c, nil
}

// Delete removes the case with its reports and visits, then announces the report
// files left behind so they can be cleaned from storage.
func (s *CaseService) Delete(ctx context.Context, id string) error {
	files, err := s.reports.ListFilesByCase(ctx, id)
	if err != nil {
		return err
	}
	if err := s.cases.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCaseNotFound
		}
		return err
	}
	if s.dispatcher != nil && len(files) > 0 {
		event := events.New(events.EventCaseDeleted, "", events.CaseDeletedPayload{CaseID: id, ReportFiles: files})
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("case cleanup handlers failed", zap.String("case_id", id), zap.Error(err))
		}
	}
	return nil
}
