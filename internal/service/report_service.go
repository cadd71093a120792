package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/repository"
	"github.com/spec-kit/case-service/internal/storage"
)

// ReportService manages PDF reports attached to cases.
type ReportService struct {
	reports repository.ReportRepository
	cases   repository.CaseRepository
	store   storage.ObjectStore
	logger  *zap.Logger
	now     func() time.Time
}

// NewReportService builds the service.
func NewReportService(reports repository.ReportRepository, cases repository.CaseRepository, store storage.ObjectStore, logger *zap.Logger) *ReportService {
	return &ReportService{reports: reports, cases: cases, store: store, logger: logger, now: time.Now}
}

func (s *ReportService) List(ctx context.Context, filter repository.ReportFilter) ([]domain.Report, int, error) {
	return s.reports.List(ctx, filter)
}

func (s *ReportService) Get(ctx context.Context, id string) (*domain.Report, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return report, nil
}

// Create stores the uploaded PDF and attaches it to caseID.
func (s *ReportService) Create(ctx context.Context, actorID, caseID string, up Upload) (*domain.Report, error) {
	if err := s.requireCase(ctx, caseID); err != nil {
		return nil, err
	}

	sniffed, err := storage.RequirePDF(up.Reader)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) {
			return nil, ErrReportNotPDF
		}
		return nil, err
	}

	name := objectName("report", ".pdf", s.now())
	if err := s.store.Put(ctx, reportPrefix+name, sniffed.Reader, up.Size, "application/pdf"); err != nil {
		return nil, err
	}

	report := &domain.Report{UserID: actorID, CaseID: caseID, File: name}
	if err := s.reports.Create(ctx, report); err != nil {
		s.removeFile(ctx, name)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCaseNotFound
		}
		return nil, err
	}
	return s.Get(ctx, report.ID)
}

// Move reattaches a report to another case.
func (s *ReportService) Move(ctx context.Context, id, caseID string) (*domain.Report, error) {
	if err := s.requireCase(ctx, caseID); err != nil {
		return nil, err
	}
	if err := s.reports.UpdateCase(ctx, id, caseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes the report and its stored file.
func (s *ReportService) Delete(ctx context.Context, id string) error {
	report, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.reports.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrReportNotFound
		}
		return err
	}
	s.removeFile(ctx, report.File)
	return nil
}

// RemoveFiles deletes stored report files, logging failures.
func (s *ReportService) RemoveFiles(ctx context.Context, names []string) {
	for _, name := range names {
		s.removeFile(ctx, name)
	}
}

// OpenFile streams a stored report PDF.
func (s *ReportService) OpenFile(ctx context.Context, name string) (*storage.Object, error) {
	return openObject(ctx, s.store, reportPrefix, name)
}

func (s *ReportService) requireCase(ctx context.Context, caseID string) error {
	if _, err := s.cases.GetByID(ctx, caseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCaseNotFound
		}
		return err
	}
	return nil
}

func (s *ReportService) removeFile(ctx context.Context, name string) {
	if err := s.store.Delete(ctx, reportPrefix+name); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		s.logger.Warn("delete report file", zap.String("file", name), zap.Error(err))
	}
}
