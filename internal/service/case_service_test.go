package service

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/events"
	"github.com/spec-kit/case-service/internal/repository"
	"github.com/spec-kit/case-service/internal/storage"
)

var pdfBody = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

type caseFixture struct {
	cases      *CaseService
	reports    *ReportService
	visits     *VisitingService
	caseRepo   *memCases
	store      storage.ObjectStore
	dispatcher events.Dispatcher
}

func newCaseFixture(t *testing.T) *caseFixture {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	caseRepo := newMemCases()
	reportRepo := newMemReports(caseRepo)
	dispatcher := events.NewInMemoryDispatcher()
	logger := zap.NewNop()

	return &caseFixture{
		cases:      NewCaseService(caseRepo, reportRepo, dispatcher, logger),
		reports:    NewReportService(reportRepo, caseRepo, store, logger),
		visits:     NewVisitingService(newMemVisits(), caseRepo),
		caseRepo:   caseRepo,
		store:      store,
		dispatcher: dispatcher,
	}
}

func (f *caseFixture) newCase(t *testing.T, name string) *domain.Case {
	t.Helper()
	c, err := f.cases.Create(context.Background(), "actor-1", CaseInput{FullName: name, Code: 7, Disease: "flu", Age: 40})
	require.NoError(t, err)
	return c
}

func TestCaseService_CRUD(t *testing.T) {
	f := newCaseFixture(t)
	ctx := context.Background()
	fixed := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f.cases.now = func() time.Time { return fixed }

	c, err := f.cases.Create(ctx, "actor-1", CaseInput{FullName: " Reza Amini ", Code: 12, Disease: "asthma", Age: 31})
	require.NoError(t, err)
	assert.Equal(t, "Reza Amini", c.FullName)
	assert.Equal(t, "actor-1", c.UserID)
	assert.Equal(t, fixed, c.Date)

	age := 32
	updated, err := f.cases.Update(ctx, c.ID, CasePatch{Age: &age})
	require.NoError(t, err)
	assert.Equal(t, 32, updated.Age)
	assert.Equal(t, "asthma", updated.Disease)

	got, err := f.cases.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 32, got.Age)

	_, err = f.cases.Update(ctx, "missing", CasePatch{Age: &age})
	assert.ErrorIs(t, err, ErrCaseNotFound)

	list, total, err := f.cases.List(ctx, repository.Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, list, 1)
}

func TestCaseService_DeleteAnnouncesReportFiles(t *testing.T) {
	f := newCaseFixture(t)
	ctx := context.Background()
	c := f.newCase(t, "Reza Amini")

	report, err := f.reports.Create(ctx, "actor-1", c.ID, Upload{Reader: bytes.NewReader(pdfBody)})
	require.NoError(t, err)

	var (
		mu      sync.Mutex
		payload events.CaseDeletedPayload
	)
	f.dispatcher.Subscribe(events.EventCaseDeleted, func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		payload = e.Payload.(events.CaseDeletedPayload)
		return nil
	})
	f.dispatcher.Subscribe(events.EventCaseDeleted, func(ctx context.Context, e events.Event) error {
		f.reports.RemoveFiles(ctx, e.Payload.(events.CaseDeletedPayload).ReportFiles)
		return nil
	})

	require.NoError(t, f.cases.Delete(ctx, c.ID))
	assert.Equal(t, c.ID, payload.CaseID)
	assert.Equal(t, []string{report.File}, payload.ReportFiles)

	_, err = f.reports.Get(ctx, report.ID)
	assert.ErrorIs(t, err, ErrReportNotFound)
	_, err = f.store.Open(ctx, reportPrefix+report.File)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)

	assert.ErrorIs(t, f.cases.Delete(ctx, c.ID), ErrCaseNotFound)
}

func TestReportService_Create(t *testing.T) {
	f := newCaseFixture(t)
	ctx := context.Background()
	c := f.newCase(t, "Reza Amini")

	report, err := f.reports.Create(ctx, "actor-1", c.ID, Upload{Reader: bytes.NewReader(pdfBody), Size: int64(len(pdfBody))})
	require.NoError(t, err)
	assert.Regexp(t, `^report-\d+-[0-9a-f]{8}\.pdf$`, report.File)
	assert.Equal(t, "Reza Amini", report.CaseFullName)
	assert.Equal(t, "actor-1", report.UserID)

	obj, err := f.reports.OpenFile(ctx, report.File)
	require.NoError(t, err)
	defer obj.Body.Close()
	assert.Equal(t, "application/pdf", obj.ContentType)

	_, err = f.reports.Create(ctx, "actor-1", c.ID, Upload{Reader: bytes.NewReader(pngHeader)})
	assert.ErrorIs(t, err, ErrReportNotPDF)

	_, err = f.reports.Create(ctx, "actor-1", "missing", Upload{Reader: bytes.NewReader(pdfBody)})
	assert.ErrorIs(t, err, ErrCaseNotFound)

	all, total, err := f.reports.List(ctx, repository.ReportFilter{Page: repository.Page{Limit: 10}})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, all, 1)
}

func TestReportService_MoveAndDelete(t *testing.T) {
	f := newCaseFixture(t)
	ctx := context.Background()
	from := f.newCase(t, "Reza Amini")
	to := f.newCase(t, "Nika Sadr")

	report, err := f.reports.Create(ctx, "actor-1", from.ID, Upload{Reader: bytes.NewReader(pdfBody)})
	require.NoError(t, err)

	moved, err := f.reports.Move(ctx, report.ID, to.ID)
	require.NoError(t, err)
	assert.Equal(t, to.ID, moved.CaseID)
	assert.Equal(t, "Nika Sadr", moved.CaseFullName)

	_, err = f.reports.Move(ctx, report.ID, "missing")
	assert.ErrorIs(t, err, ErrCaseNotFound)

	filter := repository.ReportFilter{CaseID: &from.ID, Page: repository.Page{Limit: 10}}
	_, total, err := f.reports.List(ctx, filter)
	require.NoError(t, err)
	assert.Zero(t, total)

	require.NoError(t, f.reports.Delete(ctx, report.ID))
	_, err = f.reports.OpenFile(ctx, report.File)
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.ErrorIs(t, f.reports.Delete(ctx, report.ID), ErrReportNotFound)
}

func TestVisitingService(t *testing.T) {
	f := newCaseFixture(t)
	ctx := context.Background()
	c := f.newCase(t, "Reza Amini")
	other := f.newCase(t, "Nika Sadr")
	visitedAt := time.Date(2024, 4, 2, 15, 30, 0, 0, time.FixedZone("IRST", 12600))

	note := "stable"
	v, err := f.visits.Create(ctx, "actor-1", VisitingInput{CaseID: c.ID, VisitedAt: visitedAt, Comments: &note})
	require.NoError(t, err)
	assert.Equal(t, time.UTC, v.VisitedAt.Location())
	assert.True(t, v.VisitedAt.Equal(visitedAt))

	_, err = f.visits.Create(ctx, "actor-1", VisitingInput{CaseID: "missing", VisitedAt: visitedAt})
	assert.ErrorIs(t, err, ErrCaseNotFound)

	updated, err := f.visits.Update(ctx, v.ID, VisitingPatch{CaseID: &other.ID})
	require.NoError(t, err)
	assert.Equal(t, other.ID, updated.CaseID)
	assert.Equal(t, "stable", *updated.Comments)

	missing := "missing"
	_, err = f.visits.Update(ctx, v.ID, VisitingPatch{CaseID: &missing})
	assert.ErrorIs(t, err, ErrCaseNotFound)

	list, total, err := f.visits.List(ctx, repository.VisitingFilter{CaseID: &other.ID, Page: repository.Page{Limit: 10}})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, list, 1)

	require.NoError(t, f.visits.Delete(ctx, v.ID))
	_, err = f.visits.Get(ctx, v.ID)
	assert.ErrorIs(t, err, ErrVisitingNotFound)
	assert.ErrorIs(t, f.visits.Delete(ctx, v.ID), ErrVisitingNotFound)
}
