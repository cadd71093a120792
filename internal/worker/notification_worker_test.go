package worker

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/events"
	"github.com/spec-kit/case-service/internal/service"
	"github.com/spec-kit/case-service/internal/storage"
)

func TestStorageJanitor(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "reports/report-1.pdf", strings.NewReader("%PDF-1.4"), 8, "application/pdf"))
	require.NoError(t, store.Put(ctx, "reports/report-2.pdf", strings.NewReader("%PDF-1.4"), 8, "application/pdf"))

	dispatcher := events.NewInMemoryDispatcher()
	StartStorageJanitor(dispatcher, service.NewReportService(nil, nil, store, zap.NewNop()))

	err = dispatcher.Publish(ctx, events.New(events.EventCaseDeleted, "", events.CaseDeletedPayload{
		CaseID:      "c-1",
		ReportFiles: []string{"report-1.pdf", "already-gone.pdf"},
	}))
	require.NoError(t, err)

	_, err = store.Open(ctx, "reports/report-1.pdf")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	obj, err := store.Open(ctx, "reports/report-2.pdf")
	require.NoError(t, err)
	obj.Body.Close()

	err = dispatcher.Publish(ctx, events.New(events.EventCaseDeleted, "", "bogus"))
	assert.ErrorContains(t, err, "unexpected payload")
}

func TestStartWorkers_NilSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		StartNotificationWorker(nil)
		StartStorageJanitor(nil, nil)
	})
}
