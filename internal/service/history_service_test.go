package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusevents/event-api/internal/dto"
	appErrors "github.com/campusevents/event-api/pkg/errors"
)

type historySourceStub struct {
	rows        []dto.HistoryRow
	requestedBy string
	err         error
}

func (h *historySourceStub) HistoryRows(ctx context.Context, requestedBy string) ([]dto.HistoryRow, error) {
	h.requestedBy = requestedBy
	return h.rows, h.err
}

func historyFixture() (*HistoryService, *historySourceStub) {
	at := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	source := &historySourceStub{rows: []dto.HistoryRow{
		{RequestID: "r1", Title: "Tech Talk", RequestedByName: "Coding Club", Status: "Pending", ActedByName: "Coding Club", At: at, Note: "Requested"},
		{RequestID: "r1", Title: "Tech Talk", RequestedByName: "Coding Club", Status: "Approved", ActedByName: "Dean", At: at.Add(time.Hour), Note: "ok"},
		{RequestID: "r2", Title: "Quiz Night", RequestedByName: "Quiz Club", Status: "Pending", At: at, Note: "Requested"},
	}}
	svc := NewHistoryService(source, nil)
	svc.now = func() time.Time { return at }
	return svc, source
}

func TestHistoryRowsScopesByRole(t *testing.T) {
	svc, source := historyFixture()
	ctx := context.Background()

	rows, err := svc.Rows(ctx, adminPrincipal, "")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Empty(t, source.requestedBy)
	assert.Equal(t, "System", rows[2].ActedByName)

	_, err = svc.Rows(ctx, committeeOne, "")
	require.NoError(t, err)
	assert.Equal(t, committeeOne.UserID, source.requestedBy)

	_, err = svc.Rows(ctx, plainUser, "")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestHistoryRowsSearch(t *testing.T) {
	svc, _ := historyFixture()

	rows, err := svc.Rows(context.Background(), adminPrincipal, "  DEAN ")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Approved", rows[0].Status)

	rows, err = svc.Rows(context.Background(), adminPrincipal, "system")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "r2", rows[0].RequestID)
}

func TestHistoryExportCSV(t *testing.T) {
	svc, _ := historyFixture()

	file, err := svc.Export(context.Background(), adminPrincipal, dto.HistoryQuery{Search: "tech"})
	require.NoError(t, err)
	assert.Equal(t, "event-requests-history-2025-04-01.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	lines := strings.Split(strings.TrimSpace(string(file.Payload)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Request ID,Title"))
	assert.Contains(t, lines[2], "Dean")
}

func TestHistoryExportPDF(t *testing.T) {
	svc, _ := historyFixture()

	file, err := svc.Export(context.Background(), committeeOne, dto.HistoryQuery{Format: "PDF"})
	require.NoError(t, err)
	assert.Equal(t, "event-requests-history-2025-04-01.pdf", file.Filename)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Payload, []byte("%PDF")))
}

func TestHistoryExportErrors(t *testing.T) {
	svc, source := historyFixture()

	_, err := svc.Export(context.Background(), adminPrincipal, dto.HistoryQuery{Format: "xlsx"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	source.err = errors.New("db down")
	_, err = svc.Export(context.Background(), adminPrincipal, dto.HistoryQuery{})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}
