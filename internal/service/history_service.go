package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusevents/event-api/internal/dto"
	"github.com/campusevents/event-api/internal/models"
	appErrors "github.com/campusevents/event-api/pkg/errors"
	"github.com/campusevents/event-api/pkg/export"
)

// systemActor labels log entries without a recorded actor.
const systemActor = "System"

var historyColumns = []export.Column{
	{Key: "request_id", Title: "Request ID", Width: 1.6},
	{Key: "title", Title: "Title", Width: 1.6},
	{Key: "requested_by_name", Title: "Requested By"},
	{Key: "requested_by_email", Title: "Requester Email", Width: 1.4},
	{Key: "status", Title: "Status", Width: 0.7},
	{Key: "acted_by_name", Title: "Acted By"},
	{Key: "acted_by_email", Title: "Actor Email", Width: 1.4},
	{Key: "at", Title: "At", Width: 1.2},
	{Key: "note", Title: "Note", Width: 1.4},
}

type historySource interface {
	HistoryRows(ctx context.Context, requestedBy string) ([]dto.HistoryRow, error)
}

// HistoryService flattens request status logs for review and export.
type HistoryService struct {
	source historySource
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
	now    func() time.Time
}

// NewHistoryService constructs the history service.
func NewHistoryService(source historySource, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{
		source: source,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
		now:    time.Now,
	}
}

// Rows returns the status history visible to principal, filtered by search.
func (s *HistoryService) Rows(ctx context.Context, principal *models.Principal, search string) ([]dto.HistoryRow, error) {
	if err := requireRole(principal, models.RoleAdmin, models.RoleCommittee); err != nil {
		return nil, err
	}
	requestedBy := ""
	if !principal.IsAdmin() {
		requestedBy = principal.UserID
	}
	rows, err := s.source.HistoryRows(ctx, requestedBy)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load status history")
	}

	needle := strings.ToLower(strings.TrimSpace(search))
	result := make([]dto.HistoryRow, 0, len(rows))
	for _, row := range rows {
		if row.ActedByName == "" {
			row.ActedByName = systemActor
		}
		if needle != "" && !rowMatches(row, needle) {
			continue
		}
		result = append(result, row)
	}
	return result, nil
}

// Export renders the visible history as CSV or PDF.
func (s *HistoryService) Export(ctx context.Context, principal *models.Principal, query dto.HistoryQuery) (*dto.ExportFile, error) {
	format := strings.ToLower(strings.TrimSpace(query.Format))
	if format == "" {
		format = dto.ExportFormatCSV
	}
	if format != dto.ExportFormatCSV && format != dto.ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	rows, err := s.Rows(ctx, principal, query.Search)
	if err != nil {
		return nil, err
	}

	table := export.Table{Columns: historyColumns, Rows: make([]map[string]string, 0, len(rows))}
	for _, row := range rows {
		table.Rows = append(table.Rows, historyRecord(row))
	}

	file := &dto.ExportFile{Filename: fmt.Sprintf("event-requests-history-%s.%s", s.now().Format("2006-01-02"), format)}
	switch format {
	case dto.ExportFormatPDF:
		file.ContentType = "application/pdf"
		file.Payload, err = s.pdf.Render(table, "Event Requests History")
	default:
		file.ContentType = "text/csv"
		file.Payload, err = s.csv.Render(table)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render history export")
	}
	s.logger.Debug("history exported", zap.String("format", format), zap.Int("rows", len(rows)))
	return file, nil
}

func historyRecord(row dto.HistoryRow) map[string]string {
	return map[string]string{
		"request_id":         row.RequestID,
		"title":              row.Title,
		"requested_by_name":  row.RequestedByName,
		"requested_by_email": row.RequestedByEmail,
		"status":             row.Status,
		"acted_by_name":      row.ActedByName,
		"acted_by_email":     row.ActedByEmail,
		"at":                 row.At.UTC().Format(time.RFC3339),
		"note":               row.Note,
	}
}

func rowMatches(row dto.HistoryRow, needle string) bool {
	for _, value := range historyRecord(row) {
		if strings.Contains(strings.ToLower(value), needle) {
			return true
		}
	}
	return false
}
