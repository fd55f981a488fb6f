package dto

import "time"

// Export formats accepted by the history export.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// HistoryQuery filters the flattened status history.
type HistoryQuery struct {
	Search string `form:"q"`
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// HistoryRow is one status log entry joined with its request and people.
type HistoryRow struct {
	RequestID        string    `json:"request_id" db:"request_id"`
	Title            string    `json:"title" db:"title"`
	RequestedByName  string    `json:"requested_by_name" db:"requested_by_name"`
	RequestedByEmail string    `json:"requested_by_email" db:"requested_by_email"`
	Status           string    `json:"status" db:"status"`
	ActedByName      string    `json:"acted_by_name" db:"acted_by_name"`
	ActedByEmail     string    `json:"acted_by_email" db:"acted_by_email"`
	At               time.Time `json:"at" db:"at"`
	Note             string    `json:"note" db:"note"`
}

// ExportFile is a rendered export ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}
