package server

import (
	"time"

	"github.com/kris-hansen/pfmea/utils/history"
	"github.com/kris-hansen/pfmea/utils/table"
)

// GenerateRequest is the body of POST /generate
type GenerateRequest struct {
	ProcessName string `json:"process_name"`
	Equipment   string `json:"equipment"`
	Notes       string `json:"notes,omitempty"`
	Model       string `json:"model,omitempty"`
}

// ExtractRequest is the body of POST /extract
type ExtractRequest struct {
	Text      string   `json:"text"`
	Columns   []string `json:"columns,omitempty"`
	PFMEA     bool     `json:"pfmea,omitempty"` // use the PFMEA schema when Columns is empty
	Separator string   `json:"separator,omitempty"`
}

// TableResponse is returned by both generate and extract
type TableResponse struct {
	Success     bool                  `json:"success"`
	RequestID   string                `json:"request_id"`
	Model       string                `json:"model,omitempty"`
	Headers     []string              `json:"headers,omitempty"`
	Rows        [][]string            `json:"rows,omitempty"`
	Adjustments []table.RowAdjustment `json:"adjustments,omitempty"`
	Error       string                `json:"error,omitempty"`
	ErrorKind   string                `json:"error_kind,omitempty"`
}

// Error kinds reported in TableResponse.ErrorKind
const (
	KindInvalidRequest   = "invalid_request"
	KindMissingTable     = "missing_table"
	KindMissingSeparator = "missing_separator"
	KindProvider         = "provider_error"
	KindInternal         = "internal_error"
	KindNotFound         = "not_found"
)

// HistoryItem summarizes one stored generation in GET /history
type HistoryItem struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Source      string    `json:"source"`
	ProcessName string    `json:"process_name"`
	Equipment   string    `json:"equipment"`
	Model       string    `json:"model"`
	Rows        int       `json:"rows"`
}

// HistoryListResponse is returned by GET /history
type HistoryListResponse struct {
	Success   bool          `json:"success"`
	RequestID string        `json:"request_id"`
	Entries   []HistoryItem `json:"entries"`
}

// HistoryEntryResponse is returned by GET /history/{id}
type HistoryEntryResponse struct {
	Success   bool           `json:"success"`
	RequestID string         `json:"request_id"`
	Entry     *history.Entry `json:"entry"`
}
