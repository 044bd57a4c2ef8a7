package server

import (
	"fmt"
	"net/http"

	"github.com/kris-hansen/pfmea/utils/config"
	"github.com/kris-hansen/pfmea/utils/pfmea"
	"github.com/kris-hansen/pfmea/utils/table"
)

// handleExtract pulls a markdown table out of text the caller already has,
// such as a saved model response
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	id := requestID(r)
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, TableResponse{
			RequestID: id,
			Error:     "Method not allowed. Use POST.",
			ErrorKind: KindInvalidRequest,
		})
		return
	}

	format, download, err := downloadFormat(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, TableResponse{RequestID: id, Error: err.Error(), ErrorKind: KindInvalidRequest})
		return
	}

	var req ExtractRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, TableResponse{
			RequestID: id,
			Error:     fmt.Sprintf("Invalid request body: %v", err),
			ErrorKind: KindInvalidRequest,
		})
		return
	}

	rule := req.Separator
	if rule == "" {
		rule = s.envConfig.Separator
	}
	separator, err := table.ParseSeparatorRule(rule)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, TableResponse{RequestID: id, Error: err.Error(), ErrorKind: KindInvalidRequest})
		return
	}

	cols := req.Columns
	if len(cols) == 0 && req.PFMEA {
		cols = pfmea.Columns()
	}

	config.DebugLog("[Server] Extract request %s: %d bytes, %d columns, %s separator", id, len(req.Text), len(cols), separator)

	result, err := table.Extract(req.Text, cols, table.Options{Separator: separator})
	if err != nil {
		status, kind := classify(err)
		writeJSON(w, status, TableResponse{RequestID: id, Error: err.Error(), ErrorKind: kind})
		return
	}

	if download {
		s.writeDownload(w, id, format, result.Table)
		return
	}

	writeJSON(w, http.StatusOK, TableResponse{
		Success:     true,
		RequestID:   id,
		Headers:     result.Table.Headers,
		Rows:        result.Table.Rows,
		Adjustments: result.Adjustments,
	})
}

// handleColumns lists the PFMEA schema
func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, TableResponse{
			RequestID: requestID(r),
			Error:     "Method not allowed. Use GET.",
			ErrorKind: KindInvalidRequest,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"columns": pfmea.Columns()})
}
