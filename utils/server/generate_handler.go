package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/kris-hansen/pfmea/utils/config"
	"github.com/kris-hansen/pfmea/utils/history"
	"github.com/kris-hansen/pfmea/utils/pfmea"
	"github.com/kris-hansen/pfmea/utils/spreadsheet"
	"github.com/kris-hansen/pfmea/utils/table"
)

// handleGenerate prompts a model for a PFMEA and returns the table as JSON,
// or as a download when ?format= is set
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
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

	var req GenerateRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, TableResponse{
			RequestID: id,
			Error:     fmt.Sprintf("Invalid request body: %v", err),
			ErrorKind: KindInvalidRequest,
		})
		return
	}

	pfmeaReq := pfmea.Request{ProcessName: req.ProcessName, Equipment: req.Equipment, Notes: req.Notes}.Normalize()
	if err := pfmeaReq.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, TableResponse{RequestID: id, Error: err.Error(), ErrorKind: KindInvalidRequest})
		return
	}

	modelForGeneration := req.Model
	if modelForGeneration == "" {
		modelForGeneration = s.envConfig.DefaultModel
	}

	config.VerboseLog("Generating PFMEA using model: %s", modelForGeneration)
	config.DebugLog("[Server] Generate request %s: process=%q model=%s", id, pfmeaReq.ProcessName, modelForGeneration)

	provider, err := s.newProvider(modelForGeneration)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, TableResponse{
			RequestID: id,
			Model:     modelForGeneration,
			Error:     err.Error(),
			ErrorKind: KindInvalidRequest,
		})
		return
	}

	separator, err := table.ParseSeparatorRule(s.envConfig.Separator)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, TableResponse{RequestID: id, Error: err.Error(), ErrorKind: KindInternal})
		return
	}

	gen := &pfmea.Generator{
		Provider:  provider,
		Model:     modelForGeneration,
		Examples:  s.currentExamples(),
		MinRows:   s.envConfig.MinRows,
		Separator: separator,
	}
	result, err := gen.Generate(r.Context(), pfmeaReq)
	if err != nil {
		status, kind := classify(err)
		config.VerboseLog("PFMEA generation failed: %v", err)
		writeJSON(w, status, TableResponse{
			RequestID: id,
			Model:     modelForGeneration,
			Error:     err.Error(),
			ErrorKind: kind,
		})
		return
	}

	s.record(r.Context(), history.Entry{
		ID:          id,
		Source:      "server",
		ProcessName: pfmeaReq.ProcessName,
		Equipment:   pfmeaReq.Equipment,
		Notes:       pfmeaReq.Notes,
		Model:       result.Model,
		Table:       result.Table,
		Response:    result.Response,
		Elapsed:     result.Elapsed,
	})

	if download {
		s.writeDownload(w, id, format, result.Table)
		return
	}

	writeJSON(w, http.StatusOK, TableResponse{
		Success:     true,
		RequestID:   id,
		Model:       result.Model,
		Headers:     result.Table.Headers,
		Rows:        result.Table.Rows,
		Adjustments: result.Adjustments,
	})
}

// classify maps a generation error to an HTTP status and error kind
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, pfmea.ErrInvalidRequest):
		return http.StatusBadRequest, KindInvalidRequest
	case errors.Is(err, table.ErrMissingTable):
		return http.StatusUnprocessableEntity, KindMissingTable
	case errors.Is(err, table.ErrMissingSeparator):
		return http.StatusUnprocessableEntity, KindMissingSeparator
	default:
		return http.StatusBadGateway, KindProvider
	}
}

// downloadFormat reads ?format=; JSON is the plain response
func downloadFormat(r *http.Request) (spreadsheet.Format, bool, error) {
	raw := r.URL.Query().Get("format")
	if raw == "" {
		return spreadsheet.FormatJSON, false, nil
	}
	format, err := spreadsheet.ParseFormat(raw)
	if err != nil {
		return "", false, err
	}
	return format, format != spreadsheet.FormatJSON, nil
}

func (s *Server) writeDownload(w http.ResponseWriter, id string, format spreadsheet.Format, t *table.Table) {
	var buf bytes.Buffer
	if err := spreadsheet.Write(format, t, &buf); err != nil {
		config.DebugLog("[Server] Export %s failed for request %s: %v", format, id, err)
		writeJSON(w, http.StatusInternalServerError, TableResponse{
			RequestID: id,
			Error:     fmt.Sprintf("Failed to export %s: %v", format, err),
			ErrorKind: KindInternal,
		})
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=PFMEA_Output.%s", format.Extension()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		config.DebugLog("[Server] Failed to send %s export for request %s: %v", format, id, err)
	}
}
