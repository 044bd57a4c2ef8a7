package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/kris-hansen/pfmea/utils/history"
)

// record stores a successful generation. The response has already been
// computed, so failures are only logged.
func (s *Server) record(ctx context.Context, e history.Entry) {
	if s.history == nil {
		return
	}
	if err := s.history.Record(ctx, e); err != nil {
		log.Printf("[WARN] Failed to record generation %s: %v\n", e.ID, err)
	}
}

func (s *Server) historyUnavailable(w http.ResponseWriter, r *http.Request) bool {
	id := requestID(r)
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, TableResponse{
			RequestID: id,
			Error:     "Method not allowed. Use GET.",
			ErrorKind: KindInvalidRequest,
		})
		return true
	}
	if s.history == nil {
		writeJSON(w, http.StatusNotFound, TableResponse{
			RequestID: id,
			Error:     "Generation history is turned off",
			ErrorKind: KindNotFound,
		})
		return true
	}
	return false
}

// handleHistoryList returns the newest generations, ?limit= of them (20 by default)
func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	if s.historyUnavailable(w, r) {
		return
	}
	id := requestID(r)

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, TableResponse{RequestID: id, Error: "limit must be a non-negative integer", ErrorKind: KindInvalidRequest})
			return
		}
		limit = n
	}

	entries, err := s.history.List(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, TableResponse{RequestID: id, Error: err.Error(), ErrorKind: KindInternal})
		return
	}

	items := make([]HistoryItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, HistoryItem{
			ID:          e.ID,
			CreatedAt:   e.CreatedAt,
			Source:      e.Source,
			ProcessName: e.ProcessName,
			Equipment:   e.Equipment,
			Model:       e.Model,
			Rows:        e.Table.Len(),
		})
	}
	writeJSON(w, http.StatusOK, HistoryListResponse{Success: true, RequestID: id, Entries: items})
}

// handleHistoryEntry returns one generation by ID or unique prefix, as JSON
// or as a download when ?format= is set
func (s *Server) handleHistoryEntry(w http.ResponseWriter, r *http.Request) {
	if s.historyUnavailable(w, r) {
		return
	}
	id := requestID(r)

	format, download, err := downloadFormat(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, TableResponse{RequestID: id, Error: err.Error(), ErrorKind: KindInvalidRequest})
		return
	}

	entryID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/history/"), "/")
	e, err := s.history.Get(r.Context(), entryID)
	switch {
	case errors.Is(err, history.ErrNotFound):
		writeJSON(w, http.StatusNotFound, TableResponse{RequestID: id, Error: err.Error(), ErrorKind: KindNotFound})
		return
	case errors.Is(err, history.ErrAmbiguous):
		writeJSON(w, http.StatusConflict, TableResponse{RequestID: id, Error: err.Error(), ErrorKind: KindInvalidRequest})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, TableResponse{RequestID: id, Error: err.Error(), ErrorKind: KindInternal})
		return
	}

	if download {
		s.writeDownload(w, id, format, e.Table)
		return
	}
	writeJSON(w, http.StatusOK, HistoryEntryResponse{Success: true, RequestID: id, Entry: e})
}
