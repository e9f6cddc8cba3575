package api

import (
	"net/http"
	"strconv"
	"time"

	"hnscan-clone/internal/indexer"
)

// handleAdminStatus reports the indexer's live state plus process
// uptime in seconds.
func (s *Server) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	if s.admin == nil {
		writeError(w, http.StatusServiceUnavailable, "ServiceUnavailable", "no indexer attached")
		return
	}
	resp := struct {
		indexer.Status
		Uptime int64 `json:"uptime"`
	}{
		Status: s.admin.Status(),
		Uptime: int64(time.Since(s.startedAt).Seconds()),
	}
	writeJSON(w, resp)
}

// handleAdminRollback unwinds the store to the given height and kicks
// off a rescan. The rescan runs asynchronously; progress is visible
// through /admin/status.
func (s *Server) handleAdminRollback(w http.ResponseWriter, r *http.Request) {
	if s.admin == nil {
		writeError(w, http.StatusServiceUnavailable, "ServiceUnavailable", "no indexer attached")
		return
	}
	hv := r.URL.Query().Get("height")
	if hv == "" {
		writeError(w, http.StatusBadRequest, "InvalidInput", "missing height")
		return
	}
	height, err := strconv.ParseUint(hv, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidInput", "invalid height")
		return
	}
	if err := s.admin.Rollback(r.Context(), height); err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"status": "ok", "height": height})
}

func (s *Server) handleAdminRescan(w http.ResponseWriter, r *http.Request) {
	if s.admin == nil {
		writeError(w, http.StatusServiceUnavailable, "ServiceUnavailable", "no indexer attached")
		return
	}
	if err := s.admin.Rescan(r.Context()); err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{"status": "ok"})
}

// handleAdminCacheRefresh recomputes the aggregate snapshot and drops
// cached responses so the new numbers serve immediately.
func (s *Server) handleAdminCacheRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.RefreshAggregates(r.Context()); err != nil {
		writeQueryError(w, err)
		return
	}
	apiCache.purge()
	writeJSON(w, map[string]interface{}{"status": "ok"})
}
