package api

import (
	"net/http"
	"strconv"

	"hnscan-clone/internal/models"
	"hnscan-clone/internal/query"

	"github.com/gorilla/mux"
)

// parsePaging reads limit/offset, leaving them zero when absent or
// malformed; the engine substitutes its defaults and rejects
// out-of-range values itself.
func parsePaging(r *http.Request) (limit, offset int) {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}
	return limit, offset
}

func parseTimeRange(r *http.Request) (start, end int64) {
	if v := r.URL.Query().Get("startTime"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			start = n
		}
	}
	if v := r.URL.Query().Get("endTime"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			end = n
		}
	}
	return start, end
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.GetSummary(r.Context())
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.GetStatus(r.Context())
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleMempool(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaging(r)
	page, err := s.engine.GetMempool(r.Context(), limit, offset)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, page)
}

func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaging(r)
	page, err := s.engine.GetBlocks(r.Context(), limit, offset)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, page)
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	height, err := strconv.ParseUint(mux.Vars(r)["height"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidInput", "invalid height")
		return
	}
	details := r.URL.Query().Get("details") != "false"
	view, err := s.engine.GetBlock(r.Context(), height, details)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, view)
}

// handleTxs serves three listings from one route: by height, by
// address, or the recent window walked back from the tip. Height wins
// when both filters are present.
func (s *Server) handleTxs(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaging(r)
	if hv := r.URL.Query().Get("height"); hv != "" {
		height, err := strconv.ParseUint(hv, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "InvalidInput", "invalid height")
			return
		}
		page, err := s.engine.GetTransactionsByHeight(r.Context(), height, limit, offset)
		if err != nil {
			writeQueryError(w, err)
			return
		}
		writeJSON(w, page)
		return
	}
	if addr := r.URL.Query().Get("address"); addr != "" {
		page, err := s.engine.GetTransactionsByAddress(r.Context(), addr, limit, offset)
		if err != nil {
			writeQueryError(w, err)
			return
		}
		writeJSON(w, page)
		return
	}
	page, err := s.engine.GetTransactions(r.Context(), limit)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, page)
}

func (s *Server) handleTx(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.GetTransaction(r.Context(), mux.Vars(r)["hash"])
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleNames(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaging(r)
	listType := r.URL.Query().Get("type")
	status := r.URL.Query().Get("status")
	page, err := s.engine.GetNames(r.Context(), listType, status, limit, offset)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, page)
}

func (s *Server) handleName(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.GetName(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleNameHistory(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaging(r)
	page, err := s.engine.GetNameHistory(r.Context(), mux.Vars(r)["name"], limit, offset)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, page)
}

func (s *Server) handleAddress(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.GetAddress(r.Context(), mux.Vars(r)["hash"])
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleAddressMempool(w http.ResponseWriter, r *http.Request) {
	txs, err := s.engine.GetAddressMempool(r.Context(), mux.Vars(r)["hash"])
	if err != nil {
		writeQueryError(w, err)
		return
	}
	if txs == nil {
		txs = []*query.TxView{}
	}
	writeJSON(w, txs)
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	limit, _ := parsePaging(r)
	page := 0
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page = n
		}
	}
	view, err := s.engine.GetPeers(r.Context(), page, limit)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	results, err := s.engine.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeQueryError(w, err)
		return
	}
	if results == nil {
		results = []query.SearchResult{}
	}
	writeJSON(w, results)
}

func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	start, end := parseTimeRange(r)
	points, err := s.engine.GetSeries(r.Context(), mux.Vars(r)["type"], start, end)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	if points == nil {
		points = []query.SeriesPoint{}
	}
	writeJSON(w, points)
}

func (s *Server) handlePoolDistribution(w http.ResponseWriter, r *http.Request) {
	start, end := parseTimeRange(r)
	view, err := s.engine.GetPoolDistribution(r.Context(), start, end)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleMapData(w http.ResponseWriter, r *http.Request) {
	locs, err := s.engine.GetPeersLocation(r.Context())
	if err != nil {
		writeQueryError(w, err)
		return
	}
	if locs == nil {
		locs = []models.PeerLocation{}
	}
	writeJSON(w, locs)
}
