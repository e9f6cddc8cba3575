package api

import (
	"time"

	"github.com/gorilla/mux"
)

func registerBaseRoutes(r *mux.Router, s *Server) {
	r.HandleFunc("/health", s.handleHealth).Methods("GET", "OPTIONS")
	r.HandleFunc("/ws", s.handleWebSocket).Methods("GET", "OPTIONS")
	r.HandleFunc("/ws/status", s.handleStatusWebSocket).Methods("GET", "OPTIONS")
}

func registerExplorerRoutes(r *mux.Router, s *Server) {
	r.HandleFunc("/summary", cachedHandler(10*time.Second, s.handleSummary)).Methods("GET", "OPTIONS")
	r.HandleFunc("/status", s.handleStatus).Methods("GET", "OPTIONS")
	r.HandleFunc("/mempool", s.handleMempool).Methods("GET", "OPTIONS")
	r.HandleFunc("/blocks", s.handleBlocks).Methods("GET", "OPTIONS")
	r.HandleFunc("/blocks/{height}", s.handleBlock).Methods("GET", "OPTIONS")
	r.HandleFunc("/txs", s.handleTxs).Methods("GET", "OPTIONS")
	r.HandleFunc("/txs/{hash}", s.handleTx).Methods("GET", "OPTIONS")
	r.HandleFunc("/names", s.handleNames).Methods("GET", "OPTIONS")
	r.HandleFunc("/names/{name}", s.handleName).Methods("GET", "OPTIONS")
	r.HandleFunc("/names/{name}/history", s.handleNameHistory).Methods("GET", "OPTIONS")
	r.HandleFunc("/addresses/{hash}", s.handleAddress).Methods("GET", "OPTIONS")
	r.HandleFunc("/address/{hash}/mempool", s.handleAddressMempool).Methods("GET", "OPTIONS")
	r.HandleFunc("/peers", s.handlePeers).Methods("GET", "OPTIONS")
	r.HandleFunc("/search", s.handleSearch).Methods("GET", "OPTIONS")
	r.HandleFunc("/charts/{type}", cachedHandler(5*time.Minute, s.handleCharts)).Methods("GET", "OPTIONS")
	r.HandleFunc("/pool/distribution", cachedHandler(5*time.Minute, s.handlePoolDistribution)).Methods("GET", "OPTIONS")
	r.HandleFunc("/mapdata", cachedHandler(10*time.Minute, s.handleMapData)).Methods("GET", "OPTIONS")
}

func registerAdminRoutes(r *mux.Router, s *Server) {
	r.HandleFunc("/admin/status", s.adminAuth(s.handleAdminStatus)).Methods("GET", "OPTIONS")
	r.HandleFunc("/admin/rollback", s.adminAuth(s.handleAdminRollback)).Methods("POST", "OPTIONS")
	r.HandleFunc("/admin/rescan", s.adminAuth(s.handleAdminRescan)).Methods("POST", "OPTIONS")
	r.HandleFunc("/admin/cache/refresh", s.adminAuth(s.handleAdminCacheRefresh)).Methods("POST", "OPTIONS")
}
