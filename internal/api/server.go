// Package api serves the explorer's HTTP surface: read-only JSON
// endpoints over the query engine, a WebSocket feed of freshly
// indexed blocks, and a JWT-gated admin surface over the indexer.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"hnscan-clone/internal/indexer"
	"hnscan-clone/internal/models"
	"hnscan-clone/internal/query"

	"github.com/gorilla/mux"
)

// Explorer is the slice of the query engine the handlers read.
type Explorer interface {
	Head(ctx context.Context) (uint64, error)
	GetSummary(ctx context.Context) (*query.SummaryView, error)
	GetStatus(ctx context.Context) (*query.StatusView, error)
	GetMempool(ctx context.Context, limit, offset int) (*query.MempoolPage, error)
	GetBlocks(ctx context.Context, limit, offset int) (*query.BlockPage, error)
	GetBlock(ctx context.Context, height uint64, details bool) (*query.BlockView, error)
	GetTransaction(ctx context.Context, txid string) (*query.TxView, error)
	GetTransactions(ctx context.Context, limit int) (*query.TxPage, error)
	GetTransactionsByHeight(ctx context.Context, height uint64, limit, offset int) (*query.TxPage, error)
	GetTransactionsByAddress(ctx context.Context, address string, limit, offset int) (*query.TxPage, error)
	GetNames(ctx context.Context, listType, status string, limit, offset int) (*query.NamePage, error)
	GetName(ctx context.Context, name string) (*query.NameView, error)
	GetNameHistory(ctx context.Context, name string, limit, offset int) (*query.HistoryPage, error)
	GetAddress(ctx context.Context, address string) (*query.AddressView, error)
	GetAddressMempool(ctx context.Context, address string) ([]*query.TxView, error)
	GetPeers(ctx context.Context, page, limit int) (*query.PeerPage, error)
	GetPeersLocation(ctx context.Context) ([]models.PeerLocation, error)
	Search(ctx context.Context, q string) ([]query.SearchResult, error)
	GetSeries(ctx context.Context, chartType string, startTime, endTime int64) ([]query.SeriesPoint, error)
	GetPoolDistribution(ctx context.Context, startTime, endTime int64) (*query.DistributionView, error)
	RefreshAggregates(ctx context.Context) error
}

// Admin is the slice of the indexer the admin surface drives.
type Admin interface {
	Rollback(ctx context.Context, height uint64) error
	Rescan(ctx context.Context) error
	Status() indexer.Status
}

type Server struct {
	engine      Explorer
	admin       Admin
	hub         *Hub
	httpServer  *http.Server
	apiKey      string
	noAuth      bool
	corsOrigin  string
	adminSecret string
	sslCert     string
	sslKey      string
	startedAt   time.Time
}

// WithAPIKey enables basic auth on the explorer endpoints; the key is
// checked against the request password, the username is ignored.
func WithAPIKey(key string) func(*Server) {
	return func(s *Server) { s.apiKey = key }
}

// WithNoAuth disables basic auth regardless of the configured key.
func WithNoAuth() func(*Server) {
	return func(s *Server) { s.noAuth = true }
}

// WithCORS overrides the Access-Control-Allow-Origin header.
func WithCORS(origin string) func(*Server) {
	return func(s *Server) { s.corsOrigin = origin }
}

// WithAdmin attaches the indexer's admin surface. Requests carry a
// Bearer JWT signed with secret; an empty secret leaves the surface
// registered but rejecting everything.
func WithAdmin(a Admin, secret string) func(*Server) {
	return func(s *Server) {
		s.admin = a
		s.adminSecret = secret
	}
}

// WithTLS serves over HTTPS using the given certificate pair.
func WithTLS(cert, key string) func(*Server) {
	return func(s *Server) {
		s.sslCert = cert
		s.sslKey = key
	}
}

// WithHub shares a broadcast hub owned by the caller, letting the
// indexer push events through the same hub the /ws handler serves.
func WithHub(h *Hub) func(*Server) {
	return func(s *Server) { s.hub = h }
}

func NewServer(engine Explorer, host, port string, opts ...func(*Server)) *Server {
	s := &Server{
		engine:     engine,
		corsOrigin: "*",
		startedAt:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hub == nil {
		s.hub = NewHub()
	}

	// A loopback listener is not reachable from outside, so the basic
	// auth gate would only get in the way of local tooling.
	if !s.noAuth && s.apiKey != "" && isLoopback(host) {
		log.Printf("[api] loopback listener %s, basic auth disabled", host)
		s.noAuth = true
	}

	r := mux.NewRouter()
	r.Use(s.commonMiddleware)
	r.Use(rateLimitMiddleware)
	r.Use(s.authMiddleware)

	registerBaseRoutes(r, s)
	registerExplorerRoutes(r, s)
	registerAdminRoutes(r, s)

	s.httpServer = &http.Server{
		Addr:    net.JoinHostPort(host, port),
		Handler: r,
	}

	return s
}

// Hub exposes the server's broadcast hub so the indexer callbacks can
// publish through it.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) Start() error {
	if s.sslCert != "" && s.sslKey != "" {
		return s.httpServer.ListenAndServeTLS(s.sslCert, s.sslKey)
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) commonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		origin := s.corsOrigin
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleHealth reports liveness plus the indexed head. It bypasses
// auth and rate limiting so probes stay cheap.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var height uint64
	if s.engine != nil {
		if h, err := s.engine.Head(r.Context()); err == nil {
			height = h
		}
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"height": height,
	})
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
