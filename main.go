package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"hnscan-clone/internal/api"
	"hnscan-clone/internal/chain"
	"hnscan-clone/internal/config"
	"hnscan-clone/internal/consensus"
	"hnscan-clone/internal/eventbus"
	"hnscan-clone/internal/geoip"
	"hnscan-clone/internal/indexer"
	"hnscan-clone/internal/models"
	"hnscan-clone/internal/query"
	"hnscan-clone/internal/repository"
)

// BuildCommit is set at build time via -ldflags.
var BuildCommit = "dev"

func main() {
	// 1. Config
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	network, err := consensus.ByName(cfg.Network)
	if err != nil {
		log.Fatalf("Unknown network %q: %v", cfg.Network, err)
	}

	log.Println("Initializing hnscan backend...")
	log.Printf("Build: %s", BuildCommit)
	log.Printf("DB: %s", redactDatabaseURL(cfg.DatabaseURL))
	log.Printf("Node: %s", cfg.HSDURL)
	log.Printf("Network: %s", network.Name)

	// 2. Dependencies
	repo, err := repository.NewRepository(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer repo.Close()

	// 2a. Auto-migration (skip with SKIP_MIGRATION=true for API-only containers)
	if os.Getenv("SKIP_MIGRATION") == "true" {
		log.Println("Database migration SKIPPED (SKIP_MIGRATION=true)")
	} else {
		log.Println("Running database migration...")
		if err := repo.Migrate("schema.sql"); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Database migration complete.")
	}

	node := chain.NewClient(cfg.HSDURL, cfg.HSDAPIKey)
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := node.Ping(pingCtx); err != nil {
		// The poller keeps retrying, so a down node delays indexing
		// instead of blocking startup.
		log.Printf("Warning: hsd not reachable yet: %v", err)
	}
	pingCancel()

	var pools []models.Pool
	if path := resolvePath(cfg.Prefix, cfg.PoolsFile); path != "" {
		pools, err = config.LoadPools(path)
		if err != nil {
			log.Printf("Warning: failed to load pools file: %v", err)
		} else {
			log.Printf("Loaded %d mining pools", len(pools))
		}
	}

	var geo *geoip.Table
	if path := resolvePath(cfg.Prefix, cfg.GeoIPFile); path != "" {
		geo, err = geoip.Load(path)
		if err != nil {
			log.Printf("Warning: failed to load geoip file: %v", err)
		} else {
			log.Printf("Loaded %d geoip ranges", geo.Len())
		}
	}

	// 3. Services
	getEnvInt := func(key string, defaultVal int) int {
		if valStr := os.Getenv(key); valStr != "" {
			if val, err := strconv.Atoi(valStr); err == nil {
				return val
			}
		}
		return defaultVal
	}

	pollInterval := time.Duration(getEnvInt("POLL_INTERVAL_SEC", 5)) * time.Second
	cacheRefresh := time.Duration(getEnvInt("CACHE_REFRESH_MIN", 20)) * time.Minute

	bus := eventbus.New()
	hub := api.NewHub()

	ix := indexer.New(repo, node, indexer.Config{
		Network: network,
		Pools:   pools,
		OnBlock: hub.BroadcastBlock,
		OnTxs:   hub.BroadcastTxs,
	})

	engine := query.New(repo, node, query.Config{Network: network, Pools: pools, Geo: geo})

	poller := chain.NewPoller(node, repo, bus, pollInterval)

	opts := []func(*api.Server){
		api.WithHub(hub),
		api.WithAdmin(ix, cfg.AdminSecret),
		api.WithAPIKey(cfg.APIKey),
		api.WithCORS(cfg.CORS),
	}
	if cfg.NoAuth {
		opts = append(opts, api.WithNoAuth())
	}
	if cfg.SSL {
		opts = append(opts, api.WithTLS(resolvePath(cfg.Prefix, cfg.SSLCert), resolvePath(cfg.Prefix, cfg.SSLKey)))
	}
	apiServer := api.NewServer(engine, cfg.HTTPHost, cfg.HTTPPort, opts...)

	// 4. Run
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// SIGINT/SIGTERM land on sigChan; main blocks on it below.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start API in background
	go func() {
		log.Printf("Starting API server on %s:%s", cfg.HTTPHost, cfg.HTTPPort)
		if err := apiServer.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		ix.Run(ctx, bus)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		engine.RunAggregates(ctx, 10*time.Second, cacheRefresh)
	}()

	<-sigChan
	log.Println("Shutting down...")
	apiServer.Shutdown(ctx)
	cancel()
	wg.Wait()
}

// resolvePath joins a relative path onto the configured prefix
// directory. Absolute paths and empty values pass through untouched.
func resolvePath(prefix, path string) string {
	if path == "" || prefix == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(prefix, path)
}

func redactDatabaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err == nil && u.Scheme != "" {
		if u.User != nil {
			user := u.User.Username()
			if user == "" {
				user = "user"
			}
			u.User = url.UserPassword(user, "****")
		}
		// Query params can embed secrets; keep scheme/host/path only.
		u.RawQuery = ""
		return u.String()
	}

	// Best-effort fallback for DSN-like strings.
	re := regexp.MustCompile(`(?i)(postgres(?:ql)?://[^:/?#]+):([^@]+)@`)
	if re.MatchString(raw) {
		return re.ReplaceAllString(raw, `$1:****@`)
	}
	re = regexp.MustCompile(`(?i)(password=)(\S+)`)
	return re.ReplaceAllString(raw, `$1****`)
}
