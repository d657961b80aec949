// Package main runs the trading automation service:
// - Feed (continuous): websocket trade stream into the snapshot builder
// - Scheduler (ticker): strategy evaluation and concurrent action dispatch
// - Submission: signed transaction bundles to the relay, rate limited
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"solana-autotrader/internal/automation"
	"solana-autotrader/internal/domain"
	"solana-autotrader/internal/execlog"
	"solana-autotrader/internal/feed"
	"solana-autotrader/internal/observability"
	"solana-autotrader/internal/relay"
	"solana-autotrader/internal/rpc"
	"solana-autotrader/internal/storage"
	chstore "solana-autotrader/internal/storage/clickhouse"
	"solana-autotrader/internal/storage/memory"
	pgstore "solana-autotrader/internal/storage/postgres"
	"solana-autotrader/internal/strategy"
	"solana-autotrader/internal/submit"
	"solana-autotrader/internal/wallet"
)

// Server holds all components of the automation service.
type Server struct {
	tokenAddress string

	store   *strategy.Store
	execLog *execlog.Log
	logger  *log.Logger

	mu      sync.Mutex
	started time.Time
}

// stores holds the storage implementations behind the persistence ports.
type stores struct {
	strategyStore storage.StrategyStore
	historyStore  storage.ExecutionHistoryStore // nil when unconfigured
}

func main() {
	// Load .env file if exists; system env vars take precedence.
	godotenv.Load()

	// Parse flags (env vars as defaults)
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("MARKET_WS_ENDPOINT"), "Market trade feed WebSocket endpoint")
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint (wallet balances)")
	builderEndpoint := flag.String("builder-endpoint", os.Getenv("BUILDER_ENDPOINT"), "Transaction builder service endpoint")
	relayEndpoint := flag.String("relay-endpoint", os.Getenv("RELAY_ENDPOINT"), "Bundle relay JSON-RPC endpoint")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (execution history archive)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	tokenAddress := flag.String("token", os.Getenv("TOKEN_ADDRESS"), "Token mint address to trade")
	walletKeysFile := flag.String("wallet-keys", os.Getenv("WALLET_KEYS_FILE"), "File with base58 wallet keypairs, one per line")
	strategiesFile := flag.String("strategies", "", "JSON file with strategies to seed at startup")
	tickInterval := flag.Duration("tick-interval", automation.DefaultTickInterval, "Strategy evaluation interval")
	rateLimit := flag.Int("rate-limit", submit.DefaultSubmitsPerSecond, "Bundle submissions per second")
	maxAttempts := flag.Int("max-attempts", submit.DefaultMaxAttempts, "Max attempts for the critical bundle")
	retryBaseDelay := flag.Duration("retry-base-delay", submit.DefaultRetryBaseDelay, "Backoff base delay for critical bundle retries")
	balanceInterval := flag.Duration("balance-interval", wallet.DefaultRefreshInterval, "Wallet balance refresh interval")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[autopilot] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *wsEndpoint == "" {
		logger.Fatal("--ws-endpoint is required")
	}
	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if *builderEndpoint == "" || *relayEndpoint == "" {
		logger.Fatal("--builder-endpoint and --relay-endpoint are required")
	}
	if *tokenAddress == "" {
		logger.Fatal("--token is required")
	}
	if *walletKeysFile == "" {
		logger.Fatal("--wallet-keys is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	if _, err := wallet.DecodeAddress(*tokenAddress); err != nil {
		logger.Printf("Warning: token address failed on-curve check (mint addresses may be off-curve): %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	st, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Load wallet credentials
	keyring, err := loadKeyring(*walletKeysFile)
	if err != nil {
		logger.Fatalf("Failed to load wallet keys: %v", err)
	}
	if keyring.Len() == 0 {
		logger.Fatal("No wallet keys loaded")
	}
	logger.Printf("Loaded %d wallets", keyring.Len())

	// Load strategies
	store := strategy.NewStore(st.strategyStore)
	if err := store.Load(ctx); err != nil {
		logger.Fatalf("Failed to load strategies: %v", err)
	}
	if *strategiesFile != "" {
		added, err := seedStrategies(ctx, store, *strategiesFile)
		if err != nil {
			logger.Fatalf("Failed to seed strategies: %v", err)
		}
		logger.Printf("Seeded %d strategies from %s", added, *strategiesFile)
	}
	logger.Printf("Loaded %d strategies", len(store.List()))

	// Execution log, archived to ClickHouse when configured
	logOpts := []execlog.Option{execlog.WithLogger(logger)}
	if st.historyStore != nil {
		logOpts = append(logOpts, execlog.WithArchive(st.historyStore))
	}
	execLog := execlog.New(execlog.DefaultCapacity, logOpts...)

	// Submission pipeline
	builderClient := relay.NewHTTPBuilderClient(*builderEndpoint)
	relayClient := relay.NewHTTPRelayClient(*relayEndpoint)
	pipeline := submit.New(builderClient, relayClient, keyring, submit.Config{
		MaxAttempts:      *maxAttempts,
		RetryBaseDelay:   *retryBaseDelay,
		SubmitsPerSecond: *rateLimit,
	}, log.New(os.Stdout, "[submit] ", log.LstdFlags))

	// Wallet balance cache
	rpcClient := rpc.NewClient(*rpcEndpoint)
	tracker := wallet.NewBalanceTracker(keyring, rpcClient, *balanceInterval,
		log.New(os.Stdout, "[balances] ", log.LstdFlags))
	go tracker.Run(ctx)

	// Market feed
	builder := feed.NewSnapshotBuilder()
	trackWhitelists(builder, store, logger)

	wsClient, err := feed.NewWSClient(ctx, *wsEndpoint, nil)
	if err != nil {
		logger.Fatalf("Failed to connect to market feed: %v", err)
	}
	defer wsClient.Close()

	trades, err := wsClient.SubscribeTrades(ctx, *tokenAddress)
	if err != nil {
		logger.Fatalf("Failed to subscribe to trades: %v", err)
	}
	feedRunner := feed.NewRunner(builder, log.New(os.Stdout, "[feed] ", log.LstdFlags))
	go feedRunner.Run(ctx, trades)

	// Scheduler
	resolver := &automation.Resolver{TokenAddress: *tokenAddress}
	dispatcher := automation.NewDispatcher(resolver, pipeline, walletSource{tracker}, execLog,
		log.New(os.Stdout, "[dispatch] ", log.LstdFlags))
	scheduler := automation.NewScheduler(automation.SchedulerOptions{
		Store:     store,
		Snapshots: builder,
		Executor:  dispatcher,
		Interval:  *tickInterval,
		Logger:    log.New(os.Stdout, "[scheduler] ", log.LstdFlags),
	})

	server := &Server{
		tokenAddress: *tokenAddress,
		store:        store,
		execLog:      execLog,
		logger:       logger,
		started:      time.Now(),
	}

	// Handle shutdown signals
	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start HTTP server
	go server.startHTTPServer(*metricsAddr)

	scheduler.Start(ctx)
	logger.Printf("Automation started (token: %s, tick: %v)", *tokenAddress, *tickInterval)

	<-ctx.Done()
	scheduler.Stop()
	execLog.Flush(context.Background())
	close(done)

	logger.Println("Shutdown complete")
}

// walletSource adapts the balance tracker to the dispatcher's wallet port.
type walletSource struct {
	tracker *wallet.BalanceTracker
}

func (w walletSource) Wallets() []automation.WalletInfo {
	balances := w.tracker.Balances()
	out := make([]automation.WalletInfo, 0, len(balances))
	for _, b := range balances {
		out = append(out, automation.WalletInfo{Address: b.Address, Balance: b.SOL})
	}
	return out
}

// createStores creates the persistence implementations.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool, logger *log.Logger) (*stores, func(), error) {
	if useMemory {
		return &stores{
			strategyStore: memory.NewStrategyStore(),
			historyStore:  memory.NewHistoryStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	st := &stores{
		strategyStore: pgstore.NewStrategyStore(pool),
	}
	cleanup := func() { pool.Close() }

	// ClickHouse archive is optional; the bounded in-memory log always runs.
	if clickhouseDSN != "" {
		chConn, err := chstore.NewConn(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		st.historyStore = chstore.NewHistoryStore(chConn)
		cleanup = func() {
			chConn.Close()
			pool.Close()
		}
	} else {
		logger.Println("No ClickHouse DSN; execution history archive disabled")
	}

	return st, cleanup, nil
}

// loadKeyring reads base58 wallet keypairs, one per line. Blank lines and
// #-comments are skipped.
func loadKeyring(path string) (*wallet.Keyring, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	keyring := wallet.NewKeyring()
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if _, err := keyring.AddBase58(text); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return keyring, scanner.Err()
}

// strategySeed is the JSON shape of one seeded strategy.
type strategySeed struct {
	ID                   string             `json:"id,omitempty"`
	Name                 string             `json:"name"`
	Combine              domain.CombineRule `json:"combine"`
	Conditions           []domain.Condition `json:"conditions"`
	Actions              []domain.Action    `json:"actions"`
	Active               bool               `json:"active"`
	CooldownSeconds      int64              `json:"cooldownSeconds"`
	MaxExecutions        *int64             `json:"maxExecutions,omitempty"`
	WhitelistedAddresses []string           `json:"whitelistedAddresses,omitempty"`
}

// seedStrategies loads strategies from a JSON file into the store.
// Strategies whose ids already exist are left untouched.
func seedStrategies(ctx context.Context, store *strategy.Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var seeds []strategySeed
	if err := json.Unmarshal(data, &seeds); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}

	added := 0
	for _, seed := range seeds {
		st := &domain.Strategy{
			ID:                   seed.ID,
			Name:                 seed.Name,
			Combine:              seed.Combine,
			Conditions:           seed.Conditions,
			Actions:              seed.Actions,
			Active:               seed.Active,
			CooldownSeconds:      seed.CooldownSeconds,
			MaxExecutions:        seed.MaxExecutions,
			WhitelistedAddresses: seed.WhitelistedAddresses,
		}
		if err := store.Add(ctx, st); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				continue
			}
			return added, fmt.Errorf("strategy %q: %w", seed.Name, err)
		}
		added++
	}
	return added, nil
}

// trackWhitelists registers every strategy's whitelisted addresses with the
// snapshot builder. Addresses that fail the on-curve check are skipped.
func trackWhitelists(builder *feed.SnapshotBuilder, store *strategy.Store, logger *log.Logger) {
	for _, st := range store.List() {
		for _, addr := range st.WhitelistedAddresses {
			if _, err := wallet.DecodeAddress(addr); err != nil {
				logger.Printf("strategy %s: skipping whitelist address %s: %v", st.ID, addr, err)
				continue
			}
			builder.Track(addr)
		}
	}
}

// startHTTPServer starts the HTTP server for health/metrics/status.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status and diagnostics
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/executions", s.handleExecutions)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status       string `json:"status"`
	Uptime       string `json:"uptime"`
	TokenAddress string `json:"token_address"`
	Strategies   int    `json:"strategies"`
	Executions   int    `json:"executions"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	resp := StatusResponse{
		Status:       "running",
		Uptime:       time.Since(started).String(),
		TokenAddress: s.tokenAddress,
		Strategies:   len(s.store.List()),
		Executions:   s.execLog.Len(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// executionEntry is the JSON shape of one execution log entry.
type executionEntry struct {
	StrategyID string    `json:"strategy_id"`
	Time       time.Time `json:"time"`
	Action     string    `json:"action"`
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
}

// handleExecutions returns the execution log, newest first.
func (s *Server) handleExecutions(w http.ResponseWriter, r *http.Request) {
	entries := s.execLog.Entries()
	out := make([]executionEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, executionEntry{
			StrategyID: e.StrategyID,
			Time:       e.Time,
			Action:     e.Action,
			Success:    e.Success,
			Message:    e.Message,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}
