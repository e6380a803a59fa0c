package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"go.uber.org/zap"

	"github.com/clearstream/workflow-indexer/pkg/api"
	apphttp "github.com/clearstream/workflow-indexer/pkg/app/http"
	"github.com/clearstream/workflow-indexer/pkg/config"
	"github.com/clearstream/workflow-indexer/pkg/db"
	"github.com/clearstream/workflow-indexer/pkg/ethereum"
	"github.com/clearstream/workflow-indexer/pkg/ingestor"
	"github.com/clearstream/workflow-indexer/pkg/pgutil"
	"github.com/clearstream/workflow-indexer/pkg/replay"
)

var (
	configPath = flag.String("config", "config.yaml", "Path to configuration file")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Workflow Indexer")

	// Initialize database
	bunDB, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	store := db.NewStore(bunDB)
	defer store.Close()
	logger.Info("Database connection established")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Pin the confirmation depth before anything reads it
	if err := store.InitSystemState(ctx, cfg.Ethereum.ConfirmationBlocks); err != nil {
		logger.Fatal("Failed to initialize system state", zap.Error(err))
	}

	// Initialize Ethereum client
	ethClient, err := ethereum.NewClient(&cfg.Ethereum, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Ethereum client", zap.Error(err))
	}
	defer ethClient.Close()

	// Serve /health and /ready while the startup replay runs; /ready
	// reports 503 until derived state has been rebuilt.
	var ready atomic.Bool
	apiServer := api.NewServer(store, logger, ready.Load)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- apphttp.ServeAndWait(ctx, apiServer.Router(cfg.Monitoring.Enabled), logger, &cfg.Server)
	}()

	// Startup barrier: derived state is rebuilt from the full event log
	// before any polling begins. A failure here is fatal.
	engine := replay.NewEngine(store, logger)
	result, err := engine.ReplayAll(ctx)
	if err != nil {
		logger.Fatal("Startup replay failed", zap.Error(err))
	}
	logger.Info("Startup replay complete",
		zap.Int("events_processed", result.EventsProcessed),
		zap.Int("workflows_rebuilt", result.WorkflowsRebuilt),
		zap.Duration("duration", result.Duration))
	ready.Store(true)

	// Start the poller
	poller := ingestor.NewPoller(&cfg.Ethereum, ethClient, store, logger)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(ctx)
	}()

	if err := <-serverErr; err != nil {
		logger.Error("HTTP server exited with error", zap.Error(err))
	}
	stop()
	wg.Wait()

	logger.Info("Workflow Indexer stopped")
}
