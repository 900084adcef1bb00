package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"fleetcache/internal/api"
	"fleetcache/internal/auth"
	"fleetcache/internal/config"
	"fleetcache/internal/logs"
	"fleetcache/internal/metrics"
	"fleetcache/internal/peers"
	"fleetcache/internal/replication"
	"fleetcache/internal/store"
	"fleetcache/internal/ttl"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := logs.NewLogger(1000, logs.ParseLevel(cfg.LogLevel))
	metricsRegistry := metrics.NewRegistry()

	// Topology
	resolver, err := peers.NewResolver(cfg.PodName, cfg.FleetSize, cfg.AddrTemplate)
	if err != nil {
		log.Fatalf("resolving fleet topology: %v", err)
	}

	// Fleet secret and token guard
	secret, warning, err := auth.LoadSecret(cfg.SecretFile, cfg.Secret)
	if err != nil {
		log.Fatalf("loading fleet secret: %v", err)
	}
	if warning != "" {
		logger.Warn(warning)
		log.Print(warning)
	}

	guard, err := auth.NewGuard(secret, resolver.Ordinal(), auth.DefaultFreshness)
	if err != nil {
		log.Fatalf("building token guard: %v", err)
	}

	// Store
	cacheStore := store.NewStore(metricsRegistry)

	// Replication
	peerConfig := peers.DefaultConfig()
	peerConfig.Sync.Interval = cfg.SyncInterval

	transport := replication.NewTransport(guard, peerConfig.Timeout.ReplicationTimeout)
	replicator := replication.NewReplicator(resolver, transport, peerConfig, logger, metricsRegistry)
	reconciler := replication.NewReconciler(cacheStore, resolver, transport, peerConfig, logger, metricsRegistry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go reconciler.Start(ctx)

	// TTL cleaner
	ttlCleaner := ttl.NewCleaner(cacheStore, cfg.SweepInterval, logger, metricsRegistry)
	go ttlCleaner.Start(ctx)

	// Inter-node surface, on its own port so it can be firewalled
	// separately from client traffic
	internalHandler := replication.NewHandler(cacheStore, guard, logger, metricsRegistry, peerConfig.Sync.BatchSize)
	internalMux := http.NewServeMux()
	internalHandler.RegisterRoutes(internalMux)

	internalServer := &http.Server{
		Addr:    ":" + strconv.Itoa(resolver.ListenPort()),
		Handler: internalMux,
	}

	// Client API
	handler := api.NewHandler(cacheStore, metricsRegistry, logger, resolver, replicator, cfg.DefaultTTL)
	mux := http.NewServeMux()
	httpHandler := api.RegisterRoutes(mux, handler)

	clientServer := &http.Server{
		Addr:    cfg.ClientAddr,
		Handler: httpHandler,
	}

	serverErrors := make(chan error, 2)
	go func() { serverErrors <- internalServer.ListenAndServe() }()
	go func() { serverErrors <- clientServer.ListenAndServe() }()

	logger.Info("node " + cfg.PodName + " started")
	log.Printf("node %s up: clients on %s, replication on %s, fleet size %d",
		cfg.PodName, cfg.ClientAddr, internalServer.Addr, cfg.FleetSize)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Fatalf("server error: %v", err)
	case sig := <-quit:
		log.Printf("received %s, shutting down", sig)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = internalServer.Shutdown(shutdownCtx)
	if err := clientServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
