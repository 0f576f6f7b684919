// Package main provides the relay binary: the gRPC Sync service and the
// WebSocket gateway that order and fan out battlemap document updates.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/cory-johannsen/battlemap/internal/config"
	"github.com/cory-johannsen/battlemap/internal/observability"
	"github.com/cory-johannsen/battlemap/internal/relay"
	"github.com/cory-johannsen/battlemap/internal/server"
	"github.com/cory-johannsen/battlemap/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	migrations := flag.String("migrations", "", "migration source URL applied at startup (for example file://migrations); empty = skip")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting relay",
		zap.String("grpc_addr", cfg.Relay.GRPCAddr()),
		zap.String("http_addr", cfg.Relay.HTTPAddr()),
		zap.Bool("postgres", cfg.Database.Enabled),
	)

	var journal relay.Journal = relay.NewMemoryJournal()
	health := func(context.Context) error { return nil }
	if cfg.Database.Enabled {
		if *migrations != "" {
			version, dirty, err := postgres.Migrate(*migrations, cfg.Database.DSN(), 0)
			if err != nil {
				server.Exit(logger, "migrating database", err)
			}
			logger.Info("schema ready", zap.Uint("version", version), zap.Bool("dirty", dirty))
		}
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			server.Exit(logger, "connecting to database", err)
		}
		defer pool.Close()
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		journal = postgres.NewJournal(pool.DB())
		health = func(ctx context.Context) error { return pool.Health(ctx, 2*time.Second) }
	}

	srv := relay.NewServer(journal, cfg.Relay.SubscriberBuffer, logger.Named("relay"))

	grpcServer := grpc.NewServer()
	relay.RegisterGRPC(grpcServer, srv)
	grpcLis, err := server.Listen(cfg.Relay.GRPCAddr())
	if err != nil {
		server.Exit(logger, "opening grpc listener", err)
	}

	httpServer := &http.Server{
		Handler:           relay.NewGateway(srv, health),
		ReadHeaderTimeout: 5 * time.Second,
	}
	httpLis, err := server.Listen(cfg.Relay.HTTPAddr())
	if err != nil {
		server.Exit(logger, "opening http listener", err)
	}

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("grpc", server.GRPCService(grpcServer, grpcLis))
	lifecycle.Add("gateway", server.HTTPService(httpServer, httpLis, cfg.Relay.ShutdownTimeout))

	logger.Info("relay initialized", zap.Duration("startup", time.Since(start)))
	if err := lifecycle.Run(ctx); err != nil {
		server.Exit(logger, "relay stopped", err)
	}
}
