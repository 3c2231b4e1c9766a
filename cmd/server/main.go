// Command server runs the GTIN allocation and registration service.
//
// main wires dependencies and keeps the server lifecycle small; business
// logic lives in the internal service packages. Infrastructure is optional:
// without a Postgres DSN, Redis URL, or Kafka brokers the process runs on
// in-memory stores, which suits development and tests.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	allochandler "gtind/internal/allocator/handler"
	allocmetrics "gtind/internal/allocator/metrics"
	allocservice "gtind/internal/allocator/service"
	allocstore "gtind/internal/allocator/store"
	"gtind/internal/audit"
	"gtind/internal/platform/config"
	"gtind/internal/platform/httpserver"
	"gtind/internal/platform/logger"
	"gtind/internal/platform/postgres"
	platformredis "gtind/internal/platform/redis"
	refhandler "gtind/internal/refdata/handler"
	refservice "gtind/internal/refdata/service"
	refstore "gtind/internal/refdata/store"
	reghandler "gtind/internal/registration/handler"
	regmetrics "gtind/internal/registration/metrics"
	"gtind/internal/registration/ports"
	regservice "gtind/internal/registration/service"
	regstore "gtind/internal/registration/store"
	"gtind/internal/registry"
	registryhandler "gtind/internal/registry/handler"
	registrymetrics "gtind/internal/registry/metrics"
	"gtind/internal/registry/tokencache"
	httptransport "gtind/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	// Persistence: Postgres when configured, in-memory otherwise.
	var (
		db              *sql.DB
		rangeStore      allocservice.RangeStore
		assignmentStore regservice.AssignmentStore
		assignmentIndex allocservice.AssignmentIndex
		referenceStore  refservice.Store
	)
	if cfg.PostgresDSN != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.Error("schema bootstrap failed", "error", err)
			os.Exit(1)
		}
		rangeStore = allocstore.NewPostgres(db)
		pgAssignments := regstore.NewPostgres(db)
		assignmentStore = pgAssignments
		assignmentIndex = pgAssignments
		referenceStore = refstore.NewPostgres(db)
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
		rangeStore = allocstore.NewInMemory()
		memAssignments := regstore.NewInMemory()
		assignmentStore = memAssignments
		assignmentIndex = memAssignments
		referenceStore = refstore.NewInMemory()
	}

	// Token cache: Redis when configured.
	var tokens registry.TokenCache = tokencache.NewInMemory()
	if cfg.RedisURL != "" {
		redisClient, err := platformredis.New(ctx, cfg.RedisURL)
		if err != nil {
			log.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		tokens = tokencache.NewRedis(redisClient.Client)
	}

	// Audit sink: Kafka when configured.
	var auditStore audit.Store = audit.NewInMemoryStore()
	if len(cfg.KafkaBrokers) > 0 {
		kafkaStore, err := audit.NewKafkaStore(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer kafkaStore.Close()
		auditStore = kafkaStore
	}
	auditPublisher := audit.NewPublisher(auditStore)

	// Reference data, seeded on first start.
	refSvc := refservice.New(referenceStore, refservice.WithLogger(log))
	if err := refSvc.Seed(ctx); err != nil {
		log.Error("reference data seeding failed", "error", err)
		os.Exit(1)
	}

	// Allocator.
	allocSvc := allocservice.New(rangeStore, assignmentIndex,
		allocservice.WithLogger(log),
		allocservice.WithMetrics(allocmetrics.New()),
	)

	// Registry client.
	registryMetrics := registrymetrics.New()
	mode := registry.ModeSandbox
	if cfg.Mode == "live" {
		mode = registry.ModeLive
	}
	tokenSource := registry.NewTokenSource(tokens, registry.TokenSourceConfig{
		TokenURL:     cfg.TokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Metrics:      registryMetrics,
	})
	registryClient := registry.NewClient(tokenSource, registry.Config{
		Mode:          mode,
		BaseURL:       cfg.BaseURL,
		AccountNumber: cfg.AccountNumber,
		WrapperKey:    cfg.WrapperKey,
	},
		registry.WithLogger(log),
		registry.WithAuditPublisher(auditPublisher),
		registry.WithMetrics(registryMetrics),
	)

	// Orchestrator. The catalog is fed externally; it starts empty.
	catalog := ports.NewStaticCatalog()
	regSvc := regservice.New(assignmentStore, allocSvc, refSvc, registryClient, catalog,
		regservice.WithLogger(log),
		regservice.WithMetrics(regmetrics.New()),
		regservice.WithAuditPublisher(auditPublisher),
		regservice.WithDefaultContract(cfg.DefaultContract),
	)

	router := httptransport.NewRouter(
		reghandler.New(regSvc, log),
		reghandler.NewCatalog(catalog, log),
		allochandler.New(allocSvc, regSvc, log),
		refhandler.New(refSvc, log),
		registryhandler.New(registryClient, cfg.Mode, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting gtind", "addr", cfg.Addr, "mode", cfg.Mode)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("gtind stopped")
}
