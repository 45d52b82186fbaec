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

	_ "github.com/lib/pq"

	"canguard/internal/analysis"
	analysisstore "canguard/internal/analysis/store"
	"canguard/internal/audit"
	"canguard/internal/auth/device"
	"canguard/internal/contentstore"
	"canguard/internal/datastream"
	datastreamstore "canguard/internal/datastream/store"
	"canguard/internal/grant"
	grantstore "canguard/internal/grant/store"
	"canguard/internal/identity"
	identitystore "canguard/internal/identity/store"
	"canguard/internal/keys"
	"canguard/internal/platform/config"
	"canguard/internal/platform/httpserver"
	"canguard/internal/platform/logger"
	platformredis "canguard/internal/platform/redis"
	"canguard/internal/session"
	sessionmetrics "canguard/internal/session/metrics"
	"canguard/internal/session/revocation"
	sessionstore "canguard/internal/session/store"
	"canguard/internal/token"
	httptransport "canguard/internal/transport/http"
)

// main wires the dependency graph and owns process lifecycle. Business
// logic lives in the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}

	var db *sql.DB
	if cfg.PostgresDSN != "" {
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		if err := db.Ping(); err != nil {
			log.Error("postgres ping failed", "error", err)
			os.Exit(1)
		}
	}

	blobs, err := contentstore.New(cfg.GatewayURLs, log)
	if err != nil {
		log.Error("content store client init failed", "error", err)
		os.Exit(1)
	}
	keyStore := keys.NewInMemory()

	// Store selection: Postgres for durable history and grant accounting,
	// Redis for shared runtime state, memory otherwise.
	var (
		indexStore     datastreamstore.IndexStore = datastreamstore.NewInMemory()
		recordStore    identity.RecordStore  = identitystore.NewInMemory()
		useStore       grantstore.UseStore        = grantstore.NewInMemory()
		sessStore      session.SessionStore  = sessionstore.NewInMemory()
		revocationList revocation.List            = revocation.NewInMemory()
		decisionStore  analysis.DecisionStore     = analysisstore.NewInMemory()
	)
	if redisClient != nil {
		indexStore = datastreamstore.NewRedis(redisClient.Client)
		recordStore = identitystore.NewRedis(redisClient.Client)
		useStore = grantstore.NewRedis(redisClient.Client)
		sessStore = sessionstore.NewRedis(redisClient.Client)
		revocationList = revocation.NewRedis(redisClient.Client)
	}
	if db != nil {
		useStore = grantstore.NewPostgres(db)
		decisionStore = analysisstore.NewPostgres(db)
	}

	captureService, err := datastream.NewService(indexStore, blobs, keyStore, log)
	if err != nil {
		log.Error("datastream service init failed", "error", err)
		os.Exit(1)
	}
	identityService, err := identity.NewService(recordStore, blobs, log)
	if err != nil {
		log.Error("identity service init failed", "error", err)
		os.Exit(1)
	}
	grantService, err := grant.NewService(identityService, captureService, keyStore, useStore, log)
	if err != nil {
		log.Error("grant service init failed", "error", err)
		os.Exit(1)
	}
	pipeline, err := analysis.NewService(grantService, blobs, keyStore, identityService, decisionStore, analysis.NewThresholdScorer(), log)
	if err != nil {
		log.Error("analysis service init failed", "error", err)
		os.Exit(1)
	}

	tokenService := token.NewService(cfg.JWTSigningKey, "canguard")
	mpinStore := session.NewInMemoryMPINStore()
	sessionService, err := session.NewService(
		sessStore, revocationList, mpinStore, tokenService,
		sessionmetrics.New(), cfg.SessionTTL, log,
	)
	if err != nil {
		log.Error("session service init failed", "error", err)
		os.Exit(1)
	}

	publisher := audit.NewPublisher(256)
	var sinks []audit.Sink
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(cfg.KafkaBrokers)
		if err != nil {
			log.Error("kafka sink init failed", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
	}
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	worker := audit.NewWorker(audit.NewInMemoryStore(), publisher.Inbox(), log, sinks...)
	go func() {
		if err := worker.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "error", err)
		}
	}()

	devices := device.NewService(true)
	sessionHandler := httptransport.NewSessionHandler(sessionService, devices, mpinStore, publisher, log)
	identityHandler := httptransport.NewIdentityHandler(identityService, keyStore, publisher, log)
	captureHandler := httptransport.NewCaptureHandler(captureService, identityService, publisher, log)
	grantHandler := httptransport.NewGrantHandler(grantService, publisher, log)
	analysisHandler := httptransport.NewAnalysisHandler(pipeline, publisher, log)

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Logger:    log,
		Validator: token.NewMiddlewareAdapter(tokenService),
		Public:    []httptransport.PublicRegistrar{sessionHandler, identityHandler, analysisHandler},
		Protected: []httptransport.Registrar{sessionHandler, identityHandler, captureHandler, grantHandler, analysisHandler},
		Health: func(r *http.Request) error {
			if redisClient != nil {
				return redisClient.Health(r.Context())
			}
			return nil
		},
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting canguard", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	stopWorker()
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
}
