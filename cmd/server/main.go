package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	auditmetrics "placeclaim/internal/audit/metrics"
	"placeclaim/internal/audit/outbox"
	outboxpostgres "placeclaim/internal/audit/outbox/store/postgres"
	outboxworker "placeclaim/internal/audit/outbox/worker"
	auditservice "placeclaim/internal/audit/service"
	auditmemory "placeclaim/internal/audit/store/memory"
	auditpostgres "placeclaim/internal/audit/store/postgres"
	"placeclaim/internal/claim/eligibility"
	claimhandler "placeclaim/internal/claim/handler"
	claimmetrics "placeclaim/internal/claim/metrics"
	claimservice "placeclaim/internal/claim/service"
	claimmemory "placeclaim/internal/claim/store/memory"
	claimpostgres "placeclaim/internal/claim/store/postgres"
	"placeclaim/internal/directory/admin"
	"placeclaim/internal/directory/geoip"
	directorymemory "placeclaim/internal/directory/memory"
	directorypostgres "placeclaim/internal/directory/postgres"
	fraudmetrics "placeclaim/internal/fraud/metrics"
	fraudservice "placeclaim/internal/fraud/service"
	"placeclaim/internal/platform/config"
	"placeclaim/internal/platform/database"
	"placeclaim/internal/platform/health"
	"placeclaim/internal/platform/httpserver"
	"placeclaim/internal/platform/jwttoken"
	"placeclaim/internal/platform/kafka/producer"
	"placeclaim/internal/platform/logger"
	httpmetrics "placeclaim/internal/platform/metrics"
	"placeclaim/internal/platform/redis"
	ratelimitconfig "placeclaim/internal/ratelimit/config"
	ratelimitmetrics "placeclaim/internal/ratelimit/metrics"
	ratelimitservice "placeclaim/internal/ratelimit/service"
	"placeclaim/internal/ratelimit/store/bucket"
	reviewmetrics "placeclaim/internal/review/metrics"
	reviewservice "placeclaim/internal/review/service"
	httptransport "placeclaim/internal/transport/http"
	verificationmetrics "placeclaim/internal/verification/metrics"
	"placeclaim/internal/verification/sender"
	verificationservice "placeclaim/internal/verification/service"
	verificationmemory "placeclaim/internal/verification/store/memory"
	verificationpostgres "placeclaim/internal/verification/store/postgres"
	"placeclaim/pkg/platform/middleware/metadata"
)

// infra holds the optional backing services. A nil field means the matching
// in-memory implementation is used instead.
type infra struct {
	db       *database.Pool
	redis    *redis.Client
	producer *producer.Producer
}

// stores groups the persistence the services are built on.
type stores struct {
	claims        claimservice.Store
	claimReader   eligibility.Reader
	claimHistory  fraudservice.ClaimHistory
	tx            claimservice.StoreTx
	verifications verificationservice.Store
	audit         auditservice.Store
	buckets       ratelimitservice.BucketStore
	places        fraudservice.PlaceDirectory
	accounts      fraudservice.AccountDirectory
	checkins      fraudservice.CheckinCounter
}

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := connect(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect backing services", "error", err)
		os.Exit(1)
	}
	defer deps.close(log)

	st, pending := buildStores(cfg, deps, log)
	auditMetrics := auditmetrics.New()

	sms, err := buildSender(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize sms sender", "error", err)
		os.Exit(1)
	}
	verificationMetrics := verificationmetrics.New()
	dispatcher := sender.NewDispatcher(sms,
		sender.WithQueueSize(cfg.SMS.QueueSize),
		sender.WithWorkers(cfg.SMS.Workers),
		sender.WithMaxPerSecond(cfg.SMS.MaxPerSecond),
		sender.WithDispatcherLogger(log),
		sender.WithDispatcherMetrics(verificationMetrics),
	)
	dispatcher.Start()

	claims, err := buildClaimService(cfg, st, dispatcher, verificationMetrics, auditMetrics, log)
	if err != nil {
		log.Error("failed to initialize claim service", "error", err)
		os.Exit(1)
	}

	var relay *outboxworker.Worker
	if deps.producer != nil && pending != nil {
		relay, err = outboxworker.New(pending, deps.producer,
			outboxworker.WithTopic(cfg.Kafka.AuditTopic),
			outboxworker.WithMetrics(auditMetrics),
			outboxworker.WithLogger(log),
		)
		if err != nil {
			log.Error("failed to initialize audit outbox worker", "error", err)
			os.Exit(1)
		}
		relay.Start()
	}

	trustedProxies, err := metadata.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		log.Error("invalid TRUSTED_PROXIES", "error", err)
		os.Exit(1)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Claims:         claimhandler.New(claims, log),
		Health:         deps.healthChecks(),
		Metrics:        httpmetrics.New(),
		Tokens:         jwttoken.NewValidator(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience),
		AdminToken:     cfg.Auth.AdminToken,
		TrustedProxies: trustedProxies,
		AllowedOrigins: cfg.Server.CORSOrigins,
		Logger:         log,
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	log.Info("starting placeclaim",
		"addr", cfg.Server.Addr,
		"postgres", deps.db != nil,
		"redis", deps.redis != nil,
		"kafka", deps.producer != nil,
		"sms_provider", cfg.SMS.Provider,
	)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		log.Error("server error", "error", err)
	case <-ctx.Done():
		log.Info("shutting down server gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		log.Warn("sms dispatcher did not drain", "error", err)
	}
	if relay != nil {
		if err := relay.Stop(shutdownCtx); err != nil {
			log.Warn("audit outbox worker did not stop cleanly", "error", err)
		}
	}
}

func connect(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	deps := &infra{}

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	deps.db = db

	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		deps.close(log)
		return nil, err
	}
	deps.redis = client

	if cfg.Kafka.Brokers != "" {
		p, err := producer.New(cfg.Kafka, log)
		if err != nil {
			deps.close(log)
			return nil, err
		}
		deps.producer = p
	}
	return deps, nil
}

func (d *infra) healthChecks() *health.Handler {
	h := health.New()
	if d.db != nil {
		h.RegisterCheck("database", d.db.Health)
	}
	if d.redis != nil {
		h.RegisterCheck("redis", d.redis.Health)
	}
	if d.producer != nil {
		h.RegisterCheck("kafka", d.producer.Health)
	}
	return h
}

func (d *infra) close(log *slog.Logger) {
	if d.producer != nil {
		if err := d.producer.Close(); err != nil {
			log.Warn("failed to close kafka producer", "error", err)
		}
	}
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			log.Warn("failed to close redis client", "error", err)
		}
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			log.Warn("failed to close database pool", "error", err)
		}
	}
}

// buildStores picks Postgres stores when a database is configured and
// in-memory ones otherwise. The returned outbox is nil when nothing will
// relay it.
func buildStores(cfg config.Config, deps *infra, log *slog.Logger) (*stores, outbox.Store) {
	var st stores
	var relayed outbox.Store

	if deps.db != nil {
		db := deps.db.DB()
		claims := claimpostgres.New(db)
		st.claims, st.claimReader, st.claimHistory = claims, claims, claims
		st.tx = newClaimPostgresTx(db)
		st.verifications = verificationpostgres.New(db)
		st.places = directorypostgres.NewPlaces(db)
		st.accounts = directorypostgres.NewAccounts(db)
		st.checkins = directorypostgres.NewCheckins(db)

		var auditOpts []auditpostgres.Option
		if deps.producer != nil {
			pgOutbox := outboxpostgres.New(db)
			auditOpts = append(auditOpts, auditpostgres.WithOutbox(pgOutbox))
			relayed = pgOutbox
		}
		st.audit = auditpostgres.New(db, auditOpts...)
	} else {
		log.Warn("DATABASE_URL not set; using in-memory stores")
		claims := claimmemory.New()
		st.claims, st.claimReader, st.claimHistory = claims, claims, claims
		st.tx = claimservice.NewMemoryTx()
		st.verifications = verificationmemory.New()
		st.places = directorymemory.NewPlaces()
		st.accounts = directorymemory.NewAccounts()
		st.checkins = directorymemory.NewCheckins()
		st.audit = auditmemory.NewInMemoryStore()
		if deps.producer != nil {
			log.Warn("kafka configured without a database; audit entries are not relayed")
		}
	}

	st.buckets = buildBucketStore(cfg, deps, log)
	return &st, relayed
}

func buildBucketStore(cfg config.Config, deps *infra, log *slog.Logger) ratelimitservice.BucketStore {
	switch cfg.RateLimit.Backend {
	case "redis":
		if deps.redis != nil {
			return bucket.NewRedis(deps.redis.Client)
		}
		log.Warn("rate limit backend redis requested without REDIS_URL; falling back to memory")
	case "postgres":
		if deps.db != nil {
			return bucket.NewPostgres(deps.db.DB())
		}
		log.Warn("rate limit backend postgres requested without DATABASE_URL; falling back to memory")
	}
	return bucket.NewInMemoryBucketStore()
}

func buildSender(ctx context.Context, cfg config.Config, log *slog.Logger) (sender.Sender, error) {
	if cfg.SMS.Provider == "sns" {
		return sender.NewSNSSender(ctx, cfg.SMS.AWSRegion, cfg.SMS.SenderID)
	}
	return sender.NewLogSender(log), nil
}

func buildClaimService(
	cfg config.Config,
	st *stores,
	dispatcher verificationservice.Dispatcher,
	verificationMetrics *verificationmetrics.Metrics,
	auditMetrics *auditmetrics.Metrics,
	log *slog.Logger,
) (*claimservice.Service, error) {
	regions, err := geoip.ParseTable(cfg.Fraud.GeoIPRegions)
	if err != nil {
		return nil, err
	}

	limits, err := ratelimitconfig.DefaultConfig().WithOverrides(cfg.RateLimit.Overrides)
	if err != nil {
		return nil, err
	}
	limiter, err := ratelimitservice.New(st.buckets,
		ratelimitservice.WithConfig(limits),
		ratelimitservice.WithLogger(log),
		ratelimitservice.WithMetrics(ratelimitmetrics.New()),
	)
	if err != nil {
		return nil, err
	}

	verifier, err := verificationservice.New(st.verifications, dispatcher,
		verificationservice.WithCodeTTL(cfg.Verification.CodeTTL),
		verificationservice.WithMaxFailedChecks(cfg.Verification.MaxFailedChecks),
		verificationservice.WithHashCost(cfg.Verification.HashCost),
		verificationservice.WithLogger(log),
		verificationservice.WithMetrics(verificationMetrics),
	)
	if err != nil {
		return nil, err
	}

	scorer, err := fraudservice.New(st.accounts, st.places, st.checkins, regions, st.claimHistory, verifier,
		fraudservice.WithThresholds(fraudservice.Thresholds{Low: cfg.Fraud.LowThreshold, High: cfg.Fraud.HighThreshold}),
		fraudservice.WithLogger(log),
		fraudservice.WithMetrics(fraudmetrics.New()),
	)
	if err != nil {
		return nil, err
	}

	admins := admin.NewStaticAuthorizer(cfg.Auth.AdminActors)
	gate, err := reviewservice.New(admins,
		reviewservice.WithLogger(log),
		reviewservice.WithMetrics(reviewmetrics.New()),
	)
	if err != nil {
		return nil, err
	}

	audit, err := auditservice.New(st.audit,
		auditservice.WithLogger(log),
		auditservice.WithMetrics(auditMetrics),
	)
	if err != nil {
		return nil, err
	}

	return claimservice.New(claimservice.Deps{
		Store:   st.claims,
		Tx:      st.tx,
		Limiter: limiter,
		Eligibility: eligibility.New(st.claimReader, eligibility.Policy{
			SingleActiveClaimPerUser: cfg.Eligibility.SingleActiveClaimPerUser,
			RejectionCooldown:        cfg.Eligibility.RejectionCooldown,
		}),
		Places:   st.places,
		Verifier: verifier,
		Scorer:   scorer,
		Gate:     gate,
		Audit:    audit,
		Admins:   admins,
	},
		claimservice.WithLogger(log),
		claimservice.WithMetrics(claimmetrics.New()),
	)
}
