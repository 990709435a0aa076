package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pulsecall/internal/audit"
	"pulsecall/internal/auth"
	"pulsecall/internal/calls"
	"pulsecall/internal/campaigns"
	"pulsecall/internal/config"
	"pulsecall/internal/escalation"
	"pulsecall/internal/httpapi"
	"pulsecall/internal/lock"
	"pulsecall/internal/notify"
	"pulsecall/internal/orchestrator"
	"pulsecall/internal/reporting"
	"pulsecall/internal/retry"
	"pulsecall/internal/telephony"
	"pulsecall/internal/triage"
	"pulsecall/migrations"
	"pulsecall/pkg/logger"
	"pulsecall/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New("pulsecall-api", cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	st, err := openStores(rootCtx, cfg, log)
	if err != nil {
		log.Error("store init failed", "err", err)
		os.Exit(1)
	}
	defer st.close()

	auditSvc := audit.NewService(st.audit)
	// One clock for call transitions and the escalations they produce.
	now := func() time.Time { return time.Now().UTC() }
	escalations := escalation.NewService(st.escalations, escalation.AuditAdapter{Audit: auditSvc}, escalation.WithClock(now))

	orch := &orchestrator.Orchestrator{
		Calls:       st.calls,
		Escalations: escalations,
		Directory:   st.directory,
		Dialer:      newDialer(cfg),
		Notifier:    newNotifier(cfg, log),
		Retry:       st.retry,
		Locker:      st.locker,
		Classifier:  triage.NewClassifier(cfg.Triage),
		Audit:       auditSvc,
		Policy: orchestrator.Policy{
			NotifyOnTranscriptFlags: cfg.Notify.OnTranscriptFlags,
			RetryDelay:              cfg.Retry.Delay,
			OperatorPhone:           cfg.Notify.OperatorPhone,
		},
		Now: now,
		Log: log,
	}
	if err := orch.Validate(); err != nil {
		log.Error("orchestrator init failed", "err", err)
		os.Exit(1)
	}

	h := httpapi.Handlers{
		Orchestrator: orch,
		Calls:        st.calls,
		Escalations:  escalations,
		Reports:      reporting.NewService(st.reports),
		Ready:        st.ready,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, auth.RequireAccessToken(authManager), telephony.RequireSignature(cfg.Webhook.Secret))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening",
			"addr", srv.Addr,
			"store", cfg.Store.Backend,
			"redis", cfg.UsesRedis(),
			"dialer", orch.Dialer.Name(),
			"webhook_signatures", cfg.Webhook.Secret != "",
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

// stores bundles the backend-specific implementations chosen at boot.
type stores struct {
	calls       calls.Repository
	escalations escalation.Repository
	audit       audit.Repository
	directory   campaigns.Directory
	reports     reporting.Repository
	retry       retry.Scheduler
	locker      lock.Locker

	ready   func(ctx context.Context) error
	closers []func() error
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

func openStores(ctx context.Context, cfg config.Config, log *slog.Logger) (*stores, error) {
	st := &stores{}

	var db *sql.DB
	if cfg.UsesPostgres() {
		var err error
		db, err = utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, db.Close)

		if cfg.Store.AutoMigrate {
			if err := utils.ApplySchema(ctx, db, migrations.Init); err != nil {
				st.close()
				return nil, err
			}
			log.Info("schema applied")
		}

		st.calls = calls.NewPostgresRepo(db)
		st.escalations = escalation.NewPostgresRepo(db)
		st.audit = audit.NewPostgresRepo(db)
		st.directory = campaigns.NewPostgresDirectory(db)
		st.reports = reporting.NewPostgresRepo(db)
		st.ready = func(ctx context.Context) error { return utils.HealthCheck(ctx, db, 2*time.Second) }
	} else {
		log.Warn("using in-memory store; data is lost on restart")
		callRepo := calls.NewMemoryRepo()
		escRepo := escalation.NewMemoryRepo()
		st.calls = callRepo
		st.escalations = escRepo
		st.audit = audit.NewMemoryRepo()
		st.directory = campaigns.NewSeededMemoryDirectory(time.Now().UTC())
		st.reports = reporting.NewStoreRepo(callRepo, escRepo)
	}

	if cfg.UsesRedis() {
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			st.close()
			return nil, err
		}
		st.closers = append(st.closers, rdb.Close)
		st.locker = &lock.RedisLocker{Client: rdb, Prefix: "pulsecall:lock:", TTL: cfg.Redis.LockTTL, Log: log}
		st.retry = retry.NewRedisScheduler(rdb, "")
		st.ready = withRedisPing(st.ready, rdb)
	} else {
		st.locker = lock.NewKeyedMutex()
		st.retry = retry.NewMemoryScheduler()
	}
	return st, nil
}

func withRedisPing(next func(ctx context.Context) error, rdb *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if next != nil {
			if err := next(ctx); err != nil {
				return err
			}
		}
		return rdb.Ping(ctx).Err()
	}
}

func newDialer(cfg config.Config) telephony.Dialer {
	if cfg.Dialer.BaseURL == "" {
		return telephony.LocalDialer{}
	}
	return &telephony.HTTPDialer{
		BaseURL:    cfg.Dialer.BaseURL,
		APIKey:     cfg.Dialer.APIKey,
		AgentID:    cfg.Dialer.AgentID,
		MaxElapsed: cfg.Dialer.MaxElapsed,
	}
}

func newNotifier(cfg config.Config, log *slog.Logger) notify.Notifier {
	if !cfg.Twilio.Enabled() {
		return notify.LogNotifier{Log: log}
	}
	return &notify.TwilioSMS{
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken,
		From:       cfg.Twilio.FromNumber,
		MaxElapsed: cfg.Notify.MaxElapsed,
	}
}
