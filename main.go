package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/Tirth-chokshi/strategy-backend/cache"
	"github.com/Tirth-chokshi/strategy-backend/config"
	"github.com/Tirth-chokshi/strategy-backend/controllers"
	"github.com/Tirth-chokshi/strategy-backend/importer"
	"github.com/Tirth-chokshi/strategy-backend/logger"
	"github.com/Tirth-chokshi/strategy-backend/metrics"
	"github.com/Tirth-chokshi/strategy-backend/middleware"
	"github.com/Tirth-chokshi/strategy-backend/repository"
	"github.com/Tirth-chokshi/strategy-backend/router"
	"github.com/Tirth-chokshi/strategy-backend/services"
	"github.com/Tirth-chokshi/strategy-backend/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger is not configured yet
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to MongoDB
	client, db, err := config.ConnectDB(ctx, cfg.Mongo)
	if err != nil {
		log.Fatal("mongo connect failed", zap.Error(err))
	}
	if err := config.EnsureIndexes(ctx, db); err != nil {
		log.Fatal("mongo indexes failed", zap.Error(err))
	}
	log.Info("connected to mongodb", zap.String("db", cfg.Mongo.DB))

	users := repository.NewMongoUsers(db)
	strategyRepo := repository.NewMongoStrategies(db)
	optionRepo := repository.NewMongoOptions(db)

	store, err := cache.New(cfg.Cache)
	if err != nil {
		log.Fatal("cache setup failed", zap.Error(err))
	}

	var mailer utils.Mailer = utils.LogMailer{Logger: log}
	if cfg.SMTP.Configured() {
		mailer = utils.SMTPMailer{
			Host: cfg.SMTP.Host,
			Port: cfg.SMTP.Port,
			User: cfg.SMTP.User,
			Pass: cfg.SMTP.Pass,
			From: cfg.SMTP.From,
		}
	} else {
		log.Warn("smtp not configured, reset mails will only be logged")
	}

	authSvc := &services.AuthService{
		Users:      users,
		Strategies: strategyRepo,
		Tokens:     utils.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Mailer:     mailer,
		ResetTTL:   cfg.Auth.ResetTokenTTL,
		ResetURL:   cfg.Auth.ResetURL,
		Logger:     log,
	}
	strategySvc := &services.StrategyService{Repo: strategyRepo}
	optionSvc := &services.OptionService{
		Repo:     optionRepo,
		Cache:    store,
		CacheTTL: cfg.Cache.TTL,
		Logger:   log,
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	// Option catalog import
	im := &importer.Importer{Repo: optionRepo, Path: cfg.Options.CSVPath, Logger: log, Metrics: collector}
	if cfg.Options.ImportOnStart {
		_, _ = im.Run(ctx)
	}
	var scheduler *importer.Scheduler
	if cfg.Options.ImportCron != "" {
		scheduler = importer.NewScheduler(ctx, log)
		if err := scheduler.ScheduleImport(cfg.Options.ImportCron, im); err != nil {
			log.Fatal("invalid OPTIONS_IMPORT_CRON", zap.String("spec", cfg.Options.ImportCron), zap.Error(err))
		}
		scheduler.Start()
	}

	limiter := middleware.NewRateLimiter(middleware.PerMinute(cfg.Auth.RatePerMin, cfg.Auth.RateBurst), log)

	handler := router.NewRouter(router.Deps{
		Auth:       authSvc,
		Strategies: strategySvc,
		Options:    optionSvc,
		Logger:     log,
		Metrics:    collector,
		Gatherer:   reg,
		Limiter:    limiter,
		Health: controllers.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		}),
		AllowedOrigins: cfg.App.AllowedOrigins(),
	})

	srv := newServer(ctx, ":"+cfg.App.Port, handler)

	// Start server in a goroutine for graceful shutdown
	go func() {
		log.Info("server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced to shutdown", zap.Error(err))
	}
	if scheduler != nil {
		scheduler.Stop()
	}
	limiter.Stop()
	if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Warn("cache close failed", zap.Error(err))
		}
	}

	if err := client.Disconnect(shutdownCtx); err != nil {
		log.Warn("error disconnecting mongodb", zap.Error(err))
	} else {
		log.Info("mongodb disconnected")
	}

	log.Info("server exited")
}

// newServer ties every request context to ctx, so open price streams end as
// soon as shutdown starts instead of holding Shutdown until its deadline.
func newServer(ctx context.Context, addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}
