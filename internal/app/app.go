package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ramtunguturi36/hair/internal/analyzer"
	"github.com/ramtunguturi36/hair/internal/auth"
	"github.com/ramtunguturi36/hair/internal/cache"
	"github.com/ramtunguturi36/hair/internal/config"
	"github.com/ramtunguturi36/hair/internal/events"
	"github.com/ramtunguturi36/hair/internal/metrics"
	"github.com/ramtunguturi36/hair/internal/middleware"
	"github.com/ramtunguturi36/hair/internal/payment"
	"github.com/ramtunguturi36/hair/internal/repo"
	"github.com/ramtunguturi36/hair/internal/service"
	"github.com/ramtunguturi36/hair/migrations"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const sweepInterval = 5 * time.Minute

type publisher interface {
	service.EventPublisher
	Close() error
}

type App struct {
	cfg    config.Config
	log    *logrus.Logger
	db     *pgxpool.Pool
	redis  *redis.Client
	router *gin.Engine

	gemini  *analyzer.Gemini
	events  publisher
	ledgers *service.LedgerRegistry
	limiter *middleware.RateLimiter
	stop    context.CancelFunc
}

// NewLogger builds the process logger: text in dev, JSON elsewhere.
func NewLogger(cfg config.AppConfig) *logrus.Logger {
	log := logrus.New()
	if cfg.Env != "dev" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

func New(cfg config.Config, log *logrus.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	db, err := newPostgres(cfg.PG.DSN)
	if err != nil {
		return nil, err
	}
	a.db = db

	rdb, err := newRedis(cfg.Redis)
	if err != nil {
		db.Close()
		return nil, err
	}
	a.redis = rdb

	if err := runMigrations(cfg.PG.DSN); err != nil {
		a.closeStores()
		return nil, err
	}

	verifier, err := auth.NewVerifier(cfg.Clerk.JWTKey, cfg.Clerk.AuthorizedParties, cfg.Clerk.Leeway.Duration())
	if err != nil {
		a.closeStores()
		return nil, err
	}

	gemini, err := analyzer.NewGemini(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		a.closeStores()
		return nil, err
	}
	a.gemini = gemini

	if len(cfg.Kafka.Brokers) > 0 {
		a.events = events.NewKafkaPublisher(cfg.Kafka.Brokers)
		log.WithField("brokers", strings.Join(cfg.Kafka.Brokers, ",")).Info("ledger events go to kafka")
	} else {
		a.events = events.NewMemoryPublisher(1000)
		log.Info("no kafka brokers configured, ledger events stay in process")
	}

	m := metrics.New()
	a.ledgers = service.NewLedgerRegistry(newProfileRepo(cfg.Clerk, log),
		service.WithInitialAllotment(cfg.Ledger.InitialAllotment),
		service.WithPublisher(a.events, cfg.Kafka.Topic),
		service.WithMetrics(m),
		service.WithLogger(log),
	)
	a.limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, log)

	history := service.NewHistoryService(
		repo.NewPGHistoryRepo(db),
		cache.NewHistoryCache(rdb, cfg.Redis.HistoryTTL.Duration()),
	)
	deps := routeDeps{
		log:      log,
		verifier: verifier,
		metrics:  m,
		limiter:  a.limiter,
		ledgers:  a.ledgers,
		history:  history,
		analyses: service.NewAnalysisService(gemini, history, service.AnalysisServiceConfig{
			Cost:          cfg.Ledger.AnalysisCost,
			MaxImageBytes: cfg.Upload.MaxImageBytes,
		}, m, log),
		payments: service.NewPaymentService(
			payment.NewStripeProvider(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, nil),
			repo.NewPGPaymentRepo(db),
			cache.NewConfirmationGuard(rdb, cfg.Redis.ConfirmationTTL.Duration()),
			a.ledgers,
			service.PaymentServiceConfig{SuccessURL: cfg.Stripe.SuccessURL, CancelURL: cfg.Stripe.CancelURL},
			m, log,
		),
	}
	a.router = newRouter(cfg, deps)

	ctx, stop := context.WithCancel(context.Background())
	a.stop = stop
	go a.sweep(ctx)
	return a, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Close(ctx context.Context) error {
	_ = ctx
	if a.stop != nil {
		a.stop()
	}
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.log.WithError(err).Warn("close event publisher")
		}
	}
	if a.gemini != nil {
		_ = a.gemini.Close()
	}
	a.closeStores()
	return nil
}

func (a *App) closeStores() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// sweep drops idle session ledgers and rate limiter buckets.
func (a *App) sweep(ctx context.Context) {
	idle := a.cfg.Ledger.SessionIdle.Duration()
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			ledgers := a.ledgers.Sweep(idle)
			limiters := a.limiter.Cleanup(idle)
			if ledgers > 0 || limiters > 0 {
				a.log.WithFields(logrus.Fields{"ledgers": ledgers, "limiters": limiters}).Debug("swept idle sessions")
			}
		}
	}
}

func newProfileRepo(cfg config.ClerkConfig, log logrus.FieldLogger) repo.ProfileRepo {
	if cfg.Store == "memory" {
		log.Warn("PROFILE_STORE=memory: credits are kept in process and lost on restart")
		return repo.NewMemoryProfileRepo()
	}
	return repo.NewClerkProfileRepo(cfg.SecretKey, cfg.APIURL)
}

func newPostgres(dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg parse config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}

	return pool, nil
}

func newRedis(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return rdb, nil
}

func runMigrations(dsn string) error {
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("goose open db: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func newRouter(cfg config.Config, deps routeDeps) *gin.Engine {
	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.log, auth.AccountIDFromContext))
	r.Use(deps.metrics.Middleware())

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "Cookie"},
		ExposeHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.App.AllowOrigins) == 0 || (len(cfg.App.AllowOrigins) == 1 && cfg.App.AllowOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.App.AllowOrigins
		corsCfg.AllowCredentials = true
	}
	r.Use(cors.New(corsCfg))

	Setup(r, cfg, deps)
	return r
}
