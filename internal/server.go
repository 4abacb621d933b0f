package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/gymsession/internal/config"
	"github.com/2beens/gymsession/internal/db"
	"github.com/2beens/gymsession/internal/gymstats/feedback"
	"github.com/2beens/gymsession/internal/gymstats/repo"
	"github.com/2beens/gymsession/internal/gymstats/session"
	"github.com/2beens/gymsession/internal/gymstats/workout"
	"github.com/2beens/gymsession/internal/kv"
	"github.com/2beens/gymsession/internal/middleware"
	"github.com/2beens/gymsession/internal/notify"
	"github.com/2beens/gymsession/internal/telemetry/metrics"
	"github.com/2beens/gymsession/internal/telemetry/tracing"
	"github.com/2beens/gymsession/pkg"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

const (
	serviceName     = "gymsession"
	maxRequestBytes = 1 << 20
	webhookTimeout  = 5 * time.Second
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config      *config.Config
	dbPool      *pgxpool.Pool
	sqliteRepo  *repo.SqliteRepo
	store       workout.Store
	redisClient *redis.Client

	manager       *session.Manager
	starter       *session.Starter
	scheduler     *notify.RedisScheduler
	secretChecker *middleware.AppSecretChecker
	rateLimiter   middleware.RequestRateLimiter

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	AppSecretHash           string
	RedisPassword           string
	DBPassword              string
	WebhookSecret           string
	VersionInfo             string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (_ *Server, err error) {
	cfg := params.Config

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, serviceName)
	if err != nil {
		return nil, err
	}

	promRegistry := metrics.NewRegistry()
	metricsManager := metrics.NewManager(serviceName, "service", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	s := &Server{
		config:         cfg,
		versionInfo:    params.VersionInfo,
		secretChecker:  middleware.NewAppSecretChecker(params.AppSecretHash),
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}
	defer func() {
		if err != nil {
			s.closeBackends()
		}
	}()

	if err := s.setupStore(ctx, params); err != nil {
		return nil, err
	}

	s.redisClient = redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})
	if params.HoneycombTracingEnabled {
		s.redisClient.AddHook(redisotel.NewTracingHook())
	}
	rdbStatus := s.redisClient.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	// the scheduler delivers to the manager, and the manager schedules through
	// the scheduler
	var manager *session.Manager
	handlers := notify.Chain{
		notify.HandlerFunc(func(ctx context.Context, n notify.Notification) error {
			return manager.Deliver(ctx, n)
		}),
	}
	if cfg.NotificationWebhookURL != "" {
		handlers = append(handlers, notify.NewWebhookDeliverer(cfg.NotificationWebhookURL, params.WebhookSecret, webhookTimeout))
		log.Debugf("notifications also delivered to webhook [%s]", cfg.NotificationWebhookURL)
	}
	s.rateLimiter = redis_rate.NewLimiter(s.redisClient)
	s.scheduler = notify.NewRedisScheduler(s.redisClient, handlers, cfg.NotificationPollInterval())

	cacheSizeBytes := cfg.KVCacheSizeMB * 1024 * 1024
	manager = session.NewManager(session.Deps{
		Store:         s.store,
		KV:            kv.NewCachedStore(kv.NewRedisStore(s.redisClient), cacheSizeBytes).WithExpiry(cfg.KVCacheTTLSecs),
		Scheduler:     s.scheduler,
		Sink:          feedback.Multi{feedback.NewLogSink(), feedback.NewMetricsSink(metricsManager)},
		Metrics:       metricsManager,
		Now:           time.Now,
		DebounceDelay: cfg.WriteDebounce(),
		DefaultRest:   cfg.DefaultRest(),
	})
	s.manager = manager
	s.starter = session.NewStarter(s.store, metricsManager, time.Now)

	reconciler := session.NewReconciler(s.store, session.OrphanPolicy{
		StaleAfter:        cfg.OrphanStaleAfter(),
		EstimatedDuration: cfg.OrphanEstimatedDuration(),
	}, metricsManager, time.Now)
	closed, err := reconciler.CloseOrphans(ctx)
	if err != nil {
		// not fatal, next start will try again
		log.Errorf("close orphan sessions: %s", err)
	} else if len(closed) > 0 {
		log.Warnf("closed %d orphan sessions on startup", len(closed))
	}

	return s, nil
}

func (s *Server) setupStore(ctx context.Context, params NewServerParams) error {
	cfg := s.config
	switch cfg.Storage {
	case "postgres":
		poolParams := db.NewDBPoolParams{
			DBHost:         cfg.PostgresHost,
			DBPort:         cfg.PostgresPort,
			DBName:         cfg.PostgresDBName,
			DBUser:         cfg.PostgresUser,
			DBPassword:     params.DBPassword,
			TracingEnabled: params.HoneycombTracingEnabled,
		}
		if cfg.RunMigrations {
			if err := db.RunMigrations(poolParams.ConnString()); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
		}
		dbPool, err := db.NewDBPool(ctx, poolParams)
		if err != nil {
			return fmt.Errorf("new db pool: %w", err)
		}
		s.dbPool = dbPool
		s.store = repo.NewPsqlRepo(dbPool)
		s.promRegistry.MustRegister(pgxpoolprometheus.NewCollector(
			dbPool,
			map[string]string{"db_name": cfg.PostgresDBName},
		))
	case "sqlite":
		sqliteRepo, err := repo.OpenSqliteRepo(ctx, cfg.SqlitePath)
		if err != nil {
			return fmt.Errorf("open sqlite repo: %w", err)
		}
		s.sqliteRepo = sqliteRepo
		s.store = sqliteRepo
	case "memory":
		log.Warnln("using in-memory storage, workouts are lost on restart")
		s.store = repo.NewMemRepo()
	default:
		return fmt.Errorf("unknown storage [%s]", cfg.Storage)
	}
	log.Debugf("using [%s] storage", cfg.Storage)
	return nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("workout-router"))

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteTextResponseOK(w, "gymsession")
	}).Methods("GET", "OPTIONS").Name("root")
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteTextResponseOK(w, "ok")
	}).Methods("GET", "OPTIONS").Name("health")
	r.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteTextResponseOK(w, s.versionInfo)
	}).Methods("GET", "OPTIONS").Name("version")

	session.NewHandler(s.manager, s.starter).SetupRoutes(r)

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "DELETE", "OPTIONS").Name("unknown")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(middleware.NewAuthMiddlewareHandler(s.secretChecker).AuthCheck())
	r.Use(middleware.RateLimit(
		s.rateLimiter,
		"workout",
		s.config.RateLimitRequestsPerMinute,
		s.metricsManager,
	))
	r.Use(middleware.LimitAndDrainBody(maxRequestBytes))

	return r
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      s.routerSetup(),
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}))
	metricsAddr := net.JoinHostPort(s.config.MetricsHost, s.config.MetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.scheduler.Start(ctx)
	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")
	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	// stop taking requests first, then flush the sessions they touched
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	s.scheduler.Stop()
	log.Trace("notification scheduler stopped ...")

	if err := s.manager.CloseAll(ctx); err != nil {
		log.Errorf("close active sessions: %s", err)
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	s.closeBackends()

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}
}

func (s *Server) closeBackends() {
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.sqliteRepo != nil {
		if err := s.sqliteRepo.Close(); err != nil {
			log.Errorf("failed to close sqlite repo: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}
}
