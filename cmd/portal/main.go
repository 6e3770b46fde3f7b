package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-portal/internal/backend"
	"github.com/noah-isme/sma-attendance-portal/internal/backend/memory"
	"github.com/noah-isme/sma-attendance-portal/internal/backend/rest"
	"github.com/noah-isme/sma-attendance-portal/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-attendance-portal/internal/middleware"
	"github.com/noah-isme/sma-attendance-portal/internal/models"
	"github.com/noah-isme/sma-attendance-portal/internal/repository"
	"github.com/noah-isme/sma-attendance-portal/internal/service"
	"github.com/noah-isme/sma-attendance-portal/pkg/cache"
	"github.com/noah-isme/sma-attendance-portal/pkg/config"
	"github.com/noah-isme/sma-attendance-portal/pkg/database"
	"github.com/noah-isme/sma-attendance-portal/pkg/logger"
	"github.com/noah-isme/sma-attendance-portal/pkg/mailer"
	corsmiddleware "github.com/noah-isme/sma-attendance-portal/pkg/middleware/cors"
	"github.com/noah-isme/sma-attendance-portal/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/noah-isme/sma-attendance-portal/pkg/middleware/requestid"
	"github.com/noah-isme/sma-attendance-portal/web"
)

const shutdownTimeout = 10 * time.Second

type gateway interface {
	backend.AuthGateway
	backend.IdentityDeleter
}

type stores struct {
	gateway    gateway
	profiles   backend.ProfileStore
	attendance backend.AttendanceStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]handler.ReadinessCheck{}

	var db *sqlx.DB
	if cfg.Backend.TablesDriver == config.DriverPostgres {
		db, err = database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer db.Close()
		checks["postgres"] = db.PingContext
	}

	var redisClient *redis.Client
	if cfg.Session.Store == config.DriverRedis {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	st, err := buildStores(cfg, db, logr)
	if err != nil {
		logr.Fatal("invalid backend configuration", zap.Error(err))
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	mailSvc := service.NewMailService(mailer.New(cfg.Mail, cfg.AppName, logr), cfg.Mail, cfg.AppName, metrics, logr)
	mailSvc.Start(ctx)
	defer mailSvc.Stop()

	authParams := service.AuthServiceParams{
		Gateway:   st.gateway,
		Profiles:  st.profiles,
		Validator: validate,
		Metrics:   metrics,
		Logger:    logr,
		JWTSecret: []byte(cfg.Backend.JWTSecret),
	}
	teacherParams := service.TeacherDashboardParams{
		Profiles:   st.profiles,
		Attendance: st.attendance,
		Gateway:    st.gateway,
		Mail:       mailSvc,
		Validator:  validate,
		Metrics:    metrics,
		Logger:     logr,
		Config:     service.TeacherDashboardConfig{BulkLockTTL: cfg.Session.BulkLockTTL},
	}
	if redisClient != nil {
		authParams.Sessions = repository.NewSessionRepository(redisClient, cfg.Session.TTL, logr)
		teacherParams.Locks = repository.NewLockRepository(redisClient)
	} else {
		authParams.Sessions = repository.NewMemorySessionRepository(cfg.Session.TTL)
		teacherParams.Locks = repository.NewMemoryLockRepository()
	}

	authSvc := service.NewAuthService(authParams)
	teachers := service.NewTeacherDashboardService(teacherParams)
	students := service.NewStudentDashboardService(st.attendance, cfg.UI.ChartDateLayout, metrics, logr)
	dashboards := service.NewDashboardService(st.profiles, teachers, students, logr).EndSessionsWith(authSvc)
	reports := service.NewReportService(st.profiles, st.attendance, logr)

	events, unsubscribe := authSvc.Subscribe()
	defer unsubscribe()
	go logSessionEvents(events, logr)

	tmpl, err := web.Templates()
	if err != nil {
		logr.Fatal("failed to parse templates", zap.Error(err))
	}

	limiter := ratelimit.NewTokenBucket(cfg.Session.SignInPerMinute, cfg.Session.SignInPerMinute)
	cookies := handler.CookieOptions{
		SessionName: cfg.Session.CookieName,
		SessionTTL:  cfg.Session.TTL,
		Secure:      cfg.Session.CookieSecure,
	}
	authHandler := handler.NewAuthHandler(authSvc, cfg.AppName, cookies, logr)

	r := handler.NewRouter(handler.RouterDeps{
		Templates: tmpl,
		Global: []gin.HandlerFunc{
			reqidmiddleware.Middleware(),
			logger.GinMiddleware(logr),
			internalmiddleware.Metrics(metrics, "/metrics", "/health", "/ready"),
			corsmiddleware.New(cfg.CORS.AllowedOrigins),
		},
		Session:    internalmiddleware.Session(authSvc, cfg.Session.CookieName, logr),
		SignInRate: limiter.MiddlewareWith(authHandler.SignInRateLimited),
		Auth:       authHandler,
		Dashboard:  handler.NewDashboardHandler(dashboards, reports, students, cfg.AppName, cfg.Session.CookieSecure, logr),
		Attendance: handler.NewAttendanceHandler(dashboards, teachers, logr),
		Reports:    handler.NewReportHandler(dashboards, reports),
		Theme:      handler.NewThemeHandler(cfg.Session.CookieSecure),
		Metrics:    handler.NewMetricsHandler(metrics, checks, logr),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env,
			"backend", cfg.Backend.Driver, "tables", cfg.Backend.TablesDriver, "sessions", cfg.Session.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server forced shutdown", zap.Error(err))
	}
}

// buildStores picks the auth gateway and the table stores. The memory driver
// shares one in-process backend between both halves.
func buildStores(cfg *config.Config, db *sqlx.DB, logr *zap.Logger) (stores, error) {
	var st stores
	var mem *memory.Backend
	var client *rest.Client

	switch cfg.Backend.Driver {
	case config.DriverREST:
		client = rest.New(cfg.Backend, logr)
		st.gateway = client
	case config.DriverMemory:
		mem = memory.New([]byte(cfg.Backend.JWTSecret))
		st.gateway = mem
	default:
		return st, fmt.Errorf("unknown BACKEND_DRIVER %q", cfg.Backend.Driver)
	}

	switch cfg.Backend.TablesDriver {
	case config.DriverREST:
		if client == nil {
			client = rest.New(cfg.Backend, logr)
		}
		st.profiles, st.attendance = client, client
	case config.DriverPostgres:
		st.profiles = repository.NewProfileRepository(db)
		st.attendance = repository.NewAttendanceRepository(db)
	case config.DriverMemory:
		if mem == nil {
			return st, errors.New("TABLES_DRIVER=memory requires BACKEND_DRIVER=memory")
		}
		st.profiles, st.attendance = mem, mem
	default:
		return st, fmt.Errorf("unknown TABLES_DRIVER %q", cfg.Backend.TablesDriver)
	}

	return st, nil
}

func logSessionEvents(events <-chan models.SessionEvent, logr *zap.Logger) {
	for event := range events {
		logr.Info("session event",
			zap.String("type", string(event.Type)),
			zap.String("user_id", event.UserID),
			zap.Time("at", event.At),
		)
	}
}
