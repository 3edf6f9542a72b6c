package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/khushigupta13/patienthub/internal/auth"
	"github.com/khushigupta13/patienthub/internal/cache"
	"github.com/khushigupta13/patienthub/internal/config"
	"github.com/khushigupta13/patienthub/internal/http/handlers"
	"github.com/khushigupta13/patienthub/internal/http/middlewares"
	"github.com/khushigupta13/patienthub/internal/observability"
	"github.com/khushigupta13/patienthub/internal/repo/postgres"
)

type RouterDeps struct {
	Log        *slog.Logger
	Pool       *pgxpool.Pool
	Cfg        config.Config
	Cache      cache.Store
	Prom       *observability.Prom
	PromGather prometheus.Gatherer
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(deps.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(deps.Cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(1 << 20))
	r.Use(middlewares.RequireJSON())

	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}

	if deps.Cfg.TracingEnabled {
		r.Use(otelgin.Middleware("patienthub-api"))
	}

	// health
	ping := func() error {
		if deps.Pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return deps.Pool.Ping(ctx)
	}

	health := handlers.NewHealthHandler(ping)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if deps.PromGather != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.PromGather, promhttp.HandlerOpts{})))
	}

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(deps.Pool, deps.Prom)
	patientsRepo := postgres.NewPatientsRepo(deps.Pool, deps.Prom)

	jwtManager := auth.NewManager(deps.Cfg.JWTSecret, deps.Cfg.AccessTTL())
	authMW := middlewares.NewAuthMiddleware(jwtManager, usersRepo)

	authLimiter := middlewares.NewRateLimiter(deps.Cfg.AuthRateLimit, time.Duration(deps.Cfg.AuthRateWindowS)*time.Second)
	apiLimiter := middlewares.NewRateLimiter(deps.Cfg.APIRateLimit, time.Duration(deps.Cfg.APIRateWindowS)*time.Second)

	// wire up handlers
	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, jwtManager)
	patientsHandler := handlers.NewPatientsHandler(patientsRepo, deps.Cache, deps.Cfg.CacheTTL())
	analyticsHandler := handlers.NewAnalyticsHandler(patientsRepo, deps.Cache, deps.Cfg.CacheTTL())
	usersHandler := handlers.NewUsersHandler(usersRepo)

	authRoutes := r.Group("/api/auth")
	authRoutes.Use(authLimiter.RateLimiterMiddleware(middlewares.KeyByIP))
	authRoutes.POST("/register", authHandler.Register)
	authRoutes.POST("/login", authHandler.Login)

	api := r.Group("/api")
	api.Use(authMW.RequireAuth())
	api.Use(apiLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP))

	api.GET("/patients", patientsHandler.ListPatients)
	api.POST("/patients", patientsHandler.CreatePatient)
	api.GET("/patients/analytics", analyticsHandler.Summary)
	api.GET("/patients/export/csv", patientsHandler.ExportCSV)
	api.GET("/patients/:id", patientsHandler.GetPatientByID)
	api.PUT("/patients/:id", patientsHandler.UpdatePatient)
	api.DELETE("/patients/:id", authMW.RequireRoles("admin"), patientsHandler.DeletePatient)

	api.GET("/analytics", authMW.RequireRoles("admin"), analyticsHandler.Breakdown)

	api.GET("/users/me", usersHandler.Me)
	api.GET("/users", authMW.RequireRoles("admin"), usersHandler.ListUsers)

	return r
}
