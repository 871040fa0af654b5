package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/contacts-service/internal/config"
	"github.com/prperemyshlev/contacts-service/internal/handler"
	"github.com/prperemyshlev/contacts-service/internal/repository"
	"github.com/prperemyshlev/contacts-service/internal/service"
	"github.com/prperemyshlev/contacts-service/internal/utils"
	"github.com/prperemyshlev/contacts-service/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra  Infrastructure
	config *config.Config
	auth   service.AuthService
	router *gin.Engine
	server *http.Server
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	return newApp(infra, cfg, repository.NewRepositories(infra.Postgres()))
}

func newApp(infra Infrastructure, cfg *config.Config, repos *repository.Repositories) (*App, error) {
	tokens, err := utils.NewTokenManager(utils.TokenConfig{
		AccessSecret:  cfg.JWT.Secret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		Algorithm:     cfg.JWT.Algorithm,
		AccessTTL:     cfg.JWT.AccessTokenExpiry.Duration,
		RefreshTTL:    cfg.JWT.RefreshTokenExpiry.Duration,
		EmailTTL:      cfg.JWT.EmailTokenExpiry.Duration,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token manager: %w", err)
	}

	userCache := service.NewUserCache(infra.Redis(), cfg.Security.UserCacheTTL.Duration)
	rateLimiter := service.NewRateLimiter(infra.Redis())
	healthChecker := NewHealthChecker(infra)

	authService, err := service.NewAuthService(
		repos.User,
		tokens,
		utils.NewPasswordHasher(cfg.Security.BCryptCost),
		infra.Mailer(),
		userCache,
		infra.Logger(),
		infra.MeterProvider().Meter(serviceName),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth service: %w", err)
	}

	contactService := service.NewContactService(repos.Contact)
	userService := service.NewUserService(repos.User, infra.Uploader(), userCache, infra.Logger())

	handler.SetupValidator()

	router := gin.New()
	// Forwarded headers are only honored from these proxies; none by default
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(handler.LoggerMiddleware(infra.Logger()))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))
	if cfg.Security.MaxAvatarBytes > 0 {
		router.MaxMultipartMemory = cfg.Security.MaxAvatarBytes
	}

	setupRoutes(router, cfg, routes{
		auth:          handler.NewAuthHandler(authService, infra.Logger()),
		contacts:      handler.NewContactHandler(contactService, infra.Logger()),
		users:         handler.NewUserHandler(userService, cfg.Security.MaxAvatarBytes, infra.Logger()),
		authenticate:  handler.AuthMiddleware(authService, infra.Logger()),
		rateLimiter:   rateLimiter,
		healthChecker: healthChecker,
		metrics:       infra.MetricsHandler(),
		logger:        infra.Logger(),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		auth:   authService,
		router: router,
		server: srv,
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

type routes struct {
	auth          *handler.AuthHandler
	contacts      *handler.ContactHandler
	users         *handler.UserHandler
	authenticate  gin.HandlerFunc
	rateLimiter   handler.Limiter
	healthChecker *HealthChecker
	metrics       http.Handler
	logger        *zap.Logger
}

func setupRoutes(router *gin.Engine, cfg *config.Config, r routes) {
	router.GET("/metrics", observability.PrometheusHandler(r.metrics))
	router.GET("/health", r.healthChecker.Handler)

	api := router.Group("/api")
	{
		api.GET("/healthchecker", r.healthChecker.Healthchecker)

		auth := api.Group("/auth")
		{
			auth.POST("/register", r.auth.Register)
			auth.POST("/login", r.auth.Login)
			auth.GET("/confirmed_email/:token", r.auth.ConfirmEmail)
			auth.POST("/request_email", r.auth.RequestEmail)
			auth.POST("/token-refresh", r.auth.Refresh)
		}

		contacts := api.Group("/contacts", r.authenticate)
		{
			contacts.GET("", r.contacts.List)
			contacts.POST("", r.contacts.Create)
			contacts.GET("/birthdays", r.contacts.Birthdays)
			contacts.GET("/:id", r.contacts.Get)
			contacts.PUT("/:id", r.contacts.Update)
			contacts.DELETE("/:id", r.contacts.Delete)
		}

		users := api.Group("/users")
		{
			users.GET("/me",
				handler.RateLimitMiddleware(r.rateLimiter, cfg.Security.MeRateLimitRequests, cfg.Security.MeRateLimitWindow.Duration, handler.RouteIPKey, r.logger),
				r.authenticate,
				r.users.Me,
			)
			users.PATCH("/avatar", r.authenticate, r.users.UpdateAvatar)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Stop taking requests before closing the connections they use
	if err := a.server.Shutdown(ctx); err != nil {
		a.infra.Logger().Error("HTTP server shutdown failed", zap.Error(err))
		return errors.Join(err, a.infra.Shutdown(ctx))
	}

	if err := a.auth.Drain(ctx); err != nil {
		a.infra.Logger().Warn("Confirmation emails not sent before shutdown", zap.Error(err))
	}

	if err := a.infra.Shutdown(ctx); err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
