package cmd

import (
	"database/sql"
	"net"

	"github.com/vibast-solutions/ms-go-integrations/app/controller"
	"github.com/vibast-solutions/ms-go-integrations/app/middleware"
	"github.com/vibast-solutions/ms-go-integrations/app/ratelimit"
	"github.com/vibast-solutions/ms-go-integrations/app/repository"
	"github.com/vibast-solutions/ms-go-integrations/app/service"
	"github.com/vibast-solutions/ms-go-integrations/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the hub HTTP server",
	Long:  `Start the HTTP (Echo) server exposing integration, API key and activity log endpoints.`,
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	hub := buildHub(db, cfg)
	sessions := service.NewSessionService(cfg.JWTSecret)

	startHTTPServer(cfg, hub, sessions)
}

func buildHub(db *sql.DB, cfg *config.Config) *service.Hub {
	apiKeyRepo := repository.NewAPIKeyRepository(db)
	integrationRepo := repository.NewIntegrationRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	limiter := ratelimit.NewMemoryLimiter()
	credentials := service.NewCredentialService(apiKeyRepo, limiter, cfg.RateLimits)
	integrations := service.NewIntegrationService(integrationRepo)
	activity := service.NewActivityRecorder(activityRepo, cfg.LogQueryLimit, cfg.LogQueryMaxLimit)
	connector := service.NewHTTPConnector(cfg.Breaker)
	orchestrator := service.NewOrchestrator(integrations, connector, activity, cfg.ProbeTimeout, cfg.SyncTimeout)

	return service.NewHub(credentials, integrations, orchestrator, activity)
}

func startHTTPServer(cfg *config.Config, hub *service.Hub, sessions *service.SessionService) {
	e := echo.New()
	defer e.Close()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	integrationController := controller.NewIntegrationController(hub)
	apiKeyController := controller.NewAPIKeyController(hub)
	activityLogController := controller.NewActivityLogController(hub)
	authMiddleware := middleware.NewAuthMiddleware(sessions, hub.Credentials)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("", authMiddleware.RequireCaller)

	api.POST("/integrations", integrationController.Create)
	api.GET("/integrations", integrationController.List)
	api.GET("/integrations/:id", integrationController.Get)
	api.PATCH("/integrations/:id", integrationController.Update)
	api.DELETE("/integrations/:id", integrationController.Delete)
	api.POST("/integrations/:id/deactivate", integrationController.Deactivate)
	api.POST("/integrations/:id/test", integrationController.Test)
	api.POST("/integrations/:id/sync", integrationController.Sync)
	api.POST("/integrations/:id/webhook", integrationController.Webhook)

	api.POST("/api-keys", apiKeyController.Create)
	api.GET("/api-keys", apiKeyController.List)
	api.DELETE("/api-keys/:id", apiKeyController.Revoke)

	api.GET("/integration-logs", activityLogController.List)

	httpAddr := net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort)
	logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
	if err := e.Start(httpAddr); err != nil {
		logrus.WithError(err).Fatal("Failed to start HTTP server")
	}
}
