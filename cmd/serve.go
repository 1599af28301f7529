package cmd

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/civipay/authnet-gateway/app/controller"
	"github.com/civipay/authnet-gateway/app/factory"
	"github.com/civipay/authnet-gateway/app/gateway"
	"github.com/civipay/authnet-gateway/app/repository"
	"github.com/civipay/authnet-gateway/app/service"
	"github.com/civipay/authnet-gateway/app/types"
	"github.com/civipay/authnet-gateway/config"
)

const (
	webhookNotificationPath = "/webhooks/authnet"
	apiKeyHeader            = "X-API-Key"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP (Echo) server for payments, subscription management, and vendor webhooks.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type services struct {
	payment      *service.PaymentService
	ipn          *service.IPNService
	subscription *service.SubscriptionService
	webhookCheck *service.WebhookCheckService
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, svcs, cleanup := mustCreateServices()
	defer cleanup()

	contributionController := controller.NewContributionController(svcs.payment)
	subscriptionController := controller.NewSubscriptionController(svcs.subscription)
	webhookController := controller.NewWebhookController(svcs.ipn, svcs.webhookCheck)

	if cfg.App.APIKey == "" {
		logrus.Warn("APP_API_KEY is not set, API key check is disabled")
	}

	e := setupHTTPServer(cfg.App.APIKey, contributionController, subscriptionController, webhookController)

	if cfg.Webhooks.CallbackBaseURL != "" {
		go func() {
			if _, err := svcs.webhookCheck.EnsureWebhook(context.Background()); err != nil {
				logrus.WithError(err).Warn("Startup webhook check failed")
			}
		}()
	}

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	apiKey string,
	contributionController *controller.ContributionController,
	subscriptionController *controller.SubscriptionController,
	webhookController *controller.WebhookController,
) *echo.Echo {
	e := echo.New()
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
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
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

	e.GET("/health", contributionController.Health)

	// The vendor posts notifications without a request id or API key, so
	// the webhook route stays outside the guarded group. Its payloads carry
	// their own HMAC signature.
	e.POST(webhookNotificationPath, webhookController.HandleNotification)

	api := e.Group("", requireRequestID(), requireAPIKey(apiKey))
	api.POST("/payments", contributionController.DoPayment)
	api.GET("/contributions", contributionController.ListContributions)
	api.GET("/contributions/:id", contributionController.GetContribution)
	api.GET("/contributions/:id/payments", contributionController.ListPayments)

	api.GET("/subscriptions/:id", subscriptionController.GetSubscription)
	api.PUT("/subscriptions/:id/billing", subscriptionController.UpdateBilling)
	api.PUT("/subscriptions/:id/amount", subscriptionController.ChangeAmount)
	api.POST("/subscriptions/:id/cancel", subscriptionController.CancelSubscription)

	api.GET("/transactions/:id", webhookController.GetTransaction)
	api.POST("/webhooks/check", webhookController.CheckRegistration)

	return e
}

func requireRequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "x-request-id header is required"})
			}
			ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(ctx)
		}
	}
}

// requireAPIKey guards the management API with a shared key. An empty
// configured key disables the check, for local development only.
func requireAPIKey(apiKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if apiKey == "" {
				return next(ctx)
			}
			candidate := ctx.Request().Header.Get(apiKeyHeader)
			if subtle.ConstantTimeCompare([]byte(candidate), []byte(apiKey)) != 1 {
				return ctx.JSON(http.StatusUnauthorized, &types.ErrorResponse{Error: "invalid api key"})
			}
			return next(ctx)
		}
	}
}

func mustCreateServices() (*config.Config, *services, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	contributionRepo := repository.NewContributionRepository(db)
	recurRepo := repository.NewContributionRecurRepository(db)
	recordRepo := repository.NewPaymentRecordRepository(db)

	client, err := gateway.NewClient(gateway.Config{
		APILoginID:       cfg.AuthNet.APILoginID,
		TransactionKey:   cfg.AuthNet.TransactionKey,
		SignatureKey:     cfg.AuthNet.SignatureKey,
		TestMode:         cfg.AuthNet.TestMode,
		APIEndpoint:      cfg.AuthNet.SiteURL,
		WebhooksEndpoint: cfg.AuthNet.WebhooksURL,
		HTTPTimeout:      cfg.AuthNet.HTTPTimeout,
	})
	if err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to create vendor client")
	}

	svcs := &services{
		payment:      service.NewPaymentService(contributionRepo, recurRepo, recordRepo, client, factory.NewModuleLogger("payment-service")),
		ipn:          service.NewIPNService(contributionRepo, recurRepo, recordRepo, client, factory.NewModuleLogger("ipn-service")),
		subscription: service.NewSubscriptionService(recurRepo, client, factory.NewModuleLogger("subscription-service")),
		webhookCheck: service.NewWebhookCheckService(client, webhookCallbackURL(cfg), factory.NewModuleLogger("webhook-check-service")),
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, svcs, cleanup
}

func webhookCallbackURL(cfg *config.Config) string {
	base := strings.TrimRight(strings.TrimSpace(cfg.Webhooks.CallbackBaseURL), "/")
	if base == "" {
		return ""
	}
	return base + webhookNotificationPath
}
