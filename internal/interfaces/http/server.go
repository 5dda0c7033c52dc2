// internal/interfaces/http/server.go
package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/storefront-backend/internal/clock"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/domain/pricing"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/stock"
	"github.com/your-org/storefront-backend/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/interfaces/http/routes"
	"github.com/your-org/storefront-backend/internal/pkg/notify"
	"github.com/your-org/storefront-backend/internal/tasks"
)

// Server represents the HTTP server
type Server struct {
	config      *config.Config
	gin         *gin.Engine
	httpServer  *http.Server
	db          *gorm.DB
	redisClient *redis.Client
	logger      *logrus.Logger
	sweeper     *tasks.Sweeper
	handlers    *routes.Handlers
}

// NewServer creates a new HTTP server instance and wires the domain services.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, log *logrus.Logger) *Server {
	clk := clock.NewSystem()

	products := product.NewService(db)
	ledger := stock.NewLedger(stock.NewGormProductStore(db), log)
	settings := pricing.NewGormSettings(db, cfg.Delivery.FreeThreshold, cfg.Delivery.FlatPrice)
	engine := pricing.NewEngine(products, settings, log)
	sessions := cart.NewSessionStore(redisClient, engine, clk, cfg.Redis.CartTTL, log)

	orders := order.NewGormRepository(db)
	assembler := order.NewAssembler(orders, products, engine, ledger, clk, log)
	lifecycle := order.NewLifecycle(orders, clk, log)

	gateway := payment.NewFakepayGateway(cfg.Payment.GatewayURL, cfg.Payment.WebhookSecret)
	payments := payment.NewService(orders, payment.NewGormStore(db), engine, lifecycle, gateway,
		cfg.Payment.Provider, cfg.Payment.SessionTimeout, clk, log)

	notifier := notify.NewLogNotifier(log)
	sweeper := tasks.NewSweeper(orders, sessions, ledger,
		cfg.Sweeper.Interval, cfg.Sweeper.OrderCutoff, cfg.Sweeper.SessionCutoff, clk, log)

	s := &Server{
		config:      cfg,
		db:          db,
		redisClient: redisClient,
		logger:      log,
		sweeper:     sweeper,
	}
	s.handlers = &routes.Handlers{
		Cart:     handlers.NewCartHandler(sessions, orders, ledger, engine, assembler, clk, log),
		Orders:   handlers.NewOrderHandler(orders, lifecycle, notifier, log),
		Payments: handlers.NewPaymentHandler(payments, log),
		Products: handlers.NewProductHandler(products, log),
	}
	return s
}

// Sweeper exposes the background sweeper so main can run it.
func (s *Server) Sweeper() *tasks.Sweeper {
	return s.sweeper
}

// Start starts the HTTP server
func (s *Server) Start() error {
	if s.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.gin = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.gin,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	s.logger.WithField("port", s.config.Server.Port).Info("HTTP server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

func (s *Server) setupMiddleware() {
	s.gin.Use(gin.Recovery())
	s.gin.Use(middleware.RequestID())
	s.gin.Use(middleware.Logger(s.logger))
	s.gin.Use(middleware.CORS(s.config))
}

func (s *Server) setupRoutes() {
	s.gin.GET("/health", s.healthCheck)

	apiV1 := s.gin.Group("/api/v1")
	routes.SetupRoutes(apiV1, s.handlers, s.config)
}

// healthCheck handles health check requests
func (s *Server) healthCheck(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err != nil || sqlDB.Ping() != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database unreachable"})
		return
	}
	if err := s.redisClient.Ping(c.Request.Context()).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "redis unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": s.config.App.Name,
		"version": s.config.App.Version,
	})
}
