package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/divyanshu1906/CrowdFunding-Website/config"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/domain"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/handler"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/logger"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/middleware"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/repository"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/service"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/ws"
	"github.com/divyanshu1906/CrowdFunding-Website/pkg/payment"
)

// Deps are the external collaborators chosen by the caller. Gateway may be nil, in which case
// payment endpoints answer 503.
type Deps struct {
	Gateway payment.Gateway
	Media   service.MediaStore
}

// Setup wires repositories, services and handlers onto a gin engine. The returned func
// releases background resources and must be called on shutdown.
func Setup(cfg *config.Config, db *gorm.DB, deps Deps) (*gin.Engine, func(), error) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	done := make(chan struct{})
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewIPRateLimiter(cfg.Server.RateLimit)
		go limiter.Cleanup(done)
		r.Use(middleware.RateLimit(limiter))
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	eventRepo := repository.NewWebhookEventRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	revokedRepo := repository.NewRevokedTokenRepository(db)

	paymentHub := ws.NewHub()

	// Services
	uploader, err := service.NewMediaUploader(deps.Media, cfg.Storage.UploadWorkers, int64(cfg.Storage.MaxFileSizeMB)<<20)
	if err != nil {
		close(done)
		return nil, nil, fmt.Errorf("media uploader: %w", err)
	}
	auditor := service.NewAuditor(auditRepo)
	authSvc := service.NewAuthService(cfg, userRepo, revokedRepo)
	catalogSvc := service.NewCatalogService(projectRepo, uploader, auditor, cfg.Storage.MaxFiles)
	orderSvc := service.NewOrderService(cfg.Payment, deps.Gateway, paymentRepo, paymentHub, auditor)
	webhookSvc := service.NewWebhookService(cfg.Payment.WebhookSecret, paymentRepo, eventRepo, paymentHub, auditor)
	if deps.Gateway == nil {
		logger.Warnf("[payment] gateway not configured, payment endpoints will answer 503")
	}

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc, auditor)
	projectHandler := handler.NewProjectHandler(catalogSvc)
	paymentHandler := handler.NewPaymentHandler(orderSvc)
	webhookHandler := handler.NewPaymentWebhookHandler(webhookSvc)

	authMw := middleware.AuthRequired(&cfg.JWT)
	optionalAuthMw := middleware.OptionalAuth(&cfg.JWT)

	api := r.Group("/api")
	{
		accounts := api.Group("/accounts")
		{
			accounts.POST("/register/", authHandler.Register)
			accounts.POST("/login/", authHandler.Login)
			accounts.POST("/refresh/", authHandler.Refresh)
			accounts.POST("/logout/", authMw, authHandler.Logout)
			accounts.GET("/me/", authMw, authHandler.Me)
		}

		projects := api.Group("/projects")
		{
			projects.GET("/", projectHandler.List)
			projects.GET("/my/", authMw, projectHandler.Mine)
			projects.GET("/:category/:id/", projectHandler.Get)
			projects.PUT("/my/:category/:id/update/", authMw, projectHandler.Update)
			projects.DELETE("/my/:category/:id/delete/", authMw, projectHandler.Delete)
			for _, c := range domain.Categories {
				projects.POST("/"+string(c)+"/create/", authMw, projectHandler.Create(c))
			}
		}

		payments := api.Group("/payments")
		{
			payments.POST("/create-order/", optionalAuthMw, paymentHandler.CreateOrder)
			payments.POST("/verify/", paymentHandler.Verify)
			payments.POST("/webhook/", webhookHandler.Handle)
		}
	}

	r.GET("/ws/payments/:id", ws.ServePaymentStatus(&cfg.JWT, paymentHub, orderSvc))
	r.GET("/healthz", health(db))

	if !cfg.Cloudinary.Enabled() && strings.HasPrefix(cfg.Storage.PublicURL, "/") {
		r.Static(cfg.Storage.PublicURL, cfg.Storage.LocalDir)
	}

	cleanup := func() {
		close(done)
		uploader.Close()
	}
	return r, cleanup, nil
}

func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			logger.Errorf("[health] database: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
