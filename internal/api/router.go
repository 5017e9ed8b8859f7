package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"lastseat/server/internal/api/handlers"
	"lastseat/server/internal/api/middleware"
	"lastseat/server/internal/captcha"
	"lastseat/server/internal/config"
	"lastseat/server/internal/logging"
	"lastseat/server/internal/payments"
	"lastseat/server/internal/pricing"
	"lastseat/server/internal/services"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, taskClient services.TaskEnqueuer) *gin.Engine {
	// Services the API handlers need.
	auditService := services.NewAuditService(db, taskClient)
	invoiceService := services.NewInvoiceService(db, cfg, auditService)
	inquiryService := services.NewInquiryService(db, auditService, taskClient)
	adminService := services.NewAdminService(db, cfg)
	pricingService := services.NewPricingService(db, cfg, pricing.NewFareClient(cfg), auditService)
	gateway := payments.NewGateway(cfg)

	captchaVerifier := captcha.NewTurnstileVerifier(cfg)

	r := gin.Default()

	// Global middleware, order matters: CORS first, then captcha evaluation,
	// then the rate limiter that consumes the captcha verdict.
	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.CaptchaMiddleware(cfg, captchaVerifier))
	r.Use(rateLimiter.Limit())

	// Handlers
	authHandler := handlers.NewRestAuthHandler(adminService, cfg)
	invoiceHandler := handlers.NewRestInvoiceHandler(invoiceService, taskClient)
	payHandler := handlers.NewRestPayHandler(invoiceService, gateway, taskClient, cfg)
	inquiryHandler := handlers.NewRestInquiryHandler(inquiryService)
	pricingHandler := handlers.NewRestPricingHandler(pricingService)
	auditHandler := handlers.NewRestAuditHandler(auditService)

	v1 := r.Group("/v1")
	{
		// Public routes
		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		v1.POST("/auth/login", authHandler.Login)

		// Customer payment flow, token is the sole credential.
		v1.GET("/pay/:token", payHandler.Resolve)
		v1.POST("/pay/:token/card", payHandler.ChargeCard)
		v1.POST("/pay/:token/3ds", payHandler.Complete3DS)
		v1.POST("/pay/:token/bank-transfer", payHandler.DeclareBankTransfer)

		// Lead forms and the public estimate.
		v1.POST("/inquiries", inquiryHandler.Create)
		v1.GET("/flights/estimate", pricingHandler.Estimate)

		// Back-office routes.
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.AdminMiddleware())
		{
			admin.GET("/dashboard", invoiceHandler.Dashboard)

			admin.POST("/invoices", invoiceHandler.Create)
			admin.GET("/invoices", invoiceHandler.List)
			admin.GET("/invoices/:id", invoiceHandler.Get)
			admin.PUT("/invoices/:id", invoiceHandler.Update)
			admin.PATCH("/invoices/:id/status", invoiceHandler.UpdateStatus)
			admin.DELETE("/invoices/:id", invoiceHandler.Delete)

			admin.GET("/inquiries", inquiryHandler.List)
			admin.GET("/inquiries/:id", inquiryHandler.Get)
			admin.PATCH("/inquiries/:id/status", inquiryHandler.UpdateStatus)
			admin.DELETE("/inquiries/:id", inquiryHandler.Delete)

			admin.PUT("/airports", pricingHandler.UpsertAirport)
			admin.GET("/airports", pricingHandler.ListAirports)
			admin.DELETE("/airports/:code", pricingHandler.DeleteAirport)

			admin.PUT("/flight-prices", pricingHandler.UpsertRoutePrice)
			admin.GET("/flight-prices", pricingHandler.ListRoutePrices)
			admin.DELETE("/flight-prices/:origin/:destination", pricingHandler.DeleteRoutePrice)

			// Audit log is restricted to the top privilege tier.
			mainAdmin := admin.Group("/")
			mainAdmin.Use(middleware.MainAdminMiddleware())
			{
				mainAdmin.GET("/audit", auditHandler.List)
			}
		}
	}

	return r
}

// SetupServiceRouter configures and returns the service Gin engine used by the
// test harness and deployment tooling (shutdown, mock email retrieval).
func SetupServiceRouter(cfg *config.Config, rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	logger := logging.Get().Named("service-api")
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			logger.Info("received shutdown command via service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				logger.Warn("shutdown channel already signaled or blocked")
			}

		case "getTestEmail":
			var args []string // ["kind", "email"]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [kind, email]"})
				return
			}
			kind, emailAddr := args[0], args[1]
			redisKey := fmt.Sprintf("mockemail:%s:%s", emailAddr, kind)

			// Poll briefly: the email may still be in flight through asynq.
			var emailJSON string
			found := false
			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()
			for i := 0; i < 10; i++ {
				var getErr error
				emailJSON, getErr = rdb.Get(ctx, redisKey).Result()
				if getErr == nil {
					found = true
					rdb.Del(ctx, redisKey)
					break
				}
				if getErr != redis.Nil {
					logger.Error("redis error fetching test email", zap.String("key", redisKey), zap.Error(getErr))
					c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
					return
				}
				time.Sleep(200 * time.Millisecond)
			}

			if !found {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found for key %s", redisKey)})
				return
			}

			var emailData map[string]interface{}
			if err := json.Unmarshal([]byte(emailJSON), &emailData); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "data": emailData})

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
