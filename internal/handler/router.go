package handler

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/makkenzo/machine-license-api/internal/config"
	"github.com/makkenzo/machine-license-api/internal/handler/middleware"
	"github.com/makkenzo/machine-license-api/internal/ierr"
	"github.com/makkenzo/machine-license-api/internal/service"
	"github.com/makkenzo/machine-license-api/internal/util"
)

type RouterDeps struct {
	Service   *service.LicenseService
	Admin     config.AdminConfig
	CORS      config.CORSConfig
	RateLimit config.RateLimitConfig
	Logger    *zap.Logger
}

// NewRouter creates and configures the gin engine with every route.
func NewRouter(deps RouterDeps) *gin.Engine {
	appLogger := deps.Logger

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\" request_id=%v\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
			param.Keys[middleware.RequestIDKey],
		)
	}))
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logMsg := "Panic recovered"
		if err, ok := recovered.(string); ok {
			logMsg = fmt.Sprintf("%s: %s", logMsg, err)
		} else if err, ok := recovered.(error); ok {
			logMsg = fmt.Sprintf("%s: %v", logMsg, err)
		}
		appLogger.Error(logMsg, zap.Stack("stack"))

		_ = c.Error(ierr.ErrInternalServer)
		c.Abort()
	}))

	corsConfig := cors.Config{
		AllowOrigins: deps.CORS.AllowOrigins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			middleware.AdminKeyHeader,
			middleware.RequestIDHeader,
		},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))
	router.Use(middleware.ErrorHandlerMiddleware(appLogger))

	healthHandler := NewHealthHandler(deps.Service, appLogger)
	licenseHandler := NewLicenseHandler(deps.Service, appLogger)
	adminHandler := NewAdminHandler(deps.Service, appLogger)

	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	verifier := util.NewAdminKeyVerifier(deps.Admin.APIKey, deps.Admin.APIKeyHash)
	limiter := middleware.NewIPRateLimiter(rate.Limit(deps.RateLimit.RequestsPerSecond), deps.RateLimit.Burst, deps.RateLimit.IdleTTL)
	storeGate := middleware.RequireStore(deps.Service)

	api := router.Group("/api")
	{
		public := api.Group("")
		public.Use(middleware.RateLimiter(limiter), storeGate)
		{
			public.POST("/activate", licenseHandler.Activate)
			public.POST("/validate", licenseHandler.Validate)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.AdminKeyMiddleware(verifier, appLogger), storeGate)
		{
			admin.POST("/generate", adminHandler.Generate)
			admin.GET("/licenses", adminHandler.List)
			admin.POST("/update", adminHandler.Update)
			admin.POST("/delete", adminHandler.Delete)
			admin.GET("/stats", adminHandler.Stats)
		}
	}

	return router
}
