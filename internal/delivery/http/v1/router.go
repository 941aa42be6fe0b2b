package v1

import (
	"net/http"
	"time"

	"career-coach-backend/config"
	"career-coach-backend/internal/delivery/http/middleware"
	"career-coach-backend/internal/delivery/http/response"
	"career-coach-backend/internal/domain"
	"career-coach-backend/internal/usecase"
	"career-coach-backend/pkg/auth"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const swaggerPrefix = "/v1/swagger/"

type RouterDeps struct {
	ProfileUC    domain.ProfileUsecase
	HealthUC     usecase.HealthUsecase
	JWKSProvider *auth.Provider
	Config       *config.Config
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	cfg := deps.Config
	window := time.Duration(cfg.RateLimitWindowSeconds) * time.Second

	// Global Middlewares
	r.Use(middleware.CORSMiddleware(cfg.FrontendURL, cfg.IsProduction())) // CORS must be first!
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())
	r.Use(middleware.SecurityHeadersMiddleware(swaggerPrefix))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimitMiddleware(middleware.GlobalRateLimitConfig(cfg.RateLimitGlobalThreshold, window)))

	v1 := r.Group("/v1")

	// Health Check
	v1.GET("/health", func(c *gin.Context) {
		if deps.HealthUC == nil {
			response.Success(c, http.StatusOK, "System operational", nil)
			return
		}
		status, healthy := deps.HealthUC.Check(c.Request.Context())
		if !healthy {
			response.Error(c, http.StatusServiceUnavailable, "System degraded", status)
			return
		}
		response.Success(c, http.StatusOK, "System operational", status)
	})

	// Swagger
	v1.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Protected routes
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(deps.JWKSProvider, cfg.ClerkIssuer))
	protected.Use(middleware.CSRFMiddleware(cfg.IsProduction()))
	{
		profileLimit := middleware.RateLimitMiddleware(
			middleware.ProfileUpdateRateLimitConfig(cfg.RateLimitProfileThreshold, window),
		)
		NewProfileHandler(protected, deps.ProfileUC, profileLimit)
	}

	return r
}
