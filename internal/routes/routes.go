package routes

import (
	"appdist_backend/internal/admission"
	"appdist_backend/internal/handlers"
	"appdist_backend/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the HTTP API under /api.
func RegisterRoutes(
	ginRouter *gin.Engine,
	releaseHandler *handlers.ReleaseHandler,
	uploadLimiter *admission.Limiter,
	publicLimiter *admission.Limiter,
	keyGate *admission.KeyGate,
) {
	api := ginRouter.Group("/api")
	{
		releaseHandler.RegisterRoutes(
			api,
			middleware.RateLimitMiddleware(uploadLimiter),
			middleware.RateLimitMiddleware(publicLimiter),
			middleware.UploadKeyMiddleware(keyGate),
		)
	}
}
