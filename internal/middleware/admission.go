package middleware

import (
	"appdist_backend/internal/admission"
	"appdist_backend/internal/logger"
	"appdist_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware rejects the request with 429 before any core logic
// runs once the client's bucket is empty.
func RateLimitMiddleware(limiter *admission.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			logger.CtxWarn(c.Request.Context(), "rate limit exceeded",
				"client_ip", c.ClientIP(),
				"path", c.Request.URL.Path,
			)
			apperrors.HandleError(c, apperrors.ErrRateLimited)
			return
		}
		c.Next()
	}
}

// UploadKeyMiddleware enforces the shared upload secret on mutating
// operations. The key arrives in the x-upload-key header or the key query
// parameter and is checked before the request body is consumed, so a
// rejected upload never streams its bytes.
func UploadKeyMiddleware(gate *admission.KeyGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("x-upload-key")
		if key == "" {
			key = c.Query("key")
		}
		if !gate.Authorize(key) {
			logger.CtxWarn(c.Request.Context(), "upload key rejected",
				"client_ip", c.ClientIP(),
				"path", c.Request.URL.Path,
			)
			apperrors.HandleError(c, apperrors.ErrInvalidUploadKey)
			return
		}
		c.Next()
	}
}
