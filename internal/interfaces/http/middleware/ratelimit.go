package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/infrastructure/ratelimit"
	apperrors "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/errors"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/utils"
)

// RateLimit enforces a fixed-window budget for one route scope. The
// client key is the authenticated uid when present, otherwise the
// client IP. Limiter failures fail open: a broken counter store must
// not take the API down.
func RateLimit(limiter ratelimit.Limiter, log logger.Interface, scope string, window time.Duration, maxRequests int) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString(ContextKeyUID)
		if key == "" {
			key = c.ClientIP()
		}

		_, err := limiter.Consume(c.Request.Context(), scope, key, window, maxRequests)
		if err != nil {
			if apperrors.IsRateLimitedError(err) {
				utils.ErrorResponseWithError(c, err)
				c.Abort()
				return
			}
			log.Warnw("rate limiter unavailable, allowing request",
				"scope", scope, "error", err)
		}

		c.Next()
	}
}
