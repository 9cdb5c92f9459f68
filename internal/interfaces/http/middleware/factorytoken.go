package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/utils"
)

// FactoryToken gates the provisioning endpoint behind the shared
// factory secret carried in X-Factory-Token.
func FactoryToken(expected string, log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		if expected == "" {
			log.Errorw("factory token not configured, rejecting provisioning request")
			utils.ErrorResponse(c, http.StatusServiceUnavailable, "provisioning disabled")
			c.Abort()
			return
		}

		token := c.GetHeader("X-Factory-Token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			log.Warnw("rejected provisioning request with bad factory token", "client_ip", c.ClientIP())
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid factory token")
			c.Abort()
			return
		}

		c.Next()
	}
}
