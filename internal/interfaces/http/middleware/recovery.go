package middleware

import (
	"errors"
	"net"
	"net/http"
	"os"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/utils"
)

// Headers whose values must never reach the logs.
var redactedHeaders = []string{"Authorization", "X-Factory-Token", "Stripe-Signature", "Cookie"}

// Recovery converts panics into 500 responses. A panic caused by the
// client hanging up is logged without a stack and gets no response
// body, since the connection is already gone.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		if isClientDisconnect(recovered) {
			logger.Warn("client disconnected mid-request",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", recovered)
			c.Abort()
			return
		}

		logger.Error("panic recovered",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"client_ip", c.ClientIP(),
			"headers", safeHeaders(c.Request.Header),
			"panic", recovered,
			"stack", string(debug.Stack()))

		utils.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
	})
}

func safeHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		redacted := false
		for _, secret := range redactedHeaders {
			if strings.EqualFold(name, secret) {
				redacted = true
				break
			}
		}
		if redacted {
			out[name] = "*"
		} else {
			out[name] = strings.Join(values, ", ")
		}
	}
	return out
}

func isClientDisconnect(recovered any) bool {
	err, ok := recovered.(error)
	if !ok {
		return false
	}
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		return false
	}
	var sysErr *os.SyscallError
	if !errors.As(opErr.Err, &sysErr) {
		return false
	}
	msg := strings.ToLower(sysErr.Error())
	return strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset by peer")
}

// ErrorHandler reports errors handlers attached to the context instead
// of writing themselves.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		logger.Error("unhandled request error",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err)
		if !c.Writer.Written() {
			utils.ErrorResponseWithError(c, err)
		}
	}
}
