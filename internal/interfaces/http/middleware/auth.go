package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/infrastructure/auth"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/utils"
)

// Context keys set by the auth middleware.
const (
	ContextKeyUID           = "uid"
	ContextKeyEmail         = "email"
	ContextKeyEmailVerified = "email_verified"
	ContextKeyPremium       = "premium"
	ContextKeyAdmin         = "admin"
)

type AuthMiddleware struct {
	verifier auth.Verifier
	logger   logger.Interface
}

func NewAuthMiddleware(verifier auth.Verifier, log logger.Interface) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		logger:   log.Named("auth"),
	}
}

// RequireAuth verifies the bearer token and stores the caller identity
// in the request context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.authenticate(c) {
			return
		}
		c.Next()
	}
}

// RequireAdmin verifies the bearer token and additionally requires the
// admin claim. The handler chain must not advance before the claim
// check, so this never delegates to the RequireAuth handler.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.authenticate(c) {
			return
		}
		if !c.GetBool(ContextKeyAdmin) {
			utils.ErrorResponse(c, http.StatusForbidden, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// authenticate verifies the bearer token and stores the identity on the
// context. On failure it writes the 401 and aborts. It never calls
// c.Next; advancing the chain is the caller's decision.
func (m *AuthMiddleware) authenticate(c *gin.Context) bool {
	token := bearerToken(c)
	if token == "" {
		utils.ErrorResponse(c, http.StatusUnauthorized, "missing authorization token")
		c.Abort()
		return false
	}

	identity, err := m.verifier.Verify(token)
	if err != nil {
		m.logger.Warnw("failed to verify token", "error", err)
		utils.ErrorResponse(c, http.StatusUnauthorized, "invalid or expired token")
		c.Abort()
		return false
	}

	setIdentity(c, identity)
	return true
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

func setIdentity(c *gin.Context, identity *auth.Identity) {
	c.Set(ContextKeyUID, identity.UID)
	c.Set(ContextKeyEmail, identity.Email)
	c.Set(ContextKeyEmailVerified, identity.EmailVerified)
	c.Set(ContextKeyPremium, identity.Premium)
	c.Set(ContextKeyAdmin, identity.Admin)
}
