package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/pix-payments/internal/handlers"
	"github.com/akylbek/payment-system/pix-payments/internal/interfaces"
	"github.com/akylbek/payment-system/pix-payments/internal/telemetry"
)

// StaticTokenAuthenticator checks bearer tokens against a fixed table.
type StaticTokenAuthenticator struct {
	tokens map[string]string
}

func NewStaticTokenAuthenticator(tokens map[string]string) *StaticTokenAuthenticator {
	return &StaticTokenAuthenticator{tokens: tokens}
}

func (a *StaticTokenAuthenticator) Authenticate(_ context.Context, token string) (string, bool) {
	if token == "" {
		return "", false
	}
	for known, operator := range a.tokens {
		if subtle.ConstantTimeCompare([]byte(known), []byte(token)) == 1 {
			return operator, true
		}
	}
	return "", false
}

// RequireOperator rejects requests without a valid operator bearer token and
// stores the operator identity under handlers.OperatorKey.
func RequireOperator(auth interfaces.OperatorAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "operator authentication required"})
			return
		}
		operator, ok := auth.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if !ok {
			telemetry.Logger.Warn("Rejected operator token", zap.String("client_ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid operator credentials"})
			return
		}
		c.Set(handlers.OperatorKey, operator)
		c.Next()
	}
}
