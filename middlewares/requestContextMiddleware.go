package middlewares

import (
	"net/http"
	"strconv"

	"bitbucket.org/andeansoft/procurement_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestContextMiddleware lifts the identity headers the gateway sets into
// the request context. Verifying them is the gateway's job; everything behind
// it only needs the tenant scope.
func RequestContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId := c.GetHeader("x-business-id")
		if businessId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing business id"})
			c.Abort()
			return
		}

		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
		if userIdHeader := c.GetHeader("x-user-id"); userIdHeader != "" {
			if userId, err := strconv.Atoi(userIdHeader); err == nil {
				ctx = utils.SetUserIdInContext(ctx, userId)
			}
		}
		if username := c.GetHeader("x-username"); username != "" {
			ctx = utils.SetUsernameInContext(ctx, username)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// CorrelationIdMiddleware generates a correlation id once per request and
// attaches it to context, honoring an inbound x-correlation-id.
func CorrelationIdMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Writer.Header().Set("x-correlation-id", cid)
		c.Next()
	}
}
