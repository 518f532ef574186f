package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/northdocs/docflow/internal/domain/entity"
)

const identityKey = "identity"

// authMiddleware resolves the bearer token once per request and stores the
// identity in the gin context. Requests without a valid token get 401.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing bearer token",
			})
			return
		}

		identity, err := s.authResolver.Resolve(c.Request.Context(), token)
		if err != nil {
			s.logger.Info("Rejected request token", "error", err, "client_ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "invalid token",
			})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// identityFrom extracts the identity the auth middleware stored
func identityFrom(c *gin.Context) *entity.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*entity.Identity)
	return id
}
