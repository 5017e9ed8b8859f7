package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lastseat/server/internal/auth"
	"lastseat/server/internal/models"
	"lastseat/server/internal/services"
	"lastseat/server/internal/utils"
)

const (
	// ContextKeyAdminID holds the authenticated admin's ID in Gin context.
	ContextKeyAdminID = "adminID"
	// ContextKeyAdminEmail holds the authenticated admin's email in Gin context.
	ContextKeyAdminEmail = "adminEmail"
	// ContextKeyAdminRole holds the authenticated admin's role in Gin context.
	ContextKeyAdminRole = "adminRole"
)

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		claims, err := auth.ValidateJWT(parts[1], jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": fmt.Sprintf("Invalid or expired token: %v", err)})
			return
		}

		c.Set(ContextKeyAdminID, claims.AdminID)
		c.Set(ContextKeyAdminEmail, claims.Email)
		c.Set(ContextKeyAdminRole, claims.Role)

		c.Next()
	}
}

// AdminMiddleware requires any back-office role. Assumes AuthMiddleware ran first.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextKeyAdminRole)
		if !exists {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Administrator privileges required"})
			return
		}
		r, ok := role.(models.AdminRole)
		if !ok || (r != models.RoleAdmin && r != models.RoleMainAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Administrator privileges required"})
			return
		}
		c.Next()
	}
}

// MainAdminMiddleware requires the main_admin role. Assumes AuthMiddleware ran first.
func MainAdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextKeyAdminRole)
		r, ok := role.(models.AdminRole)
		if !exists || !ok || r != models.RoleMainAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Main administrator privileges required"})
			return
		}
		c.Next()
	}
}

// ActorFromContext rebuilds the acting admin's identity from the values
// AuthMiddleware stored. Zero value if unauthenticated.
func ActorFromContext(c *gin.Context) services.Actor {
	actor := services.Actor{}
	if idStr, ok := c.Get(ContextKeyAdminID); ok {
		if id, err := utils.ParseUID(idStr.(string)); err == nil {
			actor.ID = id
		}
	}
	if email, ok := c.Get(ContextKeyAdminEmail); ok {
		actor.Email = email.(string)
	}
	return actor
}
