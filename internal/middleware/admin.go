package middleware

import (
	"net/http"

	"blogspace/internal/db"
	"blogspace/internal/models"
	"blogspace/internal/services"

	"github.com/gin-gonic/gin"
)

// AdminRequired rejects requests that do not carry a valid admin token.
// The admin row is re-read on every request so permission or status
// changes take effect immediately, not at the next login.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No token, authorization denied"})
			return
		}

		claims, err := services.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token is not valid"})
			return
		}

		if !claims.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Access denied. Admin privileges required."})
			return
		}

		id, err := claims.SubjectID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token is not valid"})
			return
		}

		var admin models.Admin
		if err := db.DB.First(&admin, id).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token is not valid"})
			return
		}

		if !admin.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Admin account is deactivated."})
			return
		}

		c.Set(CheckAdminKey, &admin)
		c.Next()
	}
}

// RequirePermission gates a route behind one capability. Must run after
// AdminRequired.
func RequirePermission(cap models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		val, ok := c.Get(CheckAdminKey)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No token, authorization denied"})
			return
		}
		admin := val.(*models.Admin)

		if !admin.Can(cap) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"message": "Access denied. Required permission: " + string(cap),
			})
			return
		}
		c.Next()
	}
}
