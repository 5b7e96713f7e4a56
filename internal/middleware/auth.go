package middleware

import (
	"net/http"
	"strings"

	"blogspace/internal/db"
	"blogspace/internal/models"
	"blogspace/internal/services"

	"github.com/gin-gonic/gin"
)

const (
	// CheckUserKey is the context key holding the authenticated *models.User
	CheckUserKey = "current_user"
	// CheckAdminKey is the context key holding the authenticated *models.Admin
	CheckAdminKey = "current_admin"
)

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// LoadUser resolves the bearer token if present and stores the user in the
// context. It never aborts, so anonymous requests pass through untouched.
func LoadUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}

		claims, err := services.VerifyToken(token)
		if err != nil || claims.IsAdmin {
			c.Next()
			return
		}

		id, err := claims.SubjectID()
		if err != nil {
			c.Next()
			return
		}

		var user models.User
		if err := db.DB.First(&user, id).Error; err == nil {
			c.Set(CheckUserKey, &user)
		}
		c.Next()
	}
}

// AuthRequired rejects requests that do not carry a valid user token.
func AuthRequired() gin.HandlerFunc {
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

		// Admin tokens cannot be used on user routes
		if claims.IsAdmin {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token is not valid"})
			return
		}

		id, err := claims.SubjectID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token is not valid"})
			return
		}

		var user models.User
		if err := db.DB.First(&user, id).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token is not valid"})
			return
		}

		c.Set(CheckUserKey, &user)
		c.Next()
	}
}
