package handlers

import (
	"log"
	"net/http"

	"blogspace/internal/middleware"
	"blogspace/internal/models"
	"blogspace/internal/utils"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

func serverError(c *gin.Context, err error) {
	log.Printf("server error: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
}

// currentUser returns the authenticated user, or nil for anonymous requests.
func currentUser(c *gin.Context) *models.User {
	val, ok := c.Get(middleware.CheckUserKey)
	if !ok {
		return nil
	}
	return val.(*models.User)
}

func currentAdmin(c *gin.Context) *models.Admin {
	val, ok := c.Get(middleware.CheckAdminKey)
	if !ok {
		return nil
	}
	return val.(*models.Admin)
}

// pageParams reads page and limit query params, clamping to sane values.
func pageParams(c *gin.Context, defaultLimit int) (page, limit int) {
	page = utils.StringToInt(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit = utils.StringToInt(c.DefaultQuery("limit", ""))
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

func totalPages(total int64, limit int) int64 {
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return pages
}
