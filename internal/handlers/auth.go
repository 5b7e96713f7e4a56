package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"blogspace/internal/db"
	"blogspace/internal/models"
	"blogspace/internal/services"
	"blogspace/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func validEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

// Register creates a user account and signs them in.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if len(req.Username) < 3 {
		respondError(c, http.StatusBadRequest, "Username must be at least 3 characters")
		return
	}
	if !validEmail(req.Email) {
		respondError(c, http.StatusBadRequest, "Please provide a valid email")
		return
	}
	if len(req.Password) < 6 {
		respondError(c, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	var count int64
	db.DB.Model(&models.User{}).
		Where("email = ? OR username = ?", req.Email, req.Username).
		Count(&count)
	if count > 0 {
		respondError(c, http.StatusBadRequest, "User already exists with this email or username")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		serverError(c, err)
		return
	}

	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: hash,
		Avatar:   utils.DefaultAvatarURL(req.Username),
	}
	if err := db.DB.Create(&user).Error; err != nil {
		serverError(c, err)
		return
	}

	token, err := services.IssueUserToken(user.ID, user.Username)
	if err != nil {
		serverError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

// Login authenticates a user by email and password. Restricted accounts
// are rejected before the password is checked so the reason is always
// reported, even on a bad password.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	var user models.User
	err := db.DB.Where("email = ?", strings.TrimSpace(strings.ToLower(req.Email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, http.StatusBadRequest, "Invalid credentials")
		return
	}
	if err != nil {
		serverError(c, err)
		return
	}

	if user.IsRestricted {
		c.JSON(http.StatusForbidden, gin.H{
			"message":      "Account restricted",
			"reason":       user.RestrictedReason,
			"isRestricted": true,
		})
		return
	}

	if !utils.CheckPasswordHash(req.Password, user.Password) {
		respondError(c, http.StatusBadRequest, "Invalid credentials")
		return
	}

	token, err := services.IssueUserToken(user.ID, user.Username)
	if err != nil {
		serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// savedPostPids returns the public ids of every post the user has saved,
// most recently saved first.
func savedPostPids(userID uint) []string {
	pids := make([]string, 0)
	db.DB.Model(&models.SavedPost{}).
		Joins("JOIN posts ON posts.id = saved_posts.post_id").
		Where("saved_posts.user_id = ?", userID).
		Order("saved_posts.created_at DESC").
		Pluck("posts.pid", &pids)
	return pids
}

// Me returns the authenticated user along with their saved post ids.
func (h *AuthHandler) Me(c *gin.Context) {
	user := currentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"user":       user,
		"savedPosts": savedPostPids(user.ID),
	})
}

// UpdateProfile updates username, bio and avatar. Accepts multipart form
// data so the avatar image can be uploaded in the same request.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	user := currentUser(c)

	username := strings.TrimSpace(c.PostForm("username"))
	if username != "" && username != user.Username {
		if len(username) < 3 {
			respondError(c, http.StatusBadRequest, "Username must be at least 3 characters")
			return
		}
		var count int64
		db.DB.Model(&models.User{}).
			Where("username = ? AND id <> ?", username, user.ID).
			Count(&count)
		if count > 0 {
			respondError(c, http.StatusBadRequest, "Username is already taken")
			return
		}
		user.Username = username
	}

	if bio, ok := c.GetPostForm("bio"); ok {
		if len(bio) > 500 {
			respondError(c, http.StatusBadRequest, "Bio must be at most 500 characters")
			return
		}
		user.Bio = bio
	}

	if file, header, err := c.Request.FormFile("avatar"); err == nil {
		defer file.Close()
		path, err := services.SaveImage(file, header, "avatar")
		if err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		user.Avatar = path
	}

	if err := db.DB.Save(user).Error; err != nil {
		serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ToggleSave adds or removes a post from the user's reading list.
func (h *AuthHandler) ToggleSave(c *gin.Context) {
	user := currentUser(c)
	pid := c.Param("pid")

	var post models.Post
	if err := db.DB.Where("pid = ?", pid).First(&post).Error; err != nil {
		respondError(c, http.StatusNotFound, "Post not found")
		return
	}

	var saved bool
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.SavedPost
		err := tx.Where("user_id = ? AND post_id = ?", user.ID, post.ID).First(&existing).Error
		switch {
		case err == nil:
			saved = false
			return tx.Delete(&existing).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			saved = true
			return tx.Create(&models.SavedPost{UserID: user.ID, PostID: post.ID}).Error
		default:
			return err
		}
	})
	if err != nil {
		serverError(c, err)
		return
	}

	savedPids := savedPostPids(user.ID)

	message := "Post saved"
	if !saved {
		message = "Post removed from saved"
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    message,
		"saved":      saved,
		"savedPosts": savedPids,
	})
}

// SavedPosts lists the user's saved posts, newest first.
func (h *AuthHandler) SavedPosts(c *gin.Context) {
	user := currentUser(c)
	page, limit := pageParams(c, 10)

	base := db.DB.Model(&models.Post{}).
		Joins("JOIN saved_posts ON saved_posts.post_id = posts.id").
		Where("saved_posts.user_id = ?", user.ID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		serverError(c, err)
		return
	}

	var posts []models.Post
	err := base.Preload("User").
		Order("saved_posts.created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&posts).Error
	if err != nil {
		serverError(c, err)
		return
	}

	if err := fillPostCounts(posts); err != nil {
		serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":       posts,
		"currentPage": page,
		"totalPages":  totalPages(total, limit),
		"totalPosts":  total,
	})
}

// Activity returns the posts the user has interacted with: liked,
// commented on and saved.
func (h *AuthHandler) Activity(c *gin.Context) {
	user := currentUser(c)

	likedPosts := make([]models.Post, 0)
	err := db.DB.Model(&models.Post{}).
		Joins("JOIN likes ON likes.post_id = posts.id").
		Where("likes.user_id = ?", user.ID).
		Preload("User").
		Order("likes.created_at DESC").
		Find(&likedPosts).Error
	if err != nil {
		serverError(c, err)
		return
	}

	commentedPosts := make([]models.Post, 0)
	err = db.DB.Model(&models.Post{}).
		Distinct("posts.*").
		Joins("JOIN comments ON comments.post_id = posts.id").
		Where("comments.user_id = ?", user.ID).
		Preload("User").
		Find(&commentedPosts).Error
	if err != nil {
		serverError(c, err)
		return
	}

	savedPosts := make([]models.Post, 0)
	err = db.DB.Model(&models.Post{}).
		Joins("JOIN saved_posts ON saved_posts.post_id = posts.id").
		Where("saved_posts.user_id = ?", user.ID).
		Preload("User").
		Order("saved_posts.created_at DESC").
		Find(&savedPosts).Error
	if err != nil {
		serverError(c, err)
		return
	}

	for _, posts := range [][]models.Post{likedPosts, commentedPosts, savedPosts} {
		if err := fillPostCounts(posts); err != nil {
			serverError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"likedPosts":     likedPosts,
		"commentedPosts": commentedPosts,
		"savedPosts":     savedPosts,
	})
}
