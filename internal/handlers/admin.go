package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"blogspace/internal/db"
	"blogspace/internal/models"
	"blogspace/internal/services"
	"blogspace/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const defaultRestrictionReason = "Violation of community guidelines"

type AdminHandler struct{}

func NewAdminHandler() *AdminHandler {
	return &AdminHandler{}
}

type adminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates an admin by email and password. Deactivation is
// reported before the password is checked, like user restrictions are.
func (h *AdminHandler) Login(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	var admin models.Admin
	err := db.DB.Where("email = ?", strings.TrimSpace(strings.ToLower(req.Email))).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, http.StatusBadRequest, "Invalid credentials")
		return
	}
	if err != nil {
		serverError(c, err)
		return
	}

	if !admin.IsActive {
		respondError(c, http.StatusForbidden, "Admin account is deactivated.")
		return
	}

	if !utils.CheckPasswordHash(req.Password, admin.Password) {
		respondError(c, http.StatusBadRequest, "Invalid credentials")
		return
	}

	now := time.Now()
	admin.LastLogin = &now
	db.DB.Model(&admin).Update("last_login", now)

	token, err := services.IssueAdminToken(admin.ID, admin.Username, admin.Role)
	if err != nil {
		serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "admin": admin})
}

// Me returns the authenticated admin.
func (h *AdminHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"admin": currentAdmin(c)})
}

type createAdminRequest struct {
	Username    string              `json:"username"`
	Email       string              `json:"email"`
	Password    string              `json:"password"`
	Role        string              `json:"role"`
	Permissions *models.Permissions `json:"permissions"`
}

// CreateAdmin provisions a new admin account. Super admins can only be
// created by the bootstrap command, never through the API.
func (h *AdminHandler) CreateAdmin(c *gin.Context) {
	creator := currentAdmin(c)

	var req createAdminRequest
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

	role := req.Role
	if role == "" {
		role = models.RoleAdmin
	}
	if role != models.RoleAdmin && role != models.RoleModerator {
		respondError(c, http.StatusBadRequest, "Role must be admin or moderator")
		return
	}

	var count int64
	db.DB.Model(&models.Admin{}).
		Where("email = ? OR username = ?", req.Email, req.Username).
		Count(&count)
	if count > 0 {
		respondError(c, http.StatusBadRequest, "Admin already exists with this email or username")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		serverError(c, err)
		return
	}

	perms := models.DefaultPermissions()
	if req.Permissions != nil {
		perms = *req.Permissions
	}

	admin := models.Admin{
		Username:    req.Username,
		Email:       req.Email,
		Password:    hash,
		Role:        role,
		Permissions: perms,
		IsActive:    true,
		CreatedByID: &creator.ID,
	}
	if err := db.DB.Create(&admin).Error; err != nil {
		serverError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Admin created", "admin": admin})
}

// ListAdmins returns every admin account, newest first.
func (h *AdminHandler) ListAdmins(c *gin.Context) {
	var admins []models.Admin
	if err := db.DB.Preload("CreatedBy").Order("created_at DESC").Find(&admins).Error; err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"admins": admins})
}

// permissionsPatch carries only the flags the caller sent, so a partial
// update never zeroes the untouched ones.
type permissionsPatch struct {
	CanManageUsers   *bool `json:"canManageUsers"`
	CanManagePosts   *bool `json:"canManagePosts"`
	CanManageAdmins  *bool `json:"canManageAdmins"`
	CanViewAnalytics *bool `json:"canViewAnalytics"`
}

func (p *permissionsPatch) apply(perms *models.Permissions) {
	if p.CanManageUsers != nil {
		perms.CanManageUsers = *p.CanManageUsers
	}
	if p.CanManagePosts != nil {
		perms.CanManagePosts = *p.CanManagePosts
	}
	if p.CanManageAdmins != nil {
		perms.CanManageAdmins = *p.CanManageAdmins
	}
	if p.CanViewAnalytics != nil {
		perms.CanViewAnalytics = *p.CanViewAnalytics
	}
}

type updateAdminRequest struct {
	Role        *string           `json:"role"`
	Permissions *permissionsPatch `json:"permissions"`
	IsActive    *bool             `json:"isActive"`
}

// UpdateAdmin changes role, permissions or active status of an admin.
func (h *AdminHandler) UpdateAdmin(c *gin.Context) {
	id := utils.StringToInt(c.Param("id"))

	var admin models.Admin
	if err := db.DB.First(&admin, id).Error; err != nil {
		respondError(c, http.StatusNotFound, "Admin not found")
		return
	}

	if admin.Role == models.RoleSuperAdmin {
		respondError(c, http.StatusForbidden, "Super admin accounts cannot be modified")
		return
	}

	var req updateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Role != nil {
		if *req.Role != models.RoleAdmin && *req.Role != models.RoleModerator {
			respondError(c, http.StatusBadRequest, "Role must be admin or moderator")
			return
		}
		admin.Role = *req.Role
	}
	if req.Permissions != nil {
		req.Permissions.apply(&admin.Permissions)
	}
	if req.IsActive != nil {
		admin.IsActive = *req.IsActive
	}

	if err := db.DB.Save(&admin).Error; err != nil {
		serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Admin updated", "admin": admin})
}

// DeleteAdmin removes an admin account. Self deletion is refused so the
// panel can never lock itself out.
func (h *AdminHandler) DeleteAdmin(c *gin.Context) {
	actor := currentAdmin(c)
	id := utils.StringToInt(c.Param("id"))

	if uint(id) == actor.ID {
		respondError(c, http.StatusBadRequest, "Cannot delete your own admin account")
		return
	}

	var admin models.Admin
	if err := db.DB.First(&admin, id).Error; err != nil {
		respondError(c, http.StatusNotFound, "Admin not found")
		return
	}

	if admin.Role == models.RoleSuperAdmin {
		respondError(c, http.StatusForbidden, "Super admin accounts cannot be deleted")
		return
	}

	if err := db.DB.Delete(&admin).Error; err != nil {
		serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Admin deleted"})
}

type userCount struct {
	UserID uint
	Count  int64
}

// ListUsers returns users with their post counts, optionally filtered by
// a username or email search.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, limit := pageParams(c, 20)
	search := strings.TrimSpace(c.Query("search"))

	query := db.DB.Model(&models.User{})
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("LOWER(username) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?)", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		serverError(c, err)
		return
	}

	var users []models.User
	err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&users).Error
	if err != nil {
		serverError(c, err)
		return
	}

	ids := make([]uint, 0, len(users))
	for i := range users {
		ids = append(ids, users[i].ID)
	}
	counts := make(map[uint]int64, len(ids))
	if len(ids) > 0 {
		var rows []userCount
		err = db.DB.Model(&models.Post{}).
			Select("user_id, COUNT(*) as count").
			Where("user_id IN ?", ids).
			Group("user_id").
			Scan(&rows).Error
		if err != nil {
			serverError(c, err)
			return
		}
		for _, r := range rows {
			counts[r.UserID] = r.Count
		}
	}

	type userWithCount struct {
		models.User
		PostCount int64 `json:"post_count"`
	}
	out := make([]userWithCount, 0, len(users))
	for _, u := range users {
		out = append(out, userWithCount{User: u, PostCount: counts[u.ID]})
	}

	c.JSON(http.StatusOK, gin.H{
		"users":       out,
		"currentPage": page,
		"totalPages":  totalPages(total, limit),
		"totalUsers":  total,
	})
}

// GetUser returns one user with content totals.
func (h *AdminHandler) GetUser(c *gin.Context) {
	id := utils.StringToInt(c.Param("id"))

	var user models.User
	if err := db.DB.First(&user, id).Error; err != nil {
		respondError(c, http.StatusNotFound, "User not found")
		return
	}

	var postCount, commentCount int64
	db.DB.Model(&models.Post{}).Where("user_id = ?", user.ID).Count(&postCount)
	db.DB.Model(&models.Comment{}).Where("user_id = ?", user.ID).Count(&commentCount)

	c.JSON(http.StatusOK, gin.H{
		"user":         user,
		"postCount":    postCount,
		"commentCount": commentCount,
	})
}

type restrictRequest struct {
	Reason string `json:"reason"`
}

// ToggleUserRestriction flips a user's restricted flag. Restricting
// records a reason, lifting clears it.
func (h *AdminHandler) ToggleUserRestriction(c *gin.Context) {
	id := utils.StringToInt(c.Param("id"))

	var user models.User
	if err := db.DB.First(&user, id).Error; err != nil {
		respondError(c, http.StatusNotFound, "User not found")
		return
	}

	var req restrictRequest
	_ = c.ShouldBindJSON(&req)

	var message string
	if user.IsRestricted {
		user.IsRestricted = false
		user.RestrictedReason = ""
		message = "User restriction lifted"
	} else {
		user.IsRestricted = true
		user.RestrictedReason = strings.TrimSpace(req.Reason)
		if user.RestrictedReason == "" {
			user.RestrictedReason = defaultRestrictionReason
		}
		message = "User restricted"
	}

	err := db.DB.Model(&user).Select("is_restricted", "restricted_reason").
		Updates(map[string]interface{}{
			"is_restricted":     user.IsRestricted,
			"restricted_reason": user.RestrictedReason,
		}).Error
	if err != nil {
		serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message, "user": user})
}

// DeleteUser removes a user and everything they created.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id := utils.StringToInt(c.Param("id"))

	var user models.User
	if err := db.DB.First(&user, id).Error; err != nil {
		respondError(c, http.StatusNotFound, "User not found")
		return
	}

	var pids []string
	db.DB.Model(&models.Post{}).Where("user_id = ?", user.ID).Pluck("pid", &pids)

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		var postIDs []uint
		if err := tx.Model(&models.Post{}).Where("user_id = ?", user.ID).Pluck("id", &postIDs).Error; err != nil {
			return err
		}
		for _, postID := range postIDs {
			if err := deletePostTx(tx, postID); err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.SavedPost{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		serverError(c, err)
		return
	}

	for _, pid := range pids {
		utils.GetCache().Delete(detailCacheKey(pid))
	}
	invalidateListCache()
	c.JSON(http.StatusOK, gin.H{"message": "User and all associated content deleted"})
}

// ListPosts returns all posts for moderation, restricted ones included.
func (h *AdminHandler) ListPosts(c *gin.Context) {
	page, limit := pageParams(c, 20)
	search := strings.TrimSpace(c.Query("search"))

	query := db.DB.Model(&models.Post{})
	if search != "" {
		query = query.Where("LOWER(title) LIKE LOWER(?)", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		serverError(c, err)
		return
	}

	var posts []models.Post
	err := query.Preload("User").
		Order("created_at DESC").
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

// TogglePostRestriction flips a post's restricted flag.
func (h *AdminHandler) TogglePostRestriction(c *gin.Context) {
	pid := c.Param("pid")

	var post models.Post
	if err := db.DB.Where("pid = ?", pid).First(&post).Error; err != nil {
		respondError(c, http.StatusNotFound, "Post not found")
		return
	}

	var req restrictRequest
	_ = c.ShouldBindJSON(&req)

	var message string
	if post.IsRestricted {
		post.IsRestricted = false
		post.RestrictedReason = ""
		message = "Post restriction lifted"
	} else {
		post.IsRestricted = true
		post.RestrictedReason = strings.TrimSpace(req.Reason)
		if post.RestrictedReason == "" {
			post.RestrictedReason = defaultRestrictionReason
		}
		message = "Post restricted"
	}

	err := db.DB.Model(&post).Select("is_restricted", "restricted_reason").
		Updates(map[string]interface{}{
			"is_restricted":     post.IsRestricted,
			"restricted_reason": post.RestrictedReason,
		}).Error
	if err != nil {
		serverError(c, err)
		return
	}

	utils.GetCache().Delete(detailCacheKey(pid))
	invalidateListCache()
	c.JSON(http.StatusOK, gin.H{"message": message, "post": post})
}

// DeletePost removes any post, regardless of author.
func (h *AdminHandler) DeletePost(c *gin.Context) {
	pid := c.Param("pid")

	var post models.Post
	if err := db.DB.Where("pid = ?", pid).First(&post).Error; err != nil {
		respondError(c, http.StatusNotFound, "Post not found")
		return
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		return deletePostTx(tx, post.ID)
	})
	if err != nil {
		serverError(c, err)
		return
	}

	utils.GetCache().Delete(detailCacheKey(pid))
	invalidateListCache()
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

// DeleteComment removes any comment, regardless of author.
func (h *AdminHandler) DeleteComment(c *gin.Context) {
	cid := c.Param("cid")

	var comment models.Comment
	if err := db.DB.Preload("Post").Where("cid = ?", cid).First(&comment).Error; err != nil {
		respondError(c, http.StatusNotFound, "Comment not found")
		return
	}
	if comment.Post.Pid != c.Param("pid") {
		respondError(c, http.StatusNotFound, "Comment not found")
		return
	}

	if err := db.DB.Delete(&comment).Error; err != nil {
		serverError(c, err)
		return
	}

	utils.GetCache().Delete(detailCacheKey(comment.Post.Pid))
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted"})
}

// Dashboard returns the analytics overview for the admin panel.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	var totalUsers, totalPosts, totalComments int64
	db.DB.Model(&models.User{}).Count(&totalUsers)
	db.DB.Model(&models.Post{}).Count(&totalPosts)
	db.DB.Model(&models.Comment{}).Count(&totalComments)

	// Users who published anything in the last 30 days
	var activeUsers int64
	since := time.Now().AddDate(0, 0, -30)
	db.DB.Model(&models.Post{}).
		Where("created_at >= ?", since).
		Distinct("user_id").
		Count(&activeUsers)

	var recentUsers []models.User
	db.DB.Order("created_at DESC").Limit(5).Find(&recentUsers)

	var recentPosts []models.Post
	db.DB.Preload("User").Order("created_at DESC").Limit(5).Find(&recentPosts)

	c.JSON(http.StatusOK, gin.H{
		"totalUsers":    totalUsers,
		"totalPosts":    totalPosts,
		"totalComments": totalComments,
		"activeUsers":   activeUsers,
		"recentUsers":   recentUsers,
		"recentPosts":   recentPosts,
	})
}
