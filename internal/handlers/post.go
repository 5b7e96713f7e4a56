package handlers

import (
	"errors"
	"fmt"
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

const (
	listCacheTTL   = 1 * time.Minute
	detailCacheTTL = 5 * time.Minute
)

type PostHandler struct{}

func NewPostHandler() *PostHandler {
	return &PostHandler{}
}

func detailCacheKey(pid string) string {
	return "posts:detail:" + pid
}

func listCacheKey(page, limit int) string {
	return fmt.Sprintf("posts:list:%d:%d", page, limit)
}

type postCount struct {
	PostID uint
	Count  int64
}

// fillPostCounts loads like and comment counts for a page of posts with
// two grouped queries instead of one pair per post.
func fillPostCounts(posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(posts))
	for i := range posts {
		ids = append(ids, posts[i].ID)
	}

	var likeCounts []postCount
	err := db.DB.Model(&models.Like{}).
		Select("post_id, COUNT(*) as count").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&likeCounts).Error
	if err != nil {
		return err
	}

	var commentCounts []postCount
	err = db.DB.Model(&models.Comment{}).
		Select("post_id, COUNT(*) as count").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&commentCounts).Error
	if err != nil {
		return err
	}

	likes := make(map[uint]int64, len(likeCounts))
	for _, lc := range likeCounts {
		likes[lc.PostID] = lc.Count
	}
	comments := make(map[uint]int64, len(commentCounts))
	for _, cc := range commentCounts {
		comments[cc.PostID] = cc.Count
	}

	for i := range posts {
		posts[i].LikeCount = likes[posts[i].ID]
		posts[i].CommentCount = comments[posts[i].ID]
	}
	return nil
}

// List returns the public feed: published posts, newest first, with
// optional search and tag filters. Unfiltered pages are cached briefly.
func (h *PostHandler) List(c *gin.Context) {
	page, limit := pageParams(c, 10)
	search := strings.TrimSpace(c.Query("search"))
	tag := strings.TrimSpace(c.Query("tag"))

	cacheable := search == "" && tag == ""
	if cacheable {
		if cached := utils.GetCache().Get(listCacheKey(page, limit)); cached != nil {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	query := db.DB.Model(&models.Post{}).Where("is_restricted = ?", false)
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("LOWER(title) LIKE LOWER(?)", pattern)
	}
	if tag != "" {
		// Tags are stored as a JSON array, so a quoted match is exact
		query = query.Where("tags LIKE ?", `%"`+tag+`"%`)
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

	payload := gin.H{
		"posts":       posts,
		"currentPage": page,
		"totalPages":  totalPages(total, limit),
		"totalPosts":  total,
	}
	if cacheable {
		utils.GetCache().Set(listCacheKey(page, limit), payload, listCacheTTL)
	}
	c.JSON(http.StatusOK, payload)
}

// ListByUser returns one author's visible posts.
func (h *PostHandler) ListByUser(c *gin.Context) {
	userID := utils.StringToInt(c.Param("id"))
	page, limit := pageParams(c, 10)

	var author models.User
	if err := db.DB.First(&author, userID).Error; err != nil {
		respondError(c, http.StatusNotFound, "User not found")
		return
	}

	query := db.DB.Model(&models.Post{}).
		Where("user_id = ? AND is_restricted = ?", author.ID, false)

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

func buildPostDetail(pid string) (gin.H, error) {
	var post models.Post
	err := db.DB.Preload("User").Where("pid = ?", pid).First(&post).Error
	if err != nil {
		return nil, err
	}

	var comments []models.Comment
	err = db.DB.Preload("User").
		Where("post_id = ?", post.ID).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}

	var likeCount int64
	if err := db.DB.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&likeCount).Error; err != nil {
		return nil, err
	}
	post.LikeCount = likeCount
	post.CommentCount = int64(len(comments))

	payload := gin.H{
		"post":         post,
		"content_html": utils.RenderMarkdown(post.Content),
		"comments":     comments,
	}
	if post.IsRestricted {
		payload["restrictionInfo"] = gin.H{
			"isRestricted": true,
			"reason":       post.RestrictedReason,
		}
	}
	return payload, nil
}

// Detail returns one post with rendered content and its comments. The
// shared payload is cached; per viewer flags are layered on afterwards
// so the cache entry stays user independent.
func (h *PostHandler) Detail(c *gin.Context) {
	pid := c.Param("pid")

	var shared gin.H
	if cached := utils.GetCache().Get(detailCacheKey(pid)); cached != nil {
		shared = cached.(gin.H)
	} else {
		var err error
		shared, err = buildPostDetail(pid)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "Post not found")
			return
		}
		if err != nil {
			serverError(c, err)
			return
		}
		utils.GetCache().Set(detailCacheKey(pid), shared, detailCacheTTL)
	}

	payload := gin.H{}
	for k, v := range shared {
		payload[k] = v
	}

	isLiked, isSaved := false, false
	if user := currentUser(c); user != nil {
		post := shared["post"].(models.Post)
		var n int64
		db.DB.Model(&models.Like{}).
			Where("user_id = ? AND post_id = ?", user.ID, post.ID).
			Count(&n)
		isLiked = n > 0
		db.DB.Model(&models.SavedPost{}).
			Where("user_id = ? AND post_id = ?", user.ID, post.ID).
			Count(&n)
		isSaved = n > 0
	}
	payload["isLiked"] = isLiked
	payload["isSaved"] = isSaved

	c.JSON(http.StatusOK, payload)
}

func parseTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func invalidateListCache() {
	// First pages are the hot ones, deeper pages just expire
	for page := 1; page <= 5; page++ {
		for _, limit := range []int{10, 20} {
			utils.GetCache().Delete(listCacheKey(page, limit))
		}
	}
}

// Create publishes a new post. Multipart form so the cover image can be
// uploaded alongside the text fields.
func (h *PostHandler) Create(c *gin.Context) {
	user := currentUser(c)

	title := strings.TrimSpace(c.PostForm("title"))
	content := strings.TrimSpace(c.PostForm("content"))

	if len(title) < 3 {
		respondError(c, http.StatusBadRequest, "Title must be at least 3 characters")
		return
	}
	if len(content) < 10 {
		respondError(c, http.StatusBadRequest, "Content must be at least 10 characters")
		return
	}

	post := models.Post{
		Pid:     utils.RandStringBytesMaskImpr(8),
		UserID:  user.ID,
		Title:   title,
		Content: content,
		Tags:    parseTags(c.PostForm("tags")),
	}

	if file, header, err := c.Request.FormFile("coverImage"); err == nil {
		defer file.Close()
		path, err := services.SaveImage(file, header, "cover")
		if err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		post.CoverImage = path
	}

	if err := db.DB.Create(&post).Error; err != nil {
		serverError(c, err)
		return
	}

	post.User = *user
	invalidateListCache()
	c.JSON(http.StatusCreated, gin.H{"message": "Post created", "post": post})
}

// Update edits a post. Only the author may edit.
func (h *PostHandler) Update(c *gin.Context) {
	user := currentUser(c)
	pid := c.Param("pid")

	var post models.Post
	if err := db.DB.Where("pid = ?", pid).First(&post).Error; err != nil {
		respondError(c, http.StatusNotFound, "Post not found")
		return
	}
	if post.UserID != user.ID {
		respondError(c, http.StatusForbidden, "Not authorized to edit this post")
		return
	}

	if title, ok := c.GetPostForm("title"); ok {
		title = strings.TrimSpace(title)
		if len(title) < 3 {
			respondError(c, http.StatusBadRequest, "Title must be at least 3 characters")
			return
		}
		post.Title = title
	}
	if content, ok := c.GetPostForm("content"); ok {
		content = strings.TrimSpace(content)
		if len(content) < 10 {
			respondError(c, http.StatusBadRequest, "Content must be at least 10 characters")
			return
		}
		post.Content = content
	}
	if tags, ok := c.GetPostForm("tags"); ok {
		post.Tags = parseTags(tags)
	}
	if file, header, err := c.Request.FormFile("coverImage"); err == nil {
		defer file.Close()
		path, err := services.SaveImage(file, header, "cover")
		if err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		post.CoverImage = path
	}

	if err := db.DB.Save(&post).Error; err != nil {
		serverError(c, err)
		return
	}

	utils.GetCache().Delete(detailCacheKey(pid))
	invalidateListCache()
	c.JSON(http.StatusOK, gin.H{"message": "Post updated", "post": post})
}

// deletePostTx removes a post and everything hanging off it inside one
// transaction.
func deletePostTx(tx *gorm.DB, postID uint) error {
	if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id = ?", postID).Delete(&models.Like{}).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id = ?", postID).Delete(&models.SavedPost{}).Error; err != nil {
		return err
	}
	return tx.Delete(&models.Post{}, postID).Error
}

// Delete removes a post. Only the author may delete.
func (h *PostHandler) Delete(c *gin.Context) {
	user := currentUser(c)
	pid := c.Param("pid")

	var post models.Post
	if err := db.DB.Where("pid = ?", pid).First(&post).Error; err != nil {
		respondError(c, http.StatusNotFound, "Post not found")
		return
	}
	if post.UserID != user.ID {
		respondError(c, http.StatusForbidden, "Not authorized to delete this post")
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

// ToggleLike flips the viewer's like on a post and returns the new count.
func (h *PostHandler) ToggleLike(c *gin.Context) {
	user := currentUser(c)
	pid := c.Param("pid")

	var post models.Post
	if err := db.DB.Where("pid = ?", pid).First(&post).Error; err != nil {
		respondError(c, http.StatusNotFound, "Post not found")
		return
	}

	var isLiked bool
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.Like
		err := tx.Where("user_id = ? AND post_id = ?", user.ID, post.ID).First(&existing).Error
		switch {
		case err == nil:
			isLiked = false
			return tx.Delete(&existing).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			isLiked = true
			return tx.Create(&models.Like{UserID: user.ID, PostID: post.ID}).Error
		default:
			return err
		}
	})
	if err != nil {
		serverError(c, err)
		return
	}

	var likes int64
	db.DB.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&likes)

	utils.GetCache().Delete(detailCacheKey(pid))

	message := "Post liked"
	if !isLiked {
		message = "Post unliked"
	}
	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"likes":   likes,
		"isLiked": isLiked,
	})
}

type commentRequest struct {
	Content string `json:"content"`
}

// CreateComment adds a comment to a post.
func (h *PostHandler) CreateComment(c *gin.Context) {
	user := currentUser(c)
	pid := c.Param("pid")

	var post models.Post
	if err := db.DB.Where("pid = ?", pid).First(&post).Error; err != nil {
		respondError(c, http.StatusNotFound, "Post not found")
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		respondError(c, http.StatusBadRequest, "Comment cannot be empty")
		return
	}

	comment := models.Comment{
		Cid:     utils.RandStringBytesMaskImpr(8),
		PostID:  post.ID,
		UserID:  user.ID,
		Content: content,
	}
	if err := db.DB.Create(&comment).Error; err != nil {
		serverError(c, err)
		return
	}

	comment.User = *user
	utils.GetCache().Delete(detailCacheKey(pid))
	c.JSON(http.StatusCreated, gin.H{"message": "Comment added", "comment": comment})
}

// DeleteComment removes a comment. Only its author may delete it here,
// moderation goes through the admin routes.
func (h *PostHandler) DeleteComment(c *gin.Context) {
	user := currentUser(c)
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
	if comment.UserID != user.ID {
		respondError(c, http.StatusForbidden, "Not authorized to delete this comment")
		return
	}

	if err := db.DB.Delete(&comment).Error; err != nil {
		serverError(c, err)
		return
	}

	utils.GetCache().Delete(detailCacheKey(comment.Post.Pid))
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted"})
}
