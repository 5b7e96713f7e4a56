package handlers_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"blogspace/internal/db"
	"blogspace/internal/models"
	"blogspace/internal/router"
	"blogspace/internal/services"
	"blogspace/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testPassword = "password123"

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&models.User{},
		&models.Admin{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.SavedPost{},
	))
	db.DB = gdb
	utils.GetCache().Purge()

	r := gin.New()
	router.RegisterRoutes(r)
	return r
}

func createUser(t *testing.T, username string) (*models.User, string) {
	t.Helper()
	hash, err := utils.HashPassword(testPassword)
	require.NoError(t, err)

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: hash,
	}
	require.NoError(t, db.DB.Create(user).Error)

	token, err := services.IssueUserToken(user.ID, user.Username)
	require.NoError(t, err)
	return user, token
}

func createAdmin(t *testing.T, username, role string, perms models.Permissions) (*models.Admin, string) {
	t.Helper()
	hash, err := utils.HashPassword(testPassword)
	require.NoError(t, err)

	admin := &models.Admin{
		Username:    username,
		Email:       username + "@example.com",
		Password:    hash,
		Role:        role,
		Permissions: perms,
		IsActive:    true,
	}
	require.NoError(t, db.DB.Create(admin).Error)

	token, err := services.IssueAdminToken(admin.ID, admin.Username, admin.Role)
	require.NoError(t, err)
	return admin, token
}

func createPost(t *testing.T, user *models.User, title string) *models.Post {
	t.Helper()
	post := &models.Post{
		Pid:     utils.RandStringBytesMaskImpr(8),
		UserID:  user.ID,
		Title:   title,
		Content: "Some long enough post content.",
		Tags:    []string{"go", "testing"},
	}
	require.NoError(t, db.DB.Create(post).Error)
	return post
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doMultipart(t *testing.T, r *gin.Engine, method, path string, fields map[string]string, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, w.Code, "unexpected status, body: %s", w.Body.String())
}
