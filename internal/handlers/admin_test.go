package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"blogspace/internal/db"
	"blogspace/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminLogin(t *testing.T) {
	r := setupRouter(t)
	createAdmin(t, "root", models.RoleSuperAdmin, models.Permissions{})

	w := doJSON(t, r, http.MethodPost, "/api/admin/login", map[string]string{
		"email":    "root@example.com",
		"password": testPassword,
	}, "")
	requireStatus(t, w, http.StatusOK)

	body := parseBody(t, w)
	assert.NotEmpty(t, body["token"])
	admin := body["admin"].(map[string]interface{})
	assert.Equal(t, models.RoleSuperAdmin, admin["role"])
	assert.NotNil(t, admin["last_login"])
}

func TestAdminLoginDeactivated(t *testing.T) {
	r := setupRouter(t)
	admin, _ := createAdmin(t, "gone", models.RoleAdmin, models.DefaultPermissions())
	require.NoError(t, db.DB.Model(admin).Update("is_active", false).Error)

	w := doJSON(t, r, http.MethodPost, "/api/admin/login", map[string]string{
		"email":    "gone@example.com",
		"password": testPassword,
	}, "")
	requireStatus(t, w, http.StatusForbidden)
	assert.Equal(t, "Admin account is deactivated.", parseBody(t, w)["message"])

	// Deactivation is reported even when the password is wrong
	w = doJSON(t, r, http.MethodPost, "/api/admin/login", map[string]string{
		"email":    "gone@example.com",
		"password": "wrongpass",
	}, "")
	requireStatus(t, w, http.StatusForbidden)
	assert.Equal(t, "Admin account is deactivated.", parseBody(t, w)["message"])
}

func TestAdminLoginWrongPassword(t *testing.T) {
	r := setupRouter(t)
	createAdmin(t, "root", models.RoleSuperAdmin, models.Permissions{})

	w := doJSON(t, r, http.MethodPost, "/api/admin/login", map[string]string{
		"email":    "root@example.com",
		"password": "wrongpass",
	}, "")
	requireStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, "Invalid credentials", parseBody(t, w)["message"])
}

func TestUserTokenRejectedOnAdminRoutes(t *testing.T) {
	r := setupRouter(t)
	_, token := createUser(t, "alice")

	w := doJSON(t, r, http.MethodGet, "/api/admin/me", nil, token)
	requireStatus(t, w, http.StatusForbidden)
	assert.Equal(t, "Access denied. Admin privileges required.", parseBody(t, w)["message"])
}

func TestDeactivationTakesEffectImmediately(t *testing.T) {
	r := setupRouter(t)
	admin, token := createAdmin(t, "revoked", models.RoleAdmin, models.DefaultPermissions())

	w := doJSON(t, r, http.MethodGet, "/api/admin/me", nil, token)
	requireStatus(t, w, http.StatusOK)

	// Deactivating invalidates the still-live token on the next request
	require.NoError(t, db.DB.Model(admin).Update("is_active", false).Error)

	w = doJSON(t, r, http.MethodGet, "/api/admin/me", nil, token)
	requireStatus(t, w, http.StatusForbidden)
	assert.Equal(t, "Admin account is deactivated.", parseBody(t, w)["message"])
}

func TestPermissionGate(t *testing.T) {
	r := setupRouter(t)
	_, token := createAdmin(t, "mod", models.RoleModerator, models.Permissions{
		CanManagePosts: true,
	})

	// Allowed: post moderation
	w := doJSON(t, r, http.MethodGet, "/api/admin/posts", nil, token)
	requireStatus(t, w, http.StatusOK)

	// Denied: user management
	w = doJSON(t, r, http.MethodGet, "/api/admin/users", nil, token)
	requireStatus(t, w, http.StatusForbidden)
	assert.Equal(t, "Access denied. Required permission: canManageUsers", parseBody(t, w)["message"])
}

func TestPermissionGateSuperAdminBypass(t *testing.T) {
	r := setupRouter(t)
	_, token := createAdmin(t, "root", models.RoleSuperAdmin, models.Permissions{})

	w := doJSON(t, r, http.MethodGet, "/api/admin/users", nil, token)
	requireStatus(t, w, http.StatusOK)
}

func TestPermissionChangeTakesEffectImmediately(t *testing.T) {
	r := setupRouter(t)
	admin, token := createAdmin(t, "demoted", models.RoleAdmin, models.DefaultPermissions())

	w := doJSON(t, r, http.MethodGet, "/api/admin/users", nil, token)
	requireStatus(t, w, http.StatusOK)

	require.NoError(t, db.DB.Model(admin).Update("can_manage_users", false).Error)

	w = doJSON(t, r, http.MethodGet, "/api/admin/users", nil, token)
	requireStatus(t, w, http.StatusForbidden)
}

func TestCreateAdmin(t *testing.T) {
	r := setupRouter(t)
	creator, token := createAdmin(t, "root", models.RoleSuperAdmin, models.Permissions{})

	w := doJSON(t, r, http.MethodPost, "/api/admin/create", map[string]interface{}{
		"username": "newmod",
		"email":    "newmod@example.com",
		"password": "secret123",
		"role":     models.RoleModerator,
	}, token)
	requireStatus(t, w, http.StatusCreated)

	admin := parseBody(t, w)["admin"].(map[string]interface{})
	assert.Equal(t, models.RoleModerator, admin["role"])
	assert.Equal(t, float64(creator.ID), admin["created_by_id"])

	// Default permission set applies when none is given
	perms := admin["permissions"].(map[string]interface{})
	assert.Equal(t, true, perms["canManageUsers"])
	assert.Equal(t, false, perms["canManageAdmins"])
}

func TestCreateAdminDuplicate(t *testing.T) {
	r := setupRouter(t)
	_, token := createAdmin(t, "root", models.RoleSuperAdmin, models.Permissions{})
	createAdmin(t, "taken", models.RoleAdmin, models.DefaultPermissions())

	w := doJSON(t, r, http.MethodPost, "/api/admin/create", map[string]interface{}{
		"username": "taken",
		"email":    "fresh@example.com",
		"password": "secret123",
	}, token)
	requireStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, "Admin already exists with this email or username", parseBody(t, w)["message"])
}

func TestCreateAdminCannotMintSuperAdmin(t *testing.T) {
	r := setupRouter(t)
	_, token := createAdmin(t, "root", models.RoleSuperAdmin, models.Permissions{})

	w := doJSON(t, r, http.MethodPost, "/api/admin/create", map[string]interface{}{
		"username": "wannabe",
		"email":    "wannabe@example.com",
		"password": "secret123",
		"role":     models.RoleSuperAdmin,
	}, token)
	requireStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, "Role must be admin or moderator", parseBody(t, w)["message"])
}

func TestCreateAdminRequiresPermission(t *testing.T) {
	r := setupRouter(t)
	_, token := createAdmin(t, "plain", models.RoleAdmin, models.DefaultPermissions())

	w := doJSON(t, r, http.MethodPost, "/api/admin/create", map[string]interface{}{
		"username": "newbie",
		"email":    "newbie@example.com",
		"password": "secret123",
	}, token)
	requireStatus(t, w, http.StatusForbidden)
	assert.Equal(t, "Access denied. Required permission: canManageAdmins", parseBody(t, w)["message"])
}

func TestUpdateAdmin(t *testing.T) {
	r := setupRouter(t)
	_, token := createAdmin(t, "root", models.RoleSuperAdmin, models.Permissions{})
	target, _ := createAdmin(t, "target", models.RoleAdmin, models.DefaultPermissions())

	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/admin/%d", target.ID), map[string]interface{}{
		"role":     models.RoleModerator,
		"isActive": false,
	}, token)
	requireStatus(t, w, http.StatusOK)

	admin := parseBody(t, w)["admin"].(map[string]interface{})
	assert.Equal(t, models.RoleModerator, admin["role"])
	assert.Equal(t, false, admin["is_active"])
}

func TestUpdateAdminPartialPermissions(t *testing.T) {
	r := setupRouter(t)
	_, token := createAdmin(t, "root", models.RoleSuperAdmin, models.Permissions{})
	target, _ := createAdmin(t, "target", models.RoleAdmin, models.DefaultPermissions())

	// Patching one flag must leave the others untouched
	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/admin/%d", target.ID), map[string]interface{}{
		"permissions": map[string]bool{"canManageAdmins": true},
	}, token)
	requireStatus(t, w, http.StatusOK)

	perms := parseBody(t, w)["admin"].(map[string]interface{})["permissions"].(map[string]interface{})
	assert.Equal(t, true, perms["canManageAdmins"])
	assert.Equal(t, true, perms["canManageUsers"])
	assert.Equal(t, true, perms["canManagePosts"])
	assert.Equal(t, true, perms["canViewAnalytics"])
}

func TestListAdminsNewestFirst(t *testing.T) {
	r := setupRouter(t)
	_, token := createAdmin(t, "older", models.RoleSuperAdmin, models.Permissions{})
	createAdmin(t, "newer", models.RoleAdmin, models.DefaultPermissions())

	w := doJSON(t, r, http.MethodGet, "/api/admin/all", nil, token)
	requireStatus(t, w, http.StatusOK)

	admins := parseBody(t, w)["admins"].([]interface{})
	require.Len(t, admins, 2)
	assert.Equal(t, "newer", admins[0].(map[string]interface{})["username"])
	assert.Equal(t, "older", admins[1].(map[string]interface{})["username"])
}

func TestUpdateAdminSuperAdminImmutable(t *testing.T) {
	r := setupRouter(t)
	root, _ := createAdmin(t, "root", models.RoleSuperAdmin, models.Permissions{})
	_, token := createAdmin(t, "manager", models.RoleAdmin, models.Permissions{CanManageAdmins: true})

	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/admin/%d", root.ID), map[string]interface{}{
		"isActive": false,
	}, token)
	requireStatus(t, w, http.StatusForbidden)
}

func TestDeleteAdminSelf(t *testing.T) {
	r := setupRouter(t)
	admin, token := createAdmin(t, "root", models.RoleSuperAdmin, models.Permissions{})

	w := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/admin/%d", admin.ID), nil, token)
	requireStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, "Cannot delete your own admin account", parseBody(t, w)["message"])
}

func TestDeleteAdmin(t *testing.T) {
	r := setupRouter(t)
	_, token := createAdmin(t, "root", models.RoleSuperAdmin, models.Permissions{})
	target, _ := createAdmin(t, "target", models.RoleAdmin, models.DefaultPermissions())

	w := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/admin/%d", target.ID), nil, token)
	requireStatus(t, w, http.StatusOK)

	var count int64
	db.DB.Model(&models.Admin{}).Where("id = ?", target.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestListUsers(t *testing.T) {
	r := setupRouter(t)
	_, token := createAdmin(t, "root", models.RoleSuperAdmin, models.Permissions{})
	author, _ := createUser(t, "author")
	createUser(t, "lurker")
	createPost(t, author, "A post")
	createPost(t, author, "Another post")

	w := doJSON(t, r, http.MethodGet, "/api/admin/users", nil, token)
	requireStatus(t, w, http.StatusOK)

	body := parseBody(t, w)
	users := body["users"].([]interface{})
	require.Len(t, users, 2)
	assert.Equal(t, float64(2), body["totalUsers"])

	counts := map[string]float64{}
	for _, u := range users {
		um := u.(map[string]interface{})
		counts[um["username"].(string)] = um["post_count"].(float64)
	}
	assert.Equal(t, float64(2), counts["author"])
	assert.Equal(t, float64(0), counts["lurker"])
}

func TestListUsersSearch(t *testing.T) {
	r := setupRouter(t)
	_, token := createAdmin(t, "root", models.RoleSuperAdmin, models.Permissions{})
	createUser(t, "alice")
	createUser(t, "bob")

	w := doJSON(t, r, http.MethodGet, "/api/admin/users?search=ali", nil, token)
	requireStatus(t, w, http.StatusOK)

	users := parseBody(t, w)["users"].([]interface{})
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].(map[string]interface{})["username"])
}

func TestToggleUserRestriction(t *testing.T) {
	r := setupRouter(t)
	_, token := createAdmin(t, "root", models.RoleSuperAdmin, models.Permissions{})
	user, _ := createUser(t, "troll")

	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/admin/users/%d/restrict", user.ID), map[string]string{
		"reason": "Spamming",
	}, token)
	requireStatus(t, w, http.StatusOK)
	restricted := parseBody(t, w)["user"].(map[string]interface{})
	assert.Equal(t, true, restricted["is_restricted"])
	assert.Equal(t, "Spamming", restricted["restricted_reason"])

	// Toggling again lifts the restriction and clears the reason
	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/admin/users/%d/restrict", user.ID), nil, token)
	requireStatus(t, w, http.StatusOK)
	lifted := parseBody(t, w)["user"].(map[string]interface{})
	assert.Equal(t, false, lifted["is_restricted"])
	assert.Equal(t, "", lifted["restricted_reason"])
}

func TestToggleUserRestrictionDefaultReason(t *testing.T) {
	r := setupRouter(t)
	_, token := createAdmin(t, "root", models.RoleSuperAdmin, models.Permissions{})
	user, _ := createUser(t, "troll")

	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/admin/users/%d/restrict", user.ID), nil, token)
	requireStatus(t, w, http.StatusOK)
	restricted := parseBody(t, w)["user"].(map[string]interface{})
	assert.Equal(t, "Violation of community guidelines", restricted["restricted_reason"])
}

func TestDeleteUserCascades(t *testing.T) {
	r := setupRouter(t)
	_, token := createAdmin(t, "root", models.RoleSuperAdmin, models.Permissions{})
	user, _ := createUser(t, "doomed")
	other, _ := createUser(t, "other")
	post := createPost(t, user, "Doomed post")
	otherPost := createPost(t, other, "Safe post")
	require.NoError(t, db.DB.Create(&models.Comment{Cid: "cmt00010", PostID: otherPost.ID, UserID: user.ID, Content: "gone"}).Error)
	require.NoError(t, db.DB.Create(&models.Like{UserID: other.ID, PostID: post.ID}).Error)

	w := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", user.ID), nil, token)
	requireStatus(t, w, http.StatusOK)

	var count int64
	db.DB.Model(&models.User{}).Where("id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(0), count)
	db.DB.Model(&models.Post{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(0), count)
	db.DB.Model(&models.Comment{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(0), count)
	// Other people's likes on the deleted posts go too
	db.DB.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&count)
	assert.Equal(t, int64(0), count)
	// Unrelated content survives
	db.DB.Model(&models.Post{}).Where("id = ?", otherPost.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestTogglePostRestriction(t *testing.T) {
	r := setupRouter(t)
	_, token := createAdmin(t, "root", models.RoleSuperAdmin, models.Permissions{})
	author, _ := createUser(t, "author")
	post := createPost(t, author, "Edgy post")

	w := doJSON(t, r, http.MethodPut, "/api/admin/posts/"+post.Pid+"/restrict", map[string]string{
		"reason": "Reported",
	}, token)
	requireStatus(t, w, http.StatusOK)
	restricted := parseBody(t, w)["post"].(map[string]interface{})
	assert.Equal(t, true, restricted["is_restricted"])

	// The public feed no longer shows it
	w = doJSON(t, r, http.MethodGet, "/api/posts", nil, "")
	requireStatus(t, w, http.StatusOK)
	assert.Empty(t, parseBody(t, w)["posts"])
}

func TestAdminDeletePost(t *testing.T) {
	r := setupRouter(t)
	_, token := createAdmin(t, "root", models.RoleSuperAdmin, models.Permissions{})
	author, _ := createUser(t, "author")
	post := createPost(t, author, "Removed by staff")

	w := doJSON(t, r, http.MethodDelete, "/api/admin/posts/"+post.Pid, nil, token)
	requireStatus(t, w, http.StatusOK)

	var count int64
	db.DB.Model(&models.Post{}).Where("id = ?", post.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestAdminDeleteComment(t *testing.T) {
	r := setupRouter(t)
	_, token := createAdmin(t, "root", models.RoleSuperAdmin, models.Permissions{})
	author, _ := createUser(t, "author")
	post := createPost(t, author, "A post")
	comment := &models.Comment{Cid: "cmt00011", PostID: post.ID, UserID: author.ID, Content: "rude"}
	require.NoError(t, db.DB.Create(comment).Error)

	w := doJSON(t, r, http.MethodDelete, "/api/admin/posts/"+post.Pid+"/comments/"+comment.Cid, nil, token)
	requireStatus(t, w, http.StatusOK)

	var count int64
	db.DB.Model(&models.Comment{}).Where("cid = ?", comment.Cid).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestDashboard(t *testing.T) {
	r := setupRouter(t)
	_, token := createAdmin(t, "root", models.RoleSuperAdmin, models.Permissions{})
	author, _ := createUser(t, "author")
	createUser(t, "lurker")
	post := createPost(t, author, "Fresh post")
	require.NoError(t, db.DB.Create(&models.Comment{Cid: "cmt00012", PostID: post.ID, UserID: author.ID, Content: "hi"}).Error)

	w := doJSON(t, r, http.MethodGet, "/api/admin/analytics/dashboard", nil, token)
	requireStatus(t, w, http.StatusOK)

	body := parseBody(t, w)
	assert.Equal(t, float64(2), body["totalUsers"])
	assert.Equal(t, float64(1), body["totalPosts"])
	assert.Equal(t, float64(1), body["totalComments"])
	assert.Equal(t, float64(1), body["activeUsers"])
	assert.Len(t, body["recentUsers"], 2)
	assert.Len(t, body["recentPosts"], 1)
}
