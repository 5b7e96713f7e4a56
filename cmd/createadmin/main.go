package main

import (
	"log"
	"os"

	"blogspace/internal/db"
	"blogspace/internal/models"
	"blogspace/internal/utils"

	"github.com/joho/godotenv"
)

// Bootstraps the first super admin account. Safe to run repeatedly, it
// does nothing once a super admin exists.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	db.Init()

	var count int64
	db.DB.Model(&models.Admin{}).Where("role = ?", models.RoleSuperAdmin).Count(&count)
	if count > 0 {
		log.Println("Super admin already exists, nothing to do")
		return
	}

	username := envOr("SUPER_ADMIN_USERNAME", "superadmin")
	email := envOr("SUPER_ADMIN_EMAIL", "admin@blogspace.com")
	password := envOr("SUPER_ADMIN_PASSWORD", "changeme123")

	hash, err := utils.HashPassword(password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	admin := models.Admin{
		Username: username,
		Email:    email,
		Password: hash,
		Role:     models.RoleSuperAdmin,
		Permissions: models.Permissions{
			CanManageUsers:   true,
			CanManagePosts:   true,
			CanManageAdmins:  true,
			CanViewAnalytics: true,
		},
		IsActive: true,
	}
	if err := db.DB.Create(&admin).Error; err != nil {
		log.Fatalf("Failed to create super admin: %v", err)
	}

	log.Printf("Super admin %q created", username)
	if os.Getenv("SUPER_ADMIN_PASSWORD") == "" {
		log.Println("Default password in use, change it after first login")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
