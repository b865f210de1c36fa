// seed-admin creates or updates the bootstrap admin user so a fresh
// deployment has someone able to log in and create the rest of the
// staff.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-admin
//
// ADMIN_NAME / ADMIN_PASSWORD override the defaults.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mmdatafocus/orders_backend/config"
	"github.com/mmdatafocus/orders_backend/models"
	"github.com/mmdatafocus/orders_backend/utils"
	"gorm.io/gorm"
)

const (
	defaultAdminName     = "ordersAdmin"
	defaultAdminPassword = "0rder$Admin"
)

func main() {
	adminName := os.Getenv("ADMIN_NAME")
	if adminName == "" {
		adminName = defaultAdminName
	}
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = defaultAdminPassword
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	hashed, err := utils.HashPassword(adminPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}

	var existing models.User
	err = db.Where("name = ?", adminName).First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
			os.Exit(1)
		}
		u := models.User{
			Name:     adminName,
			Password: hashed,
			Role:     models.RoleAdmin,
			IsActive: true,
		}
		if err := db.Create(&u).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created admin user: name=%q\n", adminName)
		return
	}

	err = db.Model(&models.User{}).Where("name = ?", adminName).Updates(map[string]any{
		"password":  hashed,
		"role":      models.RoleAdmin,
		"is_active": true,
	}).Error
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to update admin user: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Updated admin user: name=%q\n", adminName)
}
