package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type Route struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null;unique" json:"name" binding:"required"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// upsertRouteByName registers a delivery route the first time an order
// references it.
func upsertRouteByName(tx *gorm.DB, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	var route Route
	err := tx.Where("name = ?", name).First(&route).Error
	if err == gorm.ErrRecordNotFound {
		route = Route{Name: name}
		return tx.Create(&route).Error
	}
	return err
}
