package models

import (
	"log"

	"github.com/mmdatafocus/orders_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Product{},
		&Customer{}, &Route{},
		&Order{}, &OrderItem{}, &OrderStatusHistory{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
