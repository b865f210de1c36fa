package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type Customer struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null;unique" json:"name" binding:"required"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Address   string    `gorm:"type:text" json:"address"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// upsertCustomerByName creates or refreshes the customer record an order
// references. Orders carry denormalized customer fields; this keeps the
// lookup table current without a separate registration flow.
func upsertCustomerByName(tx *gorm.DB, name string, phone string, address string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	var customer Customer
	err := tx.Where("name = ?", name).First(&customer).Error
	if err == gorm.ErrRecordNotFound {
		customer = Customer{Name: name, Phone: phone, Address: address}
		return tx.Create(&customer).Error
	} else if err != nil {
		return err
	}

	updates := map[string]interface{}{}
	if phone != "" && phone != customer.Phone {
		updates["Phone"] = phone
	}
	if address != "" && address != customer.Address {
		updates["Address"] = address
	}
	if len(updates) == 0 {
		return nil
	}
	return tx.Model(&customer).Updates(updates).Error
}
