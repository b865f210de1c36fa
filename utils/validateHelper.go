package utils

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/orders_backend/config"
)

var validate = validator.New()

// ValidateStruct runs `validate` struct tags against the input and
// returns the first violation as a readable error.
func ValidateStruct(input interface{}) error {
	if err := validate.Struct(input); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			e := errs[0]
			return fmt.Errorf("field %s failed validation (%s)", e.Field(), e.Tag())
		}
		return err
	}
	return nil
}

// check name uniqueness within a table, excluding id (id = 0 for create)
func ValidateUnique[T any](ctx context.Context, field string, value string, id int) error {
	db := config.GetDB()
	var model T
	var count int64
	dbCtx := db.WithContext(ctx).Model(&model).Where(field+" = ?", value)
	if id > 0 {
		dbCtx = dbCtx.Where("id != ?", id)
	}
	if err := dbCtx.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%s already exists", field)
	}
	return nil
}
