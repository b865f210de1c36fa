package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/orders_backend/config"
	"github.com/mmdatafocus/orders_backend/utils"
)

const (
	DefaultBrandName         = "Generic"
	DefaultDimension         = "Standard"
	DefaultLowStockThreshold = 10
)

type Product struct {
	ID                int       `gorm:"primary_key" json:"id"`
	Name              string    `gorm:"index:idx_products_name_brand,unique;size:100;not null" json:"name" binding:"required"`
	BrandName         string    `gorm:"index:idx_products_name_brand,unique;size:100;not null;default:'Generic'" json:"brand_name"`
	Dimension         string    `gorm:"size:100;not null;default:'Standard'" json:"dimension"`
	StockQuantity     int       `gorm:"not null;default:0" json:"stock_quantity"`
	LowStockThreshold int       `gorm:"not null;default:10" json:"low_stock_threshold"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Name              string `json:"name" binding:"required" validate:"required"`
	BrandName         string `json:"brand_name"`
	Dimension         string `json:"dimension"`
	StockQuantity     int    `json:"stock_quantity" validate:"gte=0"`
	LowStockThreshold int    `json:"low_stock_threshold" validate:"gte=0"`
}

// RequiredItem is one (product, qty) pair checked by ValidateAvailabilityTx.
type RequiredItem struct {
	ProductId int
	Name      string
	Qty       int
}

func (input *NewProduct) applyDefaults() {
	if input.BrandName == "" {
		input.BrandName = DefaultBrandName
	}
	if input.Dimension == "" {
		input.Dimension = DefaultDimension
	}
	if input.LowStockThreshold == 0 {
		input.LowStockThreshold = DefaultLowStockThreshold
	}
}

func (input *NewProduct) validate(ctx context.Context, id int) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.StockQuantity < 0 {
		return errors.New("stock quantity cannot be negative")
	}
	if input.LowStockThreshold < 0 {
		return errors.New("low stock threshold cannot be negative")
	}
	return nil
}

// clampStock applies the floor-at-zero stock invariant.
func clampStock(current int, delta int) int {
	next := current + delta
	if next < 0 {
		return 0
	}
	return next
}

// EvaluateStockLevel classifies quantity against the product threshold.
func EvaluateStockLevel(product *Product) StockLevel {
	if product.StockQuantity == 0 {
		return StockLevelOut
	}
	if product.StockQuantity <= product.LowStockThreshold {
		return StockLevelLow
	}
	return StockLevelOk
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}
	input.applyDefaults()

	product := Product{
		Name:              input.Name,
		BrandName:         input.BrandName,
		Dimension:         input.Dimension,
		StockQuantity:     input.StockQuantity,
		LowStockThreshold: input.LowStockThreshold,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}

	broadcastEntity(ctx, EventProductCreated, &product)
	return &product, nil
}

func UpdateProduct(ctx context.Context, id int, input *NewProduct) (*Product, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}
	input.applyDefaults()

	product, err := utils.FetchModel[Product](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(product).Updates(map[string]interface{}{
		"Name":              input.Name,
		"BrandName":         input.BrandName,
		"Dimension":         input.Dimension,
		"LowStockThreshold": input.LowStockThreshold,
	}).Error; err != nil {
		return nil, err
	}

	if err := utils.RemoveRedis[Product](id); err != nil {
		return nil, err
	}

	broadcastEntity(ctx, EventProductUpdated, product)
	return product, nil
}

func DeleteProduct(ctx context.Context, id int) (*Product, error) {
	product, err := utils.FetchModel[Product](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(product).Error; err != nil {
		return nil, err
	}
	if err := utils.RemoveRedis[Product](id); err != nil {
		return nil, err
	}

	broadcastEntity(ctx, EventProductDeleted, product)
	return product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	// redis first, then db, cache on miss
	result, err := utils.RetrieveRedis[Product](id)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result, err = utils.FetchModel[Product](ctx, id)
		if err != nil {
			return nil, err
		}
		if err := utils.StoreRedis[Product](result, id); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func GetProducts(ctx context.Context, name *string) ([]*Product, error) {
	db := config.GetDB()
	var results []*Product

	dbCtx := db.WithContext(ctx)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// AdjustProductStock is the single mutation path for available
// quantity: read, clamp at zero, persist. A per-product redis lock
// serializes concurrent read-modify-write cycles on the same counter.
// Returns the updated product and its resulting stock level.
func AdjustProductStock(ctx context.Context, productId int, delta int) (*Product, StockLevel, error) {
	release, err := utils.ProductStockLock(ctx, productId, "product.go", "AdjustProductStock")
	if err != nil {
		return nil, "", err
	}
	defer release()

	db := config.GetDB()

	var product Product
	if err := db.WithContext(ctx).First(&product, productId).Error; err != nil {
		return nil, "", utils.ErrorRecordNotFound
	}

	product.StockQuantity = clampStock(product.StockQuantity, delta)

	if err := db.WithContext(ctx).Model(&product).
		UpdateColumn("StockQuantity", product.StockQuantity).Error; err != nil {
		return nil, "", err
	}

	if err := utils.RemoveRedis[Product](productId); err != nil {
		return nil, "", err
	}

	broadcastEntity(ctx, EventProductUpdated, &product)
	return &product, EvaluateStockLevel(&product), nil
}
