// Package dbtest opens throwaway sqlite databases migrated with every model.
package dbtest

import (
	"fmt"
	"io"
	"log"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// New returns an isolated in-memory database with all tables created.
func New(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:sf_%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger: gormlogger.New(
			log.New(io.Discard, "", log.LstdFlags),
			gormlogger.Config{LogLevel: gormlogger.Silent},
		),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

// MustCreateUser inserts an active customer.
func MustCreateUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		Email:        fmt.Sprintf("sf_test_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		FirstName:    "Test",
		LastName:     "Customer",
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// MustCreateProduct inserts a product with the given aggregate stock and price.
func MustCreateProduct(t *testing.T, db *gorm.DB, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:     "Test Product " + uuid.NewString()[:8],
		Category: enums.ProductCategoryElectronics,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		IsActive: true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

// VariationSeed describes one variation for MustCreateVariantProduct.
type VariationSeed struct {
	Attributes types.Attributes
	Stock      int
	Price      *decimal.Decimal
}

// MustCreateVariantProduct inserts a product whose aggregate stock is the sum of its variations.
func MustCreateVariantProduct(t *testing.T, db *gorm.DB, price string, seeds ...VariationSeed) *models.Product {
	t.Helper()
	total := 0
	for _, seed := range seeds {
		total += seed.Stock
	}
	product := MustCreateProduct(t, db, price, total)
	for _, seed := range seeds {
		variation := models.ProductVariation{
			ProductID:  product.ID,
			Attributes: seed.Attributes,
			Stock:      seed.Stock,
			Price:      seed.Price,
		}
		if err := db.Create(&variation).Error; err != nil {
			t.Fatalf("create variation: %v", err)
		}
		product.Variations = append(product.Variations, variation)
	}
	return product
}

// Address returns a complete shipping address.
func Address() *types.Address {
	return &types.Address{
		FullName:   "Ada Lovelace",
		Phone:      "+15550100",
		Line1:      "12 Analytical Way",
		City:       "London",
		PostalCode: "N1 9GU",
		Country:    "GB",
	}
}
