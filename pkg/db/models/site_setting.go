package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SiteSettingID is the primary key of the single settings row.
const SiteSettingID = 1

// SiteSetting holds storefront-wide settings shown on the site and used at checkout.
type SiteSetting struct {
	ID                int               `gorm:"column:id;primaryKey"`
	StoreName         string            `gorm:"column:store_name;not null"`
	ContactEmail      *string           `gorm:"column:contact_email"`
	ContactPhone      *string           `gorm:"column:contact_phone"`
	Address           *string           `gorm:"column:address"`
	Currency          string            `gorm:"column:currency;not null;default:USD"`
	TaxRate           decimal.Decimal   `gorm:"column:tax_rate;type:numeric(6,4);not null"`
	LowStockThreshold *int              `gorm:"column:low_stock_threshold"`
	SocialLinks       map[string]string `gorm:"column:social_links;type:jsonb;serializer:json"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
