package settings

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository reads and writes the single settings row.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a settings repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Find returns gorm.ErrRecordNotFound until settings are saved once.
func (r *Repository) Find(ctx context.Context) (*models.SiteSetting, error) {
	var row models.SiteSetting
	if err := r.db.WithContext(ctx).First(&row, "id = ?", models.SiteSettingID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Save upserts the settings row.
func (r *Repository) Save(ctx context.Context, row *models.SiteSetting) error {
	row.ID = models.SiteSettingID
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(row).Error
}
