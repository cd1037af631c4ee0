package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// DefaultLowStockThreshold applies when neither settings nor configuration provide one.
const DefaultLowStockThreshold = 5

// SettingsDTO is the public shape of the site settings.
type SettingsDTO struct {
	StoreName         string            `json:"store_name"`
	ContactEmail      *string           `json:"contact_email,omitempty"`
	ContactPhone      *string           `json:"contact_phone,omitempty"`
	Address           *string           `json:"address,omitempty"`
	Currency          string            `json:"currency"`
	TaxRate           decimal.Decimal   `json:"tax_rate"`
	LowStockThreshold int               `json:"low_stock_threshold"`
	SocialLinks       map[string]string `json:"social_links"`
}

// UpdateSettingsInput replaces the provided fields.
type UpdateSettingsInput struct {
	StoreName         *string            `json:"store_name" validate:"omitempty,min=1,max=120"`
	ContactEmail      *string            `json:"contact_email" validate:"omitempty,email"`
	ContactPhone      *string            `json:"contact_phone" validate:"omitempty,max=40"`
	Address           *string            `json:"address" validate:"omitempty,max=500"`
	Currency          *string            `json:"currency" validate:"omitempty,len=3"`
	TaxRate           *decimal.Decimal   `json:"tax_rate"`
	LowStockThreshold *int               `json:"low_stock_threshold" validate:"omitempty,gte=0"`
	SocialLinks       *map[string]string `json:"social_links"`
}

// Service exposes the site settings; it also feeds the stock ledger and local sales.
type Service struct {
	repo *Repository
	cfg  config.StorefrontConfig
	logg *logger.Logger
}

// NewService builds the settings service. Config values are the defaults before an admin saves settings.
func NewService(repo *Repository, cfg config.StorefrontConfig, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{repo: repo, cfg: cfg, logg: logg}, nil
}

// Get returns the stored settings, or the configured defaults when none are stored.
func (s *Service) Get(ctx context.Context) (*SettingsDTO, error) {
	row, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.toDTO(row), nil
}

// Update merges the input into the stored settings.
func (s *Service) Update(ctx context.Context, input UpdateSettingsInput) (*SettingsDTO, error) {
	row, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if input.StoreName != nil {
		name := strings.TrimSpace(*input.StoreName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "store_name cannot be empty")
		}
		row.StoreName = name
	}
	if input.ContactEmail != nil {
		row.ContactEmail = optional(*input.ContactEmail)
	}
	if input.ContactPhone != nil {
		row.ContactPhone = optional(*input.ContactPhone)
	}
	if input.Address != nil {
		row.Address = optional(*input.Address)
	}
	if input.Currency != nil {
		row.Currency = strings.ToUpper(strings.TrimSpace(*input.Currency))
	}
	if input.TaxRate != nil {
		if input.TaxRate.IsNegative() || input.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "tax_rate must be a fraction between 0 and 1")
		}
		row.TaxRate = *input.TaxRate
	}
	if input.LowStockThreshold != nil {
		if *input.LowStockThreshold < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "low_stock_threshold must be non-negative")
		}
		threshold := *input.LowStockThreshold
		row.LowStockThreshold = &threshold
	}
	if input.SocialLinks != nil {
		row.SocialLinks = *input.SocialLinks
	}
	if err := s.repo.Save(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save settings")
	}
	return s.toDTO(row), nil
}

// LowStockThreshold resolves the threshold used by the stock ledger. Lookup failures fall back to the configured value.
func (s *Service) LowStockThreshold(ctx context.Context) int {
	row, err := s.repo.Find(ctx)
	if err == nil && row.LowStockThreshold != nil {
		return *row.LowStockThreshold
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logg.Error(ctx, "load low stock threshold", err)
	}
	return s.defaultThreshold()
}

// TaxRate is the stored tax rate, or the configured default.
func (s *Service) TaxRate(ctx context.Context) (decimal.Decimal, error) {
	row, err := s.load(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return row.TaxRate, nil
}

func (s *Service) load(ctx context.Context) (*models.SiteSetting, error) {
	row, err := s.repo.Find(ctx)
	if err == nil {
		return row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settings")
	}
	return &models.SiteSetting{
		ID:          models.SiteSettingID,
		StoreName:   s.cfg.Name,
		Currency:    s.cfg.Currency,
		TaxRate:     s.cfg.DefaultTaxRate,
		SocialLinks: map[string]string{},
	}, nil
}

func (s *Service) toDTO(row *models.SiteSetting) *SettingsDTO {
	dto := &SettingsDTO{
		StoreName:         row.StoreName,
		ContactEmail:      row.ContactEmail,
		ContactPhone:      row.ContactPhone,
		Address:           row.Address,
		Currency:          row.Currency,
		TaxRate:           row.TaxRate,
		LowStockThreshold: s.defaultThreshold(),
		SocialLinks:       row.SocialLinks,
	}
	if row.LowStockThreshold != nil {
		dto.LowStockThreshold = *row.LowStockThreshold
	}
	if dto.SocialLinks == nil {
		dto.SocialLinks = map[string]string{}
	}
	return dto
}

func (s *Service) defaultThreshold() int {
	if s.cfg.LowStockThreshold > 0 {
		return s.cfg.LowStockThreshold
	}
	return DefaultLowStockThreshold
}

func optional(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}
