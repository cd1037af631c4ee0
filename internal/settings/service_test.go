package settings

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.New(t)), config.StorefrontConfig{
		Name:              "Corner Shop",
		Currency:          "EUR",
		DefaultTaxRate:    decimal.RequireFromString("0.2"),
		LowStockThreshold: 3,
	}, nil)
	require.NoError(t, err)
	return svc
}

func TestDefaultsComeFromConfig(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	dto, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Corner Shop", dto.StoreName)
	assert.Equal(t, "EUR", dto.Currency)
	assert.True(t, dto.TaxRate.Equal(decimal.RequireFromString("0.2")))
	assert.Equal(t, 3, dto.LowStockThreshold)
	assert.Equal(t, 3, svc.LowStockThreshold(ctx))
}

func TestUpdateOverridesAndPersists(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	threshold := 8
	rate := decimal.RequireFromString("0.07")
	email := "hello@example.com"
	_, err := svc.Update(ctx, UpdateSettingsInput{LowStockThreshold: &threshold, TaxRate: &rate, ContactEmail: &email})
	require.NoError(t, err)

	name := "Renamed"
	dto, err := svc.Update(ctx, UpdateSettingsInput{StoreName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", dto.StoreName)
	assert.Equal(t, 8, dto.LowStockThreshold)
	require.NotNil(t, dto.ContactEmail)
	assert.Equal(t, email, *dto.ContactEmail)

	assert.Equal(t, 8, svc.LowStockThreshold(ctx))
	got, err := svc.TaxRate(ctx)
	require.NoError(t, err)
	assert.True(t, got.Equal(rate))
}

func TestUpdateRejectsBadTaxRate(t *testing.T) {
	svc := newTestService(t)
	rate := decimal.NewFromInt(2)
	_, err := svc.Update(context.Background(), UpdateSettingsInput{TaxRate: &rate})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
