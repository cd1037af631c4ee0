package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func TestCreateNormalizesEmailAndDefaults(t *testing.T) {
	repo := NewRepository(dbtest.New(t))
	ctx := context.Background()

	user, err := repo.Create(ctx, CreateUserDTO{
		Email:        "  Ana.Lopez@Example.COM ",
		PasswordHash: "hash",
		FirstName:    "Ana",
		LastName:     "Lopez",
		Role:         enums.UserRole("superuser"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ana.lopez@example.com", user.Email)
	assert.Equal(t, enums.UserRoleCustomer, user.Role)
	assert.True(t, user.IsActive)

	found, err := repo.FindByEmail(ctx, "ANA.LOPEZ@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, "Ana Lopez", FromModel(found).FullName)
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	repo := NewRepository(dbtest.New(t))
	ctx := context.Background()
	dto := CreateUserDTO{Email: "dup@example.com", PasswordHash: "hash", FirstName: "Dup"}

	_, err := repo.Create(ctx, dto)
	require.NoError(t, err)

	dto.Email = "DUP@example.com"
	_, err = repo.Create(ctx, dto)
	assert.True(t, errors.Is(err, ErrEmailTaken), "got %v", err)
}

func TestUpdateLastLogin(t *testing.T) {
	conn := dbtest.New(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	user := dbtest.MustCreateUser(t, conn)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, at))

	reloaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastLoginAt)
	assert.True(t, reloaded.LastLoginAt.Equal(at))

	err = repo.UpdateLastLogin(ctx, uuid.New(), at)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUpdatePasswordHash(t *testing.T) {
	conn := dbtest.New(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	user := dbtest.MustCreateUser(t, conn)

	require.NoError(t, repo.UpdatePasswordHash(ctx, user.ID, "$argon2id$new"))
	reloaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "$argon2id$new", reloaded.PasswordHash)

	assert.ErrorIs(t, repo.UpdatePasswordHash(ctx, uuid.New(), "x"), gorm.ErrRecordNotFound)
}
