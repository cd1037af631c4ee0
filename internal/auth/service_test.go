package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/users"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

type stubUserRepository struct {
	data      map[string]*models.User
	createErr error
	lastLogin map[uuid.UUID]time.Time
}

func newStubUserRepository() *stubUserRepository {
	return &stubUserRepository{data: map[string]*models.User{}, lastLogin: map[uuid.UUID]time.Time{}}
}

func (s *stubUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.data[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepository) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	user := dto.ToModel()
	user.ID = uuid.New()
	s.data[dto.Email] = user
	return user, nil
}

func (s *stubUserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.lastLogin[id] = at
	return nil
}

func (s *stubUserRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	for _, user := range s.data {
		if user.ID == id {
			user.PasswordHash = hash
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 30}

func testHasher() *security.Hasher {
	return security.NewHasher(config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32})
}

func buildTestService(t *testing.T, repo *stubUserRepository) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{UserRepo: repo, Hasher: testHasher(), JWTConfig: testJWT})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func TestRegisterCreatesCustomerAndSignsIn(t *testing.T) {
	repo := newStubUserRepository()
	svc := buildTestService(t, repo)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: " Ada ",
		LastName:  "Lovelace",
		Email:     " Ada@Example.com ",
		Password:  "correct horse",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.User.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", resp.User.Email)
	}
	if resp.User.Role != enums.UserRoleCustomer {
		t.Fatalf("expected customer role, got %s", resp.User.Role)
	}
	stored := repo.data["ada@example.com"]
	if stored == nil || stored.PasswordHash == "correct horse" || stored.PasswordHash == "" {
		t.Fatalf("expected hashed password to be stored")
	}

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != stored.ID || claims.Role != enums.UserRoleCustomer {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if _, ok := repo.lastLogin[stored.ID]; !ok {
		t.Fatal("expected last login to be recorded")
	}
}

func TestRegisterRejectsDuplicateAndWeakInput(t *testing.T) {
	repo := newStubUserRepository()
	svc := buildTestService(t, repo)
	if _, err := svc.Register(context.Background(), RegisterRequest{FirstName: "Ada", Email: "ada@example.com", Password: "long enough"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := svc.Register(context.Background(), RegisterRequest{FirstName: "Ada", Email: "ADA@example.com", Password: "long enough"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	_, err = svc.Register(context.Background(), RegisterRequest{FirstName: "Bob", Email: "bob@example.com", Password: "short"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, err = svc.Register(context.Background(), RegisterRequest{FirstName: "  ", Email: "bob@example.com", Password: "long enough"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	repo.createErr = errors.New(`duplicate key value violates unique constraint "users_email_key"`)
	_, err = svc.Register(context.Background(), RegisterRequest{FirstName: "Cy", Email: "cy@example.com", Password: "long enough"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict on unique violation, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	repo := newStubUserRepository()
	svc := buildTestService(t, repo)
	if _, err := svc.RegisterAdmin(context.Background(), AdminRegisterRequest{FirstName: "Root", Email: "root@example.com", Password: "admin-secret"}); err != nil {
		t.Fatalf("register admin: %v", err)
	}

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "ROOT@example.com", Password: "admin-secret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.UserRoleAdmin {
		t.Fatalf("expected admin role claim, got %s", claims.Role)
	}

	cases := map[string]LoginRequest{
		"wrong password": {Email: "root@example.com", Password: "nope"},
		"unknown email":  {Email: "ghost@example.com", Password: "admin-secret"},
		"blank email":    {Email: " ", Password: "admin-secret"},
	}
	for name, req := range cases {
		if _, err := svc.Login(context.Background(), req); !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
			t.Fatalf("%s: expected unauthorized, got %v", name, err)
		}
	}

	repo.data["root@example.com"].IsActive = false
	if _, err := svc.Login(context.Background(), LoginRequest{Email: "root@example.com", Password: "admin-secret"}); !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected inactive user to be refused, got %v", err)
	}
}

func TestLoginUpgradesOutdatedHash(t *testing.T) {
	repo := newStubUserRepository()
	weak := security.NewHasher(config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 8, ArgonKeyLen: 16})
	old, err := weak.Hash("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo.data["ada@example.com"] = &models.User{ID: uuid.New(), Email: "ada@example.com", PasswordHash: old, IsActive: true, Role: enums.UserRoleCustomer}

	svc := buildTestService(t, repo)
	if _, err := svc.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "correct horse"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	upgraded := repo.data["ada@example.com"].PasswordHash
	if upgraded == old || testHasher().NeedsRehash(upgraded) {
		t.Fatalf("expected hash rewritten with current costs, got %s", upgraded)
	}
	if _, err := svc.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "correct horse"}); err != nil {
		t.Fatalf("login with upgraded hash: %v", err)
	}
}
