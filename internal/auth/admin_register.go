package auth

import (
	"context"

	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// RegisterAdmin creates an administrator. The route exposing it is mounted outside production only.
func (s *service) RegisterAdmin(ctx context.Context, req AdminRegisterRequest) (*users.UserDTO, error) {
	user, err := s.createUser(ctx, users.CreateUserDTO{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      enums.UserRoleAdmin,
	}, req.Password)
	if err != nil {
		return nil, err
	}
	return users.FromModel(user), nil
}
