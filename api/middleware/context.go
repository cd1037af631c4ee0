package middleware

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type actorKey struct{}

// Actor is the authenticated caller resolved from the access token.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
	Email  string
}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

// HasRole reports whether the caller holds any of roles.
func (a Actor) HasRole(roles ...enums.UserRole) bool {
	return slices.Contains(roles, a.Role)
}

// WithActor stores the caller on ctx. Auth does this for real requests; handler tests call it directly.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the caller; ok is false for anonymous requests.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || actor.UserID == uuid.Nil || !actor.Role.IsValid() {
		return Actor{}, false
	}
	return actor, true
}
