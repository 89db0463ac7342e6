package authz

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

const (
	RoleAdmin        = "admin"
	RoleCSR          = "csr"
	RoleHousekeeping = "housekeeping"
)

// AuthUser is the employee acting on the current request.
type AuthUser struct {
	ID   int64
	Name string
	Role string
}

type userContextKey struct{}

func ContextWithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext retrieves the AuthUser stored in ctx.
// It returns nil if ctx is nil, if no user is stored, or if the stored value has a different type.
func UserFromContext(ctx context.Context) *AuthUser {
	if ctx == nil {
		return nil
	}

	user, ok := ctx.Value(userContextKey{}).(*AuthUser)
	if !ok {
		return nil
	}

	return user
}

// ActorID returns the acting employee's ID for audit columns, or nil for system work.
func ActorID(ctx context.Context) *int64 {
	user := UserFromContext(ctx)
	if user == nil || user.ID <= 0 {
		return nil
	}
	id := user.ID
	return &id
}

// RequireEmployee succeeds for any authenticated employee.
func RequireEmployee(ctx context.Context) error {
	if UserFromContext(ctx) == nil {
		return ErrUnauthenticated
	}
	return nil
}

// RequireRole succeeds when the employee holds one of roles (case-insensitive).
// Admins pass every role check.
func RequireRole(ctx context.Context, roles ...string) error {
	user := UserFromContext(ctx)
	if user == nil {
		return ErrUnauthenticated
	}
	if strings.EqualFold(user.Role, RoleAdmin) {
		return nil
	}
	for _, role := range roles {
		if strings.EqualFold(user.Role, role) {
			return nil
		}
	}
	return ErrForbidden
}

// IsValidRole reports whether role is one of the known employee roles.
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleCSR, RoleHousekeeping:
		return true
	}
	return false
}
