package auth

import (
	"context"
	"strings"

	"github.com/trezcool/kazi/core/user"
)

const bearerScheme = "bearer"

// Principal is the authenticated caller of a request.
type Principal struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (p Principal) IsTeacher() bool { return p.Role == user.RoleTeacher }

func (p Principal) IsStudent() bool { return p.Role == user.RoleStudent }

// Authorizer resolves the Authorization header of a request into a Principal.
// It knows nothing about the transport; see the API middleware.
type Authorizer struct {
	tokens *TokenService
}

func NewAuthorizer(tokens *TokenService) *Authorizer {
	return &Authorizer{tokens: tokens}
}

// Authorize expects a "Bearer <token>" header and fails with one of
// ErrMissingToken, ErrTokenExpired, ErrTokenInvalid or ErrUserNotFound.
func (a *Authorizer) Authorize(ctx context.Context, header string) (Principal, error) {
	token, err := tokenFromHeader(header)
	if err != nil {
		return Principal{}, err
	}
	claims, err := a.tokens.Validate(token, false)
	if err != nil {
		return Principal{}, err
	}
	if err = a.tokens.checkRevoked(ctx, claims); err != nil {
		return Principal{}, err
	}
	usr, err := a.tokens.resolve(ctx, claims)
	if err != nil {
		return Principal{}, err
	}
	return Principal{ID: usr.ID, Username: usr.Username, Role: usr.Role}, nil
}

// RequireRole returns ErrForbidden when p does not hold role.
func RequireRole(p Principal, role string) error {
	if p.Role != role {
		return ErrForbidden
	}
	return nil
}

func tokenFromHeader(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || strings.ToLower(parts[0]) != bearerScheme {
		return "", ErrTokenInvalid
	}
	return parts[1], nil
}

// Refresh exchanges the token of a "Bearer <token>" header, expired or not, for a fresh one.
func (a *Authorizer) Refresh(ctx context.Context, header string) (string, user.User, error) {
	token, err := tokenFromHeader(header)
	if err != nil {
		return "", user.User{}, err
	}
	return a.tokens.Refresh(ctx, token)
}
