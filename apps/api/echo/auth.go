package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core/auth"
)

const contextPrincipalKey = "principal"

var errPrincipalNotInCtx = errors.New("principal not found in echo.Context")

// authMiddleware rejects requests without a valid bearer token and stores the caller's auth.Principal.
func authMiddleware(authorizer *auth.Authorizer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			req := ctx.Request()
			p, err := authorizer.Authorize(req.Context(), req.Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return err
			}
			ctx.Set(contextPrincipalKey, p)
			return next(ctx)
		}
	}
}

// roleMiddleware only lets callers holding role through. It must run after authMiddleware.
func roleMiddleware(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := contextPrincipal(ctx)
			if err != nil {
				return err
			}
			if err = auth.RequireRole(p, role); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

func contextPrincipal(ctx echo.Context) (auth.Principal, error) {
	if p, ok := ctx.Get(contextPrincipalKey).(auth.Principal); ok {
		return p, nil
	}
	return auth.Principal{}, errPrincipalNotInCtx
}

