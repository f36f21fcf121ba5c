package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/auth"
	"github.com/trezcool/kazi/core/user"
)

type userApi struct {
	svc        *user.Service
	tokens     *auth.TokenService
	authorizer *auth.Authorizer
	validate   *validator.Validate
}

func registerUserAPI(g *echo.Group, authn echo.MiddlewareFunc, api *userApi) {
	// un-authed endpoints
	g.POST("/register", api.register)
	g.POST("/login", api.login)
	// expired tokens are accepted here
	g.Match([]string{http.MethodPost, http.MethodGet}, "/refresh-token", api.refreshToken)

	// authed endpoints
	g.GET("/me", api.me, authn)
	g.POST("/logout", api.logout, authn)
}

// Handlers

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := bind(ctx, api.validate, &data, "NewUser"); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	token, err := api.tokens.Issue(usr)
	if err != nil {
		return errors.Wrap(err, "issuing token")
	}
	return ctx.JSON(http.StatusCreated, TokenResponse{Token: token, User: &usr})
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := bind(ctx, api.validate, &data, "LoginRequest"); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Username, data.Password, data.Role)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := api.tokens.Issue(usr)
	if err != nil {
		return errors.Wrap(err, "issuing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token, User: &usr})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	req := ctx.Request()
	token, _, err := api.authorizer.Refresh(req.Context(), req.Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *userApi) me(ctx echo.Context) error {
	p, err := contextPrincipal(ctx)
	if err != nil {
		return err
	}
	usr, err := api.svc.GetByID(ctx.Request().Context(), p.ID)
	if err != nil {
		if core.IsNotFound(err) {
			return auth.ErrUserNotFound
		}
		return errors.Wrap(err, "finding user by ID")
	}
	return ctx.JSON(http.StatusOK, usr)
}

// logout revokes every token issued to the caller so far.
func (api *userApi) logout(ctx echo.Context) error {
	p, err := contextPrincipal(ctx)
	if err != nil {
		return err
	}
	if err = api.tokens.Revoke(ctx.Request().Context(), p.ID); err != nil {
		return errors.Wrap(err, "revoking tokens")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
		Role     string `json:"role" validate:"required,role"`
	}

	TokenResponse struct {
		Token string     `json:"token"`
		User  *user.User `json:"user,omitempty"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username)
	lr.Role = core.CleanString(lr.Role, true /* lower */)
	return validate.Struct(lr)
}
