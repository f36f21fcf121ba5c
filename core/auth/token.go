package auth

import (
	"context"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/user"
)

var (
	// errors
	ErrMissingToken = errors.New("token is missing")
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
	ErrUserNotFound = errors.New("user not found")
	ErrForbidden    = errors.New("permission denied")

	signingMethod = jwt.SigningMethodHS256
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (c Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// UserFinder resolves token subjects. *user.Service satisfies it.
type UserFinder interface {
	GetByID(ctx context.Context, id int64) (user.User, error)
}

// TokenService issues and validates the HS256 access tokens.
type TokenService struct {
	secret  []byte
	issuer  string
	ttl     time.Duration
	users   UserFinder
	revoker Revoker
	now     func() time.Time
}

func NewTokenService(conf *core.Config, users UserFinder, revoker Revoker) *TokenService {
	return &TokenService{
		secret:  []byte(conf.SecretKey),
		issuer:  conf.AppName,
		ttl:     conf.Server.JWTExpirationDelta,
		users:   users,
		revoker: revoker,
		now:     time.Now,
	}
}

// SetClock replaces the clock used to stamp and check tokens.
func (ts *TokenService) SetClock(now func() time.Time) {
	ts.now = now
}

// Issue signs a token for usr, valid for the configured TTL.
// The output only depends on the clock, the secret and usr.
func (ts *TokenService) Issue(usr user.User) (string, error) {
	now := ts.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   strconv.FormatInt(usr.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
		Username: usr.Username,
		Role:     usr.Role,
	}
	token, err := jwt.NewWithClaims(signingMethod, claims).SignedString(ts.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return token, nil
}

// Validate checks the token's signature and algorithm, then its expiry unless ignoreExpiry is set.
func (ts *TokenService) Validate(token string, ignoreExpiry bool) (*Claims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	// expiry is checked below against our own clock
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	claims := new(Claims)
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return ts.secret, nil
	}); err != nil {
		return nil, ErrTokenInvalid
	}
	if _, err := claims.UserID(); err != nil || claims.ExpiresAt == nil {
		return nil, ErrTokenInvalid
	}
	if !ignoreExpiry && ts.now().After(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

// checkRevoked fails when the token was issued before the user's last logout.
func (ts *TokenService) checkRevoked(ctx context.Context, claims *Claims) error {
	if ts.revoker == nil {
		return nil
	}
	uid, _ := claims.UserID()
	before, err := ts.revoker.RevokedBefore(ctx, uid)
	if err != nil {
		return errors.Wrap(err, "checking token revocation")
	}
	if before.IsZero() || claims.IssuedAt == nil {
		return nil
	}
	if claims.IssuedAt.Time.Before(before.Truncate(time.Second)) {
		return ErrTokenInvalid
	}
	return nil
}

// resolve finds the token's user, who must still exist with the same username and role.
func (ts *TokenService) resolve(ctx context.Context, claims *Claims) (user.User, error) {
	uid, err := claims.UserID()
	if err != nil {
		return user.User{}, ErrTokenInvalid
	}
	usr, err := ts.users.GetByID(ctx, uid)
	if err != nil {
		if core.IsNotFound(err) {
			return user.User{}, ErrUserNotFound
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	if usr.Username != claims.Username || usr.Role != claims.Role {
		return user.User{}, ErrUserNotFound
	}
	return usr, nil
}

// Refresh issues a new token from a valid one, expired or not, as long as its user still exists.
func (ts *TokenService) Refresh(ctx context.Context, token string) (string, user.User, error) {
	claims, err := ts.Validate(token, true /* ignoreExpiry */)
	if err != nil {
		return "", user.User{}, err
	}
	if err = ts.checkRevoked(ctx, claims); err != nil {
		return "", user.User{}, err
	}
	usr, err := ts.resolve(ctx, claims)
	if err != nil {
		return "", user.User{}, err
	}
	newToken, err := ts.Issue(usr)
	if err != nil {
		return "", user.User{}, err
	}
	return newToken, usr, nil
}

// Revoke invalidates every token issued to the user so far.
func (ts *TokenService) Revoke(ctx context.Context, userID int64) error {
	if ts.revoker == nil {
		return nil
	}
	return ts.revoker.Revoke(ctx, userID, ts.now())
}
