package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/user"
)

type userFinder map[int64]user.User

func (f userFinder) GetByID(_ context.Context, id int64) (user.User, error) {
	if usr, ok := f[id]; ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

var refTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestTokenService(secret string, users userFinder, revoker Revoker) *TokenService {
	conf := &core.Config{SecretKey: secret, AppName: "Kazi"}
	conf.Server.JWTExpirationDelta = 24 * time.Hour
	ts := NewTokenService(conf, users, revoker)
	ts.SetClock(func() time.Time { return refTime })
	return ts
}

func at(ts *TokenService, t time.Time) *TokenService {
	ts.SetClock(func() time.Time { return t })
	return ts
}

func TestTokenService_IssueAndValidate(t *testing.T) {
	alice := user.User{ID: 7, Username: "alice", Role: user.RoleStudent}
	ts := newTestTokenService("secret", userFinder{alice.ID: alice}, nil)

	token, err := ts.Issue(alice)
	require.NoError(t, err)

	again, err := ts.Issue(alice)
	require.NoError(t, err)
	assert.Equal(t, token, again, "tokens should be deterministic for a fixed clock and secret")

	claims, err := ts.Validate(token, false)
	require.NoError(t, err)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, user.RoleStudent, claims.Role)
	assert.Equal(t, refTime.Add(24*time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestTokenService_Validate(t *testing.T) {
	alice := user.User{ID: 7, Username: "alice", Role: user.RoleStudent}
	ts := newTestTokenService("secret", nil, nil)
	valid, err := ts.Issue(alice)
	require.NoError(t, err)

	otherSecret, err := newTestTokenService("other-secret", nil, nil).Issue(alice)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "7", ExpiresAt: jwt.NewNumericDate(refTime.Add(time.Hour))},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "7", ExpiresAt: jwt.NewNumericDate(refTime.Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(refTime.Add(time.Hour))},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "7"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name         string
		token        string
		now          time.Time
		ignoreExpiry bool
		wantErr      error
	}{
		{name: "no token", token: "", now: refTime, wantErr: ErrMissingToken},
		{name: "malformed", token: "not.a.token", now: refTime, wantErr: ErrTokenInvalid},
		{name: "different secret", token: otherSecret, now: refTime, wantErr: ErrTokenInvalid},
		{name: "wrong algorithm", token: hs512, now: refTime, wantErr: ErrTokenInvalid},
		{name: "unsigned", token: unsigned, now: refTime, wantErr: ErrTokenInvalid},
		{name: "no subject", token: noSubject, now: refTime, wantErr: ErrTokenInvalid},
		{name: "no expiry", token: noExpiry, now: refTime, wantErr: ErrTokenInvalid},
		{name: "valid", token: valid, now: refTime},
		{name: "valid at expiry", token: valid, now: refTime.Add(24 * time.Hour)},
		{name: "expired", token: valid, now: refTime.Add(24*time.Hour + time.Second), wantErr: ErrTokenExpired},
		{name: "expired but ignored", token: valid, now: refTime.Add(30 * 24 * time.Hour), ignoreExpiry: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := at(ts, tt.now).Validate(tt.token, tt.ignoreExpiry)
			if err != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTokenService_Refresh(t *testing.T) {
	alice := user.User{ID: 7, Username: "alice", Role: user.RoleStudent}
	bob := user.User{ID: 8, Username: "bob", Role: user.RoleTeacher}
	users := userFinder{alice.ID: alice, bob.ID: bob}
	ts := newTestTokenService("secret", users, nil)

	aliceToken, err := ts.Issue(alice)
	require.NoError(t, err)
	bobToken, err := ts.Issue(bob)
	require.NoError(t, err)
	ghostToken, err := ts.Issue(user.User{ID: 99, Username: "ghost", Role: user.RoleStudent})
	require.NoError(t, err)
	otherSecret, err := newTestTokenService("other-secret", nil, nil).Issue(alice)
	require.NoError(t, err)

	// bob became a student since his token was issued
	users[bob.ID] = user.User{ID: bob.ID, Username: bob.Username, Role: user.RoleStudent}

	later := refTime.Add(72 * time.Hour) // every token above has expired
	at(ts, later)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "no token", wantErr: ErrMissingToken},
		{name: "invalid token", token: otherSecret, wantErr: ErrTokenInvalid},
		{name: "deleted user", token: ghostToken, wantErr: ErrUserNotFound},
		{name: "changed role", token: bobToken, wantErr: ErrUserNotFound},
		{name: "expired token of existing user", token: aliceToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newToken, usr, err := ts.Refresh(context.Background(), tt.token)
			if err != tt.wantErr {
				t.Fatalf("Refresh() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			assert.Equal(t, alice, usr)
			claims, err := ts.Validate(newToken, false)
			require.NoError(t, err)
			oldClaims, err := ts.Validate(tt.token, true)
			require.NoError(t, err)
			assert.True(t, claims.ExpiresAt.After(oldClaims.ExpiresAt.Time), "refreshed expiry should be later")
		})
	}
}

func TestTokenService_Revoke(t *testing.T) {
	alice := user.User{ID: 7, Username: "alice", Role: user.RoleStudent}
	ts := newTestTokenService("secret", userFinder{alice.ID: alice}, NewMemoryRevoker())
	authz := NewAuthorizer(ts)
	ctx := context.Background()

	oldToken, err := ts.Issue(alice)
	require.NoError(t, err)

	at(ts, refTime.Add(time.Minute))
	require.NoError(t, ts.Revoke(ctx, alice.ID))

	at(ts, refTime.Add(2*time.Minute))
	newToken, err := ts.Issue(alice)
	require.NoError(t, err)

	_, err = authz.Authorize(ctx, "Bearer "+oldToken)
	assert.Equal(t, ErrTokenInvalid, err)
	_, _, err = ts.Refresh(ctx, oldToken)
	assert.Equal(t, ErrTokenInvalid, err)

	p, err := authz.Authorize(ctx, "Bearer "+newToken)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, p.ID)
}
