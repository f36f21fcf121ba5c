package user_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/testutil"
	"github.com/trezcool/kazi/core/user"
	"github.com/trezcool/kazi/storage/database/inmem"
)

func setup(t *testing.T) (*user.Service, user.Repository) {
	t.Helper()
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	return user.NewService(repo), repo
}

func TestService_Register(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	testutil.CreateUser(t, repo, "alice", user.RoleStudent) // student number N-alice
	testutil.CreateUser(t, repo, "teacher", user.RoleTeacher)

	tests := []struct {
		name      string
		nu        user.NewUser
		wantErr   error
		wantField string
	}{
		{
			name:      "username taken",
			nu:        user.NewUser{Username: "alice", Email: "alice@kazi.test", Role: user.RoleStudent, StudentNumber: "N-alice"},
			wantErr:   user.ErrUsernameExists,
			wantField: "username",
		},
		{
			name:      "email taken",
			nu:        user.NewUser{Username: "alice2", Email: "alice@kazi.test", Role: user.RoleStudent, StudentNumber: "N-alice"},
			wantErr:   user.ErrEmailExists,
			wantField: "email",
		},
		{
			name:      "student number taken",
			nu:        user.NewUser{Username: "alice2", Email: "alice2@kazi.test", Role: user.RoleStudent, StudentNumber: "N-alice"},
			wantErr:   user.ErrStudentNumberExists,
			wantField: "student_id",
		},
		{
			name:      "teacher number taken",
			nu:        user.NewUser{Username: "teacher2", Email: "teacher2@kazi.test", Role: user.RoleTeacher, TeacherNumber: "N-teacher"},
			wantErr:   user.ErrTeacherNumberExists,
			wantField: "teacher_id",
		},
		{
			name: "student",
			nu:   user.NewUser{Username: "bob", Email: "bob@kazi.test", Role: user.RoleStudent, StudentNumber: "S-002"},
		},
		{
			name: "teacher with a student's number",
			nu:   user.NewUser{Username: "carol", Email: "carol@kazi.test", Role: user.RoleTeacher, TeacherNumber: "N-alice"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.nu.Password = testutil.Password
			usr, err := svc.Register(ctx, tt.nu)
			if tt.wantErr != nil {
				var vErr *core.ValidationError
				require.True(t, errors.As(err, &vErr), "Register() error = %v", err)
				assert.Equal(t, tt.wantErr, vErr.Err)
				assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, usr.ID)
			assert.NoError(t, usr.CheckPassword(testutil.Password))
			assert.Equal(t, usr.Role == user.RoleStudent, usr.StudentNumber.Valid)
			assert.Equal(t, usr.Role == user.RoleTeacher, usr.TeacherNumber.Valid)
		})
	}
}

// lateRepo lets every uniqueness check pass, as if a concurrent registration had not committed yet.
type lateRepo struct {
	user.Repository
}

func (lateRepo) CheckUniqueness(context.Context, user.User, ...core.DBExecutor) error { return nil }

func TestService_Register_concurrentDuplicate(t *testing.T) {
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	svc := user.NewService(lateRepo{repo})
	testutil.CreateUser(t, repo, "alice", user.RoleStudent)

	_, err := svc.Register(context.Background(), user.NewUser{
		Username:      "alice",
		Email:         "alice2@kazi.test",
		Password:      testutil.Password,
		Role:          user.RoleStudent,
		StudentNumber: "S-002",
	})
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "Register() error = %v", err)
	assert.Equal(t, user.ErrUsernameExists, vErr.Err)
	assert.Equal(t, "username", vErr.Fields[0].Field)
}

func TestService_Authenticate(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, repo, "alice", user.RoleStudent)

	tests := []struct {
		name    string
		uname   string
		pwd     string
		role    string
		wantErr error
	}{
		{name: "unknown user", uname: "bob", pwd: testutil.Password, role: user.RoleStudent, wantErr: user.ErrInvalidCredentials},
		{name: "wrong password", uname: "alice", pwd: "nope", role: user.RoleStudent, wantErr: user.ErrInvalidCredentials},
		{name: "wrong role", uname: "alice", pwd: testutil.Password, role: user.RoleTeacher, wantErr: user.ErrInvalidCredentials},
		{name: "valid", uname: " alice ", pwd: testutil.Password, role: user.RoleStudent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := svc.Authenticate(ctx, tt.uname, tt.pwd, tt.role)
			if err != tt.wantErr {
				t.Fatalf("Authenticate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr == nil {
				assert.Equal(t, alice.ID, usr.ID)
			}
		})
	}
}

func TestService_ResetPassword(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, repo, "alice", user.RoleStudent)

	_, err := svc.ResetPassword(ctx, "nobody", "n3w-pwd")
	assert.Equal(t, user.ErrNotFound, err)

	for _, ident := range []string{"alice", " ALICE@kazi.test "} {
		_, err = svc.ResetPassword(ctx, ident, "n3w-pwd-"+ident)
		require.NoError(t, err, ident)
		usr, err := svc.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.NoError(t, usr.CheckPassword("n3w-pwd-"+ident), ident)
	}
}
