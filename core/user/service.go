package user

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kazi/core"
)

var (
	// errors
	ErrNotFound            = fmt.Errorf("user %w", core.ErrNotFound)
	ErrInvalidCredentials  = errors.New("invalid username, password or role")
	ErrUsernameExists      = errors.New("a user with this username already exists")
	ErrEmailExists         = errors.New("a user with this email already exists")
	ErrStudentNumberExists = errors.New("this student_id is already in use")
	ErrTeacherNumberExists = errors.New("this teacher_id is already in use")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		// CheckUniqueness returns one of the Err*Exists errors when the username, email or
		// role number of usr is already taken by another User.
		CheckUniqueness(ctx context.Context, usr User, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		// UpdatePassword only saves the User's password hash.
		UpdatePassword(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// uniquenessError turns the Err*Exists errors into a field ValidationError.
// ok is false for any other error.
func uniquenessError(err error) (vErr error, ok bool) {
	var field string
	switch err {
	case ErrUsernameExists:
		field = "username"
	case ErrEmailExists:
		field = "email"
	case ErrStudentNumberExists:
		field = "student_id"
	case ErrTeacherNumberExists:
		field = "teacher_id"
	default:
		return err, false
	}
	return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()}), true
}

func (svc *Service) checkUniqueness(ctx context.Context, usr User) error {
	if err := svc.repo.CheckUniqueness(ctx, usr); err != nil {
		if vErr, ok := uniquenessError(err); ok {
			return vErr
		}
		return errors.Wrap(err, "checking user uniqueness")
	}
	return nil
}

// Register creates a new User from validated registration data.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	usr := User{
		Username:      nu.Username,
		Email:         nu.Email,
		Role:          nu.Role,
		StudentNumber: null.NewString(nu.StudentNumber, nu.StudentNumber != ""),
		TeacherNumber: null.NewString(nu.TeacherNumber, nu.TeacherNumber != ""),
		CreatedAt:     nowFunc().UTC(),
	}
	if err := svc.checkUniqueness(ctx, usr); err != nil {
		return User{}, err
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		// a concurrent registration may take the username or email after the check
		if vErr, ok := uniquenessError(err); ok {
			return User{}, vErr
		}
		return User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

// Authenticate finds the User registered with username under role and checks their password.
func (svc *Service) Authenticate(ctx context.Context, username, pwd, role string) (User, error) {
	usr, err := svc.repo.GetUser(ctx, GetFilter{Username: core.CleanString(username), Role: role})
	if err != nil {
		if err == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by username and role")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id int64) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) Get(ctx context.Context, filter GetFilter) (User, error) {
	return svc.repo.GetUser(ctx, filter)
}

// ResetPassword sets a new password on the User identified by username or email.
func (svc *Service) ResetPassword(ctx context.Context, usernameOrEmail, pwd string) (User, error) {
	usr, err := svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(usernameOrEmail)})
	if err != nil {
		return User{}, err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.UpdatePassword(ctx, usr)
}
