package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/user"
)

const userColumns = "id, username, email, role, student_id, teacher_id, password_hash, created_at"

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{repository{exec: exec}}
}

func (repo userRepository) CheckUniqueness(ctx context.Context, usr user.User, exec ...core.DBExecutor) error {
	var taken []user.User
	q := "SELECT " + userColumns + ` FROM users
		WHERE id <> $1 AND (username = $2 OR email = $3 OR student_id = $4 OR teacher_id = $5)`
	err := repo.getExec(exec).SelectContext(ctx, &taken, q,
		usr.ID, usr.Username, usr.Email, usr.StudentNumber, usr.TeacherNumber)
	if err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}

	for _, u := range taken {
		if u.Username == usr.Username {
			return user.ErrUsernameExists
		}
	}
	for _, u := range taken {
		if u.Email == usr.Email {
			return user.ErrEmailExists
		}
	}
	for _, u := range taken {
		if usr.StudentNumber.Valid && u.StudentNumber == usr.StudentNumber {
			return user.ErrStudentNumberExists
		}
		if usr.TeacherNumber.Valid && u.TeacherNumber == usr.TeacherNumber {
			return user.ErrTeacherNumberExists
		}
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	q := `INSERT INTO users (username, email, role, student_id, teacher_id, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := repo.getExec(exec).GetContext(ctx, &usr.ID, q,
		usr.Username, usr.Email, usr.Role, usr.StudentNumber, usr.TeacherNumber, usr.PasswordHash, usr.CreatedAt.UTC())
	switch {
	case isUniqueViolation(err, "users_username_key"):
		return user.User{}, user.ErrUsernameExists
	case isUniqueViolation(err, "users_email_key"):
		return user.User{}, user.ErrEmailExists
	case isUniqueViolation(err, "users_student_id_key"):
		return user.User{}, user.ErrStudentNumberExists
	case isUniqueViolation(err, "users_teacher_id_key"):
		return user.User{}, user.ErrTeacherNumberExists
	case err != nil:
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var w where
	if filter.ID != 0 {
		w.add("id = ?", filter.ID)
	}
	if filter.Username != "" {
		w.add("username = ?", filter.Username)
	}
	if filter.UsernameOrEmail != "" {
		w.add("(username = ? OR email = LOWER(?))", filter.UsernameOrEmail)
	}
	if filter.Role != "" {
		w.add("role = ?", filter.Role)
	}

	var usr user.User
	q := "SELECT " + userColumns + " FROM users" + w.String() + " LIMIT 1"
	if err := repo.getExec(exec).GetContext(ctx, &usr, q, w.args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user")
	}
	return usr, nil
}

func (repo userRepository) UpdatePassword(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	res, err := repo.getExec(exec).ExecContext(ctx, "UPDATE users SET password_hash = $1 WHERE id = $2", usr.PasswordHash, usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating password")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}
