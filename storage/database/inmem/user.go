package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/submission"
	"github.com/trezcool/kazi/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(_ context.Context, usr user.User, _ ...core.DBExecutor) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.checkUniqueness(usr)
}

// checkUniqueness reports the username first, then the email, then the role number.
func (repo *userRepository) checkUniqueness(usr user.User) error {
	taken := func(match func(u *user.User) bool) bool {
		for _, u := range repo.db.users {
			if u.ID != usr.ID && match(u) {
				return true
			}
		}
		return false
	}
	switch {
	case taken(func(u *user.User) bool { return u.Username == usr.Username }):
		return user.ErrUsernameExists
	case taken(func(u *user.User) bool { return u.Email == usr.Email }):
		return user.ErrEmailExists
	case usr.StudentNumber.Valid && taken(func(u *user.User) bool { return u.StudentNumber == usr.StudentNumber }):
		return user.ErrStudentNumberExists
	case usr.TeacherNumber.Valid && taken(func(u *user.User) bool { return u.TeacherNumber == usr.TeacherNumber }):
		return user.ErrTeacherNumberExists
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if err := repo.checkUniqueness(usr); err != nil {
		return user.User{}, err
	}
	usr.ID = repo.db.nextID()
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, u := range repo.db.users {
		if filter.ID != 0 && u.ID != filter.ID {
			continue
		}
		if filter.Username != "" && u.Username != filter.Username {
			continue
		}
		if filter.UsernameOrEmail != "" &&
			u.Username != filter.UsernameOrEmail && u.Email != strings.ToLower(filter.UsernameOrEmail) {
			continue
		}
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		return *u, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdatePassword(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	orig.PasswordHash = usr.PasswordHash
	return *orig, nil
}

// DeleteUser removes the user along with everything they own or submitted.
func (repo *userRepository) DeleteUser(_ context.Context, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for clsID, cls := range repo.db.classes {
		if cls.TeacherID == id {
			repo.db.deleteClass(clsID)
		}
	}
	for enrID, enr := range repo.db.enrollments {
		if enr.StudentID == id {
			delete(repo.db.enrollments, enrID)
		}
	}
	repo.db.deleteSubmissionsWhere(func(sub *submission.Submission) bool { return sub.StudentID == id })
	delete(repo.db.users, id)
	return nil
}
