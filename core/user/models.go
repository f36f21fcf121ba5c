package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/kazi/core"
)

// Roles
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

var AllRoles = []string{RoleStudent, RoleTeacher}

func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

type User struct {
	ID            int64       `json:"id" db:"id"`
	Username      string      `json:"username" db:"username"`
	Email         string      `json:"email" db:"email"`
	Role          string      `json:"role" db:"role"`
	StudentNumber null.String `json:"student_id" db:"student_id"`
	TeacherNumber null.String `json:"teacher_id" db:"teacher_id"`
	PasswordHash  []byte      `json:"-" db:"password_hash"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsTeacher() bool {
	return u.Role == RoleTeacher
}

func (u *User) IsStudent() bool {
	return u.Role == RoleStudent
}

// NewUser contains information needed to register a new User.
// Students must provide their student number and teachers their teacher number.
type NewUser struct {
	Username      string `json:"username" validate:"required,min=3,max=50,alphanum_"`
	Email         string `json:"email" validate:"required,email,max=100"`
	Password      string `json:"password" validate:"required"`
	Role          string `json:"role" validate:"required,role"`
	StudentNumber string `json:"student_id" validate:"required_if=Role student,max=20"`
	TeacherNumber string `json:"teacher_id" validate:"required_if=Role teacher,max=20"`
}

func (nu *NewUser) Clean() {
	nu.Username = core.CleanString(nu.Username)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	nu.StudentNumber = core.CleanString(nu.StudentNumber)
	nu.TeacherNumber = core.CleanString(nu.TeacherNumber)

	// only keep the number matching the role
	switch nu.Role {
	case RoleStudent:
		nu.TeacherNumber = ""
	case RoleTeacher:
		nu.StudentNumber = ""
	}
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Clean()
	return validate.Struct(nu)
}

// GetFilter selects a single User. Zero fields are ignored, set fields are AND-ed.
type GetFilter struct {
	ID              int64
	Username        string
	UsernameOrEmail string
	Role            string
}
