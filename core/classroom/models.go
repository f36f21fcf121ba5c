package classroom

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kazi/core"
)

type Class struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Code        string    `json:"code" db:"code"`
	TeacherID   int64     `json:"teacher_id" db:"teacher_id"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
}

// TeacherClass is a Class as listed to its teacher.
type TeacherClass struct {
	Class
	StudentCount int `json:"student_count" db:"student_count"`
}

// JoinedClass is a Class as listed to an enrolled student.
type JoinedClass struct {
	Class
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}

type Enrollment struct {
	ID        int64     `json:"id" db:"id"`
	StudentID int64     `json:"student_id" db:"student_id"`
	ClassID   int64     `json:"class_id" db:"class_id"`
	JoinedAt  time.Time `json:"joined_at" db:"joined_at"`
}

type EnrolledStudent struct {
	ID            int64       `json:"id" db:"id"`
	Username      string      `json:"username" db:"username"`
	Email         string      `json:"email" db:"email"`
	StudentNumber null.String `json:"student_id" db:"student_id"`
	JoinedAt      time.Time   `json:"joined_at" db:"joined_at"`
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name        string `json:"name" validate:"required,notblank,max=100"`
	Description string `json:"description" validate:"max=2000"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

// GetFilter selects a single Class. Zero fields are ignored, set fields are AND-ed.
type GetFilter struct {
	ID        int64
	Code      string
	TeacherID int64
}
