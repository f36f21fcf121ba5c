package assignment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kazi/core"
)

type Assignment struct {
	ID          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	TeacherID   int64     `json:"teacher_id" db:"teacher_id"`
	ClassID     int64     `json:"class_id" db:"class_id"`
	Deadline    time.Time `json:"deadline" db:"deadline"`     // UTC
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
}

// StudentAssignment is an Assignment as listed to a student of its class.
type StudentAssignment struct {
	Assignment
	Submitted bool `json:"submitted" db:"submitted"`
}

// NewAssignment contains information needed to publish an Assignment to a class.
type NewAssignment struct {
	Title       string    `json:"title" validate:"required,notblank,max=200"`
	Description string    `json:"description" validate:"max=10000"`
	ClassID     int64     `json:"class_id" validate:"required,gt=0"`
	Deadline    time.Time `json:"deadline" validate:"required"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	return validate.Struct(na)
}

// GetFilter selects a single Assignment. Zero fields are ignored, set fields are AND-ed.
type GetFilter struct {
	ID        int64
	TeacherID int64
	// StudentID restricts the lookup to the classes the student joined.
	StudentID int64
}
