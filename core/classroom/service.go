package classroom

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
)

const maxCodeAttempts = 10

var (
	// errors
	ErrNotFound           = fmt.Errorf("class %w", core.ErrNotFound)
	ErrStudentNotEnrolled = fmt.Errorf("student %w in this class", core.ErrNotFound)
	ErrAlreadyEnrolled    = errors.New("you have already joined this class")
	ErrCodeExists         = errors.New("class code already exists")
	ErrCodeGeneration     = errors.New("could not generate a unique class code")

	nowFunc      = time.Now     // mockable
	generateCode = GenerateCode // mockable
)

type (
	Repository interface {
		CodeExists(ctx context.Context, code string, exec ...core.DBExecutor) (bool, error)
		// CreateClass returns ErrCodeExists when the code is taken.
		CreateClass(ctx context.Context, cls Class, exec ...core.DBExecutor) (Class, error)
		GetClass(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Class, error)
		// QueryTeacherClasses returns the teacher's classes, newest first.
		QueryTeacherClasses(ctx context.Context, teacherID int64, exec ...core.DBExecutor) ([]TeacherClass, error)
		// QueryStudentClasses returns the classes joined by the student, latest join first.
		QueryStudentClasses(ctx context.Context, studentID int64, exec ...core.DBExecutor) ([]JoinedClass, error)
		// QueryClassStudents returns the class' students, latest join first.
		QueryClassStudents(ctx context.Context, classID int64, exec ...core.DBExecutor) ([]EnrolledStudent, error)
		CountStudents(ctx context.Context, classID int64, exec ...core.DBExecutor) (int, error)
		IsEnrolled(ctx context.Context, classID, studentID int64, exec ...core.DBExecutor) (bool, error)
		// CreateEnrollment returns ErrAlreadyEnrolled when the pair already exists.
		CreateEnrollment(ctx context.Context, enr Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		// DeleteEnrollment also deletes the student's submissions to the class' assignments.
		DeleteEnrollment(ctx context.Context, classID, studentID int64, exec ...core.DBExecutor) error
		// DeleteClass cascades to the class' enrollments, assignments and their submissions.
		DeleteClass(ctx context.Context, id int64, exec ...core.DBExecutor) error
	}

	Service struct {
		db   core.DB
		repo Repository
	}
)

// NewService returns a Service. db may be nil when repo does not need transactions (in-memory).
func NewService(db core.DB, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

// Create creates a Class owned by teacherID with a fresh join code.
// Codes are re-rolled on collision.
func (svc *Service) Create(ctx context.Context, teacherID int64, nc NewClass) (Class, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateCode()
		if err != nil {
			return Class{}, errors.Wrap(err, "generating class code")
		}
		exists, err := svc.repo.CodeExists(ctx, code)
		if err != nil {
			return Class{}, errors.Wrap(err, "checking class code")
		}
		if exists {
			continue
		}

		cls, err := svc.repo.CreateClass(ctx, Class{
			Name:        nc.Name,
			Code:        code,
			TeacherID:   teacherID,
			Description: nc.Description,
			CreatedAt:   nowFunc().UTC(),
		})
		if err == ErrCodeExists { // lost a race for this code
			continue
		}
		if err != nil {
			return Class{}, errors.Wrap(err, "creating class")
		}
		return cls, nil
	}
	return Class{}, ErrCodeGeneration
}

func (svc *Service) ListForTeacher(ctx context.Context, teacherID int64) ([]TeacherClass, error) {
	return svc.repo.QueryTeacherClasses(ctx, teacherID)
}

// GetOwned returns the Class only if teacherID owns it.
func (svc *Service) GetOwned(ctx context.Context, teacherID, classID int64) (Class, error) {
	return svc.repo.GetClass(ctx, GetFilter{ID: classID, TeacherID: teacherID})
}

func (svc *Service) Students(ctx context.Context, teacherID, classID int64) ([]EnrolledStudent, error) {
	if _, err := svc.GetOwned(ctx, teacherID, classID); err != nil {
		return nil, err
	}
	return svc.repo.QueryClassStudents(ctx, classID)
}

func (svc *Service) CountStudents(ctx context.Context, classID int64) (int, error) {
	return svc.repo.CountStudents(ctx, classID)
}

// RemoveStudent removes the student from the class along with their submissions to its assignments.
func (svc *Service) RemoveStudent(ctx context.Context, teacherID, classID, studentID int64) error {
	if _, err := svc.GetOwned(ctx, teacherID, classID); err != nil {
		return err
	}
	return core.RunInTx(ctx, svc.db, func(exec core.DBExecutor) error {
		enrolled, err := svc.repo.IsEnrolled(ctx, classID, studentID, exec)
		if err != nil {
			return errors.Wrap(err, "checking enrollment")
		}
		if !enrolled {
			return ErrStudentNotEnrolled
		}
		return errors.Wrap(svc.repo.DeleteEnrollment(ctx, classID, studentID, exec), "deleting enrollment")
	})
}

// Delete deletes the class with everything that belongs to it.
func (svc *Service) Delete(ctx context.Context, teacherID, classID int64) error {
	if _, err := svc.GetOwned(ctx, teacherID, classID); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteClass(ctx, classID), "deleting class")
}

// Join enrolls the student in the class identified by code.
func (svc *Service) Join(ctx context.Context, studentID int64, code string) (Class, error) {
	code = NormalizeCode(code)
	if code == "" {
		return Class{}, ErrNotFound
	}
	cls, err := svc.repo.GetClass(ctx, GetFilter{Code: code})
	if err != nil {
		return Class{}, err
	}

	enrolled, err := svc.repo.IsEnrolled(ctx, cls.ID, studentID)
	if err != nil {
		return Class{}, errors.Wrap(err, "checking enrollment")
	}
	if enrolled {
		return Class{}, core.NewValidationError(ErrAlreadyEnrolled)
	}

	_, err = svc.repo.CreateEnrollment(ctx, Enrollment{
		StudentID: studentID,
		ClassID:   cls.ID,
		JoinedAt:  nowFunc().UTC(),
	})
	if err == ErrAlreadyEnrolled { // concurrent join
		return Class{}, core.NewValidationError(ErrAlreadyEnrolled)
	}
	if err != nil {
		return Class{}, errors.Wrap(err, "creating enrollment")
	}
	return cls, nil
}

func (svc *Service) ListForStudent(ctx context.Context, studentID int64) ([]JoinedClass, error) {
	return svc.repo.QueryStudentClasses(ctx, studentID)
}

func (svc *Service) IsEnrolled(ctx context.Context, classID, studentID int64) (bool, error) {
	return svc.repo.IsEnrolled(ctx, classID, studentID)
}
