package assignment

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/classroom"
)

var (
	ErrNotFound = fmt.Errorf("assignment %w", core.ErrNotFound)

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, asg Assignment, exec ...core.DBExecutor) (Assignment, error)
		GetAssignment(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Assignment, error)
		// QueryTeacherAssignments returns the teacher's assignments, newest first.
		QueryTeacherAssignments(ctx context.Context, teacherID int64, exec ...core.DBExecutor) ([]Assignment, error)
		// QueryStudentAssignments returns the assignments of the classes joined by the student,
		// closest deadline first, flagged when the student already submitted.
		QueryStudentAssignments(ctx context.Context, studentID int64, exec ...core.DBExecutor) ([]StudentAssignment, error)
		// DeleteAssignment cascades to the assignment's submissions.
		DeleteAssignment(ctx context.Context, id int64, exec ...core.DBExecutor) error
	}

	// ClassOwnership is satisfied by *classroom.Service.
	ClassOwnership interface {
		GetOwned(ctx context.Context, teacherID, classID int64) (classroom.Class, error)
	}

	Service struct {
		repo    Repository
		classes ClassOwnership
	}
)

func NewService(repo Repository, classes ClassOwnership) *Service {
	return &Service{repo: repo, classes: classes}
}

// Create publishes an Assignment to one of the teacher's classes.
func (svc *Service) Create(ctx context.Context, teacherID int64, na NewAssignment) (Assignment, error) {
	if _, err := svc.classes.GetOwned(ctx, teacherID, na.ClassID); err != nil {
		return Assignment{}, err
	}
	asg, err := svc.repo.CreateAssignment(ctx, Assignment{
		Title:       na.Title,
		Description: na.Description,
		TeacherID:   teacherID,
		ClassID:     na.ClassID,
		Deadline:    na.Deadline.UTC(),
		CreatedAt:   nowFunc().UTC(),
	})
	if err != nil {
		return Assignment{}, errors.Wrap(err, "creating assignment")
	}
	return asg, nil
}

func (svc *Service) ListForTeacher(ctx context.Context, teacherID int64) ([]Assignment, error) {
	return svc.repo.QueryTeacherAssignments(ctx, teacherID)
}

// GetOwned returns the Assignment only if teacherID published it.
func (svc *Service) GetOwned(ctx context.Context, teacherID, id int64) (Assignment, error) {
	return svc.repo.GetAssignment(ctx, GetFilter{ID: id, TeacherID: teacherID})
}

// GetForStudent returns the Assignment only if it belongs to a class the student joined.
func (svc *Service) GetForStudent(ctx context.Context, studentID, id int64) (Assignment, error) {
	return svc.repo.GetAssignment(ctx, GetFilter{ID: id, StudentID: studentID})
}

func (svc *Service) ListForStudent(ctx context.Context, studentID int64) ([]StudentAssignment, error) {
	return svc.repo.QueryStudentAssignments(ctx, studentID)
}

// Delete deletes one of the teacher's assignments and its submissions.
func (svc *Service) Delete(ctx context.Context, teacherID, id int64) error {
	if _, err := svc.GetOwned(ctx, teacherID, id); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteAssignment(ctx, id), "deleting assignment")
}
