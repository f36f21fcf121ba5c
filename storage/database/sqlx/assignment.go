package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/assignment"
)

const assignmentColumns = "a.id, a.title, a.description, a.teacher_id, a.class_id, a.deadline, a.created_at"

type assignmentRepository struct {
	repository
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(exec core.DBExecutor) *assignmentRepository {
	return &assignmentRepository{repository{exec: exec}}
}

func (repo assignmentRepository) CreateAssignment(ctx context.Context, asg assignment.Assignment, exec ...core.DBExecutor) (assignment.Assignment, error) {
	q := `INSERT INTO assignments (title, description, teacher_id, class_id, deadline, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := repo.getExec(exec).GetContext(ctx, &asg.ID, q,
		asg.Title, asg.Description, asg.TeacherID, asg.ClassID, asg.Deadline.UTC(), asg.CreatedAt.UTC())
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return asg, nil
}

func (repo assignmentRepository) GetAssignment(ctx context.Context, filter assignment.GetFilter, exec ...core.DBExecutor) (assignment.Assignment, error) {
	var w where
	if filter.ID != 0 {
		w.add("a.id = ?", filter.ID)
	}
	if filter.TeacherID != 0 {
		w.add("a.teacher_id = ?", filter.TeacherID)
	}
	if filter.StudentID != 0 {
		w.add("a.class_id IN (SELECT class_id FROM student_classes WHERE student_id = ?)", filter.StudentID)
	}

	var asg assignment.Assignment
	q := "SELECT " + assignmentColumns + " FROM assignments a" + w.String() + " LIMIT 1"
	if err := repo.getExec(exec).GetContext(ctx, &asg, q, w.args...); err != nil {
		return assignment.Assignment{}, trapNoRowsErr(err, assignment.ErrNotFound, "getting assignment")
	}
	return asg, nil
}

func (repo assignmentRepository) QueryTeacherAssignments(ctx context.Context, teacherID int64, exec ...core.DBExecutor) ([]assignment.Assignment, error) {
	asgs := make([]assignment.Assignment, 0)
	q := "SELECT " + assignmentColumns + " FROM assignments a WHERE a.teacher_id = $1 ORDER BY a.created_at DESC, a.id DESC"
	if err := repo.getExec(exec).SelectContext(ctx, &asgs, q, teacherID); err != nil {
		return nil, errors.Wrap(err, "querying teacher assignments")
	}
	return asgs, nil
}

func (repo assignmentRepository) QueryStudentAssignments(ctx context.Context, studentID int64, exec ...core.DBExecutor) ([]assignment.StudentAssignment, error) {
	asgs := make([]assignment.StudentAssignment, 0)
	q := "SELECT " + assignmentColumns + `,
			EXISTS (SELECT 1 FROM submissions s WHERE s.assignment_id = a.id AND s.student_id = $1) AS submitted
		FROM assignments a
		JOIN student_classes sc ON sc.class_id = a.class_id
		WHERE sc.student_id = $1
		ORDER BY a.deadline ASC, a.id ASC`
	if err := repo.getExec(exec).SelectContext(ctx, &asgs, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying student assignments")
	}
	return asgs, nil
}

// DeleteAssignment relies on the ON DELETE CASCADE foreign keys.
func (repo assignmentRepository) DeleteAssignment(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	if _, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM assignments WHERE id = $1", id); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return nil
}
