package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/classroom"
)

type classRepository struct {
	repository
}

var _ classroom.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(exec core.DBExecutor) *classRepository {
	return &classRepository{repository{exec: exec}}
}

func (repo classRepository) CodeExists(ctx context.Context, code string, exec ...core.DBExecutor) (bool, error) {
	var exists bool
	err := repo.getExec(exec).GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM classes WHERE code = $1)", code)
	if err != nil {
		return false, errors.Wrap(err, "checking class code")
	}
	return exists, nil
}

func (repo classRepository) CreateClass(ctx context.Context, cls classroom.Class, exec ...core.DBExecutor) (classroom.Class, error) {
	q := `INSERT INTO classes (name, code, teacher_id, description, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := repo.getExec(exec).GetContext(ctx, &cls.ID, q, cls.Name, cls.Code, cls.TeacherID, cls.Description, cls.CreatedAt.UTC())
	if isUniqueViolation(err, "classes_code_key") {
		return classroom.Class{}, classroom.ErrCodeExists
	}
	if err != nil {
		return classroom.Class{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

func (repo classRepository) GetClass(ctx context.Context, filter classroom.GetFilter, exec ...core.DBExecutor) (classroom.Class, error) {
	var w where
	if filter.ID != 0 {
		w.add("id = ?", filter.ID)
	}
	if filter.Code != "" {
		w.add("code = ?", filter.Code)
	}
	if filter.TeacherID != 0 {
		w.add("teacher_id = ?", filter.TeacherID)
	}

	var cls classroom.Class
	q := "SELECT id, name, code, teacher_id, description, created_at FROM classes" + w.String() + " LIMIT 1"
	if err := repo.getExec(exec).GetContext(ctx, &cls, q, w.args...); err != nil {
		return classroom.Class{}, trapNoRowsErr(err, classroom.ErrNotFound, "getting class")
	}
	return cls, nil
}

func (repo classRepository) QueryTeacherClasses(ctx context.Context, teacherID int64, exec ...core.DBExecutor) ([]classroom.TeacherClass, error) {
	classes := make([]classroom.TeacherClass, 0)
	q := `SELECT c.id, c.name, c.code, c.teacher_id, c.description, c.created_at, COUNT(sc.id) AS student_count
		FROM classes c
		LEFT JOIN student_classes sc ON sc.class_id = c.id
		WHERE c.teacher_id = $1
		GROUP BY c.id
		ORDER BY c.created_at DESC, c.id DESC`
	if err := repo.getExec(exec).SelectContext(ctx, &classes, q, teacherID); err != nil {
		return nil, errors.Wrap(err, "querying teacher classes")
	}
	return classes, nil
}

func (repo classRepository) QueryStudentClasses(ctx context.Context, studentID int64, exec ...core.DBExecutor) ([]classroom.JoinedClass, error) {
	classes := make([]classroom.JoinedClass, 0)
	q := `SELECT c.id, c.name, c.code, c.teacher_id, c.description, c.created_at, sc.joined_at
		FROM student_classes sc
		JOIN classes c ON c.id = sc.class_id
		WHERE sc.student_id = $1
		ORDER BY sc.joined_at DESC, sc.id DESC`
	if err := repo.getExec(exec).SelectContext(ctx, &classes, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying student classes")
	}
	return classes, nil
}

func (repo classRepository) QueryClassStudents(ctx context.Context, classID int64, exec ...core.DBExecutor) ([]classroom.EnrolledStudent, error) {
	students := make([]classroom.EnrolledStudent, 0)
	q := `SELECT u.id, u.username, u.email, u.student_id, sc.joined_at
		FROM student_classes sc
		JOIN users u ON u.id = sc.student_id
		WHERE sc.class_id = $1
		ORDER BY sc.joined_at DESC, sc.id DESC`
	if err := repo.getExec(exec).SelectContext(ctx, &students, q, classID); err != nil {
		return nil, errors.Wrap(err, "querying class students")
	}
	return students, nil
}

func (repo classRepository) CountStudents(ctx context.Context, classID int64, exec ...core.DBExecutor) (int, error) {
	var n int
	if err := repo.getExec(exec).GetContext(ctx, &n, "SELECT COUNT(*) FROM student_classes WHERE class_id = $1", classID); err != nil {
		return 0, errors.Wrap(err, "counting class students")
	}
	return n, nil
}

func (repo classRepository) IsEnrolled(ctx context.Context, classID, studentID int64, exec ...core.DBExecutor) (bool, error) {
	var exists bool
	q := "SELECT EXISTS (SELECT 1 FROM student_classes WHERE class_id = $1 AND student_id = $2)"
	if err := repo.getExec(exec).GetContext(ctx, &exists, q, classID, studentID); err != nil {
		return false, errors.Wrap(err, "checking enrollment")
	}
	return exists, nil
}

func (repo classRepository) CreateEnrollment(ctx context.Context, enr classroom.Enrollment, exec ...core.DBExecutor) (classroom.Enrollment, error) {
	q := "INSERT INTO student_classes (student_id, class_id, joined_at) VALUES ($1, $2, $3) RETURNING id"
	err := repo.getExec(exec).GetContext(ctx, &enr.ID, q, enr.StudentID, enr.ClassID, enr.JoinedAt.UTC())
	if isUniqueViolation(err, "student_classes_student_id_class_id_key") {
		return classroom.Enrollment{}, classroom.ErrAlreadyEnrolled
	}
	if err != nil {
		return classroom.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return enr, nil
}

func (repo classRepository) DeleteEnrollment(ctx context.Context, classID, studentID int64, exec ...core.DBExecutor) error {
	e := repo.getExec(exec)
	q := `DELETE FROM submissions
		WHERE student_id = $1 AND assignment_id IN (SELECT id FROM assignments WHERE class_id = $2)`
	if _, err := e.ExecContext(ctx, q, studentID, classID); err != nil {
		return errors.Wrap(err, "deleting student submissions")
	}
	if _, err := e.ExecContext(ctx, "DELETE FROM student_classes WHERE class_id = $1 AND student_id = $2", classID, studentID); err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	return nil
}

// DeleteClass relies on the ON DELETE CASCADE foreign keys.
func (repo classRepository) DeleteClass(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	if _, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM classes WHERE id = $1", id); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return nil
}
