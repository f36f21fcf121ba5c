package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/classroom"
	"github.com/trezcool/kazi/core/submission"
)

type classRepository struct {
	db *DB
}

var _ classroom.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *DB) *classRepository {
	return &classRepository{db: db}
}

func (repo *classRepository) codeExists(code string) bool {
	for _, cls := range repo.db.classes {
		if cls.Code == code {
			return true
		}
	}
	return false
}

func (repo *classRepository) CodeExists(_ context.Context, code string, _ ...core.DBExecutor) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.codeExists(code), nil
}

func (repo *classRepository) CreateClass(_ context.Context, cls classroom.Class, _ ...core.DBExecutor) (classroom.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.codeExists(cls.Code) {
		return classroom.Class{}, classroom.ErrCodeExists
	}
	cls.ID = repo.db.nextID()
	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *classRepository) GetClass(_ context.Context, filter classroom.GetFilter, _ ...core.DBExecutor) (classroom.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, cls := range repo.db.classes {
		if filter.ID != 0 && cls.ID != filter.ID {
			continue
		}
		if filter.Code != "" && cls.Code != filter.Code {
			continue
		}
		if filter.TeacherID != 0 && cls.TeacherID != filter.TeacherID {
			continue
		}
		return *cls, nil
	}
	return classroom.Class{}, classroom.ErrNotFound
}

func (repo *classRepository) countStudents(classID int64) int {
	var n int
	for _, enr := range repo.db.enrollments {
		if enr.ClassID == classID {
			n++
		}
	}
	return n
}

func (repo *classRepository) QueryTeacherClasses(_ context.Context, teacherID int64, _ ...core.DBExecutor) ([]classroom.TeacherClass, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	classes := make([]classroom.TeacherClass, 0)
	for _, cls := range repo.db.classes {
		if cls.TeacherID == teacherID {
			classes = append(classes, classroom.TeacherClass{Class: *cls, StudentCount: repo.countStudents(cls.ID)})
		}
	}
	sort.Slice(classes, func(i, j int) bool {
		if classes[i].CreatedAt.Equal(classes[j].CreatedAt) {
			return classes[i].ID > classes[j].ID
		}
		return classes[i].CreatedAt.After(classes[j].CreatedAt)
	})
	return classes, nil
}

// sortedEnrollments returns the enrollments matching match, latest join first.
func (repo *classRepository) sortedEnrollments(match func(enr *classroom.Enrollment) bool) []classroom.Enrollment {
	enrs := make([]classroom.Enrollment, 0)
	for _, enr := range repo.db.enrollments {
		if match(enr) {
			enrs = append(enrs, *enr)
		}
	}
	sort.Slice(enrs, func(i, j int) bool {
		if enrs[i].JoinedAt.Equal(enrs[j].JoinedAt) {
			return enrs[i].ID > enrs[j].ID
		}
		return enrs[i].JoinedAt.After(enrs[j].JoinedAt)
	})
	return enrs
}

func (repo *classRepository) QueryStudentClasses(_ context.Context, studentID int64, _ ...core.DBExecutor) ([]classroom.JoinedClass, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrs := repo.sortedEnrollments(func(enr *classroom.Enrollment) bool { return enr.StudentID == studentID })
	classes := make([]classroom.JoinedClass, 0, len(enrs))
	for _, enr := range enrs {
		if cls, ok := repo.db.classes[enr.ClassID]; ok {
			classes = append(classes, classroom.JoinedClass{Class: *cls, JoinedAt: enr.JoinedAt})
		}
	}
	return classes, nil
}

func (repo *classRepository) QueryClassStudents(_ context.Context, classID int64, _ ...core.DBExecutor) ([]classroom.EnrolledStudent, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrs := repo.sortedEnrollments(func(enr *classroom.Enrollment) bool { return enr.ClassID == classID })
	students := make([]classroom.EnrolledStudent, 0, len(enrs))
	for _, enr := range enrs {
		if usr, ok := repo.db.users[enr.StudentID]; ok {
			students = append(students, classroom.EnrolledStudent{
				ID:            usr.ID,
				Username:      usr.Username,
				Email:         usr.Email,
				StudentNumber: usr.StudentNumber,
				JoinedAt:      enr.JoinedAt,
			})
		}
	}
	return students, nil
}

func (repo *classRepository) CountStudents(_ context.Context, classID int64, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.countStudents(classID), nil
}

func (repo *classRepository) IsEnrolled(_ context.Context, classID, studentID int64, _ ...core.DBExecutor) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.isEnrolled(classID, studentID), nil
}

func (repo *classRepository) CreateEnrollment(_ context.Context, enr classroom.Enrollment, _ ...core.DBExecutor) (classroom.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.db.isEnrolled(enr.ClassID, enr.StudentID) {
		return classroom.Enrollment{}, classroom.ErrAlreadyEnrolled
	}
	enr.ID = repo.db.nextID()
	repo.db.enrollments[enr.ID] = &enr
	return enr, nil
}

func (repo *classRepository) DeleteEnrollment(_ context.Context, classID, studentID int64, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.deleteSubmissionsWhere(func(sub *submission.Submission) bool {
		asg, ok := repo.db.assignments[sub.AssignmentID]
		return sub.StudentID == studentID && ok && asg.ClassID == classID
	})
	for id, enr := range repo.db.enrollments {
		if enr.ClassID == classID && enr.StudentID == studentID {
			delete(repo.db.enrollments, id)
		}
	}
	return nil
}

func (repo *classRepository) DeleteClass(_ context.Context, id int64, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.deleteClass(id)
	return nil
}
