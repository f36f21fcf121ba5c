package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/assignment"
)

type assignmentRepository struct {
	db *DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *DB) *assignmentRepository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) CreateAssignment(_ context.Context, asg assignment.Assignment, _ ...core.DBExecutor) (assignment.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	asg.ID = repo.db.nextID()
	repo.db.assignments[asg.ID] = &asg
	return asg, nil
}

func (repo *assignmentRepository) GetAssignment(_ context.Context, filter assignment.GetFilter, _ ...core.DBExecutor) (assignment.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, asg := range repo.db.assignments {
		if filter.ID != 0 && asg.ID != filter.ID {
			continue
		}
		if filter.TeacherID != 0 && asg.TeacherID != filter.TeacherID {
			continue
		}
		if filter.StudentID != 0 && !repo.db.isEnrolled(asg.ClassID, filter.StudentID) {
			continue
		}
		return *asg, nil
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) QueryTeacherAssignments(_ context.Context, teacherID int64, _ ...core.DBExecutor) ([]assignment.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	asgs := make([]assignment.Assignment, 0)
	for _, asg := range repo.db.assignments {
		if asg.TeacherID == teacherID {
			asgs = append(asgs, *asg)
		}
	}
	sort.Slice(asgs, func(i, j int) bool {
		if asgs[i].CreatedAt.Equal(asgs[j].CreatedAt) {
			return asgs[i].ID > asgs[j].ID
		}
		return asgs[i].CreatedAt.After(asgs[j].CreatedAt)
	})
	return asgs, nil
}

func (repo *assignmentRepository) QueryStudentAssignments(_ context.Context, studentID int64, _ ...core.DBExecutor) ([]assignment.StudentAssignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	submitted := make(map[int64]bool)
	for _, sub := range repo.db.submissions {
		if sub.StudentID == studentID {
			submitted[sub.AssignmentID] = true
		}
	}

	asgs := make([]assignment.StudentAssignment, 0)
	for _, asg := range repo.db.assignments {
		if repo.db.isEnrolled(asg.ClassID, studentID) {
			asgs = append(asgs, assignment.StudentAssignment{Assignment: *asg, Submitted: submitted[asg.ID]})
		}
	}
	sort.Slice(asgs, func(i, j int) bool {
		if asgs[i].Deadline.Equal(asgs[j].Deadline) {
			return asgs[i].ID < asgs[j].ID
		}
		return asgs[i].Deadline.Before(asgs[j].Deadline)
	})
	return asgs, nil
}

func (repo *assignmentRepository) DeleteAssignment(_ context.Context, id int64, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.deleteAssignment(id)
	return nil
}
