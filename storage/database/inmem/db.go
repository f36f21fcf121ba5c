package inmemdb

import (
	"sync"

	"github.com/trezcool/kazi/core/assignment"
	"github.com/trezcool/kazi/core/classroom"
	"github.com/trezcool/kazi/core/submission"
	"github.com/trezcool/kazi/core/user"
)

// DB keeps every table behind a single lock so deletes can cascade atomically.
type DB struct {
	mutex sync.RWMutex

	users       map[int64]*user.User
	classes     map[int64]*classroom.Class
	enrollments map[int64]*classroom.Enrollment
	assignments map[int64]*assignment.Assignment
	submissions map[int64]*submission.Submission

	pkCount int64
}

func Open() *DB {
	return &DB{
		users:       make(map[int64]*user.User),
		classes:     make(map[int64]*classroom.Class),
		enrollments: make(map[int64]*classroom.Enrollment),
		assignments: make(map[int64]*assignment.Assignment),
		submissions: make(map[int64]*submission.Submission),
	}
}

// nextID must be called with the write lock held.
func (db *DB) nextID() int64 {
	db.pkCount++
	return db.pkCount
}

// deleteSubmissionsWhere must be called with the write lock held.
func (db *DB) deleteSubmissionsWhere(match func(sub *submission.Submission) bool) {
	for id, sub := range db.submissions {
		if match(sub) {
			delete(db.submissions, id)
		}
	}
}

// deleteAssignment must be called with the write lock held.
func (db *DB) deleteAssignment(id int64) {
	db.deleteSubmissionsWhere(func(sub *submission.Submission) bool { return sub.AssignmentID == id })
	delete(db.assignments, id)
}

// deleteClass must be called with the write lock held.
func (db *DB) deleteClass(id int64) {
	for enrID, enr := range db.enrollments {
		if enr.ClassID == id {
			delete(db.enrollments, enrID)
		}
	}
	for asgID, asg := range db.assignments {
		if asg.ClassID == id {
			db.deleteAssignment(asgID)
		}
	}
	delete(db.classes, id)
}

// isEnrolled must be called with a lock held.
func (db *DB) isEnrolled(classID, studentID int64) bool {
	for _, enr := range db.enrollments {
		if enr.ClassID == classID && enr.StudentID == studentID {
			return true
		}
	}
	return false
}
