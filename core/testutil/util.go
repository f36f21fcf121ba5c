package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/assignment"
	"github.com/trezcool/kazi/core/classroom"
	"github.com/trezcool/kazi/core/user"
)

// Password is set on every user created by CreateUser.
const Password = "s3cr3t-pwd"

// Logger records log entries instead of printing them.
type Logger struct {
	mu      sync.Mutex
	Entries []LogEntry
}

type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

// Count returns the number of entries logged at level.
func (l *Logger) Count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int
	for _, e := range l.Entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// CreateUser creates a user with Password. The role number is derived from the username.
func CreateUser(t *testing.T, repo user.Repository, uname, role string, createdAt ...time.Time) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Username:  uname,
		Email:     uname + "@kazi.test",
		Role:      role,
		CreatedAt: tstamp,
	}
	number := fmt.Sprintf("N-%s", uname)
	if role == user.RoleTeacher {
		usr.TeacherNumber = null.StringFrom(number)
	} else {
		usr.StudentNumber = null.StringFrom(number)
	}
	if err := usr.SetPassword(Password); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateClass(t *testing.T, repo classroom.Repository, teacherID int64, name, code string, createdAt ...time.Time) classroom.Class {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	cls, err := repo.CreateClass(context.Background(), classroom.Class{
		Name:      name,
		Code:      code,
		TeacherID: teacherID,
		CreatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}

func Enroll(t *testing.T, repo classroom.Repository, classID, studentID int64, joinedAt ...time.Time) {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(joinedAt) > 0 {
		tstamp = joinedAt[0].UTC()
	}
	_, err := repo.CreateEnrollment(context.Background(), classroom.Enrollment{
		StudentID: studentID,
		ClassID:   classID,
		JoinedAt:  tstamp,
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
}

func CreateAssignment(t *testing.T, repo assignment.Repository, cls classroom.Class, title string, deadline time.Time, createdAt ...time.Time) assignment.Assignment {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	asg, err := repo.CreateAssignment(context.Background(), assignment.Assignment{
		Title:     title,
		TeacherID: cls.TeacherID,
		ClassID:   cls.ID,
		Deadline:  deadline.UTC(),
		CreatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return asg
}
