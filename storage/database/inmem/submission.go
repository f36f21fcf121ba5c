package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/submission"
)

type submissionRepository struct {
	db *DB
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *DB) *submissionRepository {
	return &submissionRepository{db: db}
}

func (repo *submissionRepository) UpsertSubmission(_ context.Context, sub submission.Submission, _ ...core.DBExecutor) (submission.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.submissions {
		if existing.AssignmentID == sub.AssignmentID && existing.StudentID == sub.StudentID {
			existing.Content = sub.Content
			existing.FileURL = sub.FileURL
			existing.SubmittedAt = sub.SubmittedAt
			existing.AIScore = sub.AIScore
			existing.AIFeedback = sub.AIFeedback
			return *existing, nil
		}
	}

	sub.ID = repo.db.nextID()
	sub.Score = null.Int{}
	sub.Feedback = null.String{}
	sub.GradedAt = null.Time{}
	repo.db.submissions[sub.ID] = &sub
	return sub, nil
}

func (repo *submissionRepository) GetSubmission(_ context.Context, id int64, _ ...core.DBExecutor) (submission.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sub, ok := repo.db.submissions[id]; ok {
		return *sub, nil
	}
	return submission.Submission{}, submission.ErrNotFound
}

// newerFirst orders submissions by submission time, latest first.
func newerFirst(a, b submission.Submission) bool {
	if a.SubmittedAt.Equal(b.SubmittedAt) {
		return a.ID > b.ID
	}
	return a.SubmittedAt.After(b.SubmittedAt)
}

func (repo *submissionRepository) QueryAssignmentSubmissions(_ context.Context, assignmentID int64, _ ...core.DBExecutor) ([]submission.TeacherSubmission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subs := make([]submission.TeacherSubmission, 0)
	for _, sub := range repo.db.submissions {
		if sub.AssignmentID != assignmentID {
			continue
		}
		ts := submission.TeacherSubmission{Submission: *sub}
		if usr, ok := repo.db.users[sub.StudentID]; ok {
			ts.Username = usr.Username
		}
		subs = append(subs, ts)
	}
	sort.Slice(subs, func(i, j int) bool { return newerFirst(subs[i].Submission, subs[j].Submission) })
	return subs, nil
}

func (repo *submissionRepository) QueryStudentSubmissions(_ context.Context, studentID int64, _ ...core.DBExecutor) ([]submission.StudentSubmission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subs := make([]submission.StudentSubmission, 0)
	for _, sub := range repo.db.submissions {
		if sub.StudentID != studentID {
			continue
		}
		ss := submission.StudentSubmission{Submission: *sub}
		if asg, ok := repo.db.assignments[sub.AssignmentID]; ok {
			ss.Title = asg.Title
		}
		subs = append(subs, ss)
	}
	sort.Slice(subs, func(i, j int) bool { return newerFirst(subs[i].Submission, subs[j].Submission) })
	return subs, nil
}

func (repo *submissionRepository) QueryRecentGrades(_ context.Context, studentID, classID int64, limit int, _ ...core.DBExecutor) ([]submission.TrendPoint, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var graded []submission.Submission
	titles := make(map[int64]string)
	for _, sub := range repo.db.submissions {
		asg, ok := repo.db.assignments[sub.AssignmentID]
		if !ok || sub.StudentID != studentID || asg.ClassID != classID || !sub.Grade().Valid {
			continue
		}
		graded = append(graded, *sub)
		titles[sub.ID] = asg.Title
	}
	sort.Slice(graded, func(i, j int) bool { return newerFirst(graded[i], graded[j]) })
	if len(graded) > limit {
		graded = graded[:limit]
	}

	points := make([]submission.TrendPoint, 0, len(graded))
	for _, sub := range graded {
		points = append(points, submission.TrendPoint{
			ID:              sub.ID,
			SubmittedAt:     sub.SubmittedAt,
			Grade:           sub.Grade().Int,
			AssignmentTitle: titles[sub.ID],
		})
	}
	return points, nil
}

func (repo *submissionRepository) SetGrade(_ context.Context, id int64, score int, feedback string, gradedAt time.Time, _ ...core.DBExecutor) (submission.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sub, ok := repo.db.submissions[id]
	if !ok {
		return submission.Submission{}, submission.ErrNotFound
	}
	sub.Score = null.IntFrom(score)
	sub.Feedback = null.StringFrom(feedback)
	sub.GradedAt = null.TimeFrom(gradedAt)
	return *sub, nil
}
