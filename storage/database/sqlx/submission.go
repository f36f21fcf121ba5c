package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/submission"
)

const submissionColumns = `s.id, s.assignment_id, s.student_id, s.content, s.file_url, s.submitted_at,
	s.ai_score, s.ai_feedback, s.score, s.feedback, s.graded_at`

type submissionRepository struct {
	repository
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(exec core.DBExecutor) *submissionRepository {
	return &submissionRepository{repository{exec: exec}}
}

func (repo submissionRepository) UpsertSubmission(ctx context.Context, sub submission.Submission, exec ...core.DBExecutor) (submission.Submission, error) {
	var saved submission.Submission
	q := `INSERT INTO submissions AS s (assignment_id, student_id, content, file_url, submitted_at, ai_score, ai_feedback)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (assignment_id, student_id) DO UPDATE SET
			content = EXCLUDED.content,
			file_url = EXCLUDED.file_url,
			submitted_at = EXCLUDED.submitted_at,
			ai_score = EXCLUDED.ai_score,
			ai_feedback = EXCLUDED.ai_feedback
		RETURNING ` + submissionColumns
	err := repo.getExec(exec).GetContext(ctx, &saved, q,
		sub.AssignmentID, sub.StudentID, sub.Content, sub.FileURL, sub.SubmittedAt.UTC(), sub.AIScore, sub.AIFeedback)
	if err != nil {
		return submission.Submission{}, errors.Wrap(err, "upserting submission")
	}
	return saved, nil
}

func (repo submissionRepository) GetSubmission(ctx context.Context, id int64, exec ...core.DBExecutor) (submission.Submission, error) {
	var sub submission.Submission
	q := "SELECT " + submissionColumns + " FROM submissions s WHERE s.id = $1"
	if err := repo.getExec(exec).GetContext(ctx, &sub, q, id); err != nil {
		return submission.Submission{}, trapNoRowsErr(err, submission.ErrNotFound, "getting submission")
	}
	return sub, nil
}

func (repo submissionRepository) QueryAssignmentSubmissions(ctx context.Context, assignmentID int64, exec ...core.DBExecutor) ([]submission.TeacherSubmission, error) {
	subs := make([]submission.TeacherSubmission, 0)
	q := "SELECT " + submissionColumns + `, u.username
		FROM submissions s
		JOIN users u ON u.id = s.student_id
		WHERE s.assignment_id = $1
		ORDER BY s.submitted_at DESC, s.id DESC`
	if err := repo.getExec(exec).SelectContext(ctx, &subs, q, assignmentID); err != nil {
		return nil, errors.Wrap(err, "querying assignment submissions")
	}
	return subs, nil
}

func (repo submissionRepository) QueryStudentSubmissions(ctx context.Context, studentID int64, exec ...core.DBExecutor) ([]submission.StudentSubmission, error) {
	subs := make([]submission.StudentSubmission, 0)
	q := "SELECT " + submissionColumns + `, a.title
		FROM submissions s
		JOIN assignments a ON a.id = s.assignment_id
		WHERE s.student_id = $1
		ORDER BY s.submitted_at DESC, s.id DESC`
	if err := repo.getExec(exec).SelectContext(ctx, &subs, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying student submissions")
	}
	return subs, nil
}

func (repo submissionRepository) QueryRecentGrades(ctx context.Context, studentID, classID int64, limit int, exec ...core.DBExecutor) ([]submission.TrendPoint, error) {
	points := make([]submission.TrendPoint, 0, limit)
	q := `SELECT s.id, s.submitted_at, COALESCE(s.score, s.ai_score) AS grade, a.title AS assignment_title
		FROM submissions s
		JOIN assignments a ON a.id = s.assignment_id
		WHERE s.student_id = $1 AND a.class_id = $2 AND COALESCE(s.score, s.ai_score) IS NOT NULL
		ORDER BY s.submitted_at DESC, s.id DESC
		LIMIT $3`
	if err := repo.getExec(exec).SelectContext(ctx, &points, q, studentID, classID, limit); err != nil {
		return nil, errors.Wrap(err, "querying recent grades")
	}
	return points, nil
}

func (repo submissionRepository) SetGrade(ctx context.Context, id int64, score int, feedback string, gradedAt time.Time, exec ...core.DBExecutor) (submission.Submission, error) {
	var sub submission.Submission
	q := `UPDATE submissions AS s SET score = $1, feedback = $2, graded_at = $3
		WHERE s.id = $4
		RETURNING ` + submissionColumns
	if err := repo.getExec(exec).GetContext(ctx, &sub, q, score, feedback, gradedAt.UTC(), id); err != nil {
		return submission.Submission{}, trapNoRowsErr(err, submission.ErrNotFound, "grading submission")
	}
	return sub, nil
}
