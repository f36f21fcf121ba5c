package submission

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/assignment"
	"github.com/trezcool/kazi/core/classroom"
)

var (
	ErrNotFound         = fmt.Errorf("submission %w", core.ErrNotFound)
	ErrFileNotSupported = errors.New("only pdf, doc and docx files are allowed")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		// UpsertSubmission inserts sub or, when the student already submitted to the assignment,
		// overwrites the content, file, submission time and AI grading. Teacher grading is kept.
		UpsertSubmission(ctx context.Context, sub Submission, exec ...core.DBExecutor) (Submission, error)
		GetSubmission(ctx context.Context, id int64, exec ...core.DBExecutor) (Submission, error)
		// QueryAssignmentSubmissions returns the assignment's submissions, latest first.
		QueryAssignmentSubmissions(ctx context.Context, assignmentID int64, exec ...core.DBExecutor) ([]TeacherSubmission, error)
		// QueryStudentSubmissions returns the student's submissions, latest first.
		QueryStudentSubmissions(ctx context.Context, studentID int64, exec ...core.DBExecutor) ([]StudentSubmission, error)
		// QueryRecentGrades returns up to limit of the student's graded submissions in the class, latest first.
		// The reported grade is the teacher score when set, the AI score otherwise.
		QueryRecentGrades(ctx context.Context, studentID, classID int64, limit int, exec ...core.DBExecutor) ([]TrendPoint, error)
		SetGrade(ctx context.Context, id int64, score int, feedback string, gradedAt time.Time, exec ...core.DBExecutor) (Submission, error)
	}

	// Assignments is satisfied by *assignment.Service.
	Assignments interface {
		GetOwned(ctx context.Context, teacherID, id int64) (assignment.Assignment, error)
		GetForStudent(ctx context.Context, studentID, id int64) (assignment.Assignment, error)
	}

	// Classes is satisfied by *classroom.Service.
	Classes interface {
		CountStudents(ctx context.Context, classID int64) (int, error)
		ListForStudent(ctx context.Context, studentID int64) ([]classroom.JoinedClass, error)
	}

	// StoredFile is a persisted upload.
	StoredFile struct {
		Path string // on disk, for extraction
		URL  string // public
	}

	FileStore interface {
		Save(name string, r io.Reader) (StoredFile, error)
		Remove(f StoredFile) error
	}

	// ContentExtractor never fails: it returns a failure text recognized by IsFailure instead.
	ContentExtractor interface {
		Extract(path, ext string) string
		IsFailure(text string) bool
	}

	// Grader returns a score in [0,100] with feedback, or a null score with an explanation.
	Grader interface {
		Grade(ctx context.Context, description, content string) (null.Int, string)
	}

	// TrendAnalyzer returns a prose analysis and true, or an explanation and false.
	TrendAnalyzer interface {
		AnalyzeTrend(ctx context.Context, className string, points []TrendPoint) (string, bool)
	}

	Deps struct {
		DB          core.DB // nil for in-memory storage
		Repo        Repository
		Assignments Assignments
		Classes     Classes
		Files       FileStore
		Extractor   ContentExtractor
		Grader      Grader        // nil when the grading service is not configured
		Analyzer    TrendAnalyzer // nil when the grading service is not configured
		Logger      core.Logger
	}

	Service struct {
		Deps
	}
)

func NewService(deps Deps) *Service {
	return &Service{Deps: deps}
}

// Submit records the student's answer to an assignment of one of their classes.
// The attached file is stored and its text extracted, then the answer is graded by the AI.
// Extraction and grading failures never fail the submission, they end up in the AI feedback.
func (svc *Service) Submit(ctx context.Context, studentID, assignmentID int64, ns NewSubmission) (Submission, error) {
	asg, err := svc.Assignments.GetForStudent(ctx, studentID, assignmentID)
	if err != nil {
		return Submission{}, err
	}

	var stored StoredFile
	var fileURL null.String
	var fileText string
	if ns.File != nil && ns.File.Name != "" {
		ext := FileExtension(ns.File.Name)
		if !IsAllowedExtension(ext) {
			return Submission{}, core.NewValidationError(
				ErrFileNotSupported,
				core.FieldError{Field: "file", Error: ErrFileNotSupported.Error()},
			)
		}

		stored, err = svc.Files.Save(ns.File.Name, ns.File.Reader)
		if err != nil {
			return Submission{}, errors.Wrap(err, "storing submission file")
		}
		fileURL = null.StringFrom(stored.URL)

		if text := svc.Extractor.Extract(stored.Path, ext); svc.Extractor.IsFailure(text) {
			svc.Logger.Warn("file content extraction failed", text, map[string]interface{}{"file": stored.URL})
		} else {
			fileText = text
		}
	}

	description := asg.Description
	if strings.TrimSpace(description) == "" {
		description = asg.Title
	}
	score, feedback := svc.grade(ctx, description, CombineContent(ns.Content, fileText))

	sub := Submission{
		AssignmentID: asg.ID,
		StudentID:    studentID,
		Content:      ns.Content,
		FileURL:      fileURL,
		SubmittedAt:  nowFunc().UTC(),
		AIScore:      score,
		AIFeedback:   null.StringFrom(feedback),
	}
	err = core.RunInTx(ctx, svc.DB, func(exec core.DBExecutor) error {
		var err error
		sub, err = svc.Repo.UpsertSubmission(ctx, sub, exec)
		return err
	})
	if err != nil {
		// the upload must not stay reachable without a submission pointing to it
		if stored.Path != "" {
			if rerr := svc.Files.Remove(stored); rerr != nil {
				svc.Logger.Error("removing orphaned upload", rerr, map[string]interface{}{"file": stored.URL})
			}
		}
		return Submission{}, errors.Wrap(err, "saving submission")
	}
	return sub, nil
}

func (svc *Service) grade(ctx context.Context, description, content string) (null.Int, string) {
	if content == "" {
		return null.Int{}, NoContentFeedback
	}
	if svc.Grader == nil {
		return null.Int{}, OracleUnavailableFeedback
	}
	return svc.Grader.Grade(ctx, description, content)
}

// History returns the student's submissions, latest first.
func (svc *Service) History(ctx context.Context, studentID int64) ([]StudentSubmission, error) {
	return svc.Repo.QueryStudentSubmissions(ctx, studentID)
}

// ForAssignment returns the submissions to one of the teacher's assignments with their statistics.
func (svc *Service) ForAssignment(ctx context.Context, teacherID, assignmentID int64) (AssignmentSubmissions, error) {
	asg, err := svc.Assignments.GetOwned(ctx, teacherID, assignmentID)
	if err != nil {
		return AssignmentSubmissions{}, err
	}
	subs, err := svc.Repo.QueryAssignmentSubmissions(ctx, asg.ID)
	if err != nil {
		return AssignmentSubmissions{}, errors.Wrap(err, "querying assignment submissions")
	}
	total, err := svc.Classes.CountStudents(ctx, asg.ClassID)
	if err != nil {
		return AssignmentSubmissions{}, errors.Wrap(err, "counting class students")
	}
	if subs == nil {
		subs = []TeacherSubmission{}
	}
	return AssignmentSubmissions{
		Submissions: subs,
		Statistics:  ComputeStatistics(subs, total),
	}, nil
}

// Grade sets the teacher's score and feedback on a submission to one of their assignments.
// The teacher score takes precedence over the AI score from then on.
func (svc *Service) Grade(ctx context.Context, teacherID, submissionID int64, ng NewGrade) (Submission, error) {
	sub, err := svc.Repo.GetSubmission(ctx, submissionID)
	if err != nil {
		return Submission{}, err
	}
	if _, err = svc.Assignments.GetOwned(ctx, teacherID, sub.AssignmentID); err != nil {
		if core.IsNotFound(err) {
			return Submission{}, ErrNotFound
		}
		return Submission{}, err
	}
	sub, err = svc.Repo.SetGrade(ctx, sub.ID, *ng.Score, ng.Feedback, nowFunc().UTC())
	if err != nil {
		return Submission{}, errors.Wrap(err, "grading submission")
	}
	return sub, nil
}

// Trend returns, for each class joined by the student (by name), the latest graded submissions
// in chronological order. Classes without grades are left out.
func (svc *Service) Trend(ctx context.Context, studentID int64) ([]ClassTrend, error) {
	classes, err := svc.Classes.ListForStudent(ctx, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying student classes")
	}
	sort.SliceStable(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })

	trends := make([]ClassTrend, 0, len(classes))
	for _, cls := range classes {
		points, err := svc.Repo.QueryRecentGrades(ctx, studentID, cls.ID, RecentGradesLimit)
		if err != nil {
			return nil, errors.Wrap(err, "querying recent grades")
		}
		if len(points) == 0 {
			continue
		}
		SortPoints(points)
		trends = append(trends, ClassTrend{
			ClassID:     cls.ID,
			ClassName:   cls.Name,
			ClassCode:   cls.Code,
			Submissions: points,
		})
	}
	return trends, nil
}

// AnalyzeTrend asks the AI for a short analysis of a grade series.
func (svc *Service) AnalyzeTrend(ctx context.Context, req TrendAnalysisRequest) (string, bool) {
	if len(req.GradeData) < MinTrendPoints {
		return InsufficientTrendDataMessage, false
	}
	if svc.Analyzer == nil {
		return TrendUnavailableMessage, false
	}
	return svc.Analyzer.AnalyzeTrend(ctx, req.ClassName, req.GradeData)
}

// SortPoints orders points chronologically.
func SortPoints(points []TrendPoint) {
	sort.SliceStable(points, func(i, j int) bool { return points[i].SubmittedAt.Before(points[j].SubmittedAt) })
}
