package submission

import (
	"io"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kazi/core"
)

const (
	// ContentSeparator joins the typed answer and the text extracted from the uploaded file.
	ContentSeparator = "\n\n--- 文件内容 ---\n\n"

	// feedback stored instead of an AI grading
	NoContentFeedback         = "未提供文本内容或文件，无法进行AI批改"
	OracleUnavailableFeedback = "AI批改服务暂时不可用"
	TrendUnavailableMessage   = "AI分析服务暂时不可用"

	// MinTrendPoints is the number of grades needed to analyze a trend.
	MinTrendPoints               = 2
	InsufficientTrendDataMessage = "数据不足，无法进行趋势分析"

	// RecentGradesLimit is the number of graded submissions per class reported in grade trends.
	RecentGradesLimit = 5
)

// AllowedExtensions lists the file types accepted with a submission.
var AllowedExtensions = []string{"pdf", "doc", "docx"}

type Submission struct {
	ID           int64       `json:"id" db:"id"`
	AssignmentID int64       `json:"assignment_id" db:"assignment_id"`
	StudentID    int64       `json:"student_id" db:"student_id"`
	Content      string      `json:"content" db:"content"`
	FileURL      null.String `json:"file_url" db:"file_url"`
	SubmittedAt  time.Time   `json:"submitted_at" db:"submitted_at"` // UTC
	AIScore      null.Int    `json:"ai_score" db:"ai_score"`
	AIFeedback   null.String `json:"ai_feedback" db:"ai_feedback"`
	Score        null.Int    `json:"score" db:"score"`
	Feedback     null.String `json:"feedback" db:"feedback"`
	GradedAt     null.Time   `json:"graded_at" db:"graded_at"` // UTC
}

// Grade is the teacher's score when set, the AI score otherwise. The two are never averaged.
func (s Submission) Grade() null.Int {
	if s.Score.Valid {
		return s.Score
	}
	return s.AIScore
}

// TeacherSubmission is a Submission as listed to the assignment's teacher.
type TeacherSubmission struct {
	Submission
	Username string `json:"username" db:"username"`
}

// StudentSubmission is a Submission as listed in the student's history.
type StudentSubmission struct {
	Submission
	Title string `json:"title" db:"title"`
}

type ScoreStatistics struct {
	AverageScore null.Float64 `json:"average_score"`
	MaxScore     null.Int     `json:"max_score"`
	MinScore     null.Int     `json:"min_score"`
	GradedCount  int          `json:"graded_count"`
}

type Statistics struct {
	TotalStudents     int             `json:"total_students"`
	SubmittedCount    int             `json:"submitted_count"`
	NotSubmittedCount int             `json:"not_submitted_count"`
	ScoreStatistics   ScoreStatistics `json:"score_statistics"`
}

type AssignmentSubmissions struct {
	Submissions []TeacherSubmission `json:"submissions"`
	Statistics  Statistics          `json:"statistics"`
}

// TrendPoint is one graded submission in a grade trend.
type TrendPoint struct {
	ID              int64     `json:"id" db:"id"`
	SubmittedAt     time.Time `json:"submitted_at" db:"submitted_at" validate:"required"`
	Grade           int       `json:"grade" db:"grade" validate:"min=0,max=100"`
	AssignmentTitle string    `json:"assignment_title" db:"assignment_title"`
}

type ClassTrend struct {
	ClassID     int64        `json:"class_id"`
	ClassName   string       `json:"class_name"`
	ClassCode   string       `json:"class_code"`
	Submissions []TrendPoint `json:"submissions"`
}

// FileUpload is a file attached to a submission.
type FileUpload struct {
	Name   string
	Reader io.Reader
}

type NewSubmission struct {
	Content string
	File    *FileUpload
}

// NewGrade is the teacher's grading of a Submission.
type NewGrade struct {
	Score    *int   `json:"score" validate:"required,min=0,max=100"`
	Feedback string `json:"feedback" validate:"max=10000"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.Feedback = core.CleanString(ng.Feedback)
	return validate.Struct(ng)
}

// TrendAnalysisRequest asks for the analysis of a class' grade trend.
type TrendAnalysisRequest struct {
	ClassName string       `json:"class_name" validate:"required,notblank"`
	GradeData []TrendPoint `json:"grade_data" validate:"required,min=1,dive"`
}

func (tr *TrendAnalysisRequest) Validate(validate *validator.Validate) error {
	tr.ClassName = core.CleanString(tr.ClassName)
	return validate.Struct(tr)
}

// FileExtension returns the lowered extension of name, without the dot.
func FileExtension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

func IsAllowedExtension(ext string) bool {
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// CombineContent merges the typed answer with the extracted file text.
// Either part may be empty; the result is empty when both are.
func CombineContent(text, fileText string) string {
	text = strings.TrimSpace(text)
	fileText = strings.TrimSpace(fileText)
	switch {
	case text == "":
		return fileText
	case fileText == "":
		return text
	default:
		return text + ContentSeparator + fileText
	}
}

// ComputeStatistics summarizes the submissions of an assignment whose class has totalStudents.
// Only teacher scores are taken into account.
func ComputeStatistics(subs []TeacherSubmission, totalStudents int) Statistics {
	stats := Statistics{
		TotalStudents:  totalStudents,
		SubmittedCount: len(subs),
	}
	if notSubmitted := totalStudents - len(subs); notSubmitted > 0 {
		stats.NotSubmittedCount = notSubmitted
	}

	var sum, count int
	var highest, lowest int
	for _, sub := range subs {
		if !sub.Score.Valid {
			continue
		}
		score := sub.Score.Int
		if count == 0 || score > highest {
			highest = score
		}
		if count == 0 || score < lowest {
			lowest = score
		}
		sum += score
		count++
	}
	stats.ScoreStatistics.GradedCount = count
	if count > 0 {
		avg := math.Round(float64(sum)/float64(count)*100) / 100
		stats.ScoreStatistics.AverageScore = null.Float64From(avg)
		stats.ScoreStatistics.MaxScore = null.IntFrom(highest)
		stats.ScoreStatistics.MinScore = null.IntFrom(lowest)
	}
	return stats
}
