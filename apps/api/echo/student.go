package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/assignment"
	"github.com/trezcool/kazi/core/classroom"
	"github.com/trezcool/kazi/core/submission"
	"github.com/trezcool/kazi/services/metrics"
)

type studentApi struct {
	classes     *classroom.Service
	assignments *assignment.Service
	submissions *submission.Service
	validate    *validator.Validate
}

func registerStudentAPI(g *echo.Group, api *studentApi) {
	g.POST("/classes/join", api.joinClass)
	g.GET("/classes", api.classQuery)

	g.GET("/assignments", api.assignmentQuery)
	g.POST("/assignments/:id/submit", api.submit)
	g.GET("/submissions", api.submissionQuery)

	g.GET("/grades/trend", api.gradeTrend)
	g.POST("/grades/trend/analyze", api.analyzeTrend)
}

// Classes

func (api *studentApi) joinClass(ctx echo.Context) error {
	p, err := contextPrincipal(ctx)
	if err != nil {
		return err
	}
	var data JoinClassRequest
	if err = bind(ctx, api.validate, &data, "JoinClassRequest"); err != nil {
		return err
	}

	cls, err := api.classes.Join(ctx.Request().Context(), p.ID, data.Code)
	if err != nil {
		return errors.Wrap(err, "joining class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *studentApi) classQuery(ctx echo.Context) error {
	p, err := contextPrincipal(ctx)
	if err != nil {
		return err
	}
	classes, err := api.classes.ListForStudent(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "querying joined classes")
	}
	if classes == nil {
		classes = []classroom.JoinedClass{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

// Assignments

func (api *studentApi) assignmentQuery(ctx echo.Context) error {
	p, err := contextPrincipal(ctx)
	if err != nil {
		return err
	}
	asgs, err := api.assignments.ListForStudent(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if asgs == nil {
		asgs = []assignment.StudentAssignment{}
	}
	return ctx.JSON(http.StatusOK, asgs)
}

// submit expects a multipart form with an optional "content" text and an optional "file".
func (api *studentApi) submit(ctx echo.Context) error {
	p, err := contextPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}

	ns := submission.NewSubmission{Content: ctx.FormValue("content")}
	fh, err := ctx.FormFile("file")
	switch {
	case err == nil:
		f, err := fh.Open()
		if err != nil {
			return errors.Wrap(err, "opening uploaded file")
		}
		defer f.Close()
		ns.File = &submission.FileUpload{Name: fh.Filename, Reader: f}
	case err != http.ErrMissingFile && err != http.ErrNotMultipart:
		return core.NewValidationError(errors.Wrap(err, "reading uploaded file"))
	}

	sub, err := api.submissions.Submit(ctx.Request().Context(), p.ID, id, ns)
	if err != nil {
		return errors.Wrap(err, "submitting")
	}
	metrics.SubmissionsTotal.WithLabelValues(gradingOutcome(sub)).Inc()

	return ctx.JSON(http.StatusOK, SubmitResponse{
		ID:         sub.ID,
		FileURL:    sub.FileURL,
		AIScore:    sub.AIScore,
		AIFeedback: sub.AIFeedback,
	})
}

func gradingOutcome(sub submission.Submission) string {
	switch {
	case sub.AIScore.Valid:
		return metrics.OutcomeOK
	case sub.AIFeedback.String == submission.NoContentFeedback,
		sub.AIFeedback.String == submission.OracleUnavailableFeedback:
		return metrics.OutcomeSkipped
	default:
		return metrics.OutcomeFailed
	}
}

func (api *studentApi) submissionQuery(ctx echo.Context) error {
	p, err := contextPrincipal(ctx)
	if err != nil {
		return err
	}
	subs, err := api.submissions.History(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []submission.StudentSubmission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

// Grades

func (api *studentApi) gradeTrend(ctx echo.Context) error {
	p, err := contextPrincipal(ctx)
	if err != nil {
		return err
	}
	trends, err := api.submissions.Trend(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "computing grade trends")
	}
	return ctx.JSON(http.StatusOK, trends)
}

func (api *studentApi) analyzeTrend(ctx echo.Context) error {
	var data submission.TrendAnalysisRequest
	if err := bind(ctx, api.validate, &data, "TrendAnalysisRequest"); err != nil {
		return err
	}
	analysis, ok := api.submissions.AnalyzeTrend(ctx.Request().Context(), data)
	return ctx.JSON(http.StatusOK, AnalysisResponse{Success: ok, Analysis: analysis})
}

type (
	JoinClassRequest struct {
		Code string `json:"code" validate:"required,notblank"`
	}

	SubmitResponse struct {
		ID         int64       `json:"id"`
		FileURL    null.String `json:"file_url"`
		AIScore    null.Int    `json:"ai_score"`
		AIFeedback null.String `json:"ai_feedback"`
	}

	AnalysisResponse struct {
		Success  bool   `json:"success"`
		Analysis string `json:"analysis"`
	}
)

func (jr *JoinClassRequest) Validate(validate *validator.Validate) error {
	jr.Code = classroom.NormalizeCode(jr.Code)
	return validate.Struct(jr)
}
