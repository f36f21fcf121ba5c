package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core/assignment"
	"github.com/trezcool/kazi/core/classroom"
	"github.com/trezcool/kazi/core/submission"
)

type teacherApi struct {
	classes     *classroom.Service
	assignments *assignment.Service
	submissions *submission.Service
	validate    *validator.Validate
}

func registerTeacherAPI(g *echo.Group, api *teacherApi) {
	cg := g.Group("/classes")
	cg.POST("", api.createClass)
	cg.GET("", api.classQuery)
	cg.DELETE("/:id", api.destroyClass)
	cg.GET("/:id/students", api.studentQuery)
	cg.DELETE("/:id/students/:student_id", api.removeStudent)

	ag := g.Group("/assignments")
	ag.POST("", api.createAssignment)
	ag.GET("", api.assignmentQuery)
	ag.DELETE("/:id", api.destroyAssignment)
	ag.GET("/:id/submissions", api.submissionQuery)

	g.POST("/submissions/:id/grade", api.gradeSubmission)
}

// Classes

func (api *teacherApi) createClass(ctx echo.Context) error {
	p, err := contextPrincipal(ctx)
	if err != nil {
		return err
	}
	var data classroom.NewClass
	if err = bind(ctx, api.validate, &data, "NewClass"); err != nil {
		return err
	}

	cls, err := api.classes.Create(ctx.Request().Context(), p.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *teacherApi) classQuery(ctx echo.Context) error {
	p, err := contextPrincipal(ctx)
	if err != nil {
		return err
	}
	classes, err := api.classes.ListForTeacher(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []classroom.TeacherClass{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *teacherApi) destroyClass(ctx echo.Context) error {
	p, err := contextPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.classes.Delete(ctx.Request().Context(), p.ID, id); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *teacherApi) studentQuery(ctx echo.Context) error {
	p, err := contextPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	students, err := api.classes.Students(ctx.Request().Context(), p.ID, id)
	if err != nil {
		return errors.Wrap(err, "querying class students")
	}
	if students == nil {
		students = []classroom.EnrolledStudent{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *teacherApi) removeStudent(ctx echo.Context) error {
	p, err := contextPrincipal(ctx)
	if err != nil {
		return err
	}
	classID, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	studentID, err := idParam(ctx, "student_id")
	if err != nil {
		return err
	}
	if err = api.classes.RemoveStudent(ctx.Request().Context(), p.ID, classID, studentID); err != nil {
		return errors.Wrap(err, "removing student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Assignments

func (api *teacherApi) createAssignment(ctx echo.Context) error {
	p, err := contextPrincipal(ctx)
	if err != nil {
		return err
	}
	var data assignment.NewAssignment
	if err = bind(ctx, api.validate, &data, "NewAssignment"); err != nil {
		return err
	}

	asg, err := api.assignments.Create(ctx.Request().Context(), p.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, asg)
}

func (api *teacherApi) assignmentQuery(ctx echo.Context) error {
	p, err := contextPrincipal(ctx)
	if err != nil {
		return err
	}
	asgs, err := api.assignments.ListForTeacher(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if asgs == nil {
		asgs = []assignment.Assignment{}
	}
	return ctx.JSON(http.StatusOK, asgs)
}

func (api *teacherApi) destroyAssignment(ctx echo.Context) error {
	p, err := contextPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.assignments.Delete(ctx.Request().Context(), p.ID, id); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Submissions

func (api *teacherApi) submissionQuery(ctx echo.Context) error {
	p, err := contextPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	subs, err := api.submissions.ForAssignment(ctx.Request().Context(), p.ID, id)
	if err != nil {
		return errors.Wrap(err, "querying assignment submissions")
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *teacherApi) gradeSubmission(ctx echo.Context) error {
	p, err := contextPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data submission.NewGrade
	if err = bind(ctx, api.validate, &data, "NewGrade"); err != nil {
		return err
	}

	sub, err := api.submissions.Grade(ctx.Request().Context(), p.ID, id, data)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}
