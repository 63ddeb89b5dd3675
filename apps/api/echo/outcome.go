package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core/outcome"
)

type outcomeApi struct {
	svc      *outcome.Service
	validate *validator.Validate
}

func registerOutcomeAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *outcome.Service, validate *validator.Validate) {
	api := outcomeApi{svc: svc, validate: validate}

	sg := g.Group("/subjects", jwt)
	sg.POST("", api.createSubject, teacherMiddleware())
	sg.GET("", api.querySubjects)
	sg.GET("/:id", api.retrieveSubject)
	sg.POST("/:id/outcomes", api.createOutcome, teacherMiddleware())
	sg.GET("/:id/outcomes", api.queryOutcomes)
}

func (api *outcomeApi) createSubject(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data outcome.NewSubject
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	subj, err := api.svc.CreateSubject(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, subj)
}

// querySubjects lists a teacher's own subjects; students see them all.
func (api *outcomeApi) querySubjects(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var filter outcome.SubjectFilter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to SubjectFilter")
	}
	if claims.IsTeacher() {
		filter.TeacherID = claims.Subject
	}

	subjects, err := api.svc.QuerySubjects(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *outcomeApi) retrieveSubject(ctx echo.Context) error {
	subj, err := api.svc.GetSubject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting subject")
	}
	return ctx.JSON(http.StatusOK, subj)
}

func (api *outcomeApi) createOutcome(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	subj, err := api.svc.GetSubject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting subject")
	}
	if subj.TeacherID != claims.Subject {
		return errHttpForbidden
	}

	var data outcome.NewOutcome
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOutcome")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	o, err := api.svc.CreateOutcome(ctx.Request().Context(), subj.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating outcome")
	}
	return ctx.JSON(http.StatusCreated, o)
}

func (api *outcomeApi) queryOutcomes(ctx echo.Context) error {
	subj, err := api.svc.GetSubject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting subject")
	}
	outcomes, err := api.svc.Query(ctx.Request().Context(), outcome.OutcomeFilter{SubjectID: subj.ID})
	if err != nil {
		return errors.Wrap(err, "querying outcomes")
	}
	return ctx.JSON(http.StatusOK, outcomes)
}
