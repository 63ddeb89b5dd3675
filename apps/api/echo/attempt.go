package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core/attempt"
)

type attemptApi struct {
	svc      *attempt.Service
	validate *validator.Validate
}

func registerAttemptAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *attempt.Service, validate *validator.Validate) {
	api := attemptApi{svc: svc, validate: validate}

	sg := g.Group("/sessions", jwt, studentMiddleware())
	sg.GET("/:id", api.retrieveSession)
	sg.PUT("/:id/answers", api.saveDraft)
	sg.POST("/:id/submit", api.submit)

	ag := g.Group("/attempts", jwt)
	ag.GET("", api.query)
	ag.GET("/:id", api.retrieve)
}

func (api *attemptApi) retrieveSession(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	sess, err := api.svc.GetSession(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *attemptApi) saveDraft(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data AnswersRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AnswersRequest")
	}

	sess, err := api.svc.SaveDraft(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data.Answers)
	if err != nil {
		return errors.Wrap(err, "saving draft")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *attemptApi) submit(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data SubmitRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), attempt.SubmitRequest{
		SessionID: ctx.Param("id"),
		StudentID: claims.Subject,
		Answers:   data.Answers,
		Reason:    data.Reason,
	})
	if err != nil {
		return errors.Wrap(err, "submitting attempt")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

// query lists a student's own attempts; teachers may filter by student and assessment.
func (api *attemptApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var filter attempt.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to attempt.QueryFilter")
	}
	if filter.From, err = bindTimeParam(ctx, "from"); err != nil {
		return err
	}
	if filter.To, err = bindTimeParam(ctx, "to"); err != nil {
		return err
	}
	if !claims.IsTeacher() {
		filter.StudentID = claims.Subject
	}
	var ord Ordering
	ord.Bind(ctx)

	atts, err := api.svc.Query(ctx.Request().Context(), filter, ord.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying attempts")
	}
	return ctx.JSON(http.StatusOK, atts)
}

func (api *attemptApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	att, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting attempt")
	}
	if !claims.IsTeacher() && att.StudentID != claims.Subject {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, att)
}
