package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core/assessment"
	"github.com/trezcool/kipimo/core/attempt"
)

type (
	assessmentApi struct {
		svc        *assessment.Service
		attemptSvc *attempt.Service
		validate   *validator.Validate
	}

	// AnswersRequest carries answers keyed by question ID.
	AnswersRequest struct {
		Answers attempt.Answers `json:"answers"`
	}

	SubmitRequest struct {
		Answers attempt.Answers `json:"answers"`
		Reason  string          `json:"reason" validate:"omitempty,oneof=manual expired"`
	}
)

func registerAssessmentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *assessment.Service,
	attemptSvc *attempt.Service,
	validate *validator.Validate,
) {
	api := assessmentApi{svc: svc, attemptSvc: attemptSvc, validate: validate}

	ag := g.Group("/assessments", jwt)
	ag.POST("", api.create, teacherMiddleware())
	ag.GET("", api.query)
	ag.GET("/:id", api.retrieve)
	ag.POST("/:id/sessions", api.startSession, studentMiddleware())
	ag.POST("/:id/attempts", api.submitOneShot, studentMiddleware())
}

func (api *assessmentApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data assessment.NewAssessment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssessment")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating assessment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

// query lists assessments. Students only see published ones.
func (api *assessmentApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var filter assessment.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to assessment.QueryFilter")
	}
	if v := ctx.QueryParam("is_published"); v != "" {
		published, pErr := strconv.ParseBool(v)
		if pErr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "is_published: invalid boolean")
		}
		filter.IsPublished = &published
	}
	if !claims.IsTeacher() {
		published := true
		filter.IsPublished = &published
	}

	as, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying assessments")
	}
	return ctx.JSON(http.StatusOK, as)
}

func (api *assessmentApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	a, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting assessment")
	}
	if !claims.IsTeacher() {
		if !a.IsPublished {
			return errHttpNotFound
		}
		a = a.WithoutAnswers()
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assessmentApi) startSession(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	sess, err := api.attemptSvc.StartSession(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "starting session")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

// submitOneShot starts (or resumes) the student's session and submits it at once.
func (api *assessmentApi) submitOneShot(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data AnswersRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AnswersRequest")
	}

	sess, err := api.attemptSvc.StartSession(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "starting session")
	}
	sub, err := api.attemptSvc.Submit(ctx.Request().Context(), attempt.SubmitRequest{
		SessionID: sess.ID,
		StudentID: claims.Subject,
		Answers:   data.Answers,
		Reason:    attempt.ReasonManual,
	})
	if err != nil {
		return errors.Wrap(err, "submitting attempt")
	}
	return ctx.JSON(http.StatusCreated, sub)
}
