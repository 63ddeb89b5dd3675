package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core/report"
)

type (
	reportApi struct {
		svc      *report.Service
		validate *validator.Validate
	}

	ReportRequest struct {
		StudentID string `json:"studentId" validate:"required"`
	}

	ReportResponse struct {
		Success bool          `json:"success"`
		Data    report.Report `json:"data"`
	}
)

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *report.Service, validate *validator.Validate) {
	api := reportApi{svc: svc, validate: validate}

	g.POST("/reports", api.generate, jwt)
	g.GET("/students/:id/reports", api.query, jwt, selfOrTeacherMiddleware("id"))
}

// generate builds and archives a report. Students may only report on themselves.
func (api *reportApi) generate(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data ReportRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReportRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}
	if !claims.IsTeacher() && data.StudentID != claims.Subject {
		return errHttpForbidden
	}

	rep, err := api.svc.Generate(ctx.Request().Context(), data.StudentID, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "generating report")
	}
	return ctx.JSON(http.StatusCreated, ReportResponse{Success: true, Data: rep})
}

func (api *reportApi) query(ctx echo.Context) error {
	reps, err := api.svc.Query(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying reports")
	}
	return ctx.JSON(http.StatusOK, reps)
}
