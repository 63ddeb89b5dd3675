package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core/proficiency"
)

type proficiencyApi struct {
	svc *proficiency.Service
}

func registerProficiencyAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *proficiency.Service) {
	api := proficiencyApi{svc: svc}

	sg := g.Group("/students/:id", jwt, selfOrTeacherMiddleware("id"))
	sg.GET("/proficiency", api.query)
	sg.GET("/insights", api.insights)
}

func (api *proficiencyApi) query(ctx echo.Context) error {
	filter := proficiency.QueryFilter{
		StudentID: ctx.Param("id"),
		OutcomeID: ctx.QueryParam("outcome_id"),
		Level:     ctx.QueryParam("level"),
	}
	recs, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying proficiency records")
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *proficiencyApi) insights(ctx echo.Context) error {
	ins, err := api.svc.Insights(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building insights")
	}
	return ctx.JSON(http.StatusOK, ins)
}
