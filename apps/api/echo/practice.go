package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core/practice"
)

type practiceApi struct {
	svc *practice.Service
}

func registerPracticeAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *practice.Service) {
	api := practiceApi{svc: svc}
	g.POST("/practice", api.generate, jwt)
}

func (api *practiceApi) generate(ctx echo.Context) error {
	var data practice.Request
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to practice.Request")
	}
	set, err := api.svc.Generate(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "generating practice set")
	}
	return ctx.JSON(http.StatusOK, set)
}
