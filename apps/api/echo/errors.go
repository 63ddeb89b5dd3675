package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/assessment"
	"github.com/trezcool/kipimo/core/attempt"
	"github.com/trezcool/kipimo/core/grading"
	"github.com/trezcool/kipimo/core/outcome"
	"github.com/trezcool/kipimo/core/practice"
	"github.com/trezcool/kipimo/core/proficiency"
	"github.com/trezcool/kipimo/core/profile"
	"github.com/trezcool/kipimo/core/report"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound  = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// domainErrorCodes maps domain sentinel errors to their HTTP status.
var domainErrorCodes = map[error]int{
	profile.ErrNotFound:         http.StatusNotFound,
	outcome.ErrSubjectNotFound:  http.StatusNotFound,
	outcome.ErrNotFound:         http.StatusNotFound,
	assessment.ErrNotFound:      http.StatusNotFound,
	attempt.ErrNotFound:         http.StatusNotFound,
	attempt.ErrSessionNotFound:  http.StatusNotFound,
	proficiency.ErrNotFound:     http.StatusNotFound,
	report.ErrNotFound:          http.StatusNotFound,
	profile.ErrEmailExists:      http.StatusConflict,
	attempt.ErrAlreadySubmitted: http.StatusConflict,
	attempt.ErrSessionExpired:   http.StatusConflict,
	attempt.ErrDraftChanged:     http.StatusConflict,
	assessment.ErrNotPublished:  http.StatusForbidden,
	assessment.ErrNotStarted:    http.StatusForbidden,
	assessment.ErrEnded:         http.StatusForbidden,
	practice.ErrRateLimited:     http.StatusTooManyRequests,
	practice.ErrQuotaExhausted:  http.StatusPaymentRequired,
	practice.ErrMalformedOutput: http.StatusBadGateway,
	practice.ErrUnavailable:     http.StatusServiceUnavailable,
	attempt.ErrSubmissionFailed: http.StatusInternalServerError,
}

// domainErrorCode compares by identity: a map lookup would panic on errors of non-comparable types.
func domainErrorCode(err error) (int, bool) {
	for target, code := range domainErrorCodes {
		if err == target {
			return code, true
		}
	}
	return 0, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *grading.IncompleteSubmissionError:
			code = http.StatusBadRequest
			message = echo.Map{"error": "incomplete submission", "missing": origErr.Missing}
		default:
			domainCode, isDomainErr := domainErrorCode(cause)
			if isDomainErr && domainCode < http.StatusInternalServerError {
				code = domainCode
				message = cause.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(code)
			if isDomainErr {
				code = domainCode
				msg = cause.Error()
			}
			message = msg

			var principal core.Principal
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				principal = claims.Principal()
			}
			logger.Error(msg, errors.Wrap(err, msg), principal)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			if _, ok := message.(echo.Map); !ok {
				message = err.Error()
			}
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
