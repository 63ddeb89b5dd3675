package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/assessment"
	"github.com/trezcool/kipimo/core/attempt"
	"github.com/trezcool/kipimo/core/outcome"
	"github.com/trezcool/kipimo/core/practice"
	"github.com/trezcool/kipimo/core/proficiency"
	"github.com/trezcool/kipimo/core/profile"
	"github.com/trezcool/kipimo/core/report"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool

		ProfileSvc     *profile.Service
		OutcomeSvc     *outcome.Service
		AssessmentSvc  *assessment.Service
		AttemptSvc     *attempt.Service
		ProficiencySvc *proficiency.Service
		PracticeSvc    *practice.Service
		ReportSvc      *report.Service
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(ctx context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))

	registerProfileAPI(v1, jwt, s.deps.ProfileSvc)
	registerOutcomeAPI(v1, jwt, s.deps.OutcomeSvc, s.deps.Validate)
	registerAssessmentAPI(v1, jwt, s.deps.AssessmentSvc, s.deps.AttemptSvc, s.deps.Validate)
	registerAttemptAPI(v1, jwt, s.deps.AttemptSvc, s.deps.Validate)
	registerProficiencyAPI(v1, jwt, s.deps.ProficiencySvc)
	registerPracticeAPI(v1, jwt, s.deps.PracticeSvc)
	registerReportAPI(v1, jwt, s.deps.ReportSvc, s.deps.Validate)
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Kipimo API!")
}
