package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/kipimo/apps/api/echo"
	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/assessment"
	"github.com/trezcool/kipimo/core/attempt"
	"github.com/trezcool/kipimo/core/outcome"
	"github.com/trezcool/kipimo/core/practice"
	"github.com/trezcool/kipimo/core/proficiency"
	"github.com/trezcool/kipimo/core/profile"
	"github.com/trezcool/kipimo/core/report"
	emailsvc "github.com/trezcool/kipimo/services/email"
	"github.com/trezcool/kipimo/services/llm"
	logsvc "github.com/trezcool/kipimo/services/logger"
	"github.com/trezcool/kipimo/services/scheduler"
	"github.com/trezcool/kipimo/storage/database"
	sqlxrepos "github.com/trezcool/kipimo/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	profiles := sqlxrepos.NewProfileRepository(db)
	outcomes := sqlxrepos.NewOutcomeRepository(db)
	assessments := sqlxrepos.NewAssessmentRepository(db)
	attempts := sqlxrepos.NewAttemptRepository(db)
	records := sqlxrepos.NewProficiencyRepository(db)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	provider, err := llm.NewProvider(context.Background(), conf.LLM)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up LLM provider: %v", err), err)
	}

	validate, translator := core.NewValidator()
	profile.RegisterValidators(validate, translator)
	assessment.RegisterValidators(validate, translator)

	profSvc := proficiency.NewService(conf, records, profiles, outcomes, mailSvc, logger)
	attemptSvc := attempt.NewService(conf, attempts, assessments, profSvc, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("llm").Set(provider.ModelID())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start background jobs

	sched, err := scheduler.New(conf, attemptSvc, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up scheduler: %v", err), err)
	}
	sched.Start()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:           conf,
			Logger:         logger,
			Validate:       validate,
			Translator:     translator,
			ProfileSvc:     profile.NewService(profiles),
			OutcomeSvc:     outcome.NewService(outcomes),
			AssessmentSvc:  assessment.NewService(assessments, outcomes),
			AttemptSvc:     attemptSvc,
			ProficiencySvc: profSvc,
			PracticeSvc:    practice.NewService(conf, provider, validate, logger),
			ReportSvc:      report.NewService(sqlxrepos.NewReportRepository(db), profiles, attempts, assessments, records, outcomes),
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}

		// let running jobs finish before the DB goes away
		if err = sched.Stop(ctx); err != nil {
			logger.Error("could not stop scheduler", err)
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(context.Background(), db.DB); err != nil {
		return nil, err
	}
	return db, nil
}
