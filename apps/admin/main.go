package main

import (
	"log"
	"os"

	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/attempt"
	"github.com/trezcool/kipimo/core/proficiency"
	emailsvc "github.com/trezcool/kipimo/services/email"
	logsvc "github.com/trezcool/kipimo/services/logger"
	"github.com/trezcool/kipimo/storage/database"
	sqlxrepos "github.com/trezcool/kipimo/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("creating database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}

	profiles := sqlxrepos.NewProfileRepository(db)
	outcomes := sqlxrepos.NewOutcomeRepository(db)
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	profSvc := proficiency.NewService(conf, sqlxrepos.NewProficiencyRepository(db), profiles, outcomes, mailSvc, logger)

	// start CLI
	cli := commandLine{
		conf:     conf,
		db:       db.DB,
		profiles: profiles,
		jobs:     attempt.NewService(conf, sqlxrepos.NewAttemptRepository(db), sqlxrepos.NewAssessmentRepository(db), profSvc, logger),
		out:      os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("command failed", err, map[string]interface{}{"args": os.Args[1:]})
		}
		os.Exit(1)
	}
}
