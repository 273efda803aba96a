package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"

	"github.com/ocwc/oeweek2022/core"
	"github.com/ocwc/oeweek2022/core/geo"
	"github.com/ocwc/oeweek2022/core/mailing"
	"github.com/ocwc/oeweek2022/core/resource"
	"github.com/ocwc/oeweek2022/core/screenshot"
	"github.com/ocwc/oeweek2022/core/user"
	emailsvc "github.com/ocwc/oeweek2022/services/email"
	logsvc "github.com/ocwc/oeweek2022/services/logger"
	shotsvc "github.com/ocwc/oeweek2022/services/screenshot"
	"github.com/ocwc/oeweek2022/storage/database"
	sqlxrepos "github.com/ocwc/oeweek2022/storage/database/sqlx"
	"github.com/ocwc/oeweek2022/storage/media"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(logsvc.NewZapLogger(conf).Named("admin"), conf)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf)
	}
	var capturer screenshot.Capturer
	if conf.Screenshots.WebshrinkerKey != "" {
		capturer = shotsvc.NewWebshrinkerCapturer(conf)
	} else {
		capturer = shotsvc.NewRodCapturer(conf)
	}

	mailRepo := sqlxrepos.NewMailingRepository(db)
	queue := mailing.NewQueue(mailRepo, mailSvc, logger, conf)
	usrRepo := sqlxrepos.NewUserRepository(db)
	resRepo := sqlxrepos.NewResourceRepository(db)
	images := media.NewFileStore(conf)
	locator := geo.NewLocator(resRepo, geo.Default(), logger)
	resources := resource.NewService(resource.ServiceDeps{
		Repo:      resRepo,
		Mailer:    queue,
		Templates: mailing.NewTemplates(mailRepo),
		Accounts:  user.NewService(usrRepo, queue, logger, conf),
		Locator:   locator,
		Images:    images,
		Validate:  validator.New(),
		Logger:    logger,
		Conf:      conf,
	})

	cli := commandLine{
		conf:      conf,
		db:        db,
		usrRepo:   usrRepo,
		queue:     queue,
		shots:     screenshot.NewService(resRepo, capturer, images, logger, conf),
		notifier:  resources,
		locations: locator,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return cli.run(ctx, os.Args[1:], os.Stdout)
}
