package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/ocwc/oeweek2022/apps/api/echo"
	"github.com/ocwc/oeweek2022/core"
	"github.com/ocwc/oeweek2022/core/category"
	"github.com/ocwc/oeweek2022/core/favorites"
	"github.com/ocwc/oeweek2022/core/geo"
	"github.com/ocwc/oeweek2022/core/mailing"
	"github.com/ocwc/oeweek2022/core/page"
	"github.com/ocwc/oeweek2022/core/resource"
	"github.com/ocwc/oeweek2022/core/screenshot"
	"github.com/ocwc/oeweek2022/core/user"
	emailsvc "github.com/ocwc/oeweek2022/services/email"
	logsvc "github.com/ocwc/oeweek2022/services/logger"
	shotsvc "github.com/ocwc/oeweek2022/services/screenshot"
	"github.com/ocwc/oeweek2022/services/tasks"
	"github.com/ocwc/oeweek2022/storage/database"
	sqlxrepos "github.com/ocwc/oeweek2022/storage/database/sqlx"
	"github.com/ocwc/oeweek2022/storage/media"
)

const backgroundTasks = 4

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	zl := logsvc.NewZapLogger(conf)
	logger := logsvc.NewRollbarLogger(zl.Named("api"), conf)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(zl.Named("db"), conf)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

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

	codec, err := favorites.NewCodec(conf.FavoritesKey, conf.Week.MaxFavorites)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up favorites: %v", err), err)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)
	resource.RegisterValidators(validate, translator, geo.Default())
	page.RegisterValidators(validate, translator)

	// set up repos & services
	mailRepo := sqlxrepos.NewMailingRepository(db)
	queue := mailing.NewQueue(mailRepo, mailSvc, logger, conf)
	templates := mailing.NewTemplates(mailRepo)
	users := user.NewService(sqlxrepos.NewUserRepository(db), queue, logger, conf)
	resRepo := sqlxrepos.NewResourceRepository(db)
	images := media.NewFileStore(conf)
	runner := tasks.NewRunner(backgroundTasks, logger)
	resources := resource.NewService(resource.ServiceDeps{
		Repo:        resRepo,
		Mailer:      queue,
		Templates:   templates,
		Accounts:    users,
		Tasks:       runner,
		Screenshots: screenshot.NewService(resRepo, capturer, images, logger, conf),
		Locator:     geo.NewLocator(resRepo, geo.Default(), logger),
		Images:      images,
		Validate:    validate,
		Logger:      logger,
		Conf:        conf,
	})

	// =========================================================================
	// Start Mailing Worker

	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		mailing.NewWorker(queue, conf.Mailing.FlushInterval, logger).Run(workerCtx)
	}()
	defer func() {
		stopWorker()
		<-workerDone
	}()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewInt("edition").Set(int64(conf.Week.Year))

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		Resources:  resources,
		Users:      users,
		Pages:      page.NewService(sqlxrepos.NewPageRepository(db), validate),
		Categories: category.NewService(sqlxrepos.NewCategoryRepository(db)),
		Templates:  templates,
		Favorites:  codec,
		Places:     geo.Default(),
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}

	// let pending screenshots and geocoding finish
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout+5*time.Second)
	defer cancel()
	if err = runner.Shutdown(ctx); err != nil {
		logger.Warn("background tasks interrupted", err)
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
