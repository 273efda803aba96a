package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/ocwc/oeweek2022/core"
	"github.com/ocwc/oeweek2022/core/category"
	"github.com/ocwc/oeweek2022/core/favorites"
	"github.com/ocwc/oeweek2022/core/mailing"
	"github.com/ocwc/oeweek2022/core/page"
	"github.com/ocwc/oeweek2022/core/resource"
	"github.com/ocwc/oeweek2022/core/user"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		Resources      *resource.Service
		Users          user.ServiceInterface
		Pages          *page.Service
		Categories     *category.Service
		Templates      *mailing.Templates
		Favorites      *favorites.Codec
		Places         resource.Places
		DisableReqLogs bool
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *Auth
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ http.Handler = (*Server)(nil)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		auth:     NewAuth(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	// API routes have no trailing slash, HTML pages have one
	s.app.Pre(middleware.RemoveTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		Skipper: func(ctx echo.Context) bool { return !isAPIPath(ctx.Request().URL.Path) },
	}))
	s.app.Pre(middleware.AddTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		Skipper: func(ctx echo.Context) bool {
			path := ctx.Request().URL.Path
			return isAPIPath(path) || (conf.MediaURL != "" && strings.HasPrefix(path, conf.MediaURL))
		},
	}))
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(timezoneMiddleware)

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug
	s.app.Renderer = newRenderer(s.deps.Resources)

	if conf.MediaRoot != "" {
		s.app.Static(strings.TrimSuffix(conf.MediaURL, "/"), conf.MediaRoot)
	}

	jwt := middleware.JWTWithConfig(s.auth.config)

	api := s.app.Group("/api")
	registerUserAPI(api, jwt, s.auth, s.deps.Users, s.deps.Validate)
	registerResourceAPI(api, s.app.Group("/export"), jwt, s.deps.Resources, s.deps.Users)
	registerContentAPI(api, jwt, s.deps.Pages, s.deps.Categories, s.deps.Templates)

	registerWebPages(s.app, s.deps.Resources, s.deps.Pages, s.deps.Places, s.deps.Translator)
	registerFavorites(s.app, s.deps.Resources, s.deps.Favorites)
}

func isAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/export/")
}

// Start listens until the server is shut down. Listening errors are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

// ShutdownSignal receives the OS interrupts, and the shutdown requests of the handlers.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	signal.Stop(s.shutdown)
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
