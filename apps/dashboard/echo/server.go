// Package echodash is the web dashboard: it renders the students, homework and assignment
// views of one of the configured school-records backends.
package echodash

import (
	"context"
	"net/http"
	"os"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolboard/core"
	"github.com/trezcool/schoolboard/core/school"
	"github.com/trezcool/schoolboard/storage/sessions"
)

type (
	Deps struct {
		Conf           *core.Config
		Logger         core.Logger
		Backends       map[string]school.Backend
		Sessions       *sessions.Store
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(context.Context) error
		Close() error
	}

	server struct {
		addr     string
		deps     *Deps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

// NewServer returns the dashboard server. `shutdown` receives OS signals (and is signalled
// on core shutdown errors); a new channel is made if nil.
func NewServer(addr string, shutdown chan os.Signal, deps *Deps) (Server, error) {
	if deps == nil {
		return nil, errors.New("server dependencies are required")
	}
	err := vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Conf, "Conf"),
		vala.IsNotNil(deps.Logger, "Logger"),
		vala.IsNotNil(deps.Sessions, "Sessions"),
		vala.IsNotNil(deps.Validate, "Validate"),
		vala.IsNotNil(deps.Translator, "Translator"),
	).Check()
	if err != nil {
		return nil, errors.Wrap(err, "validating server dependencies")
	}

	if shutdown == nil {
		shutdown = make(chan os.Signal, 1)
	}
	s := &server{
		addr:     addr,
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: shutdown,
	}
	if err = s.setup(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *server) setup() error {
	conf := s.deps.Conf

	rdr, err := newRenderer(conf.Debug || conf.TestMode)
	if err != nil {
		return errors.Wrap(err, "setting up renderer")
	}

	s.app.HideBanner = true
	s.app.Debug = conf.Debug && !conf.TestMode
	s.app.Logger.SetLevel(log.INFO)
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout
	s.app.Renderer = rdr
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.GET("/healthz", s.health)

	pages := s.app.Group("", s.sessionMiddleware)
	pages.GET("/", s.home)

	tables := pages.Group("/:backend/table", s.backendMiddleware)
	registerStudentsRoutes(tables.Group("/students"), s)
	registerHomeworkRoutes(tables.Group("/homework"), s)
	registerAssignmentRoutes(tables.Group("/assign-homework"), s)
	return nil
}

func (s *server) Start() {
	if err := s.app.Start(s.addr); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

// Errors receives the error that stopped the server, if any.
func (s *server) Errors() <-chan error { return s.errors }

func (s *server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) newPage(ctx echo.Context, base string, view interface{}) page {
	p := page{
		AppName:  s.deps.Conf.AppName,
		Backends: s.deps.Conf.Backends,
		Base:     base,
		View:     view,
	}
	if bc, ok := ctx.Get(contextBackendConfKey).(core.BackendConfig); ok {
		p.Backend = bc
	}
	return p
}

func (s *server) home(ctx echo.Context) error {
	return ctx.Render(http.StatusOK, "home", s.newPage(ctx, "/", nil))
}

func (s *server) health(ctx echo.Context) error {
	names := make([]string, 0, len(s.deps.Conf.Backends))
	for _, bc := range s.deps.Conf.Backends {
		names = append(names, bc.Name)
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"status":   "ok",
		"build":    s.deps.Conf.Build,
		"backends": names,
	})
}
