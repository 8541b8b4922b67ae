package echodash

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolboard/core"
	"github.com/trezcool/schoolboard/core/school"
	"github.com/trezcool/schoolboard/core/views"
)

var (
	contextBackendKey     = "backend"
	contextBackendConfKey = "backendConf"

	errBackendNotFound = echo.NewHTTPError(http.StatusNotFound, "backend not found")
	errInvalidID       = echo.NewHTTPError(http.StatusNotFound, "invalid id")
	errNoSession       = errors.New("session not found in echo.Context")
)

// backendMiddleware selects the backend named by the `:backend` path param.
func (s *server) backendMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		name := strings.ToLower(ctx.Param("backend"))
		backend, ok := s.deps.Backends[name]
		if !ok {
			return errBackendNotFound
		}
		bc, ok := s.deps.Conf.Backend(name)
		if !ok {
			bc = core.BackendConfig{Name: name, Label: name}
		}
		ctx.Set(contextBackendKey, backend)
		ctx.Set(contextBackendConfKey, bc)
		return next(ctx)
	}
}

func getContextBackend(ctx echo.Context) (school.Backend, error) {
	if b, ok := ctx.Get(contextBackendKey).(school.Backend); ok {
		return b, nil
	}
	return nil, errors.Wrap(school.ErrBackendNotFound, "getting context backend")
}

// viewDeps returns the dependencies of the views of the context's backend.
func (s *server) viewDeps(ctx echo.Context) (views.Deps, error) {
	backend, err := getContextBackend(ctx)
	if err != nil {
		return views.Deps{}, err
	}
	return views.Deps{
		Backend:    backend,
		Logger:     s.deps.Logger,
		Validate:   s.deps.Validate,
		Translator: s.deps.Translator,
		Person:     getContextPerson(ctx),
	}, nil
}

// mount returns the session's view named `name` for the context's backend, mounting
// (and loading) it if it is not the session's current view, or if `remount` is set.
// Load failures are reported by the view itself.
func (s *server) mount(ctx echo.Context, name string, remount bool, build func(views.Deps) (views.View, error)) (views.View, error) {
	sess := getContextSession(ctx)
	if sess == nil {
		return nil, errNoSession
	}
	deps, err := s.viewDeps(ctx)
	if err != nil {
		return nil, err
	}

	key := deps.Backend.Name() + ":" + name
	view, fresh, err := sess.Mount(key, remount, func() (views.View, error) { return build(deps) })
	if err != nil {
		return nil, errors.Wrapf(err, "mounting %s", key)
	}
	if fresh {
		_ = view.Load(ctx.Request().Context())
	}
	return view, nil
}

func pathID(ctx echo.Context, name string) (int, error) {
	id, err := core.ParseID(ctx.Param(name))
	if err != nil {
		return 0, errInvalidID
	}
	return id, nil
}

// viewURL returns the URL of the view `name` of the context's backend.
func viewURL(ctx echo.Context, name string) string {
	return "/" + strings.ToLower(ctx.Param("backend")) + "/table/" + name
}

func redirectTo(ctx echo.Context, name string) error {
	return ctx.Redirect(http.StatusSeeOther, viewURL(ctx, name))
}
