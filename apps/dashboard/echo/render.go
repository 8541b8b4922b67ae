package echodash

import (
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolboard/assets"
	"github.com/trezcool/schoolboard/core"
)

// renderer renders the pages found in assets.Templates. Each page is parsed along with the partials.
type renderer struct {
	pages map[string]*template.Template // {name: *Template}
}

var _ echo.Renderer = (*renderer)(nil)

func newRenderer(strict bool) (*renderer, error) {
	fps, err := fs.Glob(assets.Templates, "templates/*.gohtml")
	if err != nil {
		return nil, errors.Wrap(err, "listing templates")
	}

	r := &renderer{pages: make(map[string]*template.Template)}
	for _, fp := range fps {
		fname := path.Base(fp)
		if strings.HasPrefix(fname, "_") {
			continue
		}
		name := strings.TrimSuffix(fname, path.Ext(fname))
		tmpl, err := template.ParseFS(assets.Templates, "templates/_*.gohtml", fp)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing template %s", name)
		}
		if strict {
			tmpl = tmpl.Option("missingkey=error")
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := r.pages[name]
	if !ok {
		// the templates are embedded: the build is broken
		return core.NewShutdownError("template " + name + " not found")
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}

// page is the data every template is executed with.
type page struct {
	AppName  string
	Backends []core.BackendConfig
	Backend  core.BackendConfig // zero outside of backend routes
	Base     string             // URL of the current view
	View     interface{}
}

// errorView is the View of the "error" page.
type errorView struct {
	Code    int
	Status  string
	Message string
}
