package echodash

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolboard/core/school"
	"github.com/trezcool/schoolboard/core/views"
)

const studentsView = "students"

type studentsPages struct {
	s *server
}

func registerStudentsRoutes(g *echo.Group, s *server) {
	p := studentsPages{s: s}

	g.GET("", p.show)
	g.POST("", p.create)
	g.POST("/:id/edit", p.edit)
	g.POST("/:id/cancel", p.cancel)
	g.POST("/:id/save", p.save)
	g.POST("/:id/delete", p.destroy)
}

func (p studentsPages) table(ctx echo.Context, remount bool) (*views.StudentsTable, error) {
	view, err := p.s.mount(ctx, studentsView, remount, func(deps views.Deps) (views.View, error) {
		return views.NewStudentsTable(deps, views.EditableStyle)
	})
	if err != nil {
		return nil, err
	}
	table, ok := view.(*views.StudentsTable)
	if !ok {
		return nil, errors.Errorf("unexpected %T view", view)
	}
	return table, nil
}

// Handlers

func (p studentsPages) show(ctx echo.Context) error {
	table, err := p.table(ctx, ctx.QueryParam("reload") != "")
	if err != nil {
		return err
	}
	return ctx.Render(http.StatusOK, "students", p.s.newPage(ctx, viewURL(ctx, studentsView), table.Snapshot()))
}

func (p studentsPages) create(ctx echo.Context) error {
	var data school.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	table, err := p.table(ctx, false)
	if err != nil {
		return err
	}
	_ = table.Create(ctx.Request().Context(), data)
	return redirectTo(ctx, studentsView)
}

func (p studentsPages) edit(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	table, err := p.table(ctx, false)
	if err != nil {
		return err
	}
	_ = table.Edit(id)
	return redirectTo(ctx, studentsView)
}

func (p studentsPages) cancel(ctx echo.Context) error {
	table, err := p.table(ctx, false)
	if err != nil {
		return err
	}
	table.CancelEdit()
	return redirectTo(ctx, studentsView)
}

func (p studentsPages) save(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data school.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	table, err := p.table(ctx, false)
	if err != nil {
		return err
	}
	_ = table.Save(ctx.Request().Context(), id, data)
	return redirectTo(ctx, studentsView)
}

func (p studentsPages) destroy(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	table, err := p.table(ctx, false)
	if err != nil {
		return err
	}
	_ = table.Delete(ctx.Request().Context(), id)
	return redirectTo(ctx, studentsView)
}
