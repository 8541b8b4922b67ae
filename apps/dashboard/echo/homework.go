package echodash

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolboard/core/school"
	"github.com/trezcool/schoolboard/core/views"
)

const homeworkView = "homework"

type homeworkPages struct {
	s *server
}

func registerHomeworkRoutes(g *echo.Group, s *server) {
	p := homeworkPages{s: s}

	g.GET("", p.show)
	g.POST("", p.create)
	g.POST("/close", p.closeModal)
	g.POST("/:id/edit", p.openModal)
	g.POST("/:id/save", p.save)
	g.POST("/:id/delete", p.destroy)
}

func (p homeworkPages) table(ctx echo.Context, remount bool) (*views.HomeworkTable, error) {
	view, err := p.s.mount(ctx, homeworkView, remount, func(deps views.Deps) (views.View, error) {
		return views.NewHomeworkTable(deps)
	})
	if err != nil {
		return nil, err
	}
	table, ok := view.(*views.HomeworkTable)
	if !ok {
		return nil, errors.Errorf("unexpected %T view", view)
	}
	return table, nil
}

// Handlers

func (p homeworkPages) show(ctx echo.Context) error {
	table, err := p.table(ctx, ctx.QueryParam("reload") != "")
	if err != nil {
		return err
	}
	return ctx.Render(http.StatusOK, "homework", p.s.newPage(ctx, viewURL(ctx, homeworkView), table.Snapshot()))
}

func (p homeworkPages) create(ctx echo.Context) error {
	var data school.NewHomework
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewHomework")
	}
	table, err := p.table(ctx, false)
	if err != nil {
		return err
	}
	_ = table.Create(ctx.Request().Context(), data)
	return redirectTo(ctx, homeworkView)
}

func (p homeworkPages) openModal(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	table, err := p.table(ctx, false)
	if err != nil {
		return err
	}
	_ = table.OpenEdit(ctx.Request().Context(), id)
	return redirectTo(ctx, homeworkView)
}

func (p homeworkPages) closeModal(ctx echo.Context) error {
	table, err := p.table(ctx, false)
	if err != nil {
		return err
	}
	table.CloseEdit(ctx.Request().Context())
	return redirectTo(ctx, homeworkView)
}

func (p homeworkPages) save(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data school.UpdateHomework
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateHomework")
	}
	table, err := p.table(ctx, false)
	if err != nil {
		return err
	}
	_ = table.Save(ctx.Request().Context(), id, data)
	return redirectTo(ctx, homeworkView)
}

func (p homeworkPages) destroy(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	table, err := p.table(ctx, false)
	if err != nil {
		return err
	}
	_ = table.Delete(ctx.Request().Context(), id)
	return redirectTo(ctx, homeworkView)
}
